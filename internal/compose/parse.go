// Package compose grafts a rendered overlay document onto a template PDF's
// own object graph as a per-page Form XObject, without re-parsing either
// document's serialized bytes.
package compose

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
)

// PageSize is one template page's dimensions, in points.
type PageSize struct {
	Width, Height float64
}

// rawObject is one object's exact bytes, as found in the template: its
// object number and the "N G obj"-stripped body (what a PDF writer's object
// table wants), including any stream data.
type rawObject struct {
	Number int
	Body   []byte // everything between "obj" and "endobj"
}

// Template is a parsed template PDF: every object's raw bytes, preserved
// untouched, plus the page tree resolved into an ordered page list.
type Template struct {
	raw         []byte
	objects     map[int]*rawObject
	order       []int // object numbers in ascending order
	pageObjNums []int // in document page order
	pageSizes   []PageSize
	catalogNum  int
	maxObjNum   int
}

var objHeaderPattern = regexp.MustCompile(`(?:^|[\s>])(\d+)\s+(\d+)\s+obj\b`)

// defaultMediaBox is used when a page (and its ancestors) carries no
// /MediaBox of its own, matching the common US Letter default.
var defaultMediaBox = PageSize{Width: 612, Height: 792}

// ParseTemplate scans pdfBytes for every object, resolves the document
// catalog and page tree, and extracts each page's size. It does not rely on
// a well-formed cross-reference table: objects are located by scanning for
// "N G obj" headers directly, which tolerates the xref corruption or
// incremental-update quirks real-world template PDFs often carry.
func ParseTemplate(pdfBytes []byte) (*Template, error) {
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF-")) {
		return nil, pdferrors.New(pdferrors.CodeTemplateUnparseable, "not a PDF file (missing %PDF- header)")
	}

	t := &Template{raw: pdfBytes, objects: make(map[int]*rawObject)}
	if err := t.scanObjects(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnparseable, "failed to scan PDF objects", err)
	}
	if len(t.objects) == 0 {
		return nil, pdferrors.New(pdferrors.CodeTemplateUnparseable, "no PDF objects found")
	}

	catalogNum, err := t.findCatalog()
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnparseable, "failed to locate document catalog", err)
	}
	t.catalogNum = catalogNum

	pagesRef := extractDictValue(t.objects[catalogNum].Body, "Pages")
	pagesNum, err := parseObjectRef(pagesRef)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnparseable, "catalog has no valid /Pages reference", err)
	}

	if err := t.walkPageTree(pagesNum, nil); err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnparseable, "failed to walk page tree", err)
	}
	if len(t.pageObjNums) == 0 {
		return nil, pdferrors.New(pdferrors.CodeTemplateUnparseable, "template has no pages")
	}

	return t, nil
}

// scanObjects finds every "N G obj ... endobj" span in the document.
// Later occurrences of the same object number win, matching how an
// incrementally-updated PDF's later revision overrides an earlier one.
func (t *Template) scanObjects() error {
	matches := objHeaderPattern.FindAllSubmatchIndex(t.raw, -1)
	if matches == nil {
		return fmt.Errorf("no object headers found")
	}

	for _, m := range matches {
		numStart, numEnd := m[2], m[3]
		objNum, err := strconv.Atoi(string(t.raw[numStart:numEnd]))
		if err != nil {
			continue
		}

		// m[0] may include a leading whitespace/'>' delimiter captured by the
		// non-capturing group; the object header itself starts at numStart's
		// line, so search forward from there for "obj" and "endobj".
		objKeywordIdx := bytes.Index(t.raw[numStart:], []byte("obj"))
		if objKeywordIdx == -1 {
			continue
		}
		bodyStart := numStart + objKeywordIdx + 3
		for bodyStart < len(t.raw) && isPDFSpace(t.raw[bodyStart]) {
			bodyStart++
		}

		endobjIdx := bytes.Index(t.raw[bodyStart:], []byte("endobj"))
		if endobjIdx == -1 {
			continue
		}
		bodyEnd := bodyStart + endobjIdx
		for bodyEnd > bodyStart && isPDFSpace(t.raw[bodyEnd-1]) {
			bodyEnd--
		}

		body := make([]byte, bodyEnd-bodyStart)
		copy(body, t.raw[bodyStart:bodyEnd])
		t.objects[objNum] = &rawObject{Number: objNum, Body: body}
		t.order = append(t.order, objNum)
		if objNum > t.maxObjNum {
			t.maxObjNum = objNum
		}
	}

	sort.Ints(t.order)
	// order may contain duplicates from multiple scans of the same object
	// number across incremental updates; dedupe while preserving ascending
	// order (the map already holds only the last-scanned body).
	deduped := t.order[:0]
	seen := make(map[int]bool, len(t.order))
	for _, n := range t.order {
		if !seen[n] {
			seen[n] = true
			deduped = append(deduped, n)
		}
	}
	t.order = deduped
	return nil
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f'
}

// findCatalog locates the /Type/Catalog object, preferring the trailer's
// /Root when present and falling back to a scan of every object.
func (t *Template) findCatalog() (int, error) {
	if m := regexp.MustCompile(`trailer[\s\S]*?/Root\s+(\d+)\s+\d+\s+R`).FindSubmatch(t.raw); m != nil {
		num, err := strconv.Atoi(string(m[1]))
		if err == nil {
			if _, ok := t.objects[num]; ok {
				return num, nil
			}
		}
	}
	if m := regexp.MustCompile(`/Root\s+(\d+)\s+\d+\s+R`).FindSubmatch(t.raw); m != nil {
		num, err := strconv.Atoi(string(m[1]))
		if err == nil {
			if _, ok := t.objects[num]; ok {
				return num, nil
			}
		}
	}
	for _, num := range t.order {
		if bytes.Contains(t.objects[num].Body, []byte("/Type/Catalog")) || bytes.Contains(t.objects[num].Body, []byte("/Type /Catalog")) {
			return num, nil
		}
	}
	return 0, fmt.Errorf("no document catalog found")
}

// walkPageTree recurses through /Kids, appending leaf /Page objects to
// t.pageObjNums/t.pageSizes in document order. inheritedBox carries a
// /MediaBox down from an ancestor Pages node when a page doesn't set its
// own, per the PDF inheritance rule.
func (t *Template) walkPageTree(objNum int, inheritedBox *PageSize) error {
	obj, ok := t.objects[objNum]
	if !ok {
		return fmt.Errorf("page tree node %d not found", objNum)
	}

	box := inheritedBox
	if mb := extractDictValue(obj.Body, "MediaBox"); mb != "" {
		if parsed, ok := parseMediaBox(mb); ok {
			box = &parsed
		}
	}

	typeVal := extractDictValue(obj.Body, "Type")
	if typeVal == "/Page" {
		t.pageObjNums = append(t.pageObjNums, objNum)
		if box != nil {
			t.pageSizes = append(t.pageSizes, *box)
		} else {
			t.pageSizes = append(t.pageSizes, defaultMediaBox)
		}
		return nil
	}

	kids := extractDictValue(obj.Body, "Kids")
	if kids == "" {
		// No /Type and no /Kids: treat as a leaf page, tolerating
		// minimal/non-conformant page dictionaries.
		t.pageObjNums = append(t.pageObjNums, objNum)
		if box != nil {
			t.pageSizes = append(t.pageSizes, *box)
		} else {
			t.pageSizes = append(t.pageSizes, defaultMediaBox)
		}
		return nil
	}

	for _, kidNum := range parseObjectRefArray(kids) {
		if err := t.walkPageTree(kidNum, box); err != nil {
			return err
		}
	}
	return nil
}

// parseMediaBox parses a "[a b c d]" MediaBox value into width/height.
func parseMediaBox(s string) (PageSize, bool) {
	nums := regexp.MustCompile(`-?[\d.]+`).FindAllString(s, -1)
	if len(nums) != 4 {
		return PageSize{}, false
	}
	vals := make([]float64, 4)
	for i, n := range nums {
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return PageSize{}, false
		}
		vals[i] = f
	}
	width := vals[2] - vals[0]
	height := vals[3] - vals[1]
	if width <= 0 || height <= 0 {
		return PageSize{}, false
	}
	return PageSize{Width: width, Height: height}, true
}

// PageSizes returns every template page's size, in document order.
func (t *Template) PageSizes() []PageSize {
	out := make([]PageSize, len(t.pageSizes))
	copy(out, t.pageSizes)
	return out
}

// PageCount returns the number of pages found in the template.
func (t *Template) PageCount() int {
	return len(t.pageObjNums)
}
