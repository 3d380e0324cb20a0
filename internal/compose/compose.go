package compose

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
	"github.com/benedoc-inc/fillpdf/internal/pdfwriter"
)

// Compose grafts overlay's per-page content onto template as a Form
// XObject per page (named "OvlN"), preserving every other template object
// untouched and byte-identical. flatten additionally strips /AcroForm from
// the catalog and /Annots from every page, so the output carries no
// interactive form fields or widget annotations, per the flattened-output
// invariant.
func Compose(template *Template, overlay *pdfwriter.OverlayDocument, flatten bool) ([]byte, error) {
	if len(overlay.Pages) != template.PageCount() {
		return nil, pdferrors.Newf(pdferrors.CodeWriteError,
			"overlay page count %d does not match template page count %d", len(overlay.Pages), template.PageCount())
	}

	w := pdfwriter.New()
	for _, num := range template.order {
		w.SetObject(num, template.objects[num].Body)
	}

	oldToNew, err := copyOverlayLeafObjects(w, overlay)
	if err != nil {
		return nil, err
	}

	modified := make(map[int][]byte) // template object number -> new body

	for i, pageObjNum := range template.pageObjNums {
		src := overlay.Pages[i]
		if len(bytes.TrimSpace(src.Content)) == 0 {
			if flatten {
				modified[pageObjNum] = removeKey(bodyFor(modified, template, pageObjNum), "Annots")
			}
			continue
		}

		resourcesDict, err := remapResources(src.Resources, oldToNew)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		formDict := pdfwriter.Dictionary{
			"Type":      "/XObject",
			"Subtype":   "/Form",
			"BBox":      fmt.Sprintf("[0 0 %s %s]", pdfwriter.FormatValue(src.Width), pdfwriter.FormatValue(src.Height)),
			"Resources": resourcesDict,
		}
		formObjNum := w.AddStreamObject(formDict, src.Content)

		resourceName := fmt.Sprintf("Ovl%d", i+1)
		opStream := []byte(fmt.Sprintf("q\n1 0 0 1 0 0 cm\n/%s Do\nQ\n", resourceName))
		opStreamObjNum := w.AddStreamObject(pdfwriter.Dictionary{}, opStream)

		pageBody := bodyFor(modified, template, pageObjNum)
		pageBody, err = addFormXObjectResource(w, modified, template, pageObjNum, pageBody, resourceName, formObjNum)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pageBody = appendContentStream(pageBody, opStreamObjNum)

		if flatten {
			pageBody = removeKey(pageBody, "Annots")
		}
		modified[pageObjNum] = pageBody
	}

	if flatten {
		catalogBody := bodyFor(modified, template, template.catalogNum)
		modified[template.catalogNum] = removeKey(catalogBody, "AcroForm")
	}

	for num, body := range modified {
		w.SetObject(num, body)
	}
	w.SetRoot(template.catalogNum)

	return w.Bytes()
}

// bodyFor returns num's current body: the in-progress edited version if one
// exists, otherwise the template's original bytes.
func bodyFor(modified map[int][]byte, t *Template, num int) []byte {
	if b, ok := modified[num]; ok {
		return b
	}
	return t.objects[num].Body
}

// copyOverlayLeafObjects copies every overlay object actually referenced by
// a non-empty page's Resources (the shared Helvetica/ZapfDingbats font
// objects and any image XObjects) into w under new object numbers, and
// returns the old->new mapping.
func copyOverlayLeafObjects(w *pdfwriter.Writer, overlay *pdfwriter.OverlayDocument) (map[int]int, error) {
	needed := make(map[int]bool)
	for _, src := range overlay.Pages {
		if len(bytes.TrimSpace(src.Content)) == 0 {
			continue
		}
		collectResourceRefs(src.Resources, needed)
	}

	byNum := make(map[int]pdfwriter.ExportedObject, len(needed))
	for _, exp := range overlay.Writer().ExportObjects() {
		byNum[exp.Number] = exp
	}

	nums := make([]int, 0, len(needed))
	for n := range needed {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	oldToNew := make(map[int]int, len(nums))
	for _, old := range nums {
		exp, ok := byNum[old]
		if !ok {
			return nil, fmt.Errorf("overlay resource references missing object %d", old)
		}
		var newNum int
		if exp.IsStream {
			newNum = w.AddRawStreamObject(copyDict(exp.Dict), exp.Stream)
		} else {
			newNum = w.AddObject(exp.Content)
		}
		oldToNew[old] = newNum
	}
	return oldToNew, nil
}

func collectResourceRefs(resources pdfwriter.Dictionary, needed map[int]bool) {
	for _, key := range []string{"Font", "XObject"} {
		sub, ok := resources[key].(pdfwriter.Dictionary)
		if !ok {
			continue
		}
		for _, v := range sub {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if m := refFindPattern.FindStringSubmatch(s); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					needed[n] = true
				}
			}
		}
	}
}

func copyDict(d pdfwriter.Dictionary) pdfwriter.Dictionary {
	out := make(pdfwriter.Dictionary, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// remapResources rebuilds an overlay page's Font/XObject resource entries
// under oldToNew's renumbering, so they resolve inside the composed PDF.
func remapResources(resources pdfwriter.Dictionary, oldToNew map[int]int) (pdfwriter.Dictionary, error) {
	out := pdfwriter.Dictionary{}
	for _, key := range []string{"Font", "XObject"} {
		sub, ok := resources[key].(pdfwriter.Dictionary)
		if !ok {
			continue
		}
		remapped := pdfwriter.Dictionary{}
		for name, v := range sub {
			s, ok := v.(string)
			if !ok {
				continue
			}
			m := refFindPattern.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			oldNum, _ := strconv.Atoi(m[1])
			newNum, ok := oldToNew[oldNum]
			if !ok {
				return nil, fmt.Errorf("resource %q references uncopied object %d", name, oldNum)
			}
			remapped[name] = fmt.Sprintf("%d 0 R", newNum)
		}
		if len(remapped) > 0 {
			out[key] = remapped
		}
	}
	return out, nil
}

// addFormXObjectResource adds resourceName -> formObjNum to pageBody's
// /Resources/XObject dictionary. A fresh Resources object is always
// allocated (rather than editing the original in place), so a Resources
// dictionary shared between pages is never mutated for one page's sake.
func addFormXObjectResource(w *pdfwriter.Writer, modified map[int][]byte, t *Template, pageObjNum int, pageBody []byte, resourceName string, formObjNum int) ([]byte, error) {
	resourcesVal := extractDictValue(pageBody, "Resources")

	var baseDict []byte
	switch {
	case resourcesVal == "":
		baseDict = []byte("<<>>")
	default:
		if refNum, err := parseObjectRef(resourcesVal); err == nil {
			baseDict = bodyFor(modified, t, refNum)
		} else {
			baseDict = []byte(resourcesVal)
		}
	}

	newEntry := fmt.Sprintf("/%s %d 0 R", resourceName, formObjNum)
	mergedDict := mergeXObjectEntry(baseDict, newEntry)

	newResourcesObjNum := w.AddObject(mergedDict)
	newResourcesRef := fmt.Sprintf("%d 0 R", newResourcesObjNum)

	if resourcesVal == "" {
		return replaceOrInsertKey(pageBody, "Resources", newResourcesRef), nil
	}

	start, end, ok := findKeyValueSpan(pageBody, "Resources")
	if !ok {
		return nil, fmt.Errorf("page %d: /Resources vanished unexpectedly", pageObjNum)
	}
	out := make([]byte, 0, len(pageBody))
	out = append(out, pageBody[:start]...)
	out = append(out, []byte(newResourcesRef)...)
	out = append(out, pageBody[end:]...)
	return out, nil
}

// mergeXObjectEntry inserts entry ("/Name N 0 R") into dict's /XObject
// sub-dictionary, creating one if absent. When /XObject is itself an
// indirect reference this replaces it with a fresh inline dict holding only
// the new entry: templates whose page Resources nest a second level of
// indirection for /XObject lose their pre-existing image resources here,
// which the field-filling use case never triggers for its own overlay.
func mergeXObjectEntry(dict []byte, entry string) []byte {
	start, end, ok := findKeyValueSpan(dict, "XObject")
	if !ok {
		closeIdx := bytes.LastIndex(dict, []byte(">>"))
		if closeIdx == -1 {
			return append(append([]byte{}, dict...), []byte(" <<"+entry+">>")...)
		}
		out := make([]byte, 0, len(dict)+len(entry)+16)
		out = append(out, dict[:closeIdx]...)
		out = append(out, []byte("/XObject <<"+entry+">> ")...)
		out = append(out, dict[closeIdx:]...)
		return out
	}

	value := dict[start:end]
	if bytes.HasPrefix(value, []byte("<<")) {
		insertAt := start + len(value) - 2 // just before the closing ">>"
		out := make([]byte, 0, len(dict)+len(entry)+2)
		out = append(out, dict[:insertAt]...)
		out = append(out, []byte(" "+entry+" ")...)
		out = append(out, dict[insertAt:]...)
		return out
	}

	out := make([]byte, 0, len(dict))
	out = append(out, dict[:start]...)
	out = append(out, []byte("<<"+entry+">>")...)
	out = append(out, dict[end:]...)
	return out
}

// appendContentStream extends pageBody's /Contents into (or within) an
// array that includes opStreamObjNum, preserving the original content
// stream(s) ahead of the new one so paint order is: template content, then
// the overlay.
func appendContentStream(pageBody []byte, opStreamObjNum int) []byte {
	contentsVal := extractDictValue(pageBody, "Contents")
	newRef := fmt.Sprintf("%d 0 R", opStreamObjNum)

	if contentsVal == "" {
		return replaceOrInsertKey(pageBody, "Contents", "["+newRef+"]")
	}

	var newValue string
	if strings.HasPrefix(contentsVal, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(contentsVal, "["), "]")
		newValue = "[" + strings.TrimSpace(inner) + " " + newRef + "]"
	} else {
		newValue = "[" + contentsVal + " " + newRef + "]"
	}

	start, end, ok := findKeyValueSpan(pageBody, "Contents")
	if !ok {
		return pageBody
	}
	out := make([]byte, 0, len(pageBody)+len(newValue))
	out = append(out, pageBody[:start]...)
	out = append(out, []byte(newValue)...)
	out = append(out, pageBody[end:]...)
	return out
}
