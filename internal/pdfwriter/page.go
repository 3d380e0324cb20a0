package pdfwriter

import (
	"fmt"
	"strings"
)

// Resource names for the two standard fonts every overlay page lists,
// whether or not a given page actually draws text with them.
const (
	ResourceNameHelvetica    = "/F1"
	ResourceNameZapfDingbats = "/F2"
)

// ImageXObject describes an image ready to be embedded as a PDF XObject.
type ImageXObject struct {
	Width, Height int
	ColorSpace    string // e.g. "/DeviceRGB", "/DeviceGray", "/DeviceCMYK"
	DCTDecode     bool   // true for a JPEG passthrough, false for raw RGB8/Gray8
	Data          []byte // JPEG bytes (DCTDecode) or raw interleaved samples
}

// AddImageXObject stores img as a new XObject and returns its object
// number. JPEG images are stored unmodified (DCTDecode preserves the
// original compression); anything else is Flate-compressed.
func (w *Writer) AddImageXObject(img ImageXObject) int {
	dict := Dictionary{
		"Type":             "/XObject",
		"Subtype":          "/Image",
		"Width":            img.Width,
		"Height":           img.Height,
		"ColorSpace":       img.ColorSpace,
		"BitsPerComponent": 8,
	}
	if img.DCTDecode {
		dict["Filter"] = "/DCTDecode"
		return w.AddRawStreamObject(dict, img.Data)
	}
	return w.AddStreamObject(dict, img.Data)
}

// Page accumulates the resources and content stream for one overlay page.
type Page struct {
	writer  *Writer
	width   float64
	height  float64
	images  map[string]int // resource name (no leading /) -> XObject object number
	content *ContentStream
}

// newPage creates a Page bound to w's object graph.
func newPage(w *Writer, width, height float64) *Page {
	return &Page{writer: w, width: width, height: height, images: make(map[string]int), content: NewContentStream()}
}

// Content returns the content stream builder for this page.
func (p *Page) Content() *ContentStream {
	return p.content
}

// AddImage registers objNum as an XObject resource on this page, reusing
// nameHint (without its leading slash) when given, or synthesizing "ImN".
// Calling this again with an objNum already registered under nameHint is a
// no-op; it simply returns the existing resource name, which is how the
// same decoded image is placed more than once on one page.
func (p *Page) AddImage(objNum int, nameHint string) string {
	name := strings.TrimPrefix(nameHint, "/")
	if name == "" {
		name = fmt.Sprintf("Im%d", len(p.images)+1)
	}
	p.images[name] = objNum
	return "/" + name
}

// PageSource is what internal/compose needs to graft one overlay page onto
// a template page as a Form XObject: the page's own content bytes and
// resource dictionary, already resolved to object references.
type PageSource struct {
	Width, Height float64
	Content       []byte
	Resources     Dictionary
}

// build finalizes the page: it writes the content stream and page objects
// into the owning Writer (so the overlay is itself a valid, serializable
// PDF) and returns both the page object number and a PageSource for the
// composer to consume directly. fontRefs are the document-level Helvetica/
// ZapfDingbats object references, shared across every page.
func (p *Page) build(pagesObjNum int, fontRefs Dictionary) (pageObjNum int, src PageSource) {
	resourcesDict := Dictionary{"Font": fontRefs}
	if len(p.images) > 0 {
		xobjDict := Dictionary{}
		for name, objNum := range p.images {
			xobjDict[name] = fmt.Sprintf("%d 0 R", objNum)
		}
		resourcesDict["XObject"] = xobjDict
	}

	contentObjNum := p.writer.AddStreamObject(Dictionary{}, p.content.Bytes())

	pageDict := fmt.Sprintf(
		"<</Type/Page/Parent %d 0 R/MediaBox[0 0 %s %s]/Contents %d 0 R/Resources %s>>",
		pagesObjNum, FormatValue(p.width), FormatValue(p.height), contentObjNum, FormatDictionary(resourcesDict),
	)
	pageObjNum = p.writer.AddObject([]byte(pageDict))

	src = PageSource{Width: p.width, Height: p.height, Content: p.content.Bytes(), Resources: resourcesDict}
	return pageObjNum, src
}
