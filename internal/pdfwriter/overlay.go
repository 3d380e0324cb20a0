package pdfwriter

import "fmt"

// OverlayDocument is the transient in-memory PDF the field renderer paints
// onto: same page count and sizes as the template, no AcroForm, no widget
// annotations. It is always structurally valid and can be serialized with
// Bytes(), but its primary purpose is to hand internal/compose a PageSource
// per page without a serialize/reparse round trip.
type OverlayDocument struct {
	writer      *Writer
	pagesObjNum int
	pageObjNums []int
	fontRefs    Dictionary
	Pages       []PageSource
}

// NewOverlayDocument creates an empty overlay with its own object graph.
func NewOverlayDocument() *OverlayDocument {
	return &OverlayDocument{writer: New()}
}

// Writer exposes the underlying object graph, e.g. for
// AddImageXObject calls made while rendering a page.
func (o *OverlayDocument) Writer() *Writer {
	return o.writer
}

// AddPage starts a new page of the given size (in points).
func (o *OverlayDocument) AddPage(width, height float64) *Page {
	return newPage(o.writer, width, height)
}

// FinalizePage writes p's content and resources into the document and
// records its PageSource for the composer. Pages must be finalized in
// template page order.
func (o *OverlayDocument) FinalizePage(p *Page) {
	if o.pagesObjNum == 0 {
		o.pagesObjNum = o.writer.ReserveObjectNumber()
	}
	if o.fontRefs == nil {
		helveticaObjNum := o.writer.AddObject([]byte(`<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>`))
		zapfObjNum := o.writer.AddObject([]byte(`<</Type/Font/Subtype/Type1/BaseFont/ZapfDingbats>>`))
		o.fontRefs = Dictionary{
			"F1": fmt.Sprintf("%d 0 R", helveticaObjNum),
			"F2": fmt.Sprintf("%d 0 R", zapfObjNum),
		}
	}

	pageObjNum, src := p.build(o.pagesObjNum, o.fontRefs)
	o.pageObjNums = append(o.pageObjNums, pageObjNum)
	o.Pages = append(o.Pages, src)
}

// Bytes finalizes the Catalog/Pages tree (no AcroForm, no /Annots anywhere)
// and serializes the complete overlay PDF.
func (o *OverlayDocument) Bytes() ([]byte, error) {
	kids := make([]interface{}, len(o.pageObjNums))
	for i, n := range o.pageObjNums {
		kids[i] = fmt.Sprintf("%d 0 R", n)
	}
	pagesDict := fmt.Sprintf("<</Type/Pages/Kids%s/Count %d>>", FormatValue(kids), len(o.pageObjNums))
	o.writer.SetObject(o.pagesObjNum, []byte(pagesDict))

	catalogObjNum := o.writer.AddObject([]byte(fmt.Sprintf("<</Type/Catalog/Pages %d 0 R>>", o.pagesObjNum)))
	o.writer.SetRoot(catalogObjNum)

	return o.writer.Bytes()
}
