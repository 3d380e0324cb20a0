package pdfwriter

import (
	"bytes"
	"testing"
)

func TestOverlayDocument_SinglePageNoAcroForm(t *testing.T) {
	doc := NewOverlayDocument()
	page := doc.AddPage(612, 792)
	page.Content().BeginText().SetFont(ResourceNameHelvetica, 12).SetTextPosition(10, 700).ShowText("hello").EndText()
	doc.FinalizePage(page)

	pdfBytes, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if bytes.Contains(pdfBytes, []byte("/AcroForm")) {
		t.Errorf("overlay must never contain /AcroForm")
	}
	if bytes.Contains(pdfBytes, []byte("/Annots")) {
		t.Errorf("overlay must never contain /Annots")
	}
	if !bytes.Contains(pdfBytes, []byte("/MediaBox[0 0 612 792]")) {
		t.Errorf("expected MediaBox matching the page size, got: %s", pdfBytes)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 PageSource, got %d", len(doc.Pages))
	}
}

func TestOverlayDocument_PageSourceCarriesFontResources(t *testing.T) {
	doc := NewOverlayDocument()
	page := doc.AddPage(200, 200)
	doc.FinalizePage(page)

	src := doc.Pages[0]
	fonts, ok := src.Resources["Font"].(Dictionary)
	if !ok {
		t.Fatalf("expected Resources[\"Font\"] to be a Dictionary, got %T", src.Resources["Font"])
	}
	if _, ok := fonts["F1"]; !ok {
		t.Errorf("expected F1 (Helvetica) in every page's Resources")
	}
	if _, ok := fonts["F2"]; !ok {
		t.Errorf("expected F2 (ZapfDingbats) in every page's Resources")
	}
}

func TestOverlayDocument_MultiplePagesShareFontObjects(t *testing.T) {
	doc := NewOverlayDocument()
	p1 := doc.AddPage(100, 100)
	doc.FinalizePage(p1)
	p2 := doc.AddPage(100, 100)
	doc.FinalizePage(p2)

	f1 := doc.Pages[0].Resources["Font"].(Dictionary)["F1"]
	f2 := doc.Pages[1].Resources["Font"].(Dictionary)["F1"]
	if f1 != f2 {
		t.Errorf("expected both pages to reference the same Helvetica object, got %v and %v", f1, f2)
	}
}

func TestOverlayDocument_ImageXObjectRegisteredInPageResources(t *testing.T) {
	doc := NewOverlayDocument()
	objNum := doc.Writer().AddImageXObject(ImageXObject{
		Width: 10, Height: 10, ColorSpace: "/DeviceRGB", Data: make([]byte, 300),
	})

	page := doc.AddPage(300, 300)
	name := page.AddImage(objNum, "")
	page.Content().SaveState().SetMatrix(10, 0, 0, 10, 0, 0).DrawImage(name).RestoreState()
	doc.FinalizePage(page)

	xobj, ok := doc.Pages[0].Resources["XObject"].(Dictionary)
	if !ok {
		t.Fatalf("expected XObject resources to be present")
	}
	if len(xobj) != 1 {
		t.Errorf("expected exactly 1 XObject entry, got %d", len(xobj))
	}
}

func TestOverlayDocument_DuplicateFieldReusesSameXObjectAcrossPlacements(t *testing.T) {
	doc := NewOverlayDocument()
	objNum := doc.Writer().AddImageXObject(ImageXObject{
		Width: 10, Height: 10, ColorSpace: "/DeviceRGB", Data: make([]byte, 300),
	})

	page := doc.AddPage(300, 300)
	name1 := page.AddImage(objNum, "ImShared")
	name2 := page.AddImage(objNum, "ImShared")
	if name1 != name2 {
		t.Errorf("expected the same resource name on repeated registration, got %q and %q", name1, name2)
	}
	page.Content().DrawImage(name1)
	page.Content().DrawImage(name2)
	doc.FinalizePage(page)

	xobj := doc.Pages[0].Resources["XObject"].(Dictionary)
	if len(xobj) != 1 {
		t.Errorf("expected one XObject resource entry reused by two Do operators, got %d", len(xobj))
	}
}
