package pdfwriter

import (
	"bytes"
	"testing"
)

func TestWriter_BasicPDF(t *testing.T) {
	w := New()

	catalogNum := w.AddObject([]byte("<</Type/Catalog/Pages 2 0 R>>"))
	w.SetRoot(catalogNum)
	w.AddObject([]byte("<</Type/Pages/Kids[]/Count 0>>"))

	pdfBytes, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}

	if !bytes.HasPrefix(pdfBytes, []byte("%PDF-1.7")) {
		t.Errorf("PDF should start with %%PDF-1.7")
	}
	if !bytes.Contains(pdfBytes, []byte("xref")) {
		t.Errorf("PDF should contain xref table")
	}
	if !bytes.Contains(pdfBytes, []byte("trailer")) {
		t.Errorf("PDF should contain trailer")
	}
	if !bytes.Contains(pdfBytes, []byte("startxref")) {
		t.Errorf("PDF should contain startxref")
	}
	if !bytes.HasSuffix(pdfBytes, []byte("%%EOF\n")) {
		t.Errorf("PDF should end with EOF marker")
	}
	t.Logf("generated PDF: %d bytes", len(pdfBytes))
}

func TestWriter_StreamObjectCompressed(t *testing.T) {
	w := New()
	objNum := w.AddStreamObject(Dictionary{"Type": "/Test"}, []byte("the quick brown fox jumps over the lazy dog"))
	catalogNum := w.AddObject([]byte("<</Type/Catalog>>"))
	w.SetRoot(catalogNum)

	pdfBytes, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Contains(pdfBytes, []byte("/FlateDecode")) {
		t.Errorf("expected /FlateDecode filter in output")
	}
	if !bytes.Contains(pdfBytes, []byte("/Length")) {
		t.Errorf("expected /Length in stream dictionary")
	}
	t.Logf("stream object number: %d", objNum)
}

func TestWriter_RawStreamObjectUncompressed(t *testing.T) {
	w := New()
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	objNum := w.AddRawStreamObject(Dictionary{"Filter": "/DCTDecode"}, raw)
	w.SetRoot(w.AddObject([]byte("<</Type/Catalog>>")))

	pdfBytes, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Contains(pdfBytes, raw) {
		t.Errorf("expected raw bytes to appear unmodified in output")
	}
	if bytes.Contains(pdfBytes, []byte("/FlateDecode")) {
		t.Errorf("raw stream object must not be Flate-compressed")
	}
	t.Logf("raw stream object number: %d", objNum)
}

func TestWriter_SetObjectAtReservedNumber(t *testing.T) {
	w := New()
	w.SetObject(5, []byte("<</Type/Test1>>"))
	w.SetObject(10, []byte("<</Type/Test2>>"))
	w.SetRoot(5)

	pdfBytes, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Contains(pdfBytes, []byte("5 0 obj")) {
		t.Errorf("expected object 5 in output")
	}
	if !bytes.Contains(pdfBytes, []byte("10 0 obj")) {
		t.Errorf("expected object 10 in output")
	}
	if !bytes.Contains(pdfBytes, []byte("/Size 11")) {
		t.Errorf("expected /Size 11 (objects 0-10 inclusive)")
	}
}

func TestWriter_XRefFreeEntryZero(t *testing.T) {
	w := New()
	w.AddObject([]byte("<</Test 1>>"))
	w.AddObject([]byte("<</Test 2>>"))
	w.SetRoot(w.AddObject([]byte("<</Type/Catalog>>")))

	pdfBytes, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	xrefIdx := bytes.Index(pdfBytes, []byte("xref\n"))
	if xrefIdx == -1 {
		t.Fatal("xref section not found")
	}
	if !bytes.Contains(pdfBytes[xrefIdx:], []byte("0000000000 65535 f ")) {
		t.Errorf("xref should start with the free entry for object 0")
	}
}

func TestFormatDictionary_SortedKeys(t *testing.T) {
	dict := Dictionary{
		"Type":   "/Catalog",
		"Length": 42,
		"Name":   "/TestName",
		"Ref":    "5 0 R",
	}
	formatted := FormatDictionary(dict)

	if !bytes.Contains(formatted, []byte("/Type /Catalog")) {
		t.Errorf("expected /Type /Catalog, got: %s", formatted)
	}
	if !bytes.Contains(formatted, []byte("/Length 42")) {
		t.Errorf("expected /Length 42, got: %s", formatted)
	}
	if !bytes.Contains(formatted, []byte("/Ref 5 0 R")) {
		t.Errorf("expected /Ref 5 0 R, got: %s", formatted)
	}
	t.Logf("formatted dictionary: %s", formatted)
}

func TestFormatValue_EscapesParensInStrings(t *testing.T) {
	got := FormatValue("a (note) and \\ a backslash")
	want := `(a \(note\) and \\ a backslash)`
	if got != want {
		t.Errorf("FormatValue = %q, want %q", got, want)
	}
}
