package fields

import (
	"fmt"

	"github.com/benedoc-inc/fillpdf/internal/geom"
	"github.com/benedoc-inc/fillpdf/internal/metadata"
	"github.com/benedoc-inc/fillpdf/internal/pdftext"
	"github.com/benedoc-inc/fillpdf/internal/pdfwriter"
	"github.com/benedoc-inc/fillpdf/internal/rasterimage"
)

// PageSize is one template page's dimensions, in points.
type PageSize struct {
	Width, Height float64
}

// defaultFontSize is used for text-like fields that don't specify one. The
// spec leaves this choice to the implementation.
const defaultFontSize = 12.0

// checkboxGlyph is the ZapfDingbats checkmark (Adobe glyph name a20).
const checkboxGlyph = "4"

// radioGlyph is a ZapfDingbats filled bullet (Adobe glyph name a71).
const radioGlyph = "l"

// imageXObject caches the decoded XObject for a field_id so a repeated
// field_id reuses the same XObject reference, per spec's identity-keyed
// dedup rule (§3 Image cache).
type imageXObject struct {
	objNum         int
	pixelW, pixelH int
}

// Render paints every field onto a fresh overlay document sized to match
// pages, in input order, exactly as spec §4.5 dispatches.
func Render(fieldList []Field, pages []PageSize, mc *metadata.Collector) (*pdfwriter.OverlayDocument, error) {
	doc := pdfwriter.NewOverlayDocument()

	pageObjs := make([]*pdfwriter.Page, len(pages))
	fieldsPerPage := make([]int, len(pages))
	for i, sz := range pages {
		pageObjs[i] = doc.AddPage(sz.Width, sz.Height)
	}

	imageCache := make(map[string]imageXObject)

	for _, f := range fieldList {
		if f.Page < 0 || f.Page >= len(pages) {
			mc.Warnf("Page %d not found in template", f.Page)
			mc.RecordSkipped()
			continue
		}

		page := pageObjs[f.Page]
		pageSize := pages[f.Page]
		box := geom.InvertY(f.Y, f.Height, pageSize.Height)
		fieldBox := pdftext.Box{X: f.X, Y: box, Width: f.Width, Height: f.Height}

		var err error
		switch {
		case f.Type.isTextLike():
			renderText(page, f, fieldBox, mc)
		case f.Type == TypeCheckbox:
			if Truthy(f.Value) {
				renderMark(page, checkboxGlyph, fieldBox, 0.8)
			}
		case f.Type == TypeRadio:
			if Truthy(f.Value) {
				renderMark(page, radioGlyph, fieldBox, 0.6)
			}
		case f.Type.isImageLike():
			err = renderImage(doc, page, f, fieldBox, imageCache, mc)
		}

		if err != nil {
			mc.RecordSkipped()
			continue
		}

		fieldsPerPage[f.Page]++
		mc.RecordProcessed()
	}

	for i, sz := range pages {
		doc.FinalizePage(pageObjs[i])
		mc.RecordPageInfo(i, sz.Width, sz.Height, fieldsPerPage[i])
	}

	return doc, nil
}

func renderText(page *pdfwriter.Page, f Field, box pdftext.Box, mc *metadata.Collector) {
	size := defaultFontSize
	if f.FontSize != nil {
		size = *f.FontSize
	}

	lines := pdftext.Layout(pdftext.LayoutInput{
		Font:     pdftext.FontHelvetica,
		Text:     Stringify(f.Value),
		Box:      box,
		FontSize: size,
		HAlign:   f.Alignment,
		VAlign:   f.VerticalAlignment,
	})
	if len(lines) == 0 {
		return
	}

	if len(lines) > 0 {
		lineHeight := lines[0].Size * 1.2
		if pdftext.Overflows(box, len(lines), lineHeight) {
			mc.Warnf("Text for field extends past its box vertically")
		}
	}

	cs := page.Content()
	cs.BeginText()
	cs.SetFont(pdfwriter.ResourceNameHelvetica, lines[0].Size)
	prevX, prevY := 0.0, 0.0
	for i, line := range lines {
		if i == 0 {
			cs.SetTextPosition(line.X, line.Y)
		} else {
			cs.SetTextPosition(line.X-prevX, line.Y-prevY)
		}
		cs.ShowText(line.Text)
		prevX, prevY = line.X, line.Y
	}
	cs.EndText()
}

// renderMark draws a single centred ZapfDingbats glyph sized to
// min(box.Width, box.Height)*scale, used for checkbox/radio marks.
func renderMark(page *pdfwriter.Page, glyph string, box pdftext.Box, scale float64) {
	size := minF(box.Width, box.Height) * scale
	glyphWidth := pdftext.Width(pdftext.FontZapfDingbats, glyph, size)

	x := box.X + (box.Width-glyphWidth)/2
	y := box.Y + (box.Height-size)/2

	cs := page.Content()
	cs.BeginText()
	cs.SetFont(pdfwriter.ResourceNameZapfDingbats, size)
	cs.SetTextPosition(x, y)
	cs.ShowText(glyph)
	cs.EndText()
}

func renderImage(doc *pdfwriter.OverlayDocument, page *pdfwriter.Page, f Field, box pdftext.Box, cache map[string]imageXObject, mc *metadata.Collector) error {
	data, _ := f.Value.([]byte)
	if len(data) == 0 {
		mc.Warnf("Skipped URL image for field %s", f.FieldID)
		return fmt.Errorf("no image bytes for field %s", f.FieldID)
	}

	mode, ok := geom.NormalizeFitMode(f.FitMode)
	if !ok {
		mc.Warnf("Unknown fit_mode %q for field %s, treating as contain", f.FitMode, f.FieldID)
	}

	xobj, cached := cache[f.FieldID]
	if !cached {
		decoded, err := rasterimage.Decode(data, f.FieldID)
		if err != nil {
			mc.Errorf("Failed to decode image %s: %v", f.FieldID, err)
			return err
		}

		var objNum int
		if decoded.Format == rasterimage.FormatJPEG {
			colorSpace, err := jpegColorSpace(decoded.JPEGPassthrough)
			if err != nil {
				mc.Errorf("Failed to embed image %s: %v", f.FieldID, err)
				return err
			}
			objNum = doc.Writer().AddImageXObject(pdfwriter.ImageXObject{
				Width: decoded.Width, Height: decoded.Height, ColorSpace: colorSpace,
				DCTDecode: true, Data: decoded.JPEGPassthrough,
			})
		} else {
			objNum = doc.Writer().AddImageXObject(pdfwriter.ImageXObject{
				Width: decoded.Width, Height: decoded.Height, ColorSpace: "/DeviceRGB",
				Data: decoded.RGB,
			})
		}

		xobj = imageXObject{objNum: objNum, pixelW: decoded.Width, pixelH: decoded.Height}
		cache[f.FieldID] = xobj
	}

	name := page.AddImage(xobj.objNum, "Fld"+sanitizeResourceName(f.FieldID))

	w, h, ox, oy := geom.Fit(float64(xobj.pixelW), float64(xobj.pixelH), box.Width, box.Height, mode)
	x := box.X + ox
	y := box.Y + oy

	cs := page.Content()
	cs.SaveState()
	cs.SetMatrix(w, 0, 0, h, x, y)
	cs.DrawImage(name)
	cs.RestoreState()
	return nil
}

// sanitizeResourceName strips characters PDF name objects can't carry
// unescaped, so a field_id can double as a page resource name.
func sanitizeResourceName(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b = append(b, c)
		default:
			b = append(b, '_')
		}
	}
	return string(b)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// jpegColorSpace re-derives the PDF colour space name from a JPEG's SOF
// component count, the same way internal/pdfwriter's teacher-derived
// embedding logic expects it.
func jpegColorSpace(jpegData []byte) (string, error) {
	pos := 2
	for pos < len(jpegData)-1 {
		if jpegData[pos] != 0xFF {
			pos++
			continue
		}
		marker := jpegData[pos+1]
		pos += 2
		if marker == 0xFF {
			continue
		}
		if marker >= 0xC0 && marker <= 0xC3 {
			if pos+7 > len(jpegData) {
				return "", fmt.Errorf("truncated SOF segment")
			}
			components := int(jpegData[pos+7])
			switch components {
			case 1:
				return "/DeviceGray", nil
			case 4:
				return "/DeviceCMYK", nil
			default:
				return "/DeviceRGB", nil
			}
		}
		if pos+1 >= len(jpegData) {
			break
		}
		segmentLength := int(jpegData[pos])<<8 | int(jpegData[pos+1])
		pos += segmentLength
	}
	return "/DeviceRGB", nil
}
