package pdfwriter

import (
	"bytes"
	"fmt"
)

// ContentStream builds a PDF page content stream. Every method returns the
// receiver so calls chain. The builder does not check that q/Q and BT/ET
// are balanced: SaveState/RestoreState and BeginText/EndText emit one
// operator each, callers pair them, and Raw appends bytes unchecked.
type ContentStream struct {
	buf bytes.Buffer
}

// NewContentStream creates an empty content stream builder.
func NewContentStream() *ContentStream {
	return &ContentStream{}
}

// Bytes returns the accumulated content stream data.
func (cs *ContentStream) Bytes() []byte {
	return cs.buf.Bytes()
}

// SaveState emits q.
func (cs *ContentStream) SaveState() *ContentStream {
	cs.buf.WriteString("q\n")
	return cs
}

// RestoreState emits Q.
func (cs *ContentStream) RestoreState() *ContentStream {
	cs.buf.WriteString("Q\n")
	return cs
}

// SetMatrix emits the cm operator.
func (cs *ContentStream) SetMatrix(a, b, c, d, e, f float64) *ContentStream {
	cs.buf.WriteString(fmt.Sprintf("%.4f %.4f %.4f %.4f %.4f %.4f cm\n", a, b, c, d, e, f))
	return cs
}

// BeginText emits BT.
func (cs *ContentStream) BeginText() *ContentStream {
	cs.buf.WriteString("BT\n")
	return cs
}

// EndText emits ET.
func (cs *ContentStream) EndText() *ContentStream {
	cs.buf.WriteString("ET\n")
	return cs
}

// SetFont emits "fontName size Tf"; fontName is a resource name like "/F1".
func (cs *ContentStream) SetFont(fontName string, size float64) *ContentStream {
	cs.buf.WriteString(fmt.Sprintf("%s %.4f Tf\n", fontName, size))
	return cs
}

// SetTextPosition emits the Td operator.
func (cs *ContentStream) SetTextPosition(x, y float64) *ContentStream {
	cs.buf.WriteString(fmt.Sprintf("%.4f %.4f Td\n", x, y))
	return cs
}

// ShowText emits "(escaped) Tj".
func (cs *ContentStream) ShowText(text string) *ContentStream {
	cs.buf.WriteString(fmt.Sprintf("(%s) Tj\n", escapePDFString(text)))
	return cs
}

// DrawImage emits "imageName Do"; imageName is a resource name like "/Im1".
// Callers wrap this in SaveState/SetMatrix/RestoreState to position it.
func (cs *ContentStream) DrawImage(imageName string) *ContentStream {
	cs.buf.WriteString(fmt.Sprintf("%s Do\n", imageName))
	return cs
}

// Raw appends pre-formatted content stream bytes, e.g. bytes produced by
// another ContentStream, adding a trailing newline if they lack one.
func (cs *ContentStream) Raw(data []byte) *ContentStream {
	cs.buf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		cs.buf.WriteByte('\n')
	}
	return cs
}

// escapePDFString escapes the characters PDF literal strings require.
func escapePDFString(s string) string {
	var result bytes.Buffer
	for _, c := range s {
		switch c {
		case '(':
			result.WriteString("\\(")
		case ')':
			result.WriteString("\\)")
		case '\\':
			result.WriteString("\\\\")
		case '\n':
			result.WriteString("\\n")
		case '\r':
			result.WriteString("\\r")
		case '\t':
			result.WriteString("\\t")
		default:
			result.WriteRune(c)
		}
	}
	return result.String()
}
