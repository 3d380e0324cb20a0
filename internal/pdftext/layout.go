// Package pdftext implements glyph-width-based text measurement and layout
// for the two standard-14 fonts the overlay renderer uses (no font
// embedding, no non-Latin shaping).
package pdftext

import "strings"

// Padding applied inside a field's box before text is placed, on every
// side, in points. The spec leaves the exact value to the implementation.
const Padding = 2.0

// shrinkFactor is applied once when a single line doesn't fit at its
// natural font size, per the single-line fit rule.
const shrinkFactor = 0.9

// lineHeightFactor converts a font size into a line height.
const lineHeightFactor = 1.2

// Box is a field's content area in PDF (bottom-left origin) space.
type Box struct {
	X, Y, Width, Height float64
}

// HAlign is the horizontal alignment of a line of text within its box.
type HAlign string

const (
	AlignLeft   HAlign = "left"
	AlignCenter HAlign = "center"
	AlignRight  HAlign = "right"
)

// VAlign is the vertical alignment of a text block within its box.
type VAlign string

const (
	VAlignTop      VAlign = "top"
	VAlignMiddle   VAlign = "middle"
	VAlignBottom   VAlign = "bottom"
	VAlignBaseline VAlign = "baseline"
)

// Width returns the rendered width of s set in font at size, per
// width(s, size) = sum(glyph_width(c)) * size.
func Width(font StandardFont, s string, size float64) float64 {
	var total float64
	for i := 0; i < len(s); i++ {
		total += GlyphWidth(font, s[i])
	}
	return total * size
}

// FitSingleLine applies the single-line fit rule: render at fontSize if it
// fits within box.Width-2*Padding; otherwise try fontSize*0.9. wrapped is
// true when even the reduced size doesn't fit and the caller must wrap.
func FitSingleLine(font StandardFont, s string, box Box, fontSize float64) (renderSize float64, wrapped bool) {
	usable := box.Width - 2*Padding
	if Width(font, s, fontSize) <= usable {
		return fontSize, false
	}
	reduced := fontSize * shrinkFactor
	if Width(font, s, reduced) <= usable {
		return reduced, false
	}
	return reduced, true
}

// WrapLines greedily packs words of s into lines no wider than
// boxWidth-2*Padding at the given font size. A single word longer than the
// available width is still emitted on its own line (never split).
func WrapLines(font StandardFont, s string, boxWidth, fontSize float64) []string {
	usable := boxWidth - 2*Padding
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if Width(font, candidate, fontSize) <= usable {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	lines = append(lines, current)
	return lines
}

// Line is a single positioned line of text, ready for
// internal/pdfwriter.ContentStream text operators.
type Line struct {
	Text string
	X, Y float64
	Size float64
}

// LayoutInput describes a text field to be laid out into lines.
type LayoutInput struct {
	Font     StandardFont
	Text     string
	Box      Box
	FontSize float64
	HAlign   HAlign
	VAlign   VAlign
}

// Layout resolves size, wrapping, and alignment into a list of positioned
// lines in a single pass: first the single-line fit rule picks a render
// size (and whether wrapping is needed), then wrapping splits the text at
// that size, then vertical/horizontal alignment position each line.
func Layout(in LayoutInput) []Line {
	if in.Text == "" {
		return nil
	}

	size, needsWrap := FitSingleLine(in.Font, in.Text, in.Box, in.FontSize)

	var texts []string
	if needsWrap {
		texts = WrapLines(in.Font, in.Text, in.Box.Width, size)
	} else {
		texts = []string{in.Text}
	}
	if len(texts) == 0 {
		return nil
	}

	lineHeight := size * lineHeightFactor
	n := len(texts)

	var firstBaselineY float64
	switch in.VAlign {
	case VAlignBaseline:
		// field.y + field.height is passed as in.Box.Y + in.Box.Height by the
		// caller when baseline alignment is requested; interpret it directly.
		firstBaselineY = in.Box.Y + in.Box.Height
	case VAlignMiddle:
		blockHeight := float64(n) * lineHeight
		top := in.Box.Y + (in.Box.Height+blockHeight)/2
		firstBaselineY = top - size
	case VAlignBottom:
		lastBaseline := in.Box.Y + Padding
		firstBaselineY = lastBaseline + float64(n-1)*lineHeight
	case VAlignTop:
		fallthrough
	default:
		top := in.Box.Y + in.Box.Height
		firstBaselineY = top - size
	}

	lines := make([]Line, 0, n)
	for i, text := range texts {
		lineWidth := Width(in.Font, text, size)
		var x float64
		switch in.HAlign {
		case AlignRight:
			x = in.Box.X + in.Box.Width - Padding - lineWidth
		case AlignCenter:
			x = in.Box.X + (in.Box.Width-lineWidth)/2
		case AlignLeft:
			fallthrough
		default:
			x = in.Box.X + Padding
		}
		y := firstBaselineY - float64(i)*lineHeight
		lines = append(lines, Line{Text: text, X: x, Y: y, Size: size})
	}
	return lines
}

// Overflows reports whether a laid-out block of n lines at lineHeight
// extends past the bottom of box, matching the spec's rule that vertical
// overflow (not horizontal) is recorded as a warning.
func Overflows(box Box, n int, lineHeight float64) bool {
	blockHeight := float64(n) * lineHeight
	return blockHeight > box.Height
}
