// Package rasterimage sniffs and decodes the raster formats field images may
// arrive in, producing either a JPEG passthrough buffer (for DCTDecode
// embedding) or flattened interleaved RGB8 pixels (for FlateDecode
// embedding), matching the two XObject shapes internal/pdfwriter supports.
package rasterimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Format identifies a sniffed raster image container.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWEBP    Format = "webp"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatUnknown Format = "unknown"
)

// Decoded is the result of decoding a field image, ready for embedding by
// internal/pdfwriter as an XObject.
type Decoded struct {
	Format          Format
	Width, Height   int
	JPEGPassthrough []byte // set when Format == FormatJPEG; embed as DCTDecode
	RGB             []byte // set otherwise; interleaved RGB8, embed as DeviceRGB
}

// DecodeError wraps a decode failure with the offending field's identifier,
// so callers can attribute the skip to a specific field in metadata.
type DecodeError struct {
	FieldID string
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image for field %q: %v", e.FieldID, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Sniff identifies a raster container by magic bytes without decoding it.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return FormatPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWEBP
	case len(data) >= 6 && (bytes.Equal(data[0:6], []byte("GIF87a")) || bytes.Equal(data[0:6], []byte("GIF89a"))):
		return FormatGIF
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return FormatBMP
	default:
		return FormatUnknown
	}
}

// Decode sniffs and decodes data, returning a JPEG passthrough for JPEG
// input or flattened RGB8 pixels for every other supported format. fieldID
// is only used to attribute a returned error.
func Decode(data []byte, fieldID string) (*Decoded, error) {
	format := Sniff(data)

	if format == FormatJPEG {
		w, h, err := jpegDimensions(data)
		if err != nil {
			return nil, &DecodeError{FieldID: fieldID, Cause: err}
		}
		return &Decoded{Format: FormatJPEG, Width: w, Height: h, JPEGPassthrough: data}, nil
	}

	if format == FormatUnknown {
		return nil, &DecodeError{FieldID: fieldID, Cause: fmt.Errorf("unrecognized image format")}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{FieldID: fieldID, Cause: err}
	}

	rgb, w, h := flattenToRGB(img)
	return &Decoded{Format: format, Width: w, Height: h, RGB: rgb}, nil
}

// flattenToRGB converts any decoded image to interleaved RGB8, compositing
// any alpha channel against opaque white and promoting grayscale to RGB.
func flattenToRGB(img image.Image) (rgb []byte, w, h int) {
	bounds := img.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	rgb = make([]byte, w*h*3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := (y*w + x) * 3
			if a == 0xFFFF {
				rgb[idx] = uint8(r >> 8)
				rgb[idx+1] = uint8(g >> 8)
				rgb[idx+2] = uint8(b >> 8)
				continue
			}
			// Composite premultiplied r/g/b (still in [0,0xFFFF] premultiplied
			// space) over opaque white: out = src + white*(1-alpha).
			whiteContribution := 0xFFFF - a
			rgb[idx] = uint8((r + whiteContribution) >> 8)
			rgb[idx+1] = uint8((g + whiteContribution) >> 8)
			rgb[idx+2] = uint8((b + whiteContribution) >> 8)
		}
	}
	return rgb, w, h
}

// jpegDimensions reads only the SOF marker to recover width/height without
// a full JPEG decode, so JPEG bytes can be passed through unmodified.
func jpegDimensions(data []byte) (width, height int, err error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, fmt.Errorf("not a valid JPEG (missing SOI)")
	}

	pos := 2
	for pos < len(data)-1 {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		marker := data[pos+1]
		pos += 2
		if marker == 0xFF {
			continue
		}
		if marker >= 0xC0 && marker <= 0xC3 {
			if pos+7 > len(data) {
				return 0, 0, fmt.Errorf("truncated SOF segment")
			}
			height = int(data[pos+3])<<8 | int(data[pos+4])
			width = int(data[pos+5])<<8 | int(data[pos+6])
			return width, height, nil
		}
		if pos+1 >= len(data) {
			break
		}
		segmentLength := int(data[pos])<<8 | int(data[pos+1])
		pos += segmentLength
	}
	return 0, 0, fmt.Errorf("no SOF marker found")
}

// init wires golang.org/x/image's webp and bmp decoders into the standard
// image.Decode registry, matching the side-effect import style image/jpeg
// and image/png already use above.
func init() {
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
}
