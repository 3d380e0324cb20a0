package rasterimage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, FormatPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}, FormatJPEG},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...), FormatWEBP},
		{"gif87a", []byte("GIF87a"), FormatGIF},
		{"gif89a", []byte("GIF89a"), FormatGIF},
		{"bmp", []byte("BM\x00\x00\x00\x00"), FormatBMP},
		{"garbage", []byte("not an image"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("Sniff(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func makePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_PNGOpaque(t *testing.T) {
	data := makePNG(t, 4, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	d, err := Decode(data, "field-1")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Format != FormatPNG {
		t.Errorf("Format = %v, want png", d.Format)
	}
	if d.Width != 4 || d.Height != 2 {
		t.Fatalf("dims = %dx%d, want 4x2", d.Width, d.Height)
	}
	if len(d.RGB) != 4*2*3 {
		t.Fatalf("RGB length = %d, want %d", len(d.RGB), 4*2*3)
	}
	if d.RGB[0] != 10 || d.RGB[1] != 20 || d.RGB[2] != 30 {
		t.Errorf("first pixel = %v, want [10 20 30]", d.RGB[0:3])
	}
}

func TestDecode_PNGAlphaFlattensAgainstWhite(t *testing.T) {
	// Fully transparent black pixel should flatten to white.
	data := makePNG(t, 1, 1, color.RGBA{R: 0, G: 0, B: 0, A: 0})
	d, err := Decode(data, "field-2")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	t.Logf("flattened pixel: %v", d.RGB)
	if d.RGB[0] != 255 || d.RGB[1] != 255 || d.RGB[2] != 255 {
		t.Errorf("expected fully transparent pixel to flatten to white, got %v", d.RGB)
	}
}

func TestDecode_JPEGPassthrough(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	data := buf.Bytes()

	d, err := Decode(data, "field-3")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Format != FormatJPEG {
		t.Fatalf("Format = %v, want jpeg", d.Format)
	}
	if !bytes.Equal(d.JPEGPassthrough, data) {
		t.Errorf("expected JPEG bytes to pass through unmodified")
	}
	if d.Width != 8 || d.Height != 8 {
		t.Errorf("dims = %dx%d, want 8x8", d.Width, d.Height)
	}
	if d.RGB != nil {
		t.Errorf("expected RGB to be nil for JPEG passthrough")
	}
}

func TestDecode_UnknownFormatReturnsFieldTaggedError(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "signature-field")
	if err == nil {
		t.Fatal("expected error for unrecognized format")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("signature-field")) {
		t.Errorf("expected error to mention field id, got %q", err.Error())
	}
	var decodeErr *DecodeError
	if !asDecodeError(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
