// Package fields decodes the external field-descriptor JSON contract and
// renders each field onto an overlay document.
package fields

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
	"github.com/benedoc-inc/fillpdf/internal/pdftext"
)

// Type discriminates a field's rendering variant.
type Type string

const (
	TypeText      Type = "text"
	TypeNumber    Type = "number"
	TypeDate      Type = "date"
	TypeDropdown  Type = "dropdown"
	TypeCheckbox  Type = "checkbox"
	TypeRadio     Type = "radio"
	TypeSignature Type = "signature"
	TypeImage     Type = "image"
)

func (t Type) isTextLike() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeDropdown:
		return true
	default:
		return false
	}
}

func (t Type) isImageLike() bool {
	return t == TypeSignature || t == TypeImage
}

func (t Type) valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeDropdown, TypeCheckbox, TypeRadio, TypeSignature, TypeImage:
		return true
	default:
		return false
	}
}

// Field is one field descriptor, decoded and validated from the external
// JSON contract.
type Field struct {
	FieldID           string
	Page              int
	X, Y              float64
	Width, Height     float64
	Type              Type
	Value             interface{} // string, float64, bool, []byte, or URLSource depending on Type
	FontSize          *float64
	Alignment         pdftext.HAlign
	VerticalAlignment pdftext.VAlign
	FitMode           string // raw, unvalidated; normalized at dispatch time so an unknown mode can be warned about
	Options           []string
}

// URLSource is a signature/image value that hasn't been fetched yet: a
// descriptor of the remote request that would produce the image bytes.
// internal/fetch.FetchAllImages resolves every URLSource into []byte before
// Render ever runs; a URLSource that reaches Render is treated exactly like
// a missing value (warn, skip), since it carries no image bytes.
type URLSource struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// wireField mirrors the external field-descriptor JSON contract (snake_case
// keys) before conversion and validation.
type wireField struct {
	FieldID           string          `json:"field_id"`
	Page              int             `json:"page"`
	X                 float64         `json:"x"`
	Y                 float64         `json:"y"`
	Width             float64         `json:"width"`
	Height            float64         `json:"height"`
	FieldType         string          `json:"field_type"`
	Value             json.RawMessage `json:"value"`
	FontSize          *float64        `json:"font_size,omitempty"`
	Alignment         string          `json:"alignment,omitempty"`
	VerticalAlignment string          `json:"vertical_alignment,omitempty"`
	FitMode           string          `json:"fit_mode,omitempty"`
	Options           []string        `json:"options,omitempty"`
}

// DecodeFields parses the external field-descriptor JSON array. Any schema
// violation - wrong value shape for the variant, a negative page index, an
// unparseable document - is the fatal "field JSON malformed" condition from
// spec §7 and is returned as a *pdferrors.Error, or, for a per-field
// violation, as an error wrapping one and prefixed with the field's index
// and id.
func DecodeFields(data []byte) ([]Field, error) {
	var wire []wireField
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeInvalidFieldJSON, "field JSON is not a valid array of field descriptors", err)
	}

	fields := make([]Field, 0, len(wire))
	for i, wf := range wire {
		f, err := convert(wf)
		if err != nil {
			return nil, fmt.Errorf("field[%d] (%q): %w", i, wf.FieldID, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func convert(wf wireField) (Field, error) {
	if wf.FieldID == "" {
		return Field{}, pdferrors.New(pdferrors.CodeInvalidFieldJSON, "field_id is required")
	}
	if wf.Page < 0 {
		return Field{}, pdferrors.Newf(pdferrors.CodeInvalidPage, "page %d is negative", wf.Page)
	}
	if wf.Width <= 0 || wf.Height <= 0 {
		return Field{}, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "width/height must be > 0, got %gx%g", wf.Width, wf.Height)
	}
	typ := Type(wf.FieldType)
	if !typ.valid() {
		return Field{}, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "unknown field_type %q", wf.FieldType)
	}

	value, err := decodeValue(typ, wf.Value)
	if err != nil {
		return Field{}, err
	}

	f := Field{
		FieldID:           wf.FieldID,
		Page:              wf.Page,
		X:                 wf.X,
		Y:                 wf.Y,
		Width:             wf.Width,
		Height:            wf.Height,
		Type:              typ,
		Value:             value,
		FontSize:          wf.FontSize,
		Alignment:         pdftext.HAlign(wf.Alignment),
		VerticalAlignment: pdftext.VAlign(wf.VerticalAlignment),
		FitMode:           wf.FitMode,
		Options:           wf.Options,
	}
	return f, nil
}

func decodeValue(typ Type, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 || string(raw) == "null" {
		// Absent value: falsy/empty for every variant, schema-valid.
		switch typ {
		case TypeCheckbox, TypeRadio:
			return false, nil
		case TypeSignature, TypeImage:
			return []byte(nil), nil
		default:
			return "", nil
		}
	}

	switch typ {
	case TypeSignature, TypeImage:
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var src URLSource
			if err := json.Unmarshal(raw, &src); err != nil {
				return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "image URL descriptor is malformed: %v", err)
			}
			if src.URL == "" {
				return nil, pdferrors.New(pdferrors.CodeInvalidFieldJSON, "image URL descriptor is missing url")
			}
			return src, nil
		}

		var b64 string
		if err := json.Unmarshal(raw, &b64); err != nil {
			return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "value for image field must be a base64 string or a URL descriptor: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "value is not valid base64: %v", err)
		}
		return decoded, nil

	case TypeCheckbox:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "checkbox value must be a boolean: %v", err)
		}
		return b, nil

	default:
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "invalid value: %v", err)
		}
		switch v.(type) {
		case string, float64, bool, nil:
			return v, nil
		default:
			return nil, pdferrors.Newf(pdferrors.CodeInvalidFieldJSON, "value for field_type %q must be a scalar, got %T", typ, v)
		}
	}
}

// Truthy reports whether value should be treated as a true/checked marker,
// matching checkbox/radio's "truthy" admissible shape.
func Truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case float64:
		return v != 0
	case nil:
		return false
	default:
		return true
	}
}

// Stringify renders a text/number/date/dropdown value for display.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
