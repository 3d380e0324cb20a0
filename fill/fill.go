// Package fill orchestrates the full template-fill pipeline: parse the
// template's page geometry, render every field onto an overlay document,
// graft the overlay onto the template, and collect processing metadata.
package fill

import (
	"github.com/benedoc-inc/fillpdf/internal/compose"
	"github.com/benedoc-inc/fillpdf/internal/fields"
	"github.com/benedoc-inc/fillpdf/internal/metadata"
	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
)

// Options controls how the filled PDF is produced.
type Options struct {
	// Flatten strips /AcroForm and every page's /Annots from the output,
	// so the result carries no interactive form fields.
	Flatten bool
}

// Result is the outcome of a successful Fill call.
type Result struct {
	PDF      []byte
	Metadata *metadata.Metadata
}

// Fill parses templatePDF, renders fieldList onto an overlay sized to match
// its pages, grafts that overlay onto the template, and returns the
// composed PDF plus processing metadata. An unparseable template, or a
// failure to render or compose the overlay, is returned as a
// *pdferrors.Error. Malformed field JSON and negative page indices are
// rejected earlier, by fields.DecodeFields; a field whose page does not
// exist in the template, an unrecognized fit_mode or an undecodable image is
// recorded as a warning or error in Result.Metadata and does not fail the
// call.
func Fill(templatePDF []byte, fieldList []fields.Field, opts Options) (*Result, error) {
	tmpl, err := compose.ParseTemplate(templatePDF)
	if err != nil {
		return nil, err
	}

	pageSizes := make([]fields.PageSize, 0, tmpl.PageCount())
	for _, sz := range tmpl.PageSizes() {
		pageSizes = append(pageSizes, fields.PageSize{Width: sz.Width, Height: sz.Height})
	}

	mc := metadata.NewCollector()
	overlay, err := fields.Render(fieldList, pageSizes, mc)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeWriteError, "failed to render fields onto overlay", err)
	}

	out, err := compose.Compose(tmpl, overlay, opts.Flatten)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeWriteError, "failed to compose overlay onto template", err)
	}

	return &Result{PDF: out, Metadata: mc.Metadata()}, nil
}
