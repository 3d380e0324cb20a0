// Package metadata collects per-page and processing statistics for a single
// fill invocation.
package metadata

import "fmt"

// PageInfo is the per-page summary recorded for the output metadata.
type PageInfo struct {
	PageNumber  int     `json:"pageNumber"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FieldsCount int     `json:"fieldsCount"`
}

// Metadata is the JSON-serializable result of a fill invocation.
type Metadata struct {
	Pages           []PageInfo `json:"pages"`
	FieldsProcessed int        `json:"fieldsProcessed"`
	FieldsSkipped   int        `json:"fieldsSkipped"`
	Warnings        []string   `json:"warnings"`
	Errors          []string   `json:"errors"`
}

// Collector accumulates metadata during rendering and composition. It only
// exposes append-style mutations; the fields list order is preserved.
type Collector struct {
	pages           []PageInfo
	fieldsProcessed int
	fieldsSkipped   int
	warnings        []string
	errors          []string
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordPageInfo appends a page summary. fields.Render calls it once per
// page, in page order, including pages with no fields on them.
func (c *Collector) RecordPageInfo(pageNumber int, width, height float64, fieldsCount int) {
	c.pages = append(c.pages, PageInfo{
		PageNumber:  pageNumber,
		Width:       width,
		Height:      height,
		FieldsCount: fieldsCount,
	})
}

// RecordProcessed increments the processed-fields counter.
func (c *Collector) RecordProcessed() {
	c.fieldsProcessed++
}

// RecordSkipped increments the skipped-fields counter.
func (c *Collector) RecordSkipped() {
	c.fieldsSkipped++
}

// Warn appends a warning message, preserving call order.
func (c *Collector) Warn(message string) {
	c.warnings = append(c.warnings, message)
}

// Warnf appends a formatted warning message.
func (c *Collector) Warnf(format string, args ...interface{}) {
	c.Warn(fmt.Sprintf(format, args...))
}

// Error appends an error message, preserving call order. This is a
// non-fatal error entry in the output metadata, not a Go error.
func (c *Collector) Error(message string) {
	c.errors = append(c.errors, message)
}

// Errorf appends a formatted error message.
func (c *Collector) Errorf(format string, args ...interface{}) {
	c.Error(fmt.Sprintf(format, args...))
}

// FieldsProcessed returns the current processed count.
func (c *Collector) FieldsProcessed() int { return c.fieldsProcessed }

// FieldsSkipped returns the current skipped count.
func (c *Collector) FieldsSkipped() int { return c.fieldsSkipped }

// Warnings returns all recorded warnings in order.
func (c *Collector) Warnings() []string { return c.warnings }

// Errors returns all recorded error entries in order.
func (c *Collector) Errors() []string { return c.errors }

// Metadata snapshots the collector into its JSON-serializable form.
func (c *Collector) Metadata() *Metadata {
	pages := make([]PageInfo, len(c.pages))
	copy(pages, c.pages)
	warnings := make([]string, len(c.warnings))
	copy(warnings, c.warnings)
	errors := make([]string, len(c.errors))
	copy(errors, c.errors)
	return &Metadata{
		Pages:           pages,
		FieldsProcessed: c.fieldsProcessed,
		FieldsSkipped:   c.fieldsSkipped,
		Warnings:        warnings,
		Errors:          errors,
	}
}
