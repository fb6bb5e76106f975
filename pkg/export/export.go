// Package export renders tabular datasets as CSV, PDF or XLSX documents.
package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Format names an output document type.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat normalises raw and reports whether it is supported.
func ParseFormat(raw string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, true
	}
	return "", false
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Renderer turns a dataset into document bytes.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}

// Registry maps formats to renderers.
type Registry map[Format]Renderer

// DefaultRegistry wires the bundled renderers.
func DefaultRegistry() Registry {
	return Registry{
		FormatCSV:  NewCSVExporter(),
		FormatPDF:  NewPDFExporter(),
		FormatXLSX: NewXLSXExporter(),
	}
}

// Render dispatches to the renderer registered for f.
func (r Registry) Render(f Format, data Dataset, title string) ([]byte, error) {
	renderer, ok := r[f]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", f)
	}
	return renderer.Render(data, title)
}
