package export

import "fmt"

// Dataset is a titled table ready for rendering. Rows are positional and
// must have the same width as Headers.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Exporter renders a Dataset into a downloadable document.
type Exporter interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Supported export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ForFormat returns the exporter registered for format.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "", FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}
