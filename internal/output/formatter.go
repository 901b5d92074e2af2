// Package output provides formatters for the report printed after a changelog run.
// It is extendable and for now provides three formats: summary, JSON and SQL.
package output

import (
	"fmt"
	"io"
	"strings"

	"rollgen/internal/audit"
	"rollgen/internal/changelog"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSummary Format = "summary"
	FormatJSON    Format = "json"
	FormatSQL     Format = "sql"
)

// Report is everything a formatter may print about one run.
type Report struct {
	Path        string
	Destination string
	DryRun      bool
	Result      changelog.Result
	Findings    []audit.Finding
}

// Formatter is an interface for formatting run reports.
type Formatter interface {
	FormatReport(*Report) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to the summary format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSummary:
		return summaryFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSQL:
		return sqlFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'summary', 'json', or 'sql'", name)
	}
}

// WriteReport formats r with f and writes it to w.
func WriteReport(w io.Writer, f Formatter, r *Report) error {
	content, err := f.FormatReport(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}
