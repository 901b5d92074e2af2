package changelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Format identifies which front-end handles a changelog.
type Format string

const (
	FormatSQL Format = "sql"
	FormatXML Format = "xml"
)

// UnsupportedFormatError is returned for a changelog whose extension maps to no front-end.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported changelog format: %s (expected .sql or .xml)", e.Path)
}

// ParseError reports a structured changelog that is not well-formed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse changelog: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse changelog %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DetectFormat picks the front-end from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		return FormatSQL, nil
	case ".xml":
		return FormatXML, nil
	default:
		return "", &UnsupportedFormatError{Path: path}
	}
}

// Transform runs the front-end for format over content.
func Transform(content []byte, format Format, opts Options) ([]byte, Result, error) {
	switch format {
	case FormatSQL:
		out, res := ProcessSQL(string(content), opts)
		return []byte(out), res, nil
	case FormatXML:
		return ProcessXML(content, opts)
	default:
		return nil, Result{}, fmt.Errorf("unknown changelog format %q", format)
	}
}

// Job describes one changelog run.
type Job struct {
	Path   string
	Format Format
	// Output is where the rewritten changelog goes. Empty means Path itself.
	Output string
	// DryRun returns the rewritten bytes without writing anything.
	DryRun  bool
	Options Options
}

// Run reads the changelog, transforms it and, unless DryRun is set, writes the result
// atomically. Nothing is written when the changelog fails to parse.
func Run(job Job) ([]byte, Result, error) {
	format := job.Format
	if format == "" {
		f, err := DetectFormat(job.Path)
		if err != nil {
			return nil, Result{}, err
		}
		format = f
	}

	info, err := os.Stat(job.Path)
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to stat changelog: %w", err)
	}
	content, err := os.ReadFile(job.Path)
	if err != nil {
		return nil, Result{}, fmt.Errorf("failed to read changelog: %w", err)
	}

	out, res, err := Transform(content, format, job.Options)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = job.Path
		}
		return nil, res, err
	}
	if job.DryRun {
		return out, res, nil
	}

	dst := job.Output
	if dst == "" {
		dst = job.Path
	}
	if err := renameio.WriteFile(dst, out, info.Mode().Perm()); err != nil {
		return nil, res, fmt.Errorf("failed to write changelog %s: %w", dst, err)
	}
	return out, res, nil
}

// SideBySidePath returns the path a side-by-side copy of path gets for suffix, e.g.
// changelog.sql with suffix ".rollback" becomes changelog.rollback.sql.
func SideBySidePath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
