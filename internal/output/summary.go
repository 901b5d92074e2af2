package output

import (
	"fmt"
	"strings"

	"rollgen/internal/core"
)

type summaryFormatter struct{}

// FormatReport formats a run as a compact summary.
// Example output:
//
//	Rollback Summary
//	================
//
//	Changelog:    db/changelog.sql
//	Change units: 3 seen, 2 added, 1 skipped
//	Manual:       1
func (summaryFormatter) FormatReport(r *Report) (string, error) {
	if r == nil {
		return "No changelog processed.\n", nil
	}

	var sb strings.Builder
	res := r.Result

	sb.WriteString("Rollback Summary\n")
	sb.WriteString("================\n\n")

	fmt.Fprintf(&sb, "Changelog:    %s\n", r.Path)
	switch {
	case r.DryRun:
		sb.WriteString("Written to:   (dry run)\n")
	case r.Destination != "" && r.Destination != r.Path:
		fmt.Fprintf(&sb, "Written to:   %s\n", r.Destination)
	}
	fmt.Fprintf(&sb, "Change units: %d seen, %d added, %d skipped\n", res.Seen, res.Added, res.Skipped)
	fmt.Fprintf(&sb, "Manual:       %d\n", res.Irreversible())

	writeManualDetails(&sb, res.Units)
	writeFindings(&sb, r)

	return sb.String(), nil
}

func writeManualDetails(sb *strings.Builder, units []core.ChangeUnit) {
	var lines []string
	for _, u := range units {
		for _, o := range u.Outcomes {
			if o.IsInverse() {
				continue
			}
			lines = append(lines, fmt.Sprintf("   - %s: %s", unitLabel(u), o.Reason))
		}
	}
	if len(lines) == 0 {
		return
	}
	sb.WriteString("\nNeeds manual rollback:\n")
	for _, l := range lines {
		sb.WriteString(l + "\n")
	}
}

func writeFindings(sb *strings.Builder, r *Report) {
	if len(r.Findings) == 0 {
		return
	}
	fmt.Fprintf(sb, "\nWarnings: %d\n", len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(sb, "   [%s] %s: %s\n", f.Level, f.Unit, f.Message)
	}
}

func unitLabel(u core.ChangeUnit) string {
	switch {
	case u.ID != "":
		return u.ID
	case u.Line > 0:
		return fmt.Sprintf("line %d", u.Line)
	default:
		return "(unnamed)"
	}
}
