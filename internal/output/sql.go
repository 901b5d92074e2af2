package output

import (
	"strings"

	"rollgen/internal/core"
	"rollgen/internal/rollback"
)

type sqlFormatter struct{}

// FormatReport collects the rollback generated for every unit into one SQL script,
// in undo order: the last unit first.
func (sqlFormatter) FormatReport(r *Report) (string, error) {
	if r == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("-- rollgen rollback\n")
	sb.WriteString("-- Run to revert the changelog (review carefully).\n")

	var added []core.ChangeUnit
	for _, u := range r.Result.Units {
		if u.Status == core.UnitAdded {
			added = append(added, u)
		}
	}
	if len(added) == 0 {
		sb.WriteString("\n-- No rollback generated.\n")
		return sb.String(), nil
	}

	for i := len(added) - 1; i >= 0; i-- {
		u := added[i]
		sb.WriteString("\n-- " + unitLabel(u) + "\n")
		for _, o := range u.Outcomes {
			sb.WriteString(rollback.RenderOutcome(o))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
