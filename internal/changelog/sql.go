package changelog

import (
	"regexp"
	"strings"

	"rollgen/internal/core"
	"rollgen/internal/rollback"
)

var (
	changesetRe = regexp.MustCompile(`^\s*--\s+changeset`)
	rollbackRe  = regexp.MustCompile(`^\s*--\s*rollback`)
	commentRe   = regexp.MustCompile(`^\s*--`)
	unitIDRe    = regexp.MustCompile(`^\s*--\s+changeset\s+(\S+)`)
)

// RollbackPrefix starts every generated rollback line in a formatted SQL changelog.
const RollbackPrefix = "-- rollback "

// ProcessSQL adds rollback directives to a formatted SQL changelog. Lines of units that
// already carry a rollback, and every line outside units, are copied byte for byte.
func ProcessSQL(content string, opts Options) (string, Result) {
	lines := splitLines(content)

	var (
		out strings.Builder
		res Result
	)
	out.Grow(len(content) + len(content)/8)

	for i := 0; i < len(lines); {
		line := lines[i]
		out.WriteString(line)
		if !changesetRe.MatchString(line) {
			i++
			continue
		}

		unit := core.ChangeUnit{ID: unitID(line), Line: i + 1}
		stmts, hasRollback := scanUnit(lines, i+1)

		end := unitEnd(lines, i+1)
		for _, l := range lines[i+1 : end] {
			out.WriteString(l)
		}

		switch {
		case hasRollback:
			unit.Status = core.UnitSkipped
		case len(stmts) == 0:
			unit.Status = core.UnitEmpty
		default:
			unit.Status = core.UnitAdded
			unit.Statements = unitStatements(stmts, opts.Granularity)
			for _, stmt := range unit.Statements {
				unit.Outcomes = append(unit.Outcomes, rollback.SynthesizeSQL(stmt))
			}
			unit.Outcomes = orderOutcomes(unit.Outcomes, opts)

			eol := lineEnding(lines[i])
			if !strings.HasSuffix(out.String(), "\n") {
				out.WriteString(eol)
			}
			for _, o := range unit.Outcomes {
				out.WriteString(RollbackPrefix + rollback.RenderOutcome(o) + eol)
			}
		}

		res.record(unit)
		i = end
	}

	return out.String(), res
}

// scanUnit collects the trimmed statement lines of the unit that starts at lines[start]
// and reports whether the unit already has a rollback directive.
func scanUnit(lines []string, start int) (stmts []string, hasRollback bool) {
	for _, line := range lines[start:] {
		if changesetRe.MatchString(line) || strings.TrimSpace(line) == "" {
			break
		}
		if rollbackRe.MatchString(line) {
			return stmts, true
		}
		if !commentRe.MatchString(line) {
			stmts = append(stmts, strings.TrimSpace(line))
		}
	}
	return stmts, false
}

// unitEnd returns the index of the first line after the unit body: the next changeset,
// a blank line, or the end of the file.
func unitEnd(lines []string, start int) int {
	for j := start; j < len(lines); j++ {
		if changesetRe.MatchString(lines[j]) || strings.TrimSpace(lines[j]) == "" {
			return j
		}
	}
	return len(lines)
}

// unitStatements joins the unit's lines with newlines so that a trailing -- comment
// ends at its own line, then splits them into normalized statements.
func unitStatements(lines []string, g Granularity) []string {
	stmts := rollback.SplitStatements(strings.Join(lines, "\n"))
	if len(stmts) == 0 {
		return []string{rollback.Normalize(strings.Join(lines, " "))}
	}
	for i, stmt := range stmts {
		stmts[i] = rollback.Normalize(stmt)
	}
	if g == GranularityUnit {
		return []string{strings.Join(stmts, "; ")}
	}
	return stmts
}

func unitID(line string) string {
	if m := unitIDRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// splitLines splits content after each newline so that joining the parts restores the
// input exactly.
func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
