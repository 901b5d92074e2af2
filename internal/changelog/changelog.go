// Package changelog walks Liquibase changelogs, finds change units without a rollback
// and appends one synthesized from the unit's forward operations. The textual (formatted
// SQL) and structured (XML) forms are handled by parallel front-ends that share the
// rollback package's classifier and synthesizer.
package changelog

import (
	"fmt"
	"strings"

	"rollgen/internal/core"
)

// Granularity controls how many rollback entries a textual change unit receives.
type Granularity string

const (
	// GranularityStatement synthesizes one rollback line per forward statement.
	GranularityStatement Granularity = "statement"
	// GranularityUnit joins every statement of a unit and synthesizes a single line.
	GranularityUnit Granularity = "unit"
)

// ParseGranularity validates a granularity name. The empty string means statement.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityStatement, nil
	case GranularityStatement, GranularityUnit:
		return g, nil
	default:
		return "", fmt.Errorf("unsupported granularity: %s; use 'statement' or 'unit'", s)
	}
}

// Options tune both front-ends.
type Options struct {
	Granularity Granularity
	// Reverse emits a unit's rollback entries in reverse statement order.
	Reverse bool
}

// DefaultOptions returns statement granularity in document order.
func DefaultOptions() Options {
	return Options{Granularity: GranularityStatement}
}

// Result reports what a pass over a changelog did.
type Result struct {
	Seen    int               `json:"seen"`
	Added   int               `json:"added"`
	Skipped int               `json:"skipped"`
	Units   []core.ChangeUnit `json:"units,omitempty"`
}

// Irreversible counts the generated rollback entries that need manual work.
func (r Result) Irreversible() int {
	n := 0
	for _, u := range r.Units {
		n += u.Irreversible()
	}
	return n
}

func (r *Result) record(u core.ChangeUnit) {
	r.Seen++
	switch u.Status {
	case core.UnitAdded:
		r.Added++
	case core.UnitSkipped:
		r.Skipped++
	}
	r.Units = append(r.Units, u)
}

func orderOutcomes(outcomes []core.Outcome, opts Options) []core.Outcome {
	if !opts.Reverse {
		return outcomes
	}
	out := make([]core.Outcome, 0, len(outcomes))
	for i := len(outcomes) - 1; i >= 0; i-- {
		out = append(out, outcomes[i])
	}
	return out
}
