package core

// UnitStatus records what a front-end did with a change unit.
type UnitStatus string

const (
	UnitAdded   UnitStatus = "added"
	UnitSkipped UnitStatus = "skipped"
	UnitEmpty   UnitStatus = "empty"
)

// ChangeUnit is the report record of one migration step: its identifier, the forward
// statements (or element tags) it carried and the rollback entries generated for it.
type ChangeUnit struct {
	ID         string     `json:"id"`
	Line       int        `json:"line,omitempty"`
	Status     UnitStatus `json:"status"`
	Statements []string   `json:"statements,omitempty"`
	Outcomes   []Outcome  `json:"outcomes,omitempty"`
}

// Irreversible counts the outcomes of the unit that could not be inverted.
func (u ChangeUnit) Irreversible() int {
	n := 0
	for _, o := range u.Outcomes {
		if !o.IsInverse() {
			n++
		}
	}
	return n
}
