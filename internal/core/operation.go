package core

// Operation is one forward (or synthesized inverse) change, built fresh per statement or
// element and discarded after synthesis.
type Operation struct {
	Shape Shape `json:"shape"`

	// Name is the primary subject: the table, or the index, sequence, view,
	// function, procedure or trigger being created or dropped.
	Name QualifiedName `json:"name"`
	// Target is the secondary identifier: column, constraint or old column name.
	// For indexes and triggers it holds nothing; Table carries the owning table.
	Target  string        `json:"target,omitempty"`
	NewName string        `json:"newName,omitempty"`
	Table   QualifiedName `json:"table,omitempty"`

	// Columns lists every column of a multi-column add or drop, Target included.
	Columns  []string `json:"columns,omitempty"`
	DataType string   `json:"dataType,omitempty"`
	IfExists bool     `json:"ifExists,omitempty"`

	Tag string `json:"tag,omitempty"`
	Raw string `json:"raw,omitempty"`
}

// OutcomeKind tells whether a rollback could be derived mechanically.
type OutcomeKind string

const (
	OutcomeInverse      OutcomeKind = "INVERSE"
	OutcomeIrreversible OutcomeKind = "IRREVERSIBLE"
)

// Outcome is the result of synthesizing a rollback for a single Operation.
// Inverse is set only for OutcomeInverse; Reason only for OutcomeIrreversible.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Shape   Shape       `json:"shape"`
	Inverse *Operation  `json:"inverse,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// IsInverse reports whether the outcome carries an executable undo.
func (o Outcome) IsInverse() bool {
	return o.Kind == OutcomeInverse && o.Inverse != nil
}
