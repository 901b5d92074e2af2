package rollback

import (
	"fmt"

	"rollgen/internal/core"
)

// GenericReason is the outcome text for operations that could not be classified, or
// whose identifiers could not be extracted.
const GenericReason = "Empty rollback (manual intervention required)"

type rule struct {
	// needsTarget marks shapes whose inverse or reason refers to the secondary identifier.
	needsTarget bool
	synth       func(op core.Operation) core.Outcome
}

// rules is the rollback policy. An inverse is only produced when the forward operation
// can be undone from the names it carries; anything that needs the payload (values,
// types or full definitions) is irreversible.
var rules = map[core.Shape]rule{
	core.ShapeCreateTable: {synth: invert(core.ShapeDropTable)},
	core.ShapeDropTable: {synth: func(op core.Operation) core.Outcome {
		return irreversible(op, "Rollback for DROP TABLE %s requires original table definition", op.Name)
	}},

	core.ShapeAddColumn: {needsTarget: true, synth: invert(core.ShapeDropColumn)},
	core.ShapeDropColumn: {needsTarget: true, synth: func(op core.Operation) core.Outcome {
		return irreversible(op, "Rollback for DROP COLUMN %s requires original column definition", core.QuoteIdentifier(op.Target))
	}},

	core.ShapeAddPrimaryKey: {needsTarget: true, synth: invert(core.ShapeDropPrimaryKey)},
	core.ShapeAddForeignKey: {needsTarget: true, synth: invert(core.ShapeDropForeignKey)},
	core.ShapeAddUnique:     {needsTarget: true, synth: invert(core.ShapeDropUnique)},
	core.ShapeAddCheck:      {needsTarget: true, synth: invert(core.ShapeDropCheck)},
	core.ShapeAddConstraint: {needsTarget: true, synth: invert(core.ShapeDropConstraint)},
	core.ShapeDropConstraint: {needsTarget: true, synth: func(op core.Operation) core.Outcome {
		return irreversible(op, "Rollback for DROP CONSTRAINT %s requires original constraint definition", core.QuoteIdentifier(op.Target))
	}},
	core.ShapeDropPrimaryKey: {synth: fixed("Rollback for DROP PRIMARY KEY requires original primary key definition")},
	core.ShapeDropForeignKey: {synth: fixed("Rollback for DROP FOREIGN KEY requires original foreign key definition")},
	core.ShapeDropUnique:     {synth: fixed("Rollback for DROP UNIQUE requires original unique constraint definition")},
	core.ShapeDropCheck:      {synth: fixed("Rollback for DROP CHECK requires original check constraint definition")},

	core.ShapeSetNotNull:      {needsTarget: true, synth: invert(core.ShapeDropNotNull)},
	core.ShapeDropNotNull:     {needsTarget: true, synth: invert(core.ShapeSetNotNull)},
	core.ShapeSetDefault:      {needsTarget: true, synth: invert(core.ShapeDropDefault)},
	core.ShapeDropDefault:     {synth: fixed("Rollback for DROP DEFAULT requires original default value")},
	core.ShapeAlterColumnType: {synth: fixed("Rollback for ALTER COLUMN TYPE requires original column type")},

	core.ShapeRenameColumn: {needsTarget: true, synth: func(op core.Operation) core.Outcome {
		if op.NewName == "" {
			return generic(op)
		}
		return inverse(op, core.Operation{
			Shape:    core.ShapeRenameColumn,
			Name:     op.Name,
			Target:   op.NewName,
			NewName:  op.Target,
			DataType: op.DataType,
		})
	}},
	core.ShapeRenameTable: {synth: func(op core.Operation) core.Outcome {
		if op.NewName == "" {
			return generic(op)
		}
		return inverse(op, core.Operation{
			Shape:   core.ShapeRenameTable,
			Name:    op.Name.WithName(op.NewName),
			NewName: op.Name.Name,
		})
	}},
	core.ShapeAlterTable: {synth: func(op core.Operation) core.Outcome {
		return irreversible(op, "Rollback for ALTER TABLE %s requires manual intervention", op.Name)
	}},

	core.ShapeCreateIndex:     {synth: invert(core.ShapeDropIndex)},
	core.ShapeDropIndex:       {synth: dropped("INDEX", "index")},
	core.ShapeCreateSequence:  {synth: invert(core.ShapeDropSequence)},
	core.ShapeDropSequence:    {synth: dropped("SEQUENCE", "sequence")},
	core.ShapeCreateView:      {synth: invert(core.ShapeDropView)},
	core.ShapeDropView:        {synth: dropped("VIEW", "view")},
	core.ShapeCreateFunction:  {synth: invert(core.ShapeDropFunction)},
	core.ShapeDropFunction:    {synth: dropped("FUNCTION", "function")},
	core.ShapeCreateProcedure: {synth: invert(core.ShapeDropProcedure)},
	core.ShapeDropProcedure:   {synth: dropped("PROCEDURE", "procedure")},
	core.ShapeCreateTrigger:   {synth: invert(core.ShapeDropTrigger)},
	core.ShapeDropTrigger:     {synth: dropped("TRIGGER", "trigger")},

	core.ShapeInsert:   {synth: fixed("Rollback for INSERT requires identifying the inserted record(s)")},
	core.ShapeUpdate:   {synth: fixed("Rollback for UPDATE requires original values")},
	core.ShapeDelete:   {synth: fixed("Rollback for DELETE requires original values")},
	core.ShapeTruncate: {synth: fixed("Rollback for TRUNCATE requires original data")},
}

// Synthesize derives the rollback outcome of a single operation. It never fails: an
// unknown shape, or an operation missing the identifiers its shape needs, yields the
// generic irreversible outcome.
func Synthesize(op core.Operation) core.Outcome {
	r, ok := rules[op.Shape]
	if !ok || op.Name.IsZero() || r.needsTarget && op.Target == "" {
		return generic(op)
	}
	return r.synth(op)
}

// SynthesizeSQL classifies, extracts and synthesizes in one step.
func SynthesizeSQL(raw string) core.Outcome {
	return Synthesize(Parse(raw))
}

// invert keeps every identifier of the forward operation and swaps its shape for the
// dropping counterpart, guarded by IF EXISTS.
func invert(to core.Shape) func(core.Operation) core.Outcome {
	return func(op core.Operation) core.Outcome {
		inv := op
		inv.Shape = to
		inv.Raw = ""
		inv.Tag = ""
		inv.Columns = append([]string(nil), op.Columns...)
		switch to {
		case core.ShapeSetNotNull, core.ShapeDropNotNull, core.ShapeDropDefault:
			inv.IfExists = false
		default:
			inv.IfExists = true
		}
		return inverse(op, inv)
	}
}

func dropped(keyword, noun string) func(core.Operation) core.Outcome {
	return func(op core.Operation) core.Outcome {
		return irreversible(op, "Rollback for DROP %s %s requires original %s definition", keyword, op.Name, noun)
	}
}

func fixed(reason string) func(core.Operation) core.Outcome {
	return func(op core.Operation) core.Outcome {
		return core.Outcome{Kind: core.OutcomeIrreversible, Shape: op.Shape, Reason: reason}
	}
}

func inverse(op core.Operation, inv core.Operation) core.Outcome {
	return core.Outcome{Kind: core.OutcomeInverse, Shape: op.Shape, Inverse: &inv}
}

func irreversible(op core.Operation, format string, args ...any) core.Outcome {
	return core.Outcome{Kind: core.OutcomeIrreversible, Shape: op.Shape, Reason: fmt.Sprintf(format, args...)}
}

func generic(core.Operation) core.Outcome {
	return core.Outcome{Kind: core.OutcomeIrreversible, Shape: core.ShapeUnknown, Reason: GenericReason}
}
