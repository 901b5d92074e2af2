package rollback

import (
	"fmt"
	"strings"

	"rollgen/internal/core"
)

// RenderSQL renders a synthesized inverse operation as a PostgreSQL statement ending in
// a semicolon. Shapes that never appear as an inverse render as the empty string.
func RenderSQL(op core.Operation) string {
	ifExists := ""
	if op.IfExists {
		ifExists = "IF EXISTS "
	}
	table := op.Name.String()
	column := core.QuoteIdentifier(op.Target)

	switch op.Shape {
	case core.ShapeDropTable:
		return fmt.Sprintf("DROP TABLE %s%s;", ifExists, table)
	case core.ShapeDropColumn:
		cols := op.Columns
		if len(cols) == 0 {
			cols = []string{op.Target}
		}
		drops := make([]string, 0, len(cols))
		for _, c := range cols {
			drops = append(drops, fmt.Sprintf("DROP COLUMN %s%s", ifExists, core.QuoteIdentifier(c)))
		}
		return fmt.Sprintf("ALTER TABLE %s %s;", table, strings.Join(drops, ", "))
	case core.ShapeDropConstraint, core.ShapeDropPrimaryKey, core.ShapeDropForeignKey,
		core.ShapeDropUnique, core.ShapeDropCheck:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", table, ifExists, column)
	case core.ShapeSetNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", table, column)
	case core.ShapeDropNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", table, column)
	case core.ShapeDropDefault:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", table, column)
	case core.ShapeRenameColumn:
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", table, column, core.QuoteIdentifier(op.NewName))
	case core.ShapeRenameTable:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", table, core.QuoteIdentifier(op.NewName))
	case core.ShapeDropIndex:
		return fmt.Sprintf("DROP INDEX %s%s;", ifExists, op.Name)
	case core.ShapeDropSequence:
		return fmt.Sprintf("DROP SEQUENCE %s%s;", ifExists, op.Name)
	case core.ShapeDropView:
		return fmt.Sprintf("DROP VIEW %s%s;", ifExists, op.Name)
	case core.ShapeDropFunction:
		return fmt.Sprintf("DROP FUNCTION %s%s;", ifExists, op.Name)
	case core.ShapeDropProcedure:
		return fmt.Sprintf("DROP PROCEDURE %s%s;", ifExists, op.Name)
	case core.ShapeDropTrigger:
		if op.Table.IsZero() {
			return fmt.Sprintf("DROP TRIGGER %s%s;", ifExists, core.QuoteIdentifier(op.Name.Name))
		}
		return fmt.Sprintf("DROP TRIGGER %s%s ON %s;", ifExists, core.QuoteIdentifier(op.Name.Name), op.Table)
	default:
		return ""
	}
}

// RenderOutcome renders an outcome as the body of a textual rollback directive: the
// inverse statement, or the irreversible reason as an SQL comment.
func RenderOutcome(o core.Outcome) string {
	if o.IsInverse() {
		if sql := RenderSQL(*o.Inverse); sql != "" {
			return sql
		}
	}
	reason := o.Reason
	if reason == "" {
		reason = GenericReason
	}
	return "-- " + reason
}
