// Package rollback derives undo operations for forward migration statements.
// It classifies a statement into a core.Shape, extracts the identifiers the shape
// needs and synthesizes either an inverse operation or an irreversible marker.
package rollback

import (
	"fmt"
	"regexp"
	"strings"

	"rollgen/internal/core"
)

const (
	identPattern = `"(?:[^"]|"")+"|[^\s"(),;.]+`
	// Up to three parts; ParseQualifiedName keeps the last two (schema and name).
	qnamePattern = `(?:` + identPattern + `)(?:\s*\.\s*(?:` + identPattern + `)){0,2}`
)

// compile expands a pattern template: spaces become \s+, {qn} captures a possibly
// qualified name and {id} captures a single identifier. Templates are anchored and
// case-insensitive.
func compile(tmpl string) *regexp.Regexp {
	r := strings.NewReplacer(
		" ", `\s+`,
		"{qn}", `(`+qnamePattern+`)`,
		"{id}", `(`+identPattern+`)`,
	)
	return regexp.MustCompile(`(?i)^` + r.Replace(tmpl))
}

const alterHead = `ALTER TABLE (?:IF EXISTS )?(?:ONLY )?{qn} `

var (
	createTableRe     = compile(`CREATE (?:(?:GLOBAL |LOCAL )?(?:TEMPORARY |TEMP )|UNLOGGED )?TABLE (?:IF NOT EXISTS )?{qn}`)
	dropTableRe       = compile(`DROP TABLE (?:IF EXISTS )?{qn}`)
	createIndexRe     = compile(`CREATE (?:UNIQUE )?INDEX (?:CONCURRENTLY )?(?:IF NOT EXISTS )?{qn} ON (?:ONLY )?{qn}`)
	dropIndexRe       = compile(`DROP INDEX (?:CONCURRENTLY )?(?:IF EXISTS )?{qn}(?: ON {qn})?`)
	createSequenceRe  = compile(`CREATE (?:TEMPORARY |TEMP |UNLOGGED )?SEQUENCE (?:IF NOT EXISTS )?{qn}`)
	dropSequenceRe    = compile(`DROP SEQUENCE (?:IF EXISTS )?{qn}`)
	createViewRe      = compile(`CREATE (?:OR REPLACE )?(?:TEMPORARY |TEMP )?(?:RECURSIVE )?VIEW {qn}`)
	dropViewRe        = compile(`DROP VIEW (?:IF EXISTS )?{qn}`)
	createFunctionRe  = compile(`CREATE (?:OR REPLACE )?FUNCTION {qn}`)
	dropFunctionRe    = compile(`DROP FUNCTION (?:IF EXISTS )?{qn}`)
	createProcedureRe = compile(`CREATE (?:OR REPLACE )?PROCEDURE {qn}`)
	dropProcedureRe   = compile(`DROP PROCEDURE (?:IF EXISTS )?{qn}`)
	createTriggerRe   = compile(`CREATE (?:OR REPLACE )?(?:CONSTRAINT )?TRIGGER {id}(?: .*? ON (?:ONLY )?{qn})?`)
	dropTriggerRe     = compile(`DROP TRIGGER (?:IF EXISTS )?{id}(?: ON (?:ONLY )?{qn})?`)
	insertRe          = compile(`INSERT INTO {qn}`)
	updateRe          = compile(`UPDATE (?:ONLY )?{qn}`)
	deleteRe          = compile(`DELETE FROM (?:ONLY )?{qn}`)
	truncateRe        = compile(`TRUNCATE (?:TABLE )?(?:ONLY )?{qn}`)

	alterTableRe     = compile(alterHead)
	addColumnRe      = compile(alterHead + `ADD (?:COLUMN )?(?:IF NOT EXISTS )?{id}`)
	extraAddColumnRe = regexp.MustCompile(`(?i),\s*ADD\s+(?:COLUMN\s+)?(?:IF\s+NOT\s+EXISTS\s+)?(` + identPattern + `)`)
	dropColumnRe     = compile(alterHead + `DROP (?:COLUMN )?(?:IF EXISTS )?{id}`)
	renameColumnRe   = compile(alterHead + `RENAME (?:COLUMN )?{id} TO {id}`)
	renameTableRe    = compile(alterHead + `RENAME TO {id}`)
	alterColumnRe    = compile(alterHead + `ALTER (?:COLUMN )?{id}`)
	addPrimaryKeyRe  = compile(alterHead + `ADD PRIMARY KEY`)
	addForeignKeyRe  = compile(alterHead + `ADD FOREIGN KEY\s*\(([^)]*)\)`)
	addUniqueRe      = compile(alterHead + `ADD UNIQUE(?: NULLS (?:NOT )?DISTINCT)?\s*\(([^)]*)\)`)
	addConstraintRe  = compile(alterHead + `ADD CONSTRAINT {id}`)
	dropConstraintRe = compile(alterHead + `DROP CONSTRAINT (?:IF EXISTS )?{id}`)
	dropForeignKeyRe = compile(alterHead + `DROP FOREIGN KEY {id}`)
	dropCheckRe      = compile(alterHead + `DROP CHECK {id}`)
)

// Extract pulls the identifiers a shape needs out of a raw statement. It reports false
// when the statement does not carry them in a recognizable form.
func Extract(shape core.Shape, raw string) (core.Operation, bool) {
	sql := Normalize(raw)
	op := core.Operation{Shape: shape, Raw: sql}

	switch shape {
	case core.ShapeCreateTable:
		return withName(op, createTableRe, sql)
	case core.ShapeDropTable:
		return withName(op, dropTableRe, sql)
	case core.ShapeCreateSequence:
		return withName(op, createSequenceRe, sql)
	case core.ShapeDropSequence:
		return withName(op, dropSequenceRe, sql)
	case core.ShapeCreateView:
		return withName(op, createViewRe, sql)
	case core.ShapeDropView:
		return withName(op, dropViewRe, sql)
	case core.ShapeCreateFunction:
		return withName(op, createFunctionRe, sql)
	case core.ShapeDropFunction:
		return withName(op, dropFunctionRe, sql)
	case core.ShapeCreateProcedure:
		return withName(op, createProcedureRe, sql)
	case core.ShapeDropProcedure:
		return withName(op, dropProcedureRe, sql)
	case core.ShapeInsert:
		return withName(op, insertRe, sql)
	case core.ShapeUpdate:
		return withName(op, updateRe, sql)
	case core.ShapeDelete:
		return withName(op, deleteRe, sql)
	case core.ShapeTruncate:
		return withName(op, truncateRe, sql)
	case core.ShapeAlterTable, core.ShapeDropPrimaryKey:
		return withName(op, alterTableRe, sql)
	case core.ShapeCreateIndex, core.ShapeDropIndex:
		return extractIndex(op, sql)
	case core.ShapeCreateTrigger, core.ShapeDropTrigger:
		return extractTrigger(op, sql)
	case core.ShapeAddColumn:
		return extractAddColumn(op, sql)
	case core.ShapeDropColumn:
		return withTarget(op, dropColumnRe, sql)
	case core.ShapeSetNotNull, core.ShapeDropNotNull, core.ShapeSetDefault,
		core.ShapeDropDefault, core.ShapeAlterColumnType:
		return withTarget(op, alterColumnRe, sql)
	case core.ShapeRenameColumn:
		m := renameColumnRe.FindStringSubmatch(sql)
		if m == nil {
			return op, false
		}
		op.Name = core.ParseQualifiedName(m[1])
		op.Target = core.Unquote(m[2])
		op.NewName = core.Unquote(m[3])
		return op, true
	case core.ShapeRenameTable:
		m := renameTableRe.FindStringSubmatch(sql)
		if m == nil {
			return op, false
		}
		op.Name = core.ParseQualifiedName(m[1])
		op.NewName = core.Unquote(m[2])
		return op, true
	case core.ShapeAddPrimaryKey:
		if o, ok := withTarget(op, addConstraintRe, sql); ok {
			return o, true
		}
		if o, ok := withName(op, addPrimaryKeyRe, sql); ok {
			o.Target = o.Name.Name + "_pkey"
			return o, true
		}
		return op, false
	case core.ShapeAddForeignKey:
		return extractKeyConstraint(op, addForeignKeyRe, sql, "fkey")
	case core.ShapeAddUnique:
		return extractKeyConstraint(op, addUniqueRe, sql, "key")
	case core.ShapeAddCheck, core.ShapeAddConstraint:
		return withTarget(op, addConstraintRe, sql)
	case core.ShapeDropConstraint, core.ShapeDropUnique:
		return withTarget(op, dropConstraintRe, sql)
	case core.ShapeDropForeignKey:
		if o, ok := withTarget(op, dropForeignKeyRe, sql); ok {
			return o, true
		}
		return withTarget(op, dropConstraintRe, sql)
	case core.ShapeDropCheck:
		if o, ok := withTarget(op, dropCheckRe, sql); ok {
			return o, true
		}
		return withTarget(op, dropConstraintRe, sql)
	default:
		return op, false
	}
}

func withName(op core.Operation, re *regexp.Regexp, sql string) (core.Operation, bool) {
	m := re.FindStringSubmatch(sql)
	if m == nil {
		return op, false
	}
	op.Name = core.ParseQualifiedName(m[1])
	return op, !op.Name.IsZero()
}

func withTarget(op core.Operation, re *regexp.Regexp, sql string) (core.Operation, bool) {
	m := re.FindStringSubmatch(sql)
	if m == nil {
		return op, false
	}
	op.Name = core.ParseQualifiedName(m[1])
	op.Target = core.Unquote(m[2])
	return op, !op.Name.IsZero() && op.Target != ""
}

func extractAddColumn(op core.Operation, sql string) (core.Operation, bool) {
	op, ok := withTarget(op, addColumnRe, sql)
	if !ok || isClauseKeyword(op.Target) {
		return op, false
	}
	op.Columns = []string{op.Target}
	for _, m := range extraAddColumnRe.FindAllStringSubmatch(sql, -1) {
		if col := core.Unquote(m[1]); !isClauseKeyword(col) {
			op.Columns = append(op.Columns, col)
		}
	}
	return op, true
}

func extractIndex(op core.Operation, sql string) (core.Operation, bool) {
	re := createIndexRe
	if op.Shape == core.ShapeDropIndex {
		re = dropIndexRe
	}
	m := re.FindStringSubmatch(sql)
	if m == nil {
		return op, false
	}
	op.Name = core.ParseQualifiedName(m[1])
	if m[2] != "" {
		op.Table = core.ParseQualifiedName(m[2])
	}
	// Postgres indexes live in their table's schema.
	if op.Name.Schema == "" {
		op.Name.Schema = op.Table.Schema
	}
	return op, !op.Name.IsZero()
}

func extractTrigger(op core.Operation, sql string) (core.Operation, bool) {
	re := createTriggerRe
	if op.Shape == core.ShapeDropTrigger {
		re = dropTriggerRe
	}
	m := re.FindStringSubmatch(sql)
	if m == nil {
		return op, false
	}
	op.Name = core.QualifiedName{Name: core.Unquote(m[1])}
	if m[2] != "" {
		op.Table = core.ParseQualifiedName(m[2])
	}
	return op, !op.Name.IsZero()
}

// extractKeyConstraint handles FOREIGN KEY and UNIQUE additions. When the constraint is
// unnamed, the Postgres default name <table>_<columns>_<suffix> is derived.
func extractKeyConstraint(op core.Operation, unnamed *regexp.Regexp, sql, suffix string) (core.Operation, bool) {
	if o, ok := withTarget(op, addConstraintRe, sql); ok {
		return o, true
	}
	m := unnamed.FindStringSubmatch(sql)
	if m == nil {
		return op, false
	}
	op.Name = core.ParseQualifiedName(m[1])
	var cols []string
	for _, c := range strings.Split(m[2], ",") {
		if c = core.Unquote(c); c != "" {
			cols = append(cols, c)
		}
	}
	if op.Name.IsZero() || len(cols) == 0 {
		return op, false
	}
	op.Target = fmt.Sprintf("%s_%s_%s", op.Name.Name, strings.Join(cols, "_"), suffix)
	return op, true
}

var clauseKeywords = map[string]struct{}{
	"COLUMN":     {},
	"CONSTRAINT": {},
	"PRIMARY":    {},
	"FOREIGN":    {},
	"UNIQUE":     {},
	"CHECK":      {},
	"EXCLUDE":    {},
	"INDEX":      {},
	"KEY":        {},
	"DEFAULT":    {},
	"NOT":        {},
	"IF":         {},
}

func isClauseKeyword(word string) bool {
	_, ok := clauseKeywords[strings.ToUpper(word)]
	return ok
}
