package rollback

import (
	"regexp"

	"rollgen/internal/core"
)

type matcher struct {
	shape core.Shape
	match func(sql string) bool
}

func prefix(tmpl string) func(string) bool {
	re := regexp.MustCompile(`(?i)^` + spaced(tmpl) + `\b`)
	return re.MatchString
}

// alter matches an ALTER TABLE statement that carries marker anywhere after the table.
func alter(marker string) func(string) bool {
	re := regexp.MustCompile(`(?i)^ALTER\s+TABLE\s.*\s` + spaced(marker) + `\b`)
	return re.MatchString
}

// implicitAlter matches the COLUMN-less `ADD col` and `DROP col` forms.
func implicitAlter(verb string) func(string) bool {
	re := regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(?:IF\s+EXISTS\s+)?(?:ONLY\s+)?(?:` + qnamePattern + `)\s+` + verb + `\s+(` + identPattern + `)`)
	return func(sql string) bool {
		m := re.FindStringSubmatch(sql)
		return m != nil && !isClauseKeyword(core.Unquote(m[1]))
	}
}

func spaced(tmpl string) string {
	out := make([]byte, 0, len(tmpl)+8)
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == ' ' {
			out = append(out, `\s+`...)
			continue
		}
		out = append(out, tmpl[i])
	}
	return string(out)
}

// matchers is evaluated top to bottom and the first hit wins. Compound ALTER TABLE
// markers sit above the bare ALTER TABLE entry, which must stay last among them.
var matchers = []matcher{
	{core.ShapeCreateTable, prefix(`CREATE (?:(?:GLOBAL |LOCAL )?(?:TEMPORARY |TEMP )|UNLOGGED )?TABLE`)},
	{core.ShapeDropTable, prefix(`DROP TABLE`)},
	{core.ShapeCreateIndex, prefix(`CREATE (?:UNIQUE )?INDEX`)},
	{core.ShapeDropIndex, prefix(`DROP INDEX`)},
	{core.ShapeCreateSequence, prefix(`CREATE (?:TEMPORARY |TEMP |UNLOGGED )?SEQUENCE`)},
	{core.ShapeDropSequence, prefix(`DROP SEQUENCE`)},
	{core.ShapeCreateView, prefix(`CREATE (?:OR REPLACE )?(?:TEMPORARY |TEMP )?(?:RECURSIVE )?VIEW`)},
	{core.ShapeDropView, prefix(`DROP VIEW`)},
	{core.ShapeCreateFunction, prefix(`CREATE (?:OR REPLACE )?FUNCTION`)},
	{core.ShapeDropFunction, prefix(`DROP FUNCTION`)},
	{core.ShapeCreateProcedure, prefix(`CREATE (?:OR REPLACE )?PROCEDURE`)},
	{core.ShapeDropProcedure, prefix(`DROP PROCEDURE`)},
	{core.ShapeCreateTrigger, prefix(`CREATE (?:OR REPLACE )?(?:CONSTRAINT )?TRIGGER`)},
	{core.ShapeDropTrigger, prefix(`DROP TRIGGER`)},

	{core.ShapeAddColumn, alter(`ADD COLUMN`)},
	{core.ShapeDropColumn, alter(`DROP COLUMN`)},
	{core.ShapeRenameColumn, alter(`RENAME COLUMN`)},
	{core.ShapeSetNotNull, alter(`ALTER (?:COLUMN )?\S+ SET NOT NULL`)},
	{core.ShapeDropNotNull, alter(`ALTER (?:COLUMN )?\S+ DROP NOT NULL`)},
	{core.ShapeSetDefault, alter(`ALTER (?:COLUMN )?\S+ SET DEFAULT`)},
	{core.ShapeDropDefault, alter(`ALTER (?:COLUMN )?\S+ DROP DEFAULT`)},
	{core.ShapeAlterColumnType, alter(`ALTER (?:COLUMN )?\S+ (?:SET DATA )?TYPE`)},
	{core.ShapeAddPrimaryKey, alter(`ADD (?:CONSTRAINT \S+ )?PRIMARY KEY`)},
	{core.ShapeAddForeignKey, alter(`ADD (?:CONSTRAINT \S+ )?FOREIGN KEY`)},
	{core.ShapeAddUnique, alter(`ADD (?:CONSTRAINT \S+ )?UNIQUE`)},
	{core.ShapeAddCheck, alter(`ADD (?:CONSTRAINT \S+ )?CHECK`)},
	{core.ShapeAddConstraint, alter(`ADD CONSTRAINT`)},
	{core.ShapeDropPrimaryKey, alter(`DROP PRIMARY KEY`)},
	{core.ShapeDropForeignKey, alter(`DROP FOREIGN KEY`)},
	{core.ShapeDropCheck, alter(`DROP CHECK`)},
	{core.ShapeDropConstraint, alter(`DROP CONSTRAINT`)},
	{core.ShapeRenameTable, alter(`RENAME TO`)},
	{core.ShapeRenameColumn, alter(`RENAME \S+ TO`)},
	{core.ShapeAddColumn, implicitAlter(`ADD`)},
	{core.ShapeDropColumn, implicitAlter(`DROP`)},
	{core.ShapeAlterTable, prefix(`ALTER TABLE`)},

	{core.ShapeInsert, prefix(`INSERT INTO`)},
	{core.ShapeUpdate, prefix(`UPDATE`)},
	{core.ShapeDelete, prefix(`DELETE FROM`)},
	{core.ShapeTruncate, prefix(`TRUNCATE`)},
}

// Classify returns the shape of a statement, or core.ShapeUnknown when no matcher fits.
func Classify(raw string) core.Shape {
	sql := Normalize(raw)
	if sql == "" {
		return core.ShapeUnknown
	}
	for _, m := range matchers {
		if m.match(sql) {
			return m.shape
		}
	}
	return core.ShapeUnknown
}

// Parse classifies a statement and extracts its identifiers. A statement whose shape is
// recognized but whose identifiers cannot be captured comes back as core.ShapeUnknown.
func Parse(raw string) core.Operation {
	shape := Classify(raw)
	if shape == core.ShapeUnknown {
		return core.Operation{Shape: core.ShapeUnknown, Raw: Normalize(raw)}
	}
	op, ok := Extract(shape, raw)
	if !ok {
		return core.Operation{Shape: core.ShapeUnknown, Raw: op.Raw}
	}
	return op
}
