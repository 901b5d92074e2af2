// Package core contains the data model shared by the classifier, the synthesizer and
// both changelog front-ends: operation shapes, qualified names, operation records and
// rollback outcomes.
package core

// Shape identifies the kind of change a forward statement or element performs.
// The declaration order mirrors the classifier's match precedence: object-level verbs
// first, then the specific ALTER TABLE markers, then the ALTER TABLE catch-most.
type Shape int

const (
	ShapeUnknown Shape = iota

	ShapeCreateTable
	ShapeDropTable
	ShapeCreateIndex
	ShapeDropIndex
	ShapeCreateSequence
	ShapeDropSequence
	ShapeCreateView
	ShapeDropView
	ShapeCreateFunction
	ShapeDropFunction
	ShapeCreateProcedure
	ShapeDropProcedure
	ShapeCreateTrigger
	ShapeDropTrigger

	ShapeAddColumn
	ShapeDropColumn
	ShapeRenameColumn
	ShapeSetNotNull
	ShapeDropNotNull
	ShapeSetDefault
	ShapeDropDefault
	ShapeAlterColumnType
	ShapeAddPrimaryKey
	ShapeAddForeignKey
	ShapeAddUnique
	ShapeAddCheck
	ShapeAddConstraint
	ShapeDropPrimaryKey
	ShapeDropForeignKey
	ShapeDropUnique
	ShapeDropCheck
	ShapeDropConstraint
	ShapeRenameTable
	ShapeAlterTable

	ShapeInsert
	ShapeUpdate
	ShapeDelete
	ShapeTruncate

	shapeCount
)

var shapeNames = [shapeCount]string{
	ShapeUnknown:         "Unknown",
	ShapeCreateTable:     "CreateTable",
	ShapeDropTable:       "DropTable",
	ShapeCreateIndex:     "CreateIndex",
	ShapeDropIndex:       "DropIndex",
	ShapeCreateSequence:  "CreateSequence",
	ShapeDropSequence:    "DropSequence",
	ShapeCreateView:      "CreateView",
	ShapeDropView:        "DropView",
	ShapeCreateFunction:  "CreateFunction",
	ShapeDropFunction:    "DropFunction",
	ShapeCreateProcedure: "CreateProcedure",
	ShapeDropProcedure:   "DropProcedure",
	ShapeCreateTrigger:   "CreateTrigger",
	ShapeDropTrigger:     "DropTrigger",
	ShapeAddColumn:       "AddColumn",
	ShapeDropColumn:      "DropColumn",
	ShapeRenameColumn:    "RenameColumn",
	ShapeSetNotNull:      "SetNotNull",
	ShapeDropNotNull:     "DropNotNull",
	ShapeSetDefault:      "SetDefault",
	ShapeDropDefault:     "DropDefault",
	ShapeAlterColumnType: "AlterColumnType",
	ShapeAddPrimaryKey:   "AddPrimaryKey",
	ShapeAddForeignKey:   "AddForeignKey",
	ShapeAddUnique:       "AddUnique",
	ShapeAddCheck:        "AddCheck",
	ShapeAddConstraint:   "AddConstraint",
	ShapeDropPrimaryKey:  "DropPrimaryKey",
	ShapeDropForeignKey:  "DropForeignKey",
	ShapeDropUnique:      "DropUnique",
	ShapeDropCheck:       "DropCheck",
	ShapeDropConstraint:  "DropConstraint",
	ShapeRenameTable:     "RenameTable",
	ShapeAlterTable:      "AlterTable",
	ShapeInsert:          "Insert",
	ShapeUpdate:          "Update",
	ShapeDelete:          "Delete",
	ShapeTruncate:        "Truncate",
}

func (s Shape) String() string {
	if s < 0 || s >= shapeCount {
		return shapeNames[ShapeUnknown]
	}
	return shapeNames[s]
}

// Shapes returns every declared shape except ShapeUnknown, in precedence order.
func Shapes() []Shape {
	out := make([]Shape, 0, shapeCount-1)
	for s := ShapeUnknown + 1; s < shapeCount; s++ {
		out = append(out, s)
	}
	return out
}

// MarshalText renders the shape by name in JSON reports.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
