package changelog

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"rollgen/internal/core"
	"rollgen/internal/rollback"
)

// LiquibaseNamespace is the namespace change units must live in to be processed.
const LiquibaseNamespace = "http://www.liquibase.org/xml/ns/dbchangelog"

const xmlDeclaration = `version="1.0" encoding="UTF-8"`

// metadataTags are changeSet children that carry no schema change.
var metadataTags = map[string]struct{}{
	"comment":       {},
	"preConditions": {},
	"validCheckSum": {},
	"tagDatabase":   {},
	"empty":         {},
	"output":        {},
}

// ProcessXML adds a rollback element to every changeSet that lacks one. The document is
// parsed in full before anything is changed, so a ParseError leaves nothing to write.
func ProcessXML(content []byte, opts Options) ([]byte, Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, Result{}, &ParseError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, Result{}, &ParseError{Err: fmt.Errorf("document has no root element")}
	}

	var res Result
	for _, cs := range changeSets(root) {
		res.record(processChangeSet(cs, opts))
	}

	doc.Indent(2)
	setDeclaration(doc)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, res, fmt.Errorf("failed to serialize changelog: %w", err)
	}
	return out, res, nil
}

func changeSets(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "changeSet" && el.NamespaceURI() == LiquibaseNamespace {
			out = append(out, el)
			return
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	return out
}

func processChangeSet(cs *etree.Element, opts Options) core.ChangeUnit {
	unit := core.ChangeUnit{ID: changeSetID(cs)}

	var ops []*etree.Element
	for _, child := range cs.ChildElements() {
		if child.Tag == "rollback" && child.NamespaceURI() == LiquibaseNamespace {
			unit.Status = core.UnitSkipped
			return unit
		}
		if _, ok := metadataTags[child.Tag]; ok {
			continue
		}
		ops = append(ops, child)
	}

	type entry struct {
		outcome core.Outcome
		// sqlForm renders an inverse as an sql element rather than a change element.
		sqlForm bool
	}
	var entries []entry
	for _, el := range ops {
		if el.Tag == "sql" {
			for _, stmt := range rollback.SplitStatements(rollback.StripCommentLines(el.Text())) {
				stmt = rollback.Normalize(stmt)
				unit.Statements = append(unit.Statements, stmt)
				entries = append(entries, entry{outcome: rollback.SynthesizeSQL(stmt), sqlForm: true})
			}
			continue
		}
		unit.Statements = append(unit.Statements, el.Tag)
		op, ok := elementOperation(el)
		if !ok {
			entries = append(entries, entry{outcome: core.Outcome{
				Kind:   core.OutcomeIrreversible,
				Reason: fmt.Sprintf("Rollback for %s requires manual intervention", el.Tag),
			}})
			continue
		}
		entries = append(entries, entry{outcome: rollback.Synthesize(op)})
	}
	if len(entries) == 0 {
		unit.Status = core.UnitEmpty
		return unit
	}
	if opts.Reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	rb := cs.CreateElement(qualify(cs.Space, "rollback"))
	for _, e := range entries {
		unit.Outcomes = append(unit.Outcomes, e.outcome)
		appendOutcome(rb, cs.Space, e.outcome, e.sqlForm)
	}
	unit.Status = core.UnitAdded
	return unit
}

func changeSetID(cs *etree.Element) string {
	id := cs.SelectAttrValue("id", "")
	if author := cs.SelectAttrValue("author", ""); author != "" {
		return author + ":" + id
	}
	return id
}

type elementRule struct {
	shape   core.Shape
	extract func(el *etree.Element, op *core.Operation)
}

// elementRules maps change element tags to the shape they share with the SQL classifier.
var elementRules = map[string]elementRule{
	"createTable": {core.ShapeCreateTable, tableOnly},
	"dropTable":   {core.ShapeDropTable, tableOnly},
	"renameTable": {core.ShapeRenameTable, renameTable},

	"addColumn":    {core.ShapeAddColumn, columns},
	"dropColumn":   {core.ShapeDropColumn, columns},
	"renameColumn": {core.ShapeRenameColumn, renameColumn},

	"addNotNullConstraint":  {core.ShapeSetNotNull, column},
	"dropNotNullConstraint": {core.ShapeDropNotNull, column},
	"addDefaultValue":       {core.ShapeSetDefault, column},
	"dropDefaultValue":      {core.ShapeDropDefault, column},
	"modifyDataType":        {core.ShapeAlterColumnType, column},

	"addPrimaryKey":            {core.ShapeAddPrimaryKey, primaryKey},
	"dropPrimaryKey":           {core.ShapeDropPrimaryKey, constraint},
	"addForeignKeyConstraint":  {core.ShapeAddForeignKey, foreignKey},
	"dropForeignKeyConstraint": {core.ShapeDropForeignKey, foreignKey},
	"addUniqueConstraint":      {core.ShapeAddUnique, constraint},
	"dropUniqueConstraint":     {core.ShapeDropUnique, constraint},
	"addCheckConstraint":       {core.ShapeAddCheck, constraint},
	"dropCheckConstraint":      {core.ShapeDropCheck, constraint},

	"createIndex":     {core.ShapeCreateIndex, index},
	"dropIndex":       {core.ShapeDropIndex, index},
	"createSequence":  {core.ShapeCreateSequence, named("sequenceName")},
	"dropSequence":    {core.ShapeDropSequence, named("sequenceName")},
	"createView":      {core.ShapeCreateView, named("viewName")},
	"dropView":        {core.ShapeDropView, named("viewName")},
	"createProcedure": {core.ShapeCreateProcedure, named("procedureName")},
	"dropProcedure":   {core.ShapeDropProcedure, named("procedureName")},

	"insert": {core.ShapeInsert, tableOnly},
	"update": {core.ShapeUpdate, tableOnly},
	"delete": {core.ShapeDelete, tableOnly},
}

// ElementShape reports the shape a structured change element maps to.
func ElementShape(tag string) (core.Shape, bool) {
	r, ok := elementRules[tag]
	return r.shape, ok
}

// elementOperation lifts a change element into an operation. Missing attributes are not
// an error here: the synthesizer turns an operation without names into the generic
// outcome.
func elementOperation(el *etree.Element) (core.Operation, bool) {
	r, ok := elementRules[el.Tag]
	if !ok {
		return core.Operation{}, false
	}
	op := core.Operation{Shape: r.shape, Tag: el.Tag}
	r.extract(el, &op)
	return op, true
}

func attr(el *etree.Element, key string) string {
	return strings.TrimSpace(el.SelectAttrValue(key, ""))
}

func table(el *etree.Element) core.QualifiedName {
	return core.NewQualifiedName(attr(el, "schemaName"), attr(el, "tableName"))
}

func tableOnly(el *etree.Element, op *core.Operation) {
	op.Name = table(el)
}

func renameTable(el *etree.Element, op *core.Operation) {
	op.Name = core.NewQualifiedName(attr(el, "schemaName"), attr(el, "oldTableName"))
	op.NewName = attr(el, "newTableName")
}

func columns(el *etree.Element, op *core.Operation) {
	op.Name = table(el)
	if name := attr(el, "columnName"); name != "" {
		op.Columns = append(op.Columns, name)
	}
	for _, c := range el.ChildElements() {
		if c.Tag != "column" {
			continue
		}
		if name := attr(c, "name"); name != "" {
			op.Columns = append(op.Columns, name)
		}
	}
	if len(op.Columns) > 0 {
		op.Target = op.Columns[0]
	}
}

func column(el *etree.Element, op *core.Operation) {
	op.Name = table(el)
	op.Target = attr(el, "columnName")
	op.DataType = attr(el, "columnDataType")
}

func renameColumn(el *etree.Element, op *core.Operation) {
	op.Name = table(el)
	op.Target = attr(el, "oldColumnName")
	op.NewName = attr(el, "newColumnName")
	op.DataType = attr(el, "columnDataType")
}

func constraint(el *etree.Element, op *core.Operation) {
	op.Name = table(el)
	op.Target = attr(el, "constraintName")
}

func primaryKey(el *etree.Element, op *core.Operation) {
	constraint(el, op)
	if op.Target == "" && !op.Name.IsZero() {
		op.Target = op.Name.Name + "_pkey"
	}
}

func foreignKey(el *etree.Element, op *core.Operation) {
	op.Name = core.NewQualifiedName(attr(el, "baseTableSchemaName"), attr(el, "baseTableName"))
	op.Target = attr(el, "constraintName")
}

func index(el *etree.Element, op *core.Operation) {
	schema := attr(el, "schemaName")
	op.Name = core.NewQualifiedName(schema, attr(el, "indexName"))
	op.Table = core.NewQualifiedName(schema, attr(el, "tableName"))
}

func named(key string) func(*etree.Element, *core.Operation) {
	return func(el *etree.Element, op *core.Operation) {
		op.Name = core.NewQualifiedName(attr(el, "schemaName"), attr(el, key))
	}
}

// appendOutcome writes one rollback entry under rb: a change element for an inverse, or
// a comment placeholder for anything irreversible.
func appendOutcome(rb *etree.Element, space string, o core.Outcome, sqlForm bool) {
	if o.IsInverse() {
		if !sqlForm && inverseElement(rb, space, *o.Inverse) {
			return
		}
		if sql := rollback.RenderSQL(*o.Inverse); sql != "" {
			rb.CreateElement(qualify(space, "sql")).SetText(sql)
			return
		}
	}
	reason := o.Reason
	if reason == "" {
		reason = rollback.GenericReason
	}
	rb.CreateElement(qualify(space, "comment")).SetText("-- " + reason)
}

// inverseTags names the change element that renders each inverse shape. Shapes without an
// entry fall back to an sql element.
var inverseTags = map[core.Shape]string{
	core.ShapeDropTable:      "dropTable",
	core.ShapeRenameTable:    "renameTable",
	core.ShapeDropColumn:     "dropColumn",
	core.ShapeRenameColumn:   "renameColumn",
	core.ShapeSetNotNull:     "addNotNullConstraint",
	core.ShapeDropNotNull:    "dropNotNullConstraint",
	core.ShapeDropDefault:    "dropDefaultValue",
	core.ShapeDropPrimaryKey: "dropPrimaryKey",
	core.ShapeDropForeignKey: "dropForeignKeyConstraint",
	core.ShapeDropUnique:     "dropUniqueConstraint",
	core.ShapeDropCheck:      "dropCheckConstraint",
	core.ShapeDropIndex:      "dropIndex",
	core.ShapeDropSequence:   "dropSequence",
	core.ShapeDropView:       "dropView",
	core.ShapeDropProcedure:  "dropProcedure",
}

func inverseElement(rb *etree.Element, space string, inv core.Operation) bool {
	tag, ok := inverseTags[inv.Shape]
	if !ok {
		return false
	}
	el := rb.CreateElement(qualify(space, tag))

	setTable := func(schemaKey, tableKey string, name core.QualifiedName) {
		if name.Schema != "" {
			el.CreateAttr(schemaKey, name.Schema)
		}
		el.CreateAttr(tableKey, name.Name)
	}
	setIf := func(key, value string) {
		if value != "" {
			el.CreateAttr(key, value)
		}
	}

	switch inv.Shape {
	case core.ShapeDropTable:
		setTable("schemaName", "tableName", inv.Name)
	case core.ShapeRenameTable:
		setIf("schemaName", inv.Name.Schema)
		el.CreateAttr("oldTableName", inv.Name.Name)
		el.CreateAttr("newTableName", inv.NewName)
	case core.ShapeDropColumn:
		setTable("schemaName", "tableName", inv.Name)
		cols := inv.Columns
		if len(cols) == 0 {
			cols = []string{inv.Target}
		}
		if len(cols) == 1 {
			el.CreateAttr("columnName", cols[0])
			break
		}
		for _, c := range cols {
			el.CreateElement(qualify(space, "column")).CreateAttr("name", c)
		}
	case core.ShapeRenameColumn:
		setTable("schemaName", "tableName", inv.Name)
		el.CreateAttr("oldColumnName", inv.Target)
		el.CreateAttr("newColumnName", inv.NewName)
		setIf("columnDataType", inv.DataType)
	case core.ShapeSetNotNull, core.ShapeDropNotNull, core.ShapeDropDefault:
		setTable("schemaName", "tableName", inv.Name)
		el.CreateAttr("columnName", inv.Target)
		setIf("columnDataType", inv.DataType)
	case core.ShapeDropForeignKey:
		setTable("baseTableSchemaName", "baseTableName", inv.Name)
		el.CreateAttr("constraintName", inv.Target)
	case core.ShapeDropPrimaryKey, core.ShapeDropUnique, core.ShapeDropCheck:
		setTable("schemaName", "tableName", inv.Name)
		el.CreateAttr("constraintName", inv.Target)
	case core.ShapeDropIndex:
		setIf("schemaName", inv.Name.Schema)
		el.CreateAttr("indexName", inv.Name.Name)
		setIf("tableName", inv.Table.Name)
	case core.ShapeDropSequence:
		setIf("schemaName", inv.Name.Schema)
		el.CreateAttr("sequenceName", inv.Name.Name)
	case core.ShapeDropView:
		setIf("schemaName", inv.Name.Schema)
		el.CreateAttr("viewName", inv.Name.Name)
	case core.ShapeDropProcedure:
		setIf("schemaName", inv.Name.Schema)
		el.CreateAttr("procedureName", inv.Name.Name)
	}
	return true
}

func qualify(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}

// setDeclaration makes the document start with a UTF-8 XML declaration.
func setDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = xmlDeclaration
			return
		}
	}
	pi := doc.CreateProcInst("xml", xmlDeclaration)
	doc.RemoveChildAt(len(doc.Child) - 1)
	doc.InsertChildAt(0, pi)
	doc.InsertChildAt(1, etree.NewText("\n"))
}
