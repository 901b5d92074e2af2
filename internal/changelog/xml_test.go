package changelog

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollgen/internal/core"
)

const xmlChangelog = `<?xml version="1.0"?>
<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="1" author="alice">
    <createTable schemaName="public" tableName="orders">
      <column name="id" type="int"/>
    </createTable>
  </changeSet>
  <changeSet id="2" author="alice">
    <comment>notes</comment>
    <addColumn tableName="orders">
      <column name="note" type="text"/>
    </addColumn>
  </changeSet>
  <changeSet id="3" author="alice">
    <dropTable tableName="legacy"/>
    <rollback/>
  </changeSet>
</databaseChangeLog>
`

func parseOutput(t *testing.T, out []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	return doc
}

func rollbackOf(t *testing.T, doc *etree.Document, id string) *etree.Element {
	t.Helper()
	cs := doc.FindElement("//changeSet[@id='" + id + "']")
	require.NotNil(t, cs, "changeSet %s not found", id)
	return cs.SelectElement("rollback")
}

func TestProcessXML(t *testing.T) {
	out, res, err := ProcessXML([]byte(xmlChangelog), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Seen)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Units, 3)
	assert.Equal(t, "alice:1", res.Units[0].ID)
	assert.Equal(t, []string{"createTable"}, res.Units[0].Statements)
	assert.Equal(t, []string{"addColumn"}, res.Units[1].Statements)

	doc := parseOutput(t, out)

	rb := rollbackOf(t, doc, "1")
	require.NotNil(t, rb)
	drop := rb.SelectElement("dropTable")
	require.NotNil(t, drop)
	assert.Equal(t, "public", drop.SelectAttrValue("schemaName", ""))
	assert.Equal(t, "orders", drop.SelectAttrValue("tableName", ""))

	rb = rollbackOf(t, doc, "2")
	require.NotNil(t, rb)
	dropCol := rb.SelectElement("dropColumn")
	require.NotNil(t, dropCol)
	assert.Equal(t, "orders", dropCol.SelectAttrValue("tableName", ""))
	assert.Equal(t, "note", dropCol.SelectAttrValue("columnName", ""))
	assert.Nil(t, dropCol.SelectAttr("schemaName"))

	rb = rollbackOf(t, doc, "3")
	require.NotNil(t, rb)
	assert.Empty(t, rb.ChildElements())
}

func TestProcessXMLIdempotent(t *testing.T) {
	once, _, err := ProcessXML([]byte(xmlChangelog), DefaultOptions())
	require.NoError(t, err)

	twice, res, err := ProcessXML(once, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 3, res.Skipped)
}

func TestProcessXMLDeclaration(t *testing.T) {
	const decl = `<?xml version="1.0" encoding="UTF-8"?>`

	tests := []struct {
		name string
		in   string
	}{
		{name: "declaration without encoding", in: xmlChangelog},
		{name: "no declaration", in: strings.TrimPrefix(xmlChangelog, "<?xml version=\"1.0\"?>\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := ProcessXML([]byte(tt.in), DefaultOptions())
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(out), decl), "got %q", string(out))
			assert.Equal(t, 1, strings.Count(string(out), "<?xml"))
		})
	}
}

func TestProcessXMLSQLChild(t *testing.T) {
	in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="4" author="bob">
    <sql>CREATE INDEX idx_a ON orders (a); UPDATE orders SET a = 1;</sql>
  </changeSet>
</databaseChangeLog>`

	out, res, err := ProcessXML([]byte(in), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, []string{"CREATE INDEX idx_a ON orders (a)", "UPDATE orders SET a = 1"}, res.Units[0].Statements)
	assert.Equal(t, 1, res.Irreversible())

	rb := rollbackOf(t, parseOutput(t, out), "4")
	require.NotNil(t, rb)
	children := rb.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "sql", children[0].Tag)
	assert.Equal(t, `DROP INDEX IF EXISTS "idx_a";`, children[0].Text())
	assert.Equal(t, "comment", children[1].Tag)
	assert.Equal(t, "-- Rollback for UPDATE requires original values", children[1].Text())
}

func TestProcessXMLSQLCommentLines(t *testing.T) {
	in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="5" author="bob">
    <sql>-- create orders
CREATE TABLE orders (id int);</sql>
  </changeSet>
</databaseChangeLog>`

	out, res, err := ProcessXML([]byte(in), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, []string{"CREATE TABLE orders (id int)"}, res.Units[0].Statements)
	assert.Equal(t, 0, res.Irreversible())

	rb := rollbackOf(t, parseOutput(t, out), "5")
	require.NotNil(t, rb)
	children := rb.ChildElements()
	require.Len(t, children, 1)
	assert.Equal(t, "sql", children[0].Tag)
	assert.Equal(t, `DROP TABLE IF EXISTS "orders";`, children[0].Text())
}

func TestProcessXMLReverse(t *testing.T) {
	in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="1" author="a">
    <createTable tableName="orders"/>
    <createIndex indexName="idx_orders" tableName="orders"/>
  </changeSet>
</databaseChangeLog>`

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{name: "document order", opts: DefaultOptions(), want: []string{"dropTable", "dropIndex"}},
		{name: "reversed", opts: Options{Reverse: true}, want: []string{"dropIndex", "dropTable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := ProcessXML([]byte(in), tt.opts)
			require.NoError(t, err)

			rb := rollbackOf(t, parseOutput(t, out), "1")
			require.NotNil(t, rb)
			var tags []string
			for _, c := range rb.ChildElements() {
				tags = append(tags, c.Tag)
			}
			assert.Equal(t, tt.want, tags)
		})
	}
}

func TestProcessXMLInverseElements(t *testing.T) {
	tests := []struct {
		name  string
		el    string
		tag   string
		attrs map[string]string
	}{
		{
			name:  "rename table",
			el:    `<renameTable schemaName="s" oldTableName="a" newTableName="b"/>`,
			tag:   "renameTable",
			attrs: map[string]string{"schemaName": "s", "oldTableName": "b", "newTableName": "a"},
		},
		{
			name:  "rename column keeps type",
			el:    `<renameColumn tableName="t" oldColumnName="a" newColumnName="b" columnDataType="int"/>`,
			tag:   "renameColumn",
			attrs: map[string]string{"tableName": "t", "oldColumnName": "b", "newColumnName": "a", "columnDataType": "int"},
		},
		{
			name:  "not null",
			el:    `<addNotNullConstraint tableName="t" columnName="c" columnDataType="text"/>`,
			tag:   "dropNotNullConstraint",
			attrs: map[string]string{"tableName": "t", "columnName": "c", "columnDataType": "text"},
		},
		{
			name:  "default value",
			el:    `<addDefaultValue tableName="t" columnName="c" defaultValue="x"/>`,
			tag:   "dropDefaultValue",
			attrs: map[string]string{"tableName": "t", "columnName": "c"},
		},
		{
			name:  "unnamed primary key",
			el:    `<addPrimaryKey tableName="orders" columnNames="id"/>`,
			tag:   "dropPrimaryKey",
			attrs: map[string]string{"tableName": "orders", "constraintName": "orders_pkey"},
		},
		{
			name:  "foreign key",
			el:    `<addForeignKeyConstraint baseTableSchemaName="s" baseTableName="orders" baseColumnNames="c" constraintName="fk" referencedTableName="customers" referencedColumnNames="id"/>`,
			tag:   "dropForeignKeyConstraint",
			attrs: map[string]string{"baseTableSchemaName": "s", "baseTableName": "orders", "constraintName": "fk"},
		},
		{
			name:  "unique",
			el:    `<addUniqueConstraint tableName="t" columnNames="c" constraintName="uq"/>`,
			tag:   "dropUniqueConstraint",
			attrs: map[string]string{"tableName": "t", "constraintName": "uq"},
		},
		{
			name:  "index",
			el:    `<createIndex schemaName="s" indexName="idx" tableName="t"><column name="c"/></createIndex>`,
			tag:   "dropIndex",
			attrs: map[string]string{"schemaName": "s", "indexName": "idx", "tableName": "t"},
		},
		{
			name:  "sequence",
			el:    `<createSequence sequenceName="seq"/>`,
			tag:   "dropSequence",
			attrs: map[string]string{"sequenceName": "seq"},
		},
		{
			name:  "view",
			el:    `<createView viewName="v">SELECT 1</createView>`,
			tag:   "dropView",
			attrs: map[string]string{"viewName": "v"},
		},
		{
			name:  "procedure",
			el:    `<createProcedure procedureName="p">BEGIN END</createProcedure>`,
			tag:   "dropProcedure",
			attrs: map[string]string{"procedureName": "p"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog"><changeSet id="1" author="a">` +
				tt.el + `</changeSet></databaseChangeLog>`
			out, res, err := ProcessXML([]byte(in), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, 0, res.Irreversible())

			rb := rollbackOf(t, parseOutput(t, out), "1")
			require.NotNil(t, rb)
			children := rb.ChildElements()
			require.Len(t, children, 1)
			assert.Equal(t, tt.tag, children[0].Tag)
			require.Len(t, children[0].Attr, len(tt.attrs))
			for k, v := range tt.attrs {
				assert.Equal(t, v, children[0].SelectAttrValue(k, ""), k)
			}
		})
	}
}

func TestProcessXMLDropColumnSeveral(t *testing.T) {
	in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="1" author="a">
    <addColumn tableName="orders">
      <column name="a" type="int"/>
      <column name="b" type="int"/>
    </addColumn>
  </changeSet>
</databaseChangeLog>`

	out, _, err := ProcessXML([]byte(in), DefaultOptions())
	require.NoError(t, err)

	rb := rollbackOf(t, parseOutput(t, out), "1")
	require.NotNil(t, rb)
	drop := rb.SelectElement("dropColumn")
	require.NotNil(t, drop)
	assert.Nil(t, drop.SelectAttr("columnName"))

	var names []string
	for _, c := range drop.SelectElements("column") {
		names = append(names, c.SelectAttrValue("name", ""))
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestProcessXMLIrreversibleElements(t *testing.T) {
	tests := []struct {
		name string
		el   string
		want string
	}{
		{
			name: "drop table",
			el:   `<dropTable tableName="legacy"/>`,
			want: `-- Rollback for DROP TABLE "legacy" requires original table definition`,
		},
		{
			name: "modify data type",
			el:   `<modifyDataType tableName="t" columnName="c" newDataType="bigint"/>`,
			want: "-- Rollback for ALTER COLUMN TYPE requires original column type",
		},
		{
			name: "insert",
			el:   `<insert tableName="t"><column name="id" value="1"/></insert>`,
			want: "-- Rollback for INSERT requires identifying the inserted record(s)",
		},
		{
			name: "unknown element",
			el:   `<customChange class="com.example.Change"/>`,
			want: "-- Rollback for customChange requires manual intervention",
		},
		{
			name: "missing names",
			el:   `<createTable/>`,
			want: "-- Empty rollback (manual intervention required)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog"><changeSet id="9" author="a">` +
				tt.el + `</changeSet></databaseChangeLog>`
			out, res, err := ProcessXML([]byte(in), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, 1, res.Irreversible())

			rb := rollbackOf(t, parseOutput(t, out), "9")
			require.NotNil(t, rb)
			comment := rb.SelectElement("comment")
			require.NotNil(t, comment)
			assert.Equal(t, tt.want, comment.Text())
		})
	}
}

func TestProcessXMLMetadataOnly(t *testing.T) {
	in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="1" author="a">
    <comment>nothing to do</comment>
    <tagDatabase tag="v1"/>
  </changeSet>
</databaseChangeLog>`

	out, res, err := ProcessXML([]byte(in), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, core.UnitEmpty, res.Units[0].Status)
	assert.Nil(t, rollbackOf(t, parseOutput(t, out), "1"))
}

func TestProcessXMLNamespaces(t *testing.T) {
	t.Run("prefixed namespace", func(t *testing.T) {
		in := `<lb:databaseChangeLog xmlns:lb="http://www.liquibase.org/xml/ns/dbchangelog">
  <lb:changeSet id="1" author="a">
    <lb:createTable tableName="t"/>
  </lb:changeSet>
</lb:databaseChangeLog>`

		out, res, err := ProcessXML([]byte(in), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Contains(t, string(out), "<lb:rollback>")
		assert.Contains(t, string(out), `<lb:dropTable tableName="t"`)
	})

	t.Run("foreign namespace is ignored", func(t *testing.T) {
		in := `<databaseChangeLog xmlns="http://example.com/other">
  <changeSet id="1" author="a">
    <createTable tableName="t"/>
  </changeSet>
</databaseChangeLog>`

		out, res, err := ProcessXML([]byte(in), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Seen)
		assert.NotContains(t, string(out), "rollback")
	})

	t.Run("rollback in a foreign namespace does not count", func(t *testing.T) {
		in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <changeSet id="1" author="a">
    <x:rollback xmlns:x="http://example.com/other"/>
    <createTable tableName="t"/>
  </changeSet>
</databaseChangeLog>`

		out, res, err := ProcessXML([]byte(in), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 0, res.Skipped)
		assert.Contains(t, string(out), "<rollback>")
		assert.Contains(t, string(out), `<dropTable tableName="t"`)
	})

	t.Run("nested changeSets are found", func(t *testing.T) {
		in := `<databaseChangeLog xmlns="http://www.liquibase.org/xml/ns/dbchangelog">
  <include-group>
    <changeSet id="1" author="a">
      <createTable tableName="t"/>
    </changeSet>
  </include-group>
</databaseChangeLog>`

		_, res, err := ProcessXML([]byte(in), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
	})
}

func TestProcessXMLParseError(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "unquoted attribute", in: `<databaseChangeLog><changeSet id=1></changeSet></databaseChangeLog>`},
		{name: "no root element", in: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := ProcessXML([]byte(tt.in), DefaultOptions())
			require.Error(t, err)
			assert.Nil(t, out)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestElementShape(t *testing.T) {
	shape, ok := ElementShape("addColumn")
	require.True(t, ok)
	assert.Equal(t, core.ShapeAddColumn, shape)

	_, ok = ElementShape("customChange")
	assert.False(t, ok)

	for tag := range elementRules {
		_, ok := ElementShape(tag)
		assert.True(t, ok, tag)
	}
}
