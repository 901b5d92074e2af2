package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQualifiedName(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		local  string
		want   QualifiedName
	}{
		{name: "bare", schema: "public", local: "orders", want: QualifiedName{Schema: "public", Name: "orders"}},
		{name: "quoted", schema: `"public"`, local: `"orders"`, want: QualifiedName{Schema: "public", Name: "orders"}},
		{name: "no schema", local: "orders", want: QualifiedName{Name: "orders"}},
		{name: "structural keyword schema dropped", schema: "TABLE", local: "orders", want: QualifiedName{Name: "orders"}},
		{name: "keyword check is case-insensitive", schema: "on", local: "orders", want: QualifiedName{Name: "orders"}},
		{name: "quoted keyword is a real schema", schema: `"on"`, local: "orders", want: QualifiedName{Schema: "on", Name: "orders"}},
		{name: "embedded quotes undoubled", local: `"a""b"`, want: QualifiedName{Name: `a"b`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewQualifiedName(tt.schema, tt.local))
		})
	}
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		ref  string
		want QualifiedName
	}{
		{ref: "orders", want: QualifiedName{Name: "orders"}},
		{ref: "public.orders", want: QualifiedName{Schema: "public", Name: "orders"}},
		{ref: `"public"."orders"`, want: QualifiedName{Schema: "public", Name: "orders"}},
		{ref: `"my.schema"."orders"`, want: QualifiedName{Schema: "my.schema", Name: "orders"}},
		{ref: "db.public.orders", want: QualifiedName{Schema: "public", Name: "orders"}},
		{ref: "public . orders", want: QualifiedName{Schema: "public", Name: "orders"}},
		{ref: "", want: QualifiedName{}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQualifiedName(tt.ref))
		})
	}
}

func TestQualifiedNameString(t *testing.T) {
	assert.Equal(t, `"public"."orders"`, QualifiedName{Schema: "public", Name: "orders"}.String())
	assert.Equal(t, `"orders"`, QualifiedName{Name: "orders"}.String())
	assert.Equal(t, `"we""ird"`, QualifiedName{Name: `we"ird`}.String())
}

func TestQualifiedNameWithName(t *testing.T) {
	q := QualifiedName{Schema: "public", Name: "orders"}
	assert.Equal(t, QualifiedName{Schema: "public", Name: "purchases"}, q.WithName("purchases"))
	assert.Equal(t, "orders", q.Name)
}

func TestQualifiedNameIsZero(t *testing.T) {
	assert.True(t, QualifiedName{}.IsZero())
	assert.True(t, QualifiedName{Schema: "public"}.IsZero())
	assert.False(t, QualifiedName{Name: "orders"}.IsZero())
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "orders", Unquote(`"orders"`))
	assert.Equal(t, "orders", Unquote("  orders "))
	assert.Equal(t, `a"b`, Unquote(`"a""b"`))
	assert.Equal(t, `"`, Unquote(`"`))
	assert.Equal(t, "", Unquote(""))
}

func TestQuoteUnquoteRoundTrip(t *testing.T) {
	for _, name := range []string{"orders", "Order Items", `a"b`, "x.y"} {
		assert.Equal(t, name, Unquote(QuoteIdentifier(name)), name)
	}
}

func TestSplitQualified(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitQualified("a.b"))
	assert.Equal(t, []string{`"a.b"`, "c"}, SplitQualified(`"a.b".c`))
	assert.Nil(t, SplitQualified("  "))
}
