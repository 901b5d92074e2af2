package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeString(t *testing.T) {
	assert.Equal(t, "Unknown", ShapeUnknown.String())
	assert.Equal(t, "CreateTable", ShapeCreateTable.String())
	assert.Equal(t, "AlterColumnType", ShapeAlterColumnType.String())
	assert.Equal(t, "Unknown", Shape(-1).String())
	assert.Equal(t, "Unknown", Shape(1000).String())
}

func TestShapesExcludesUnknown(t *testing.T) {
	shapes := Shapes()
	require.NotEmpty(t, shapes)
	seen := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		assert.NotEqual(t, ShapeUnknown, s)
		name := s.String()
		assert.NotEqual(t, "Unknown", name, "shape %d has no name", int(s))
		assert.False(t, seen[name], "duplicate shape name %s", name)
		seen[name] = true
	}
}

func TestShapeMarshalText(t *testing.T) {
	b, err := ShapeDropTable.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DropTable", string(b))
}

func TestChangeUnitIrreversible(t *testing.T) {
	u := ChangeUnit{Outcomes: []Outcome{
		{Kind: OutcomeInverse, Inverse: &Operation{Shape: ShapeDropTable}},
		{Kind: OutcomeIrreversible, Reason: "no"},
		{Kind: OutcomeInverse},
	}}
	assert.Equal(t, 2, u.Irreversible())
}
