package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	original := Tree{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"match": map[string]any{"diagnosis": "flu"}},
			},
		},
		"size": 20,
	}

	clone := original.Clone()

	boolNode, ok := clone.Sub("bool")
	require.True(t, ok)
	must := boolNode["must"].([]any)
	must[0].(Tree)["match"].(Tree)["diagnosis"] = "cold"

	origBool, _ := original.Sub("bool")
	origMatch := origBool["must"].([]any)[0].(map[string]any)["match"].(map[string]any)
	assert.Equal(t, "flu", origMatch["diagnosis"])
}

func TestCount(t *testing.T) {
	tree := Tree{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"wildcard": map[string]any{"provider_name": "vin*"}},
				map[string]any{"wildcard": map[string]any{"facility_name": "cho*"}},
			},
			"filter": []any{
				map[string]any{"range": map[string]any{"amount": map[string]any{"gte": 100}}},
			},
		},
	}

	assert.Equal(t, 2, tree.Count("wildcard"))
	assert.Equal(t, 1, tree.Count("range"))
	assert.Equal(t, 1, tree.Count("bool"))
	assert.Equal(t, 0, tree.Count("script"))
}

func TestInt(t *testing.T) {
	tree := Tree{"size": float64(50), "from": 10}

	size, ok := tree.Int("size")
	require.True(t, ok)
	assert.Equal(t, 50, size)

	from, ok := tree.Int("from")
	require.True(t, ok)
	assert.Equal(t, 10, from)

	_, ok = tree.Int("missing")
	assert.False(t, ok)
}
