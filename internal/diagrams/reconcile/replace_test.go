package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitutions_AddDoesNotOverwrite(t *testing.T) {
	subs := Substitutions{}
	subs.Add("a", "ns.a")
	subs.Add("a", "other.a")

	assert.Equal(t, Substitutions{"a": "ns.a"}, subs)
}

func TestReplaceIDs_NestedValues(t *testing.T) {
	subs := Substitutions{"a": "ns.a", "b": "ns.b"}
	in := map[string]any{
		"schema": "Ownership",
		"properties": map[string]any{
			"owner": []any{"a"},
			"asset": []any{"b", "c"},
			"share": []any{12.5},
		},
		"a":     "keys stay",
		"flag":  true,
		"empty": nil,
	}

	out := ReplaceIDs(in, subs).(map[string]any)

	props := out["properties"].(map[string]any)
	assert.Equal(t, []any{"ns.a"}, props["owner"])
	assert.Equal(t, []any{"ns.b", "c"}, props["asset"])
	assert.Equal(t, []any{12.5}, props["share"])
	assert.Equal(t, "keys stay", out["a"])
	assert.Equal(t, true, out["flag"])
	assert.Nil(t, out["empty"])

	// input untouched
	assert.Equal(t, []any{"a"}, in["properties"].(map[string]any)["owner"])
}

func TestReplaceIDs_StringSlice(t *testing.T) {
	out := ReplaceIDs([]string{"a", "z"}, Substitutions{"a": "ns.a"})
	assert.Equal(t, []string{"ns.a", "z"}, out)
}

func TestRewriteLayout(t *testing.T) {
	subs := Substitutions{"x1": "ns.x1"}
	layout := map[string]any{
		"vertices": []any{
			map[string]any{"id": "v1", "entityId": "x1", "position": map[string]any{"x": 1.0, "y": 2.0}},
			map[string]any{"id": "v2", "entityId": "untouched"},
		},
		"edges": []any{
			map[string]any{"sourceId": "x1", "targetId": "untouched"},
		},
	}

	out := RewriteLayout(layout, subs)

	vertices := out["vertices"].([]any)
	assert.Equal(t, "ns.x1", vertices[0].(map[string]any)["entityId"])
	assert.Equal(t, "untouched", vertices[1].(map[string]any)["entityId"])
	edge := out["edges"].([]any)[0].(map[string]any)
	assert.Equal(t, "ns.x1", edge["sourceId"])
	assert.Equal(t, "untouched", edge["targetId"])

	assert.Nil(t, RewriteLayout(nil, subs))
}
