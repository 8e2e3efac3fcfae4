package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestGraphJSONKeys tests that the document has exactly the three top-level keys.
func TestGraphJSONKeys(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.LinksTo["a.example"] = []string{"b.example"}
	g.LinkedFrom["b.example"] = []string{"a.example"}
	g.Images["b.example"] = []string{"https://a.example/88.png"}

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("failed to marshal graph: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("failed to unmarshal graph: %v", err)
	}

	if len(doc) != 3 {
		t.Errorf("expected 3 top-level keys, got %d: %s", len(doc), data)
	}
	for _, key := range []string{"linksTo", "linkedFrom", "images"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
}

// TestGraphCounts tests the summary helpers on Graph.
func TestGraphCounts(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.LinksTo["a.example"] = []string{"b.example", "c.example"}
	g.LinksTo["b.example"] = []string{"c.example"}
	g.LinkedFrom["b.example"] = []string{"a.example"}
	g.LinkedFrom["c.example"] = []string{"a.example", "b.example"}
	g.Images["c.example"] = []string{"https://a.example/c.gif", "https://b.example/c.png"}

	if got := g.EdgeCount(); got != 3 {
		t.Errorf("EdgeCount() = %d, want 3", got)
	}
	if got := g.ImageCount(); got != 2 {
		t.Errorf("ImageCount() = %d, want 2", got)
	}

	want := []string{"a.example", "b.example", "c.example"}
	if got := g.Hosts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Hosts() = %v, want %v", got, want)
	}
}
