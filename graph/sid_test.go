// ABOUTME: Tests for stable identity generation and validation.
package graph_test

import (
	"testing"

	"github.com/2389-research/nodegraph/graph"
)

func TestNewSIDIsValidAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		sid := graph.NewSID()
		if !graph.ValidSID(sid) {
			t.Fatalf("NewSID produced invalid sid %q", sid)
		}
		if seen[sid] {
			t.Fatalf("NewSID produced duplicate %q", sid)
		}
		seen[sid] = true
	}
}

func TestValidSIDRejectsJunk(t *testing.T) {
	for _, s := range []string{"", "42", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		if graph.ValidSID(s) {
			t.Errorf("ValidSID(%q) = true, want false", s)
		}
	}
}
