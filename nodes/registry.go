// ABOUTME: Explicit op-code registry mapping stable integers to node kinds.
// ABOUTME: Instances are independent, so tests and multiple graphs never share mutable global state.
package nodes

import (
	"fmt"

	"github.com/2389-research/nodegraph/graph"
)

// Registry maps op codes to node kinds for polymorphic reconstruction.
// Each registry is an independent object; create one per application (or
// per test) instead of mutating shared state.
type Registry struct {
	kinds map[int]graph.Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[int]graph.Kind)}
}

// DefaultRegistry returns a registry with all builtin calculator kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range []graph.Kind{
		Number{}, Add{}, Subtract{}, Multiply{}, Divide{}, Output{},
	} {
		if err := r.Register(k); err != nil {
			// Builtin op codes are distinct by construction.
			panic(err)
		}
	}
	return r
}

// Register adds a kind under its op code. Registering a second kind with
// the same op code is an error.
func (r *Registry) Register(k graph.Kind) error {
	code := k.OpCode()
	if existing, ok := r.kinds[code]; ok {
		return fmt.Errorf("op code %d already registered to %q", code, existing.Title())
	}
	r.kinds[code] = k
	return nil
}

// Resolve returns the kind registered under the op code, or nil.
func (r *Registry) Resolve(opCode int) graph.Kind {
	return r.kinds[opCode]
}

// Resolver adapts the registry to the graph's KindResolver contract.
// Unregistered op codes resolve to nil, which the engine restores as a
// generic node.
func (r *Registry) Resolver() graph.KindResolver {
	return func(snap graph.NodeSnapshot) graph.Kind {
		return r.kinds[snap.OpCode]
	}
}
