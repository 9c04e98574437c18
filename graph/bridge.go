// ABOUTME: Host-integration bridge letting the embedding application expose values to node evaluation.
// ABOUTME: Keeps the engine decoupled from any concrete application type; default is a no-op stub.
package graph

// HostBridge exposes application-level values to node evaluation without
// coupling the engine to a specific host. Node kinds look values up by key
// during Evaluate.
type HostBridge interface {
	// Value returns the host value for key and whether it exists.
	Value(key string) (any, bool)
}

// NopBridge is the default bridge: it knows nothing.
type NopBridge struct{}

// Value always reports absence.
func (NopBridge) Value(string) (any, bool) { return nil, false }
