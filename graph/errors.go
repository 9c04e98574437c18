// ABOUTME: Error kinds for the graph engine: connection rejection and snapshot restore failures.
// ABOUTME: Connection errors are recoverable and local; deserialization errors abort the whole load.
package graph

import (
	"errors"
	"fmt"
)

// ErrConnectionRejected is returned when an edge cannot be created because a
// validator rejected the socket pair or a single-edge socket is already
// occupied. The operation simply does not apply; no partial state is left
// behind.
var ErrConnectionRejected = errors.New("connection rejected")

// DeserializationError reports a snapshot that cannot be restored: a missing
// required field, an unresolvable reference, or a duplicate identity. The
// whole load is aborted; the engine never applies a partial snapshot.
type DeserializationError struct {
	Field string // offending field, e.g. "start_sid"
	Ref   string // unresolvable or duplicate identity, if any
	Msg   string
}

func (e *DeserializationError) Error() string {
	switch {
	case e.Ref != "" && e.Field != "":
		return fmt.Sprintf("deserialize: %s %q: %s", e.Field, e.Ref, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("deserialize: %s: %s", e.Field, e.Msg)
	default:
		return "deserialize: " + e.Msg
	}
}

func deserializeErrf(field, ref, format string, args ...any) *DeserializationError {
	return &DeserializationError{Field: field, Ref: ref, Msg: fmt.Sprintf(format, args...)}
}
