// ABOUTME: Builtin calculator node kinds: number input, four arithmetic operations, and output.
// ABOUTME: Demonstrates the evaluation contract: pull upstream values, cache results, absorb failures per node.
package nodes

import (
	"fmt"

	"github.com/2389-research/nodegraph/graph"
)

// Op codes for the builtin kinds. Codes 1-99 are reserved for builtins;
// embedders should register custom kinds from 100 up.
const (
	OpNumber   = 1
	OpAdd      = 2
	OpSubtract = 3
	OpMultiply = 4
	OpDivide   = 5
	OpOutput   = 6
)

// socketNumber is the socket type tag all calculator sockets share.
const socketNumber = 1

// Number is a source node holding a constant in its content under "value".
type Number struct{}

func (Number) OpCode() int { return OpNumber }
func (Number) Title() string { return "Number" }
func (Number) Sockets() (inputs, outputs []int) { return nil, []int{socketNumber} }

// Evaluate returns the configured constant. A missing or non-numeric value
// marks the node invalid.
func (Number) Evaluate(n *graph.Node) (any, error) {
	raw, ok := n.Content()["value"]
	if !ok {
		return nil, fmt.Errorf("number node %s has no value", n.SID())
	}
	v, err := toFloat(raw)
	if err != nil {
		return nil, fmt.Errorf("number node %s: %w", n.SID(), err)
	}
	return v, nil
}

// RestoreContent normalizes the persisted value to float64 so evaluation
// sees one representation regardless of the snapshot's JSON decoder.
func (Number) RestoreContent(n *graph.Node, content map[string]any) error {
	raw, ok := content["value"]
	if !ok {
		return nil
	}
	v, err := toFloat(raw)
	if err != nil {
		return err
	}
	content["value"] = v
	return nil
}

// Add sums its two inputs.
type Add struct{}

func (Add) OpCode() int { return OpAdd }
func (Add) Title() string { return "Add" }
func (Add) Sockets() (inputs, outputs []int) { return []int{socketNumber, socketNumber}, []int{socketNumber} }

func (Add) Evaluate(n *graph.Node) (any, error) {
	return binaryOp(n, func(a, b float64) (float64, error) { return a + b, nil })
}

// Subtract subtracts the second input from the first.
type Subtract struct{}

func (Subtract) OpCode() int { return OpSubtract }
func (Subtract) Title() string { return "Subtract" }
func (Subtract) Sockets() (inputs, outputs []int) { return []int{socketNumber, socketNumber}, []int{socketNumber} }

func (Subtract) Evaluate(n *graph.Node) (any, error) {
	return binaryOp(n, func(a, b float64) (float64, error) { return a - b, nil })
}

// Multiply multiplies its two inputs.
type Multiply struct{}

func (Multiply) OpCode() int { return OpMultiply }
func (Multiply) Title() string { return "Multiply" }
func (Multiply) Sockets() (inputs, outputs []int) { return []int{socketNumber, socketNumber}, []int{socketNumber} }

func (Multiply) Evaluate(n *graph.Node) (any, error) {
	return binaryOp(n, func(a, b float64) (float64, error) { return a * b, nil })
}

// Divide divides the first input by the second. Division by zero marks the
// node invalid.
type Divide struct{}

func (Divide) OpCode() int { return OpDivide }
func (Divide) Title() string { return "Divide" }
func (Divide) Sockets() (inputs, outputs []int) { return []int{socketNumber, socketNumber}, []int{socketNumber} }

func (Divide) Evaluate(n *graph.Node) (any, error) {
	return binaryOp(n, func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	})
}

// Output mirrors the value arriving on its single input.
type Output struct{}

func (Output) OpCode() int { return OpOutput }
func (Output) Title() string { return "Output" }
func (Output) Sockets() (inputs, outputs []int) { return []int{socketNumber}, nil }

func (Output) Evaluate(n *graph.Node) (any, error) {
	return upstreamValue(n, 0)
}

// binaryOp pulls both input values and applies op.
func binaryOp(n *graph.Node, op func(a, b float64) (float64, error)) (any, error) {
	a, err := upstreamValue(n, 0)
	if err != nil {
		return nil, err
	}
	b, err := upstreamValue(n, 1)
	if err != nil {
		return nil, err
	}
	return op(a, b)
}

// upstreamValue returns the numeric value of the node feeding input index,
// evaluating it first when its cached value is stale. An unconnected input
// or an invalid upstream node is an evaluation failure for this node; the
// upstream node's own state is untouched by our failure.
func upstreamValue(n *graph.Node, index int) (float64, error) {
	upstream := n.InputNode(index)
	if upstream == nil {
		return 0, fmt.Errorf("input %d is not connected", index)
	}
	if upstream.Dirty() || upstream.Invalid() {
		if _, err := upstream.Evaluate(); err != nil {
			return 0, fmt.Errorf("input %d: upstream %s is invalid", index, upstream.SID())
		}
	}
	return toFloat(upstream.Value())
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
