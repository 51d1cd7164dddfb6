package engine

import "fmt"

// InvariantError reports a logic defect inside the engine: a state the
// algorithms must never reach regardless of the input. Pack returns it
// instead of a solution.
type InvariantError struct {
	Layer string
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("packing invariant violated in %s layer: %s", e.Layer, e.Msg)
}

// invariant panics with an *InvariantError when cond is false. The panic is
// recovered by Packer.Pack.
func invariant(cond bool, layer, format string, args ...any) {
	if !cond {
		panic(&InvariantError{Layer: layer, Msg: fmt.Sprintf(format, args...)})
	}
}
