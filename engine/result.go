package engine

import (
	"iter"

	"github.com/nholden/tidedb/core"
)

// Result is a forward-only cursor over query output. Results hold the
// connection open: every Result must be closed before the owning
// connection can close.
type Result struct {
	executor *Executor
	columns  []core.Column
	rows     []core.Row
	pos      int
	closed   bool
}

// Schema returns the result columns in output order.
func (result *Result) Schema() []core.Column {
	return result.columns
}

// Next advances to the next row. It returns false once the rows are
// exhausted or the result is closed.
func (result *Result) Next() bool {
	if result.closed || result.pos >= len(result.rows) {
		return false
	}
	result.pos++
	return true
}

// Row returns the current row. Only valid after Next returned true.
func (result *Result) Row() core.Row {
	if result.closed || result.pos == 0 || result.pos > len(result.rows) {
		return nil
	}
	return result.rows[result.pos-1]
}

// Err reports an error that terminated iteration early.
func (result *Result) Err() error {
	if result.closed && result.pos < len(result.rows) {
		return core.Errorf(core.KindUseAfterClose, "result closed during iteration")
	}
	return nil
}

// Rows iterates the remaining rows. The single pass is shared with
// Next: rows consumed here are gone.
func (result *Result) Rows() iter.Seq[core.Row] {
	return func(yield func(core.Row) bool) {
		for result.Next() {
			if !yield(result.Row()) {
				return
			}
		}
	}
}

// Close releases the result. Closing twice is a no-op.
func (result *Result) Close() error {
	if result.closed {
		return nil
	}
	result.closed = true
	if result.executor != nil {
		result.executor.forget(result)
	}
	return nil
}
