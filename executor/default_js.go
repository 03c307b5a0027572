//go:build js

package executor

// Default returns a Cooperative executor; the browser runtime is single
// threaded, so n is ignored.
func Default(n int) Executor {
	return NewCooperative()
}
