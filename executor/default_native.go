//go:build !js

package executor

// Default returns a Pool running up to n units of work concurrently.
func Default(n int) Executor {
	return NewPool(n)
}
