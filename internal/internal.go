// Package internal holds small helpers shared across the scheduler's root
// package and its internal subpackages. Grounded on the teacher's
// internal/internal.go (GetFunctionName via reflect/runtime).
package internal

import (
	"reflect"
	"runtime"
)

// GetFunctionName returns the name of the function a value points to, via
// reflection. Used to serialize a Callback's display name without
// carrying the function value itself across the dispatch boundary.
func GetFunctionName(i interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}
