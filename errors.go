package homesched

import (
	"errors"
	"fmt"

	"github.com/halvorsen/homesched/types"
)

// ConfigError reports invalid scheduler configuration: an out-of-range
// latitude/longitude, or mutually exclusive offset kwargs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "homesched: config error: " + e.Reason }

// ParseError reports a time string that matched none of the grammars in
// spec §4.3.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("homesched: invalid time string %q", e.Input)
}

// UnknownHandleError reports InfoTimer called with a handle that isn't
// (or is no longer) registered. CancelTimer ignores unknown handles and
// returns no error.
type UnknownHandleError struct {
	Owner  string
	Handle types.Handle
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("homesched: unknown handle %q for owner %q", e.Handle, e.Owner)
}

// DispatchError wraps a failure encountered in exec_schedule (spec §4.6,
// §7); the offending entry is always deleted regardless, so this error is
// informational only and is never returned to a caller — it is logged.
type DispatchError struct {
	Owner  string
	Handle types.Handle
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("homesched: dispatch error for %s/%s: %v", e.Owner, e.Handle, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TickError wraps a failure encountered in do_every_tick (spec §4.5,
// §7); like DispatchError it is recovered in place and only logged, never
// propagated to a caller — the tick loop continues at the next tick.
type TickError struct {
	Err error
}

func (e *TickError) Error() string { return fmt.Sprintf("homesched: tick error: %v", e.Err) }

func (e *TickError) Unwrap() error { return e.Err }

// ErrStopping is the cooperative stop signal (spec §7) — not a failure.
// The tick body returns it once the configured endtime is reached; Run
// treats it as a stop and itself returns nil.
var ErrStopping = errors.New("homesched: scheduler stopping")
