// Package types holds the value types shared between the scheduler core
// and the external collaborators it talks to (worker dispatch, app
// registry, admin projection), so those collaborators can depend on a
// narrow package instead of the whole module.
package types

import "time"

// DurationString represents a duration, such as "2s" or "24h".
// See https://pkg.go.dev/time#ParseDuration for all valid time units.
type DurationString string

// TimeRange represents a time range with start and end times.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Item represents a priority queue item with a value and priority. Used to
// drive the per-owner ordered dispatch view via
// github.com/Workiva/go-datastructures/queue.PriorityQueue.
type Item struct {
	Value    interface{}
	Priority float64
}

// Handle is the 128-bit opaque identifier returned by InsertSchedule. It
// is unique across the scheduler's lifetime; callers should treat it as an
// opaque token.
type Handle string

// EntryType identifies what a ScheduleEntry's timestamp is anchored to.
type EntryType string

const (
	// Absolute entries fire at a fixed UTC instant, optionally repeating
	// on a fixed interval.
	Absolute EntryType = "absolute"
	// NextRising entries are anchored to the next sunrise.
	NextRising EntryType = "next_rising"
	// NextSetting entries are anchored to the next sunset.
	NextSetting EntryType = "next_setting"
	// Triggered entries recompute their next fire time from an external
	// trigger object (a cron(5) expression or a daily fixed-time/sun
	// composite) rather than a constant interval or the solar table
	// (supplemental, see SPEC_FULL.md §4).
	Triggered EntryType = "triggered"
)

// AppInfo is the slice of an owning app's registration that the scheduler
// needs: its diagnostic id and dispatch-affinity defaults.
type AppInfo struct {
	// ID is a stable identifier for the owning app, captured at
	// registration time so it survives owner reloads for diagnostics.
	ID string
	// PinApp is the default pin_app affinity hint for entries registered
	// by this owner, used unless overridden per-entry.
	PinApp bool
	// PinThread is the default pin_thread affinity hint; -1 means
	// unpinned.
	PinThread int
}

// DispatchEnvelope is handed to the worker layer for a single due fire. It
// carries both the "scheduler" and "wrapped state-callback" forms (spec
// §4.6); Entity/Attribute/NewState/OldState are zero for the scheduler
// form.
type DispatchEnvelope struct {
	Type      string // "scheduler" or "state"
	ID        string
	Handle    Handle
	Owner     string
	ObjectID  string
	Function  string
	Entity    string
	Attribute string
	NewState  any
	OldState  any
	PinApp    bool
	PinThread int
	Kwargs    map[string]any
}
