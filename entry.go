package homesched

import (
	"time"

	"github.com/halvorsen/homesched/internal"
	"github.com/halvorsen/homesched/types"
)

// Callback is the function registered against a ScheduleEntry. Per spec
// §3, only its display name is ever serialized (admin projection,
// get_scheduler_entries) — the function value itself never crosses the
// dispatch boundary.
type Callback func()

// Kwargs is the typed view over an entry's opaque per-entry arguments
// (spec §6 "Entry kwargs"). Rest carries user payload and any
// constrain_* keys verbatim through to the worker; Rest is stripped of
// constrain_* keys only for display (see SanitizeKwargs).
type Kwargs struct {
	Offset      *int
	RandomStart *int
	RandomEnd   *int
	Interval    int
	Pin         *bool
	PinThread   *int

	// Wrapped-state dispatch fields (kwargs.__entity present).
	Entity    *string
	Attribute *string
	NewState  any
	OldState  any

	Rest map[string]any
}

// IsWrappedState reports whether this entry should dispatch in the
// "wrapped state-callback" envelope form (spec §4.6 step 2).
func (k Kwargs) IsWrappedState() bool { return k.Entity != nil }

// ScheduleEntry is one scheduled fire (spec §3).
type ScheduleEntry struct {
	Owner    string
	ID       string
	Handle   types.Handle
	Callback Callback
	Kwargs   Kwargs

	Type   types.EntryType
	Repeat bool

	// Interval is the repeat period, in seconds, for repeat && type ==
	// Absolute entries.
	Interval int

	// Basetime is the UTC instant the next Timestamp is computed from for
	// periodic (non-sun) entries.
	Basetime time.Time
	// Timestamp is the UTC instant of the next fire.
	Timestamp time.Time
	// Offset is the signed seconds added to the base (sun time or
	// Basetime); negative only valid for sun types.
	Offset int

	// Inactive is set only for a sun-type repeat with a negative offset,
	// waiting on the next solar transition to be reprojected (spec
	// invariant 4).
	Inactive bool

	PinApp    bool
	PinThread int

	// trigger is set only for types.Triggered entries (supplemental, see
	// SPEC_FULL.md §4); it is how Dispatch recomputes the next occurrence
	// instead of applying a constant interval. Satisfied by
	// *scheduling.CronTrigger, *scheduling.FixedTimeTrigger,
	// *scheduling.SunTrigger, and *scheduling.CompositeDailySchedule.
	trigger nextTimer
}

// nextTimer is the minimal surface Dispatch needs from a trigger,
// satisfied by every type in internal/scheduling.
type nextTimer interface {
	NextTime(now time.Time) *time.Time
}

// FunctionName returns callback's display name via reflection, matching
// spec §3 ("only its display name is ever serialized").
func FunctionName(cb Callback) string {
	return internal.GetFunctionName(cb)
}
