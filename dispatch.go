package homesched

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/halvorsen/homesched/internal/solar"
	"github.com/halvorsen/homesched/types"
)

// Dispatcher is the external worker-dispatch layer (spec §6
// worker.dispatch(envelope)): enqueues a callback invocation and returns
// without waiting for it to run. exec_schedule never awaits user
// callbacks, only the (non-blocking, from the scheduler's point of view)
// hand-off to this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, env types.DispatchEnvelope) error
}

// AppRegistry is the external app_management collaborator (spec §6):
// looks up an owning app's diagnostics/pin defaults and triggers a
// reload-all-modules action for DST handling.
type AppRegistry interface {
	Lookup(owner string) (types.AppInfo, bool)
	CheckAppUpdates(scope string)
}

// execContext bundles exec_schedule's collaborators so Dispatch doesn't
// need a dozen positional parameters.
type execContext struct {
	dispatcher Dispatcher
	registry   AppRegistry
	solar      *solar.Table
	hook       EntryHook
	log        *slog.Logger
}

// execSchedule fires a single due entry (spec §4.6). It returns true if
// the entry should be removed from the store (non-repeat, or failure),
// false if it should stay (repeat, rewritten in place).
func (c *execContext) execSchedule(ctx context.Context, e *ScheduleEntry) (remove bool) {
	if e.Inactive {
		return false
	}

	info, ok := c.registry.Lookup(e.Owner)
	objectID := e.ID
	if ok {
		objectID = info.ID
	}

	env := types.DispatchEnvelope{
		ID:        e.ID,
		Handle:    e.Handle,
		Owner:     e.Owner,
		ObjectID:  objectID,
		Function:  FunctionName(e.Callback),
		PinApp:    e.PinApp,
		PinThread: e.PinThread,
		Kwargs:    kwargsForDispatch(e.Kwargs),
	}
	if e.Kwargs.IsWrappedState() {
		env.Type = "state"
		env.Entity = *e.Kwargs.Entity
		if e.Kwargs.Attribute != nil {
			env.Attribute = *e.Kwargs.Attribute
		}
		env.NewState = e.Kwargs.NewState
		env.OldState = e.Kwargs.OldState
	} else {
		env.Type = "scheduler"
	}

	if err := c.dispatcher.Dispatch(ctx, env); err != nil {
		c.log.Warn("dispatch failed, deleting entry",
			"owner", e.Owner, "handle", e.Handle, "function", env.Function,
			"error", &DispatchError{Owner: e.Owner, Handle: e.Handle, Err: err})
		if c.hook != nil {
			c.hook.OnRemove(e.Owner, e.Handle)
		}
		return true
	}

	if !e.Repeat {
		if c.hook != nil {
			c.hook.OnRemove(e.Owner, e.Handle)
		}
		return true
	}

	switch e.Type {
	case types.NextRising, types.NextSetting:
		if e.Offset < 0 {
			e.Inactive = true
		} else {
			state := c.solar.State()
			anchor := state.NextSetting
			if e.Type == types.NextRising {
				anchor = state.NextRising
			}
			newOffset, err := solar.Offset(e.Kwargs.Offset, e.Kwargs.RandomStart, e.Kwargs.RandomEnd)
			if err != nil {
				c.log.Warn("dispatch failed recomputing sun offset, deleting entry",
					"owner", e.Owner, "handle", e.Handle,
					"error", &DispatchError{Owner: e.Owner, Handle: e.Handle, Err: err})
				if c.hook != nil {
					c.hook.OnRemove(e.Owner, e.Handle)
				}
				return true
			}
			e.Offset = newOffset
			e.Timestamp = anchor.Add(time.Duration(newOffset) * time.Second)
		}
	case types.Triggered:
		if e.trigger == nil {
			c.log.Warn("triggered entry missing schedule, deleting entry",
				"owner", e.Owner, "handle", e.Handle,
				"error", &DispatchError{Owner: e.Owner, Handle: e.Handle, Err: errors.New("triggered entry missing schedule")})
			if c.hook != nil {
				c.hook.OnRemove(e.Owner, e.Handle)
			}
			return true
		}
		next := e.trigger.NextTime(e.Timestamp)
		if next == nil {
			if c.hook != nil {
				c.hook.OnRemove(e.Owner, e.Handle)
			}
			return true
		}
		e.Timestamp = *next
	default:
		e.Basetime = e.Basetime.Add(time.Duration(e.Interval) * time.Second)
		offset, err := solar.Offset(e.Kwargs.Offset, e.Kwargs.RandomStart, e.Kwargs.RandomEnd)
		if err != nil {
			c.log.Warn("dispatch failed recomputing offset, deleting entry",
				"owner", e.Owner, "handle", e.Handle,
				"error", &DispatchError{Owner: e.Owner, Handle: e.Handle, Err: err})
			if c.hook != nil {
				c.hook.OnRemove(e.Owner, e.Handle)
			}
			return true
		}
		e.Offset = offset
		e.Timestamp = e.Basetime.Add(time.Duration(offset) * time.Second)
	}

	if c.hook != nil {
		c.hook.OnUpdate(e)
	}
	return false
}

// kwargsForDispatch flattens an entry's Kwargs into the plain map the
// worker envelope carries — the raw kwargs bag, unfiltered (sanitizing
// constrain_* keys is only done for human-facing display, see
// SanitizeKwargs).
func kwargsForDispatch(k Kwargs) map[string]any {
	out := make(map[string]any, len(k.Rest)+2)
	for key, v := range k.Rest {
		out[key] = v
	}
	if k.Offset != nil {
		out["offset"] = *k.Offset
	}
	if k.Interval != 0 {
		out["interval"] = k.Interval
	}
	return out
}

// SanitizeKwargs strips constrain_* keys from an entry's Rest kwargs for
// human-facing display (spec §6: "constrain_* — Stripped for display"),
// grounded on the Python scheduler's sanitize_timer_kwargs.
func SanitizeKwargs(k Kwargs) map[string]any {
	out := make(map[string]any, len(k.Rest))
	for key, v := range k.Rest {
		if strings.HasPrefix(key, "constrain_") {
			continue
		}
		out[key] = v
	}
	return out
}
