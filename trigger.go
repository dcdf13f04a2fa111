package homesched

import (
	"time"

	"github.com/halvorsen/homesched/internal/scheduling"
	"github.com/halvorsen/homesched/types"
)

// NewDailyBuilder starts a fluent daily-trigger build rooted at the
// scheduler's configured location, adapted from the teacher's
// DailyScheduleBuilder (internal/scheduling/builder.go). Chain
// OnFixedTime/OnSunrise/OnSunset and Build to produce a trigger usable
// with ScheduleTrigger.
func (s *Scheduler) NewDailyBuilder() *scheduling.DailyScheduleBuilder {
	return scheduling.NewSchedule(s.cfg.Latitude, s.cfg.Longitude)
}

// NewCronTrigger parses a 5-field cron(5) expression into a trigger usable
// with ScheduleTrigger, built on github.com/robfig/cron/v3 via the
// teacher's scheduling.CronTrigger.
func NewCronTrigger(expression string) (*scheduling.CronTrigger, error) {
	return scheduling.NewCronTrigger(expression)
}

// NewIntervalTrigger builds a trigger usable with ScheduleTrigger that
// fires every interval (plus any additional durations in sequence before
// repeating), built on the teacher's scheduling.IntervalTrigger.
func NewIntervalTrigger(interval time.Duration, additional ...time.Duration) (*scheduling.IntervalTrigger, error) {
	return scheduling.NewIntervalTrigger(interval, additional...)
}

// ScheduleTrigger registers a repeating callback for owner that fires at
// trigger's next occurrence, reprojecting every time it fires (spec §4.6
// repeat rewrite, types.Triggered branch). trigger may be anything built
// from NewDailyBuilder or NewCronTrigger: a single FixedTimeTrigger /
// SunTrigger / CronTrigger, or a CompositeDailySchedule combining several.
func (s *Scheduler) ScheduleTrigger(owner string, trigger nextTimer, callback Callback) (types.Handle, error) {
	first := trigger.NextTime(s.GetNow())
	if first == nil {
		return "", &ConfigError{Reason: "trigger produced no upcoming occurrence"}
	}

	info, ok := s.registry.Lookup(owner)
	if !ok {
		info = types.AppInfo{ID: owner, PinThread: -1}
	}

	return s.store.Insert(InsertParams{
		Owner:    owner,
		AppInfo:  info,
		AwareDt:  *first,
		Callback: callback,
		Repeat:   true,
		Type:     types.Triggered,
		Kwargs:   Kwargs{},
		Tick:     s.cfg.Tick,
		Trigger:  trigger,
	}, s.clock.MyDtRound)
}

// gateByDate wraps callback so it only runs when day (the virtual now at
// fire time) isn't excluded and, if an allowlist is given, is on it.
// Ported from the teacher's checkers.go CheckExceptionDates /
// CheckAllowlistDates, evaluated at fire time rather than baked in once at
// registration, matching schedule.go's maybeRunCallback semantics.
func gateByDate(callback Callback, now func() time.Time, zone func() *time.Location, exceptionDates, allowlistDates []time.Time) Callback {
	return func() {
		day := now()
		loc := zone()
		if len(allowlistDates) > 0 {
			ok := false
			for _, d := range allowlistDates {
				if sameDate(d, day, loc) {
					ok = true
					break
				}
			}
			if !ok {
				return
			}
		}
		for _, d := range exceptionDates {
			if sameDate(d, day, loc) {
				return
			}
		}
		callback()
	}
}

func sameDate(a, b time.Time, zone *time.Location) bool {
	a, b = a.In(zone), b.In(zone)
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ScheduleTriggerWithDates is ScheduleTrigger plus the teacher's
// exception/allowlist date gating (schedule.go: ExceptionDates,
// OnlyOnDates), evaluated fresh on every fire.
func (s *Scheduler) ScheduleTriggerWithDates(owner string, trigger nextTimer, callback Callback, exceptionDates, allowlistDates []time.Time) (types.Handle, error) {
	gated := gateByDate(callback, s.GetNow, s.clock.Zone, exceptionDates, allowlistDates)
	return s.ScheduleTrigger(owner, trigger, gated)
}
