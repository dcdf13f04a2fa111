// Package homesched is a time-driven callback scheduler for a
// home-automation application runtime: it accepts timed callback
// registrations from "apps" (absolute datetimes, fixed-period repeats,
// and solar events), maintains a coherent virtual wall clock, and fires
// due entries onto an external worker-dispatch layer. It is the
// standalone core pulled out of a Python home-automation runtime's
// Scheduler (original_source/appdaemon/scheduler.py); everything else in
// that runtime — the worker thread-pool, state/entity store, app
// lifecycle, HTTP admin UI, logging transport — is consumed here through
// narrow interfaces (Dispatcher, AppRegistry, AdminProjector).
package homesched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/halvorsen/homesched/internal/clock"
	"github.com/halvorsen/homesched/internal/solar"
	"github.com/halvorsen/homesched/internal/timeparse"
	"github.com/halvorsen/homesched/types"
)

// Scheduler is the top-level entry point: it owns the virtual Clock, the
// Solar Table, the Schedule Store, and drives the Tick Loop. App-facing
// methods (InsertSchedule, CancelTimer, InfoTimer, GetScheduleEntries,
// TerminateApp) are safe to call concurrently from worker threads (spec
// §5); they mutate the Store under its own mutex.
type Scheduler struct {
	cfg types.Config
	log *slog.Logger

	clock *clock.Clock
	solar *solar.Table
	store *Store

	dispatcher Dispatcher
	registry   AppRegistry
	hook       EntryHook

	endtime time.Time
	hasEnd  bool

	stopFunc func()

	mu       sync.Mutex
	stopping bool
	wasDST   bool
}

// New constructs a Scheduler. dispatcher and registry are required
// collaborators (spec §6); hook may be nil if admin projection isn't
// needed (tests commonly pass nil).
func New(cfg types.Config, dispatcher Dispatcher, registry AppRegistry, hook EntryHook, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	if dispatcher == nil || registry == nil {
		return nil, &ConfigError{Reason: "dispatcher and registry are required"}
	}

	c, err := clock.New(cfg.TimeZone, cfg.Tick, cfg.Interval)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	c.SetMaxClockSkew(cfg.MaxClockSkew)

	st, err := solar.New(cfg.Latitude, cfg.Longitude, cfg.Elevation)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	s := &Scheduler{
		cfg:        cfg,
		log:        log.With("component", "scheduler"),
		clock:      c,
		solar:      st,
		dispatcher: dispatcher,
		registry:   registry,
		hook:       hook,
	}
	s.store = NewStore(hook)

	timeTravel, err := c.SetStartTime(cfg.StartTime)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	if cfg.EndTime != "" {
		end, err := time.ParseInLocation("2006-01-02 15:04:05", cfg.EndTime, c.Zone())
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("invalid endtime: %v", err)}
		}
		s.endtime = end.UTC()
		s.hasEnd = true
	}

	if timeTravel {
		c.SetRealtime(false)
		if cfg.Tick == 0 {
			s.log.Info("starting time travel", "now", c.GetNowNaive(), "displacement", "infinite")
		} else {
			s.log.Info("starting time travel", "now", c.GetNowNaive(), "displacement_factor", cfg.Interval.Seconds()/cfg.Tick.Seconds())
		}
	} else {
		s.log.Info("scheduler tick configured", "tick_seconds", cfg.Tick.Seconds())
	}

	s.wasDST = c.IsDST()
	s.solar.UpdateSun(c.GetNow())

	return s, nil
}

func (s *Scheduler) parser() *timeparse.Parser {
	return timeparse.New(s.clock.Zone(), sunSourceAdapter{s.solar})
}

type sunSourceAdapter struct{ t *solar.Table }

func (a sunSourceAdapter) NextRising() time.Time  { return a.t.State().NextRising }
func (a sunSourceAdapter) NextSetting() time.Time { return a.t.State().NextSetting }

// InsertSchedule registers a new entry for owner (spec §4.4) and returns
// its handle.
func (s *Scheduler) InsertSchedule(owner string, awareDt time.Time, callback Callback, repeat bool, typ types.EntryType, kwargs Kwargs) (types.Handle, error) {
	info, ok := s.registry.Lookup(owner)
	if !ok {
		info = types.AppInfo{ID: owner, PinThread: -1}
	}
	return s.store.Insert(InsertParams{
		Owner:    owner,
		AppInfo:  info,
		AwareDt:  awareDt,
		Callback: callback,
		Repeat:   repeat,
		Type:     typ,
		Kwargs:   kwargs,
		Tick:     s.cfg.Tick,
	}, s.clock.MyDtRound)
}

// CancelTimer removes owner's handle entry, if present (spec §4.4).
func (s *Scheduler) CancelTimer(owner string, handle types.Handle) {
	s.store.Cancel(owner, handle)
}

// TerminateApp removes all of owner's entries (spec §4.4).
func (s *Scheduler) TerminateApp(owner string) {
	s.store.Terminate(owner)
}

// InfoTimer returns (naive next timestamp, interval, sanitized kwargs) for
// handle (spec §4.4).
func (s *Scheduler) InfoTimer(owner string, handle types.Handle) (time.Time, int, map[string]any, error) {
	ts, interval, kwargs, err := s.store.Info(owner, handle, s.clock.MakeNaive)
	if err != nil {
		return time.Time{}, 0, nil, err
	}
	return ts, interval, SanitizeKwargs(kwargs), nil
}

// GetScheduleEntries returns a display snapshot of every live entry,
// ordered by owner then timestamp (spec §4.4 get_scheduler_entries).
func (s *Scheduler) GetScheduleEntries() []OwnerEntries {
	return s.store.OrderedEntries()
}

// ParseTime resolves s via the time-string parser and returns its
// time-of-day (spec §4.3 parse_time).
func (s *Scheduler) ParseTime(str string, aware bool) (time.Time, error) {
	return s.parser().ParseTime(str, s.clock.GetNow(), aware)
}

// ParseDatetime resolves s to a full datetime (spec §4.3 parse_datetime).
func (s *Scheduler) ParseDatetime(str string, aware bool) (time.Time, error) {
	return s.parser().ParseDatetime(str, s.clock.GetNow(), aware)
}

// NowIsBetween reports whether now falls within [a, b] projected onto
// today, rolling across midnight if b < a (spec §4.3 now_is_between).
func (s *Scheduler) NowIsBetween(a, b string) (bool, error) {
	return s.parser().NowIsBetween(a, b, s.clock.GetNow())
}

// SunUp reports whether the sun is currently up (spec §4.2).
func (s *Scheduler) SunUp() bool { return s.solar.SunUp() }

// SunDown reports whether the sun is currently down (spec §4.2).
func (s *Scheduler) SunDown() bool { return s.solar.SunDown() }

// GetNow returns the current virtual UTC instant.
func (s *Scheduler) GetNow() time.Time { return s.clock.GetNow() }

// GetNowNaive returns the current virtual instant as a naive civil
// datetime.
func (s *Scheduler) GetNowNaive() time.Time { return s.clock.GetNowNaive() }

// Stop requests a graceful shutdown of the tick loop; observed at the top
// of the pacing loop and between ticks (spec §5).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
}

// SetStopFunc registers the function to call when the configured endtime
// is reached, instead of the scheduler's own Stop (spec §4.5 step 2).
func (s *Scheduler) SetStopFunc(fn func()) { s.stopFunc = fn }

func (s *Scheduler) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// stopSignal is a small helper so Run's select statements read the
// stop flag without taking the lock in a tight loop.
func (s *Scheduler) stopSignal(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if s.isStopping() {
					return
				}
			}
		}
	}()
	return done
}
