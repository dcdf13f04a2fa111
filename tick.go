package homesched

import (
	"context"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/halvorsen/homesched/internal/solar"
	"github.com/halvorsen/homesched/types"
)

// Item adapts types.Item to the queue.Item interface so the dispatch pass
// can pop due entries in ascending timestamp order instead of sorting the
// whole owner bucket by hand every tick, mirroring the teacher's
// schedule.go/interval.go PriorityQueue usage.
type Item types.Item

// Compare orders Items by ascending Priority (soonest timestamp first),
// matching the teacher's Item.Compare.
func (i Item) Compare(other queue.Item) int {
	o := other.(Item)
	switch {
	case i.Priority > o.Priority:
		return 1
	case i.Priority < o.Priority:
		return -1
	default:
		return 0
	}
}

const slowTickWarn = 250 * time.Millisecond

// Run drives the pacing loop until ctx is cancelled or Stop is called
// (spec §4.5). It blocks the calling goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	stop := s.stopSignal(ctx)

	ec := &execContext{
		dispatcher: s.dispatcher,
		registry:   s.registry,
		solar:      s.solar,
		hook:       s.hook,
		log:        s.log,
	}

	count := int64(0)
	t0 := realNow()
	if s.clock.Tick() > 0 {
		t0 = roundTime(t0, s.clock.Tick())
	}

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if s.clock.Realtime() {
			target := t0.Add(time.Duration(count) * s.clock.Tick())
			if d := target.Sub(realNow()); d > 0 {
				select {
				case <-time.After(d):
				case <-stop:
					return nil
				}
			}
		} else if s.clock.Tick() > 0 {
			select {
			case <-time.After(s.clock.Tick()):
			case <-stop:
				return nil
			}
		}
		// tick == 0 in time-travel mode: no pacing delay, advance as fast
		// as possible (spec §4.1 "infinite acceleration").

		tickStart := realNow()
		resynced, stopping := s.runTickSafely(ctx, ec)
		if stopping {
			return nil
		}
		if elapsed := realNow().Sub(tickStart); elapsed > slowTickWarn {
			s.log.Warn("tick took longer than expected", "elapsed", elapsed)
		}

		if resynced {
			// Spec §4.5 step 3: a resync rebaselines the pacing loop itself
			// (t = r.timestamp, count = 0) instead of continuing to pace off
			// the stale t0.
			count = 0
			t0 = realNow()
			if s.clock.Tick() > 0 {
				t0 = roundTime(t0, s.clock.Tick())
			}
		} else {
			count++
		}
	}
}

// runTickSafely runs one tick body, recovering any panic so the pacing
// loop never dies on it (spec §4.5 last line: "any uncaught failure in
// the tick body is logged and swallowed — the loop must continue"; spec
// §7 TickError: "logged and swallowed... the loop continues at the next
// tick"). It reports whether the tick resynced the virtual clock to wall
// time, and whether the loop should stop (the configured endtime was
// reached or Stop was called).
func (s *Scheduler) runTickSafely(ctx context.Context, ec *execContext) (resynced, stopping bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recovered from panic in tick body", "panic", r)
		}
	}()

	var err error
	resynced, err = s.doEveryTick(ctx, ec)
	if err == nil {
		return resynced, false
	}
	if err == ErrStopping {
		return false, true
	}
	s.log.Warn("tick error, continuing", "error", &TickError{Err: err})
	return false, false
}

// doEveryTick implements the per-tick procedure (spec §4.5 do_every_tick):
// advance virtual time, handle endtime/skew/DST, reproject the solar
// table, dispatch due entries in timestamp order, and sweep empty owner
// buckets. It returns whether the tick resynced the virtual clock to wall
// time (real-time mode only).
func (s *Scheduler) doEveryTick(ctx context.Context, ec *execContext) (bool, error) {
	// 1. Advance virtual time by the configured interval, in both modes:
	// real-time pacing (Run's sleep-until-target loop) keeps this in
	// lockstep with wall-clock time under normal operation, but the two
	// genuinely can drift (host scheduling jitter, a slow tick body) — that
	// drift is exactly what step 3 below detects and corrects.
	s.clock.SetNow(s.clock.GetNow().Add(s.clock.Interval()))
	utc := s.clock.GetNow()

	// 2. Endtime check.
	if s.hasEnd && !utc.Before(s.endtime) {
		s.log.Info("reached configured endtime, stopping", "now", s.clock.GetNowNaive())
		if s.stopFunc != nil {
			s.stopFunc()
		} else {
			s.Stop()
		}
		return false, ErrStopping
	}

	// 3. Clock skew detection/resync, real-time mode only: if virtual now
	// has drifted from wall-clock now by more than the configured
	// max_clock_skew, log and snap back to wall-clock time.
	resynced := false
	if s.clock.Realtime() {
		drift := realNow().Sub(utc)
		if drift < 0 {
			drift = -drift
		}
		if skew := s.clock.MaxClockSkew(); skew > 0 && drift > skew {
			s.log.Warn("clock skew detected, resyncing to wall clock", "drift", drift, "max_clock_skew", skew)
			s.clock.SetNow(realNow())
			utc = s.clock.GetNow()
			resynced = true
		}
	}

	// 4. Reproject the solar table: recompute next_rising/next_setting and,
	// on change, reactivate any inactive sun entries of that type (spec
	// §4.2 process_sun / invariant 4).
	changed := s.solar.UpdateSun(utc)
	if changed.Any() {
		s.processSun(changed)
	}

	// 5. DST crossover detection triggers a full app reload (spec §4.5
	// step 5 / original_source scheduler.py's is_dst handling).
	nowDST := s.clock.IsDST()
	if nowDST != s.wasDST {
		s.log.Info("DST crossover detected, reloading apps", "was_dst", s.wasDST, "now_dst", nowDST)
		s.registry.CheckAppUpdates("__ALL__")
		s.wasDST = nowDST
	}

	// 6-7. Dispatch due entries per owner, soonest first, then sweep empty
	// buckets.
	s.store.withLock(func(owners map[string]map[types.Handle]*ScheduleEntry) {
		for owner, bucket := range owners {
			if len(bucket) == 0 {
				delete(owners, owner)
				continue
			}

			pq := queue.NewPriorityQueue(len(bucket), false)
			items := make([]queue.Item, 0, len(bucket))
			for _, e := range bucket {
				items = append(items, Item{Value: e, Priority: float64(e.Timestamp.UnixNano())})
			}
			if err := pq.Put(items...); err != nil {
				s.log.Warn("failed to queue owner's due entries", "owner", owner, "error", err)
				continue
			}

			for pq.Len() > 0 {
				popped, err := pq.Get(1)
				if err != nil || len(popped) == 0 {
					break
				}
				e := popped[0].(Item).Value.(*ScheduleEntry)
				if e.Timestamp.After(utc) {
					break
				}
				if ec.execSchedule(ctx, e) {
					removeLocked(owners, owner, e.Handle)
				}
			}

			if bucket, ok := owners[owner]; ok && len(bucket) == 0 {
				delete(owners, owner)
			}
		}
	})

	return resynced, nil
}

// processSun reactivates every inactive sun-type entry whose anchor
// changed, recomputing its offset and timestamp from the fresh solar
// state and clearing Inactive (spec §4.2 process_sun, invariant 4: a
// sun-type repeat with a negative offset sits inactive until the next
// solar transition reprojects it).
func (s *Scheduler) processSun(changed solar.Changed) {
	state := s.solar.State()
	s.store.withLock(func(owners map[string]map[types.Handle]*ScheduleEntry) {
		for _, bucket := range owners {
			for _, e := range bucket {
				if !e.Inactive {
					continue
				}
				var anchor time.Time
				switch e.Type {
				case types.NextRising:
					if !changed.NextRising {
						continue
					}
					anchor = state.NextRising
				case types.NextSetting:
					if !changed.NextSetting {
						continue
					}
					anchor = state.NextSetting
				default:
					continue
				}

				offset, err := solar.Offset(e.Kwargs.Offset, e.Kwargs.RandomStart, e.Kwargs.RandomEnd)
				if err != nil {
					s.log.Warn("failed to reproject sun entry, leaving inactive",
						"owner", e.Owner, "handle", e.Handle, "error", err)
					continue
				}
				e.Offset = offset
				e.Timestamp = anchor.Add(time.Duration(offset) * time.Second)
				e.Inactive = false
				if s.hook != nil {
					s.hook.OnUpdate(e)
				}
			}
		}
	})
}

func realNow() time.Time { return time.Now().UTC() }

func roundTime(t time.Time, base time.Duration) time.Time {
	if base <= 0 {
		return t
	}
	return t.Round(base)
}
