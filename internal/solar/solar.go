// Package solar computes and caches the next sunrise/sunset for a
// configured location, and detects when either value changes so callers
// can reproject sun-anchored schedule entries. Grounded on the Python
// scheduler's init_sun/update_sun/get_offset/sun_up/sun_down
// (original_source/appdaemon/scheduler.py) and on the teacher's sunrise
// calculation in app.go:getSunriseSunset and
// internal/scheduling/daily.go:SunTrigger, both built on
// github.com/nathan-osman/go-sunrise.
package solar

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dromara/carbon/v2"
	sunrise "github.com/nathan-osman/go-sunrise"
)

// State is the {next_rising, next_setting} snapshot (spec §3).
type State struct {
	NextRising  time.Time
	NextSetting time.Time
}

// Table computes and caches State for a fixed location.
type Table struct {
	latitude  float64
	longitude float64
	elevation float64

	state State
	// haveState distinguishes "never computed" from a zero-value State so
	// the first UpdateSun never reports a change.
	haveState bool
}

// New validates latitude/longitude and constructs a Table. The source's
// bounds check (`-90 > lat < 90`) is always false and validates nothing;
// per spec §9 this is a documented bug that must NOT be reproduced — the
// real check is `-90 <= lat <= 90 && -180 <= lon <= 180`.
func New(latitude, longitude, elevation float64) (*Table, error) {
	if latitude < -90 || latitude > 90 {
		return nil, fmt.Errorf("solar: latitude %f out of range [-90, 90]", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("solar: longitude %f out of range [-180, 180]", longitude)
	}
	return &Table{latitude: latitude, longitude: longitude, elevation: elevation}, nil
}

// State returns the last-computed solar snapshot.
func (t *Table) State() State { return t.state }

// SunUp reports whether the next sunrise is farther out than the next
// sunset (i.e. the sun is currently up).
func (t *Table) SunUp() bool { return t.state.NextRising.After(t.state.NextSetting) }

// SunDown reports whether the next sunrise is sooner than the next sunset.
func (t *Table) SunDown() bool { return t.state.NextRising.Before(t.state.NextSetting) }

// Changed reports which of next_rising/next_setting differ between two
// snapshots, keyed the same way ScheduleEntry.Type is.
type Changed struct {
	NextRising  bool
	NextSetting bool
}

// Any reports whether either field changed.
func (c Changed) Any() bool { return c.NextRising || c.NextSetting }

// UpdateSun recomputes next_rising/next_setting as the first sunrise and
// sunset strictly after now, by walking day offsets starting at -1 and
// advancing until go-sunrise returns an instant after now (polar days with
// no event simply produce a zero time for that call and are skipped by
// advancing the offset, mirroring the Python implementation's
// NoEventOnDate handling via astral.AstralError).
func (t *Table) UpdateSun(now time.Time) Changed {
	newRising := t.nextEvent(now, true)
	newSetting := t.nextEvent(now, false)

	var changed Changed
	if t.haveState {
		changed.NextRising = !newRising.Equal(t.state.NextRising)
		changed.NextSetting = !newSetting.Equal(t.state.NextSetting)
	}

	t.state = State{NextRising: newRising, NextSetting: newSetting}
	t.haveState = true
	return changed
}

func (t *Table) nextEvent(now time.Time, rising bool) time.Time {
	day := carbon.NewCarbon(now).SubDay()
	for {
		std := day.StdTime()
		riseUTC, setUTC := sunrise.SunriseSunset(
			t.latitude, t.longitude, std.Year(), std.Month(), std.Day(),
		)
		event := setUTC
		if rising {
			event = riseUTC
		}
		if !event.IsZero() && event.After(now) {
			return event
		}
		// Either a polar day/night with no event on this date, or the
		// event already passed — keep walking forward a day.
		day = day.AddDay()
	}
}

// Offset resolves the signed seconds to apply to a sun event for a given
// entry, per spec §4.2 get_offset: an explicit offset wins (and is
// rejected if random_start/random_end are also given); otherwise a fresh
// uniform-random offset in [randomStart, randomEnd] is drawn every call,
// so repeating sun callbacks get a new random offset each reprojection.
func Offset(offset *int, randomStart, randomEnd *int) (int, error) {
	if offset != nil {
		if randomStart != nil || randomEnd != nil {
			return 0, fmt.Errorf("solar: cannot specify offset as well as random_start/random_end")
		}
		return *offset, nil
	}
	lo, hi := 0, 0
	if randomStart != nil {
		lo = *randomStart
	}
	if randomEnd != nil {
		hi = *randomEnd
	}
	if lo == hi {
		return lo, nil
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + rand.Intn(hi-lo+1), nil
}
