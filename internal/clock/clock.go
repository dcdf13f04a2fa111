// Package clock holds the scheduler's virtual wall clock: the current
// instant, the configured civil zone, and the rounding/conversion helpers
// the rest of the scheduler uses to move between naive, zoned, and UTC
// forms. Grounded on the Python scheduler's Clock responsibilities
// (scheduler.py: get_now/get_now_naive/make_naive/convert_naive/myround/
// my_dt_round/is_dst).
package clock

import (
	"fmt"
	"math"
	"time"
)

// Clock holds the scheduler's current virtual time plus its configured
// zone. now is always stored as an absolute UTC instant (spec invariant 1:
// every timestamp it hands out is UTC).
type Clock struct {
	now          time.Time
	zone         *time.Location
	realtime     bool
	tick         time.Duration
	interval     time.Duration
	maxClockSkew time.Duration
}

// New constructs a Clock for the given IANA zone, tick grain, and virtual
// seconds-per-tick. now starts at the real UTC instant; call SetStartTime
// to apply a configured start time.
func New(zoneName string, tick, interval time.Duration) (*Clock, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("clock: invalid time_zone %q: %w", zoneName, err)
	}
	return &Clock{
		now:      time.Now().UTC(),
		zone:     loc,
		realtime: true,
		tick:     tick,
		interval: interval,
	}, nil
}

// SetStartTime resets now per spec §4.1: if startTime is a non-empty
// "YYYY-MM-DD HH:MM:SS" string, it is parsed as naive local-zone time,
// localized, and converted to UTC; otherwise now is set to the real UTC
// instant. tick != interval forces time-travel mode even with no explicit
// start time (preserved verbatim from the source's behavior, see
// DESIGN.md).
func (c *Clock) SetStartTime(startTime string) (timeTravel bool, err error) {
	if startTime != "" {
		naive, err := time.ParseInLocation("2006-01-02 15:04:05", startTime, c.zone)
		if err != nil {
			return false, fmt.Errorf("clock: invalid starttime %q: %w", startTime, err)
		}
		c.now = naive.UTC()
		timeTravel = true
	} else {
		c.now = time.Now().UTC()
	}

	if c.tick != c.interval {
		timeTravel = true
	}
	return timeTravel, nil
}

// SetNow is the tick loop's sole write path for virtual time (spec §5:
// "now is written only by the tick loop").
func (c *Clock) SetNow(t time.Time) { c.now = t.UTC() }

// SetRealtime flips whether the clock is tracking wall-clock time; the
// scheduler's constructor sets this false when time-travel mode is
// detected.
func (c *Clock) SetRealtime(realtime bool) { c.realtime = realtime }

// Realtime reports whether the clock is in real-time (non-accelerated)
// mode.
func (c *Clock) Realtime() bool { return c.realtime }

// Tick returns the configured pacing grain.
func (c *Clock) Tick() time.Duration { return c.tick }

// Interval returns the configured per-tick virtual time advance.
func (c *Clock) Interval() time.Duration { return c.interval }

// SetMaxClockSkew configures the real-time mode resynchronization
// threshold (spec §6 max_clock_skew).
func (c *Clock) SetMaxClockSkew(d time.Duration) { c.maxClockSkew = d }

// MaxClockSkew returns the configured resynchronization threshold.
func (c *Clock) MaxClockSkew() time.Duration { return c.maxClockSkew }

// Zone returns the configured civil zone.
func (c *Clock) Zone() *time.Location { return c.zone }

// GetNow returns the current virtual instant, in UTC.
func (c *Clock) GetNow() time.Time { return c.now }

// GetNowTS returns the current virtual instant as a Unix timestamp with
// sub-second precision.
func (c *Clock) GetNowTS() float64 {
	return float64(c.now.UnixNano()) / float64(time.Second)
}

// GetNowNaive returns the current virtual instant as a naive (zone-less)
// datetime in the configured zone.
func (c *Clock) GetNowNaive() time.Time { return c.MakeNaive(c.now) }

// MakeNaive converts dt to the configured zone and strips the zone,
// producing a naive civil datetime for human-facing output.
func (c *Clock) MakeNaive(dt time.Time) time.Time {
	local := dt.In(c.zone)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

// ConvertNaive attaches the configured zone to dt if dt carries no zone
// offset information (i.e. it was produced by MakeNaive or time.Date with
// time.UTC standing in for "no zone"); it leaves already-zoned values
// alone.
func (c *Clock) ConvertNaive(dt time.Time) time.Time {
	if dt.Location() == time.UTC {
		return time.Date(dt.Year(), dt.Month(), dt.Day(),
			dt.Hour(), dt.Minute(), dt.Second(), dt.Nanosecond(), c.zone)
	}
	return dt
}

// MyRound implements the source's myround(x, base, prec=10): if base is 0,
// x passes through unchanged (used for "tick=0" infinite acceleration);
// otherwise x is snapped to the nearest multiple of base.
func MyRound(x, base float64) float64 {
	if base == 0 {
		return x
	}
	return roundToPrec(base*math.Round(x/base), 10)
}

func roundToPrec(x float64, prec int) float64 {
	p := math.Pow(10, float64(prec))
	return math.Round(x*p) / p
}

// MyDtRound applies MyRound to dt's Unix timestamp (in seconds) and
// rematerializes the result as a UTC-aware instant, snapping dt to the
// tick grid (spec invariant 1).
func (c *Clock) MyDtRound(dt time.Time, base time.Duration) time.Time {
	if base <= 0 {
		return dt.UTC()
	}
	baseSeconds := base.Seconds()
	ts := float64(dt.UnixNano()) / float64(time.Second)
	rounded := MyRound(ts, baseSeconds)
	whole := math.Floor(rounded)
	frac := rounded - whole
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}

// IsDST reports whether now, projected into the configured zone, is
// currently observing daylight saving time. Grounded on the Python
// scheduler's is_dst(): `now.astimezone(tz).dst() != timedelta(0)`.
func (c *Clock) IsDST() bool {
	_, offsetNow := c.now.In(c.zone).Zone()
	// Standard-time offset: the smaller of the offsets on January 1st and
	// July 1st of the same year, so it works in both hemispheres.
	jan := time.Date(c.now.In(c.zone).Year(), time.January, 1, 0, 0, 0, 0, c.zone)
	_, offsetJan := jan.Zone()
	jul := time.Date(c.now.In(c.zone).Year(), time.July, 1, 0, 0, 0, 0, c.zone)
	_, offsetJul := jul.Zone()
	standard := offsetJan
	if offsetJul < offsetJan {
		standard = offsetJul
	}
	return offsetNow != standard
}
