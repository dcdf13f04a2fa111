// Package timeparse resolves the scheduler's time-string grammar (spec
// §4.3) to a concrete instant: absolute datetimes, bare clock times, and
// sunrise/sunset (with optional signed offset). Grounded on the Python
// scheduler's _parse_time (original_source/appdaemon/scheduler.py) and,
// for the overall "regex-driven grammar table" shape, on the teacher's
// simpler internal.ParseTime("15:04").
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	absoluteRe = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)\s+(\d+):(\d+):(\d+)$`)
	clockRe    = regexp.MustCompile(`^(\d+):(\d+):(\d+)$`)
	sunOffsetRe = regexp.MustCompile(`^(sunrise|sunset)\s*([+-])\s*(\d+):(\d+):(\d+)$`)
)

// Sun identifies which sun event, if any, a parsed result is anchored to.
type Sun string

const (
	None    Sun = ""
	Sunrise Sun = "sunrise"
	Sunset  Sun = "sunset"
)

// Parsed is the resolved form of a time string: a concrete UTC instant,
// which sun event (if any) it is anchored to, and the signed offset in
// seconds applied to that anchor.
type Parsed struct {
	Instant time.Time
	Sun     Sun
	Offset  int
}

// SunSource supplies the current next_rising/next_setting so the parser
// can resolve "sunrise"/"sunset" expressions without depending on the
// solar package directly (keeps the parser a pure function of its
// inputs).
type SunSource interface {
	NextRising() time.Time
	NextSetting() time.Time
}

// Parser resolves time strings against a configured civil zone and the
// scheduler's current notion of "today".
type Parser struct {
	zone *time.Location
	sun  SunSource
}

// New constructs a Parser bound to zone for absolute/clock-time
// resolution and sun for sunrise/sunset resolution.
func New(zone *time.Location, sun SunSource) *Parser {
	return &Parser{zone: zone, sun: sun}
}

// ParseError reports an unrecognized time string (spec §7).
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timeparse: invalid time string %q", e.Input)
}

// Parse resolves s against the grammar table in spec §4.3, checked in
// order: absolute datetime, bare clock time, sunrise/sunset, sunrise/
// sunset with a signed HH:MM:SS offset. now is the instant "today" is
// computed relative to, in the parser's configured zone.
func (p *Parser) Parse(s string, now time.Time) (Parsed, error) {
	if m := absoluteRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		second, _ := strconv.Atoi(m[6])
		local := time.Date(year, time.Month(month), day, hour, minute, second, 0, p.zone)
		return Parsed{Instant: local.UTC()}, nil
	}

	if m := clockRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		second, _ := strconv.Atoi(m[3])
		today := now.In(p.zone)
		local := time.Date(today.Year(), today.Month(), today.Day(), hour, minute, second, 0, p.zone)
		return Parsed{Instant: local.UTC()}, nil
	}

	if s == string(Sunrise) {
		return Parsed{Instant: p.sun.NextRising(), Sun: Sunrise}, nil
	}
	if s == string(Sunset) {
		return Parsed{Instant: p.sun.NextSetting(), Sun: Sunset}, nil
	}

	if m := sunOffsetRe.FindStringSubmatch(s); m != nil {
		sun := Sun(m[1])
		sign, hour, minute, second := m[2], m[3], m[4], m[5]
		h, _ := strconv.Atoi(hour)
		mi, _ := strconv.Atoi(minute)
		se, _ := strconv.Atoi(second)
		d := time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(se)*time.Second

		anchor := p.sun.NextSetting()
		if sun == Sunrise {
			anchor = p.sun.NextRising()
		}

		offset := int(d.Seconds())
		instant := anchor.Add(d)
		if sign == "-" {
			offset = -offset
			instant = anchor.Add(-d)
		}
		return Parsed{Instant: instant, Sun: sun, Offset: offset}, nil
	}

	return Parsed{}, &ParseError{Input: s}
}

// ParseTime resolves s and returns only its time-of-day, in the parser's
// zone if aware is true, else as a naive (zone-stripped) value. The date
// part is January 1st of year 0, as with time.Parse of a time-only layout.
func (p *Parser) ParseTime(s string, now time.Time, aware bool) (time.Time, error) {
	parsed, err := p.Parse(s, now)
	if err != nil {
		return time.Time{}, err
	}
	t := makeNaive(parsed.Instant, p.zone)
	if aware {
		t = parsed.Instant.In(p.zone)
	}
	return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
}

// ParseDatetime resolves s to a full datetime, in the parser's zone if
// aware is true, else naive.
func (p *Parser) ParseDatetime(s string, now time.Time, aware bool) (time.Time, error) {
	parsed, err := p.Parse(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if aware {
		return parsed.Instant.In(p.zone), nil
	}
	return makeNaive(parsed.Instant, p.zone), nil
}

// NowIsBetween parses both endpoints as clock times, projects them onto
// "today" in the parser's zone, and reports whether now falls within
// [start, end] inclusive. If end is before start the window is taken to
// span midnight: end (and now, if now is before both start and end) are
// rolled forward one day.
func (p *Parser) NowIsBetween(startStr, endStr string, now time.Time) (bool, error) {
	start, err := p.Parse(startStr, now)
	if err != nil {
		return false, err
	}
	end, err := p.Parse(endStr, now)
	if err != nil {
		return false, err
	}

	today := now.In(p.zone)
	startDate := projectOntoDay(today, start.Instant.In(p.zone))
	endDate := projectOntoDay(today, end.Instant.In(p.zone))

	nowZoned := today
	if endDate.Before(startDate) {
		if nowZoned.Before(startDate) && nowZoned.Before(endDate) {
			nowZoned = nowZoned.AddDate(0, 0, 1)
		}
		endDate = endDate.AddDate(0, 0, 1)
	}

	return !nowZoned.Before(startDate) && !nowZoned.After(endDate), nil
}

func projectOntoDay(day, timeOfDay time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), timeOfDay.Second(), 0, day.Location())
}

func makeNaive(dt time.Time, zone *time.Location) time.Time {
	local := dt.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}
