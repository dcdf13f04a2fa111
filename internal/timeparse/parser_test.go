package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSun struct {
	rising, setting time.Time
}

func (f fixedSun) NextRising() time.Time  { return f.rising }
func (f fixedSun) NextSetting() time.Time { return f.setting }

func testParser(t *testing.T) *Parser {
	t.Helper()
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)
	sun := fixedSun{
		rising:  time.Date(2024, 6, 1, 5, 30, 0, 0, time.UTC),
		setting: time.Date(2024, 6, 1, 20, 15, 0, 0, time.UTC),
	}
	return New(loc, sun)
}

func TestParseAbsolute(t *testing.T) {
	p := testParser(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	parsed, err := p.Parse("2024-03-15 08:30:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), parsed.Instant)
	assert.Equal(t, None, parsed.Sun)
}

func TestParseClockTime(t *testing.T) {
	p := testParser(t)
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	parsed, err := p.Parse("08:30:00", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC), parsed.Instant)
}

func TestParseSunEvents(t *testing.T) {
	p := testParser(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	parsed, err := p.Parse("sunrise", now)
	require.NoError(t, err)
	assert.Equal(t, Sunrise, parsed.Sun)
	assert.Equal(t, 0, parsed.Offset)

	parsed, err = p.Parse("sunset", now)
	require.NoError(t, err)
	assert.Equal(t, Sunset, parsed.Sun)
}

func TestParseSunOffset(t *testing.T) {
	p := testParser(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	parsed, err := p.Parse("sunrise+00:30:00", now)
	require.NoError(t, err)
	assert.Equal(t, 1800, parsed.Offset)
	assert.Equal(t, time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC), parsed.Instant)

	parsed, err = p.Parse("sunset-01:00:00", now)
	require.NoError(t, err)
	assert.Equal(t, -3600, parsed.Offset)
	assert.Equal(t, time.Date(2024, 6, 1, 19, 15, 0, 0, time.UTC), parsed.Instant)
}

func TestParseUnrecognized(t *testing.T) {
	p := testParser(t)
	_, err := p.Parse("not a time", time.Now())
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestNowIsBetweenSameDay(t *testing.T) {
	p := testParser(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ok, err := p.NowIsBetween("08:00:00", "12:00:00", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.NowIsBetween("11:00:00", "12:00:00", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNowIsBetweenSpansMidnight(t *testing.T) {
	p := testParser(t)

	lateNight := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	ok, err := p.NowIsBetween("22:00:00", "06:00:00", lateNight)
	require.NoError(t, err)
	assert.True(t, ok)

	earlyMorning := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)
	ok, err = p.NowIsBetween("22:00:00", "06:00:00", earlyMorning)
	require.NoError(t, err)
	assert.True(t, ok)

	midday := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ok, err = p.NowIsBetween("22:00:00", "06:00:00", midday)
	require.NoError(t, err)
	assert.False(t, ok)
}
