package homesched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorsen/homesched/types"
)

func testConfig() types.Config {
	return types.Config{
		TimeZone:  "UTC",
		Latitude:  40.7128,
		Longitude: -74.0060,
		Tick:      10 * time.Millisecond,
		Interval:  10 * time.Millisecond,
	}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(testConfig(), nil, fakeRegistry{}, nil, nil)
	assert.Error(t, err)
}

func TestNewRejectsBadLatitude(t *testing.T) {
	cfg := testConfig()
	cfg.Latitude = 200
	_, err := New(cfg, &fakeDispatcher{}, fakeRegistry{}, nil, nil)
	assert.Error(t, err)
}

func TestParseTimeAndNowIsBetween(t *testing.T) {
	s := newTestScheduler(t)

	parsed, err := s.ParseTime("08:30:00", true)
	require.NoError(t, err)
	assert.Equal(t, 8, parsed.Hour())

	between, err := s.NowIsBetween("00:00:00", "23:59:59")
	require.NoError(t, err)
	assert.True(t, between)
}

func TestInsertScheduleAndCancel(t *testing.T) {
	s := newTestScheduler(t)
	handle, err := s.InsertSchedule("ownerA", s.GetNow().Add(time.Hour), func() {}, false, types.Absolute, Kwargs{})
	require.NoError(t, err)

	_, _, _, err = s.InfoTimer("ownerA", handle)
	require.NoError(t, err)

	s.CancelTimer("ownerA", handle)
	_, _, _, err = s.InfoTimer("ownerA", handle)
	assert.Error(t, err)
}

func TestRunStopsAtEndtime(t *testing.T) {
	cfg := testConfig()
	cfg.StartTime = "2024-01-01 00:00:00"
	cfg.EndTime = "2024-01-01 00:00:01"
	cfg.Tick = time.Millisecond
	cfg.Interval = 200 * time.Millisecond

	s, err := New(cfg, &fakeDispatcher{}, fakeRegistry{}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = s.Run(ctx)
	assert.NoError(t, err)
	assert.True(t, s.isStopping())
}
