package solar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesBounds(t *testing.T) {
	_, err := New(91, 0, 0)
	assert.Error(t, err)

	_, err = New(0, 181, 0)
	assert.Error(t, err)

	_, err = New(-90, -180, 0)
	assert.NoError(t, err)

	_, err = New(90, 180, 0)
	assert.NoError(t, err)
}

func TestUpdateSunProducesFutureEvents(t *testing.T) {
	table, err := New(40.7128, -74.0060, 0) // New York City
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	changed := table.UpdateSun(now)
	assert.False(t, changed.Any(), "first call never reports a change")

	state := table.State()
	assert.True(t, state.NextRising.After(now))
	assert.True(t, state.NextSetting.After(now))
}

func TestUpdateSunDetectsChange(t *testing.T) {
	table, err := New(40.7128, -74.0060, 0)
	require.NoError(t, err)

	table.UpdateSun(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	first := table.State()

	changed := table.UpdateSun(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	second := table.State()

	assert.True(t, changed.Any())
	assert.NotEqual(t, first.NextRising, second.NextRising)
}

func TestSunUpSunDown(t *testing.T) {
	table, err := New(40.7128, -74.0060, 0)
	require.NoError(t, err)

	table.UpdateSun(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)) // 10:00 UTC, after NYC sunrise
	assert.True(t, table.SunUp())
	assert.False(t, table.SunDown())
}

func TestOffset(t *testing.T) {
	explicit := 30
	off, err := Offset(&explicit, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, off)

	start, end := 10, 10
	off, err = Offset(nil, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 10, off)

	start, end = 60, 10
	off, err = Offset(nil, &start, &end)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, off, 10)
	assert.LessOrEqual(t, off, 60)

	_, err = Offset(&explicit, &start, nil)
	assert.Error(t, err, "offset and random bounds are mutually exclusive")
}
