package homesched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameDate(t *testing.T) {
	zone := time.UTC
	a := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	c := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, sameDate(a, b, zone))
	assert.False(t, sameDate(a, c, zone))
}

func TestGateByDateExceptionBlocks(t *testing.T) {
	var ran bool
	exception := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	gated := gateByDate(func() { ran = true }, func() time.Time { return now }, func() *time.Location { return time.UTC },
		[]time.Time{exception}, nil)
	gated()
	assert.False(t, ran, "exception date must suppress the callback")
}

func TestGateByDateAllowlistOnly(t *testing.T) {
	var ran bool
	allowed := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	gated := gateByDate(func() { ran = true }, func() time.Time { return now }, func() *time.Location { return time.UTC },
		nil, []time.Time{allowed})
	gated()
	assert.False(t, ran, "day not on the allowlist must suppress the callback")

	now2 := allowed
	gated2 := gateByDate(func() { ran = true }, func() time.Time { return now2 }, func() *time.Location { return time.UTC },
		nil, []time.Time{allowed})
	gated2()
	assert.True(t, ran)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cfg := testConfig()
	s, err := New(cfg, &fakeDispatcher{}, fakeRegistry{}, nil, nil)
	require.NoError(t, err)
	return s
}

func TestScheduleTriggerUsesFixedTimeTrigger(t *testing.T) {
	s := newTestScheduler(t)
	builder := s.NewDailyBuilder().OnFixedTime(8, 0)
	trigger, err := builder.Build()
	require.NoError(t, err)

	handle, err := s.ScheduleTrigger("ownerA", trigger, func() {})
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
}

func TestScheduleTriggerRejectsTriggerWithNoOccurrence(t *testing.T) {
	s := newTestScheduler(t)
	_, err := s.ScheduleTrigger("ownerA", neverTrigger{}, func() {})
	assert.Error(t, err)
}

type neverTrigger struct{}

func (neverTrigger) NextTime(now time.Time) *time.Time { return nil }
