package clock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rankmaster/internal/blinds"
)

func testStructure() blinds.Structure {
	return blinds.Structure{
		ID:   "s1",
		Name: "test",
		Levels: []blinds.Level{
			{ID: "l1", SmallBlind: 100, BigBlind: 200, DurationMinutes: 1},
			{ID: "l2", SmallBlind: 200, BigBlind: 400, Ante: 400, DurationMinutes: 2},
			{ID: "l3", IsBreak: true, DurationMinutes: 1},
		},
	}
}

func newTestClock(t *testing.T, mock *quartz.Mock, events Events) *Clock {
	t.Helper()
	logger := log.New(io.Discard)
	c, err := New(testStructure(), mock, logger, events)
	require.NoError(t, err)
	return c
}

func advanceSeconds(t *testing.T, mock *quartz.Mock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		mock.Advance(1 * time.Second).MustWait(ctx)
	}
}

func TestNewRejectsInvalidStructure(t *testing.T) {
	t.Parallel()

	_, err := New(blinds.Structure{Name: "empty"}, quartz.NewMock(t), log.New(io.Discard), Events{})
	assert.ErrorContains(t, err, "no levels")
}

func TestInitialSnapshot(t *testing.T) {
	t.Parallel()

	c := newTestClock(t, quartz.NewMock(t), Events{})
	snap := c.Snapshot()
	assert.Equal(t, Snapshot{StructureID: "s1", LevelIndex: 0, SecondsRemaining: 60, IsRunning: false}, snap)
}

func TestOneMinuteLevelRunsThroughAndAdvances(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	var completed []int
	var changed []int
	c := newTestClock(t, mock, Events{
		LevelComplete: func(i int) { completed = append(completed, i) },
		LevelChanged:  func(i int, _ blinds.Level) { changed = append(changed, i) },
	})

	c.Start()

	advanceSeconds(t, mock, 59)
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.SecondsRemaining)
	assert.Equal(t, 0, snap.LevelIndex)

	// The 60th tick exhausts the level and auto-advances, resetting the
	// remaining time to the next level's full duration.
	advanceSeconds(t, mock, 1)
	snap = c.Snapshot()
	assert.Equal(t, 1, snap.LevelIndex)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.True(t, snap.IsRunning)
	assert.Equal(t, []int{0}, completed)
	assert.Equal(t, []int{1}, changed)
}

func TestFinishesAfterLastLevel(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	finished := false
	c := newTestClock(t, mock, Events{Finished: func() { finished = true }})

	c.Start()
	advanceSeconds(t, mock, 60+120+60)

	snap := c.Snapshot()
	assert.True(t, c.Finished())
	assert.True(t, finished)
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 2, snap.LevelIndex)
	assert.Equal(t, 0, snap.SecondsRemaining)

	// Starting a finished clock is a no-op.
	c.Start()
	assert.False(t, c.Snapshot().IsRunning)
}

func TestOneMinuteWarning(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	warnings := 0
	c := newTestClock(t, mock, Events{OneMinuteWarning: func(blinds.Level) { warnings++ }})

	// Move to the two-minute level so the 61-second mark is reachable.
	c.Skip()
	c.Start()

	advanceSeconds(t, mock, 59)
	assert.Equal(t, 0, warnings, "no warning before the one-minute mark")
	assert.Equal(t, 61, c.Snapshot().SecondsRemaining)

	advanceSeconds(t, mock, 1)
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 60, c.Snapshot().SecondsRemaining)

	advanceSeconds(t, mock, 10)
	assert.Equal(t, 1, warnings, "warning fires once per level")
}

func TestPauseStopsTicking(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := newTestClock(t, mock, Events{})

	c.Start()
	advanceSeconds(t, mock, 10)
	c.Pause()

	snap := c.Snapshot()
	assert.Equal(t, 50, snap.SecondsRemaining)
	assert.False(t, snap.IsRunning)

	// Time passing while paused changes nothing.
	mock.Advance(30 * time.Second)
	assert.Equal(t, 50, c.Snapshot().SecondsRemaining)

	// Resume picks up where it left off without stacking timers.
	c.Start()
	advanceSeconds(t, mock, 10)
	assert.Equal(t, 40, c.Snapshot().SecondsRemaining)
}

func TestSkipAndBack(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := newTestClock(t, mock, Events{})

	c.Skip()
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.LevelIndex)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.False(t, snap.IsRunning, "skip does not change running state")

	c.Skip()
	assert.Equal(t, 2, c.Snapshot().LevelIndex)
	c.Skip()
	assert.Equal(t, 2, c.Snapshot().LevelIndex, "skip is bounded at the last level")

	c.Back()
	snap = c.Snapshot()
	assert.Equal(t, 1, snap.LevelIndex)
	assert.Equal(t, 120, snap.SecondsRemaining)

	c.Back()
	c.Back()
	assert.Equal(t, 0, c.Snapshot().LevelIndex, "back is bounded at the first level")
}

func TestSkipWhileRunningKeepsTicking(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := newTestClock(t, mock, Events{})

	c.Start()
	advanceSeconds(t, mock, 5)
	c.Skip()

	snap := c.Snapshot()
	assert.True(t, snap.IsRunning)
	assert.Equal(t, 120, snap.SecondsRemaining)

	advanceSeconds(t, mock, 5)
	assert.Equal(t, 115, c.Snapshot().SecondsRemaining)
}

func TestResetReloadsCurrentLevelAndStops(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c := newTestClock(t, mock, Events{})

	c.Start()
	advanceSeconds(t, mock, 25)
	c.Reset()

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.LevelIndex)
	assert.Equal(t, 60, snap.SecondsRemaining)
	assert.False(t, snap.IsRunning)
}

func TestBreakLevelHasNoBlinds(t *testing.T) {
	t.Parallel()

	c := newTestClock(t, quartz.NewMock(t), Events{})
	c.Skip()
	c.Skip()

	level := c.CurrentLevel()
	assert.True(t, level.IsBreak)
	assert.Zero(t, level.SmallBlind)
	assert.Zero(t, level.BigBlind)
}

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "15:00", FormatRemaining(900))
	assert.Equal(t, "00:09", FormatRemaining(9))
	assert.Equal(t, "01:01", FormatRemaining(61))
}
