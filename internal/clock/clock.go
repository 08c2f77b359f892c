// Package clock implements the tournament blind clock: a timing state
// machine that walks a blind structure level by level, with transport
// controls (start/pause, skip, back, reset) and signal callbacks.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/rankmaster/internal/blinds"
)

// Snapshot is the continuously updated public view of the clock. It is
// transient; the host decides what, if anything, to checkpoint.
type Snapshot struct {
	StructureID      string `json:"structureId"`
	LevelIndex       int    `json:"levelIndex"`
	SecondsRemaining int    `json:"secondsRemaining"`
	IsRunning        bool   `json:"isRunning"`
}

// Events are optional callbacks fired by the clock. They are invoked
// outside the clock's lock, from the tick goroutine; callbacks may call
// back into the clock.
type Events struct {
	// Tick fires after every state change driven by the timer.
	Tick func(Snapshot)
	// OneMinuteWarning fires once per level when remaining time passes the
	// one-minute mark.
	OneMinuteWarning func(level blinds.Level)
	// LevelComplete fires when a level's time is exhausted, before any
	// advance to the next level.
	LevelComplete func(levelIndex int)
	// LevelChanged fires when the clock moves to a new level, whether by
	// natural completion or skip/back.
	LevelChanged func(levelIndex int, level blinds.Level)
	// Finished fires once when the last level completes.
	Finished func()
}

// Clock is the blind clock state machine. All methods are safe for
// concurrent use; the tick is driven by a single cancellable timer that is
// stopped whenever the clock pauses and re-armed exactly once on resume.
type Clock struct {
	mu        sync.Mutex
	structure blinds.Structure
	quartz    quartz.Clock
	logger    *log.Logger
	events    Events

	levelIndex       int
	secondsRemaining int
	running          bool
	finished         bool
	timer            *quartz.Timer
}

// New creates a clock positioned at the first level of the structure,
// stopped. Pass a quartz.Mock to control time in tests; a nil clock uses
// real time.
func New(structure blinds.Structure, q quartz.Clock, logger *log.Logger, events Events) (*Clock, error) {
	if err := structure.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blind structure: %w", err)
	}
	if q == nil {
		q = quartz.NewReal()
	}
	return &Clock{
		structure:        structure,
		quartz:           q,
		logger:           logger.WithPrefix("clock").With("structure", structure.Name),
		events:           events,
		secondsRemaining: structure.Levels[0].Seconds(),
	}, nil
}

// Start runs the clock. Resuming from a completed level re-initializes the
// remaining time from the current level. Starting an already-running or
// finished clock is a no-op; the tick timer is never stacked.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.running || c.finished {
		c.mu.Unlock()
		return
	}
	if c.secondsRemaining == 0 {
		c.secondsRemaining = c.currentLevelLocked().Seconds()
	}
	c.running = true
	c.armLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("clock started", "level", snap.LevelIndex+1, "remaining", snap.SecondsRemaining)
	c.emitTick(snap)
}

// Pause stops the tick timer without losing position.
func (c *Clock) Pause() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.stopTimerLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("clock paused", "level", snap.LevelIndex+1, "remaining", snap.SecondsRemaining)
	c.emitTick(snap)
}

// Toggle flips between running and paused.
func (c *Clock) Toggle() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if running {
		c.Pause()
	} else {
		c.Start()
	}
}

// Skip moves to the next level and resets the remaining time to that
// level's duration. Running state is unchanged.
func (c *Clock) Skip() {
	c.moveTo(+1)
}

// Back moves to the previous level and resets the remaining time. A
// finished clock backs out of the finished state.
func (c *Clock) Back() {
	c.moveTo(-1)
}

// Reset reloads the current level's full duration and stops the clock.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.running = false
	c.stopTimerLocked()
	c.secondsRemaining = c.currentLevelLocked().Seconds()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emitTick(snap)
}

// Stop halts the tick timer; the clock cannot be restarted meaningfully
// after the host discards it, but position is preserved.
func (c *Clock) Stop() {
	c.Pause()
}

// Snapshot returns the current public clock state.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// CurrentLevel returns the level the clock is positioned at.
func (c *Clock) CurrentLevel() blinds.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLevelLocked()
}

// NextLevel returns the upcoming level, if any.
func (c *Clock) NextLevel() (blinds.Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.levelIndex+1 >= len(c.structure.Levels) {
		return blinds.Level{}, false
	}
	return c.structure.Levels[c.levelIndex+1], true
}

// Finished reports whether the last level has completed.
func (c *Clock) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

func (c *Clock) moveTo(delta int) {
	c.mu.Lock()
	target := c.levelIndex + delta
	if target < 0 || target >= len(c.structure.Levels) {
		c.mu.Unlock()
		return
	}
	c.levelIndex = target
	c.secondsRemaining = c.structure.Levels[target].Seconds()
	c.finished = false
	level := c.structure.Levels[target]
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.events.LevelChanged != nil {
		c.events.LevelChanged(target, level)
	}
	c.emitTick(snap)
}

// tick runs once per elapsed second while the clock is running. A tick
// with no time remaining does not underflow; it re-triggers level
// completion instead.
func (c *Clock) tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}

	var fire []func()

	if c.secondsRemaining > 0 {
		warn := c.secondsRemaining == 61
		c.secondsRemaining--
		if warn && c.events.OneMinuteWarning != nil {
			level := c.currentLevelLocked()
			cb := c.events.OneMinuteWarning
			fire = append(fire, func() { cb(level) })
		}
	}

	if c.secondsRemaining == 0 {
		fire = append(fire, c.completeLevelLocked()...)
	} else {
		c.armLocked()
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	for _, f := range fire {
		f()
	}
	c.emitTick(snap)
}

// completeLevelLocked handles level exhaustion: advance and keep running,
// or finish when no level remains. Returns the callbacks to fire once the
// lock is released.
func (c *Clock) completeLevelLocked() []func() {
	var fire []func()

	completed := c.levelIndex
	if c.events.LevelComplete != nil {
		cb := c.events.LevelComplete
		fire = append(fire, func() { cb(completed) })
	}

	if c.levelIndex+1 < len(c.structure.Levels) {
		c.levelIndex++
		next := c.structure.Levels[c.levelIndex]
		c.secondsRemaining = next.Seconds()
		c.armLocked()

		idx := c.levelIndex
		if c.events.LevelChanged != nil {
			cb := c.events.LevelChanged
			fire = append(fire, func() { cb(idx, next) })
		}
		c.logger.Info("level complete, advancing", "level", idx+1, "smallBlind", next.SmallBlind, "bigBlind", next.BigBlind, "break", next.IsBreak)
		return fire
	}

	c.running = false
	c.finished = true
	c.stopTimerLocked()
	if c.events.Finished != nil {
		cb := c.events.Finished
		fire = append(fire, func() { cb() })
	}
	c.logger.Info("structure finished")
	return fire
}

func (c *Clock) armLocked() {
	c.stopTimerLocked()
	c.timer = c.quartz.AfterFunc(time.Second, c.tick)
}

func (c *Clock) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) currentLevelLocked() blinds.Level {
	return c.structure.Levels[c.levelIndex]
}

func (c *Clock) snapshotLocked() Snapshot {
	return Snapshot{
		StructureID:      c.structure.ID,
		LevelIndex:       c.levelIndex,
		SecondsRemaining: c.secondsRemaining,
		IsRunning:        c.running,
	}
}

func (c *Clock) emitTick(snap Snapshot) {
	if c.events.Tick != nil {
		c.events.Tick(snap)
	}
}

// FormatRemaining renders seconds as MM:SS for display surfaces.
func FormatRemaining(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
