// Package blinds defines blind structures: the ordered timed levels a
// tournament clock advances through.
package blinds

import (
	"fmt"
	"time"
)

// Level is one timed segment of the clock. Break levels carry no blind or
// ante values; consumers must only show elapsed/remaining time for them.
type Level struct {
	ID              string
	SmallBlind      int
	BigBlind        int
	Ante            int
	DurationMinutes int
	IsBreak         bool
}

// Duration returns the level length as a time.Duration.
func (l Level) Duration() time.Duration {
	return time.Duration(l.DurationMinutes) * time.Minute
}

// Seconds returns the level length in whole seconds, which is the unit the
// clock counts in.
func (l Level) Seconds() int {
	return l.DurationMinutes * 60
}

// Structure is an ordered set of levels. A house owns one or more
// structures with exactly one active at a time.
type Structure struct {
	ID     string
	Name   string
	Levels []Level
}

// Validate checks the structure is runnable.
func (s Structure) Validate() error {
	if len(s.Levels) == 0 {
		return fmt.Errorf("structure %q has no levels", s.Name)
	}
	for i, l := range s.Levels {
		if l.DurationMinutes <= 0 {
			return fmt.Errorf("structure %q level %d: duration must be positive", s.Name, i+1)
		}
		if l.IsBreak {
			continue
		}
		if l.SmallBlind <= 0 || l.BigBlind <= 0 {
			return fmt.Errorf("structure %q level %d: blinds must be positive", s.Name, i+1)
		}
		if l.BigBlind < l.SmallBlind {
			return fmt.Errorf("structure %q level %d: big blind below small blind", s.Name, i+1)
		}
		if l.Ante < 0 {
			return fmt.Errorf("structure %q level %d: negative ante", s.Name, i+1)
		}
	}
	return nil
}
