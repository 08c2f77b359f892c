// Package stage holds the in-progress state of a single tournament stage:
// who entered, what they bought, and the order they busted out. Finalizing a
// stage settles the money, applies points to the ranking, and clears the
// working draft.
package stage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrPlayerNotFound is returned when a mutation targets a player with no
	// ledger entry.
	ErrPlayerNotFound = errors.New("player not in stage ledger")
	// ErrDuplicatePlayer is returned when a player is added twice.
	ErrDuplicatePlayer = errors.New("player already in stage ledger")
)

// Entry is one player's participation in the stage. Position 0 means the
// player has not placed yet; position 1 is the winner. EliminationOrder 0
// means still seated.
type Entry struct {
	PlayerID         string `json:"playerId"`
	Name             string `json:"name"`
	Position         int    `json:"position"`
	EliminationOrder int    `json:"eliminationOrder"`
	Rebuys           int    `json:"rebuys"`
	DoubleRebuys     int    `json:"doubleRebuys"`
	Addons           int    `json:"addons"`
	Paid             bool   `json:"paid"`
}

// DraftStore persists in-progress ledgers so an interrupted session can be
// resumed. Implementations live outside this package.
type DraftStore interface {
	LoadDraft(ctx context.Context, key string) ([]Entry, bool, error)
	SaveDraft(ctx context.Context, key string, entries []Entry) error
	ClearDraft(ctx context.Context, key string) error
}

// Ledger tracks the entries for one stage. Every mutation is mirrored to the
// draft store so a crash mid-entry loses nothing; draft write failures are
// logged rather than surfaced, the in-memory copy stays authoritative.
type Ledger struct {
	mu       sync.Mutex
	key      string
	entries  []Entry
	drafts   DraftStore
	logger   *log.Logger
	onChange func()
}

// NewLedger creates an empty ledger for the given draft key, usually the
// ranking ID. A nil DraftStore disables mirroring.
func NewLedger(key string, drafts DraftStore, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(nil)
	}
	return &Ledger{
		key:    key,
		drafts: drafts,
		logger: logger.WithPrefix("stage"),
	}
}

// SetOnChange registers a callback invoked after every successful mutation.
// Used to drive display refreshes.
func (l *Ledger) SetOnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Restore loads a previously saved draft, replacing any current entries.
// Returns true when a draft existed.
func (l *Ledger) Restore(ctx context.Context) (bool, error) {
	if l.drafts == nil {
		return false, nil
	}
	entries, ok, err := l.drafts.LoadDraft(ctx, l.key)
	if err != nil {
		return false, fmt.Errorf("loading draft %q: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	l.logger.Info("restored draft", "key", l.key, "entries", len(entries))
	return true, nil
}

// Replace swaps in a complete entry set, for hosts that assemble the stage
// outside the ledger (offline settlement files).
func (l *Ledger) Replace(ctx context.Context, entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
	l.mutatedLocked(ctx)
}

// AddEntry registers a player in the stage.
func (l *Ledger) AddEntry(ctx context.Context, playerID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(playerID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, playerID)
	}
	l.entries = append(l.entries, Entry{PlayerID: playerID, Name: name})
	l.mutatedLocked(ctx)
	return nil
}

// RemoveEntry drops a player from the stage entirely.
func (l *Ledger) RemoveEntry(ctx context.Context, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(playerID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.mutatedLocked(ctx)
	return nil
}

// SetRebuys records how many single rebuys a player took.
func (l *Ledger) SetRebuys(ctx context.Context, playerID string, n int) error {
	return l.update(ctx, playerID, func(e *Entry) { e.Rebuys = maxInt(n, 0) })
}

// SetDoubleRebuys records how many double rebuys a player took.
func (l *Ledger) SetDoubleRebuys(ctx context.Context, playerID string, n int) error {
	return l.update(ctx, playerID, func(e *Entry) { e.DoubleRebuys = maxInt(n, 0) })
}

// SetAddons records the player's addon count.
func (l *Ledger) SetAddons(ctx context.Context, playerID string, n int) error {
	return l.update(ctx, playerID, func(e *Entry) { e.Addons = maxInt(n, 0) })
}

// SetPaid flags whether the player has paid their fees.
func (l *Ledger) SetPaid(ctx context.Context, playerID string, paid bool) error {
	return l.update(ctx, playerID, func(e *Entry) { e.Paid = paid })
}

// SetPosition overrides a player's finishing position directly, bypassing
// the elimination ordering.
func (l *Ledger) SetPosition(ctx context.Context, playerID string, position int) error {
	return l.update(ctx, playerID, func(e *Entry) { e.Position = maxInt(position, 0) })
}

// ToggleElimination marks a player as busted out, or undoes it. A fresh
// elimination takes the next order number and every eliminated player's
// position is recomputed as totalEntries - order + 1, so the first bust
// finishes last and the final survivor implicitly takes first place. Undoing
// clears only that player's order and position.
func (l *Ledger) ToggleElimination(ctx context.Context, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(playerID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	e := &l.entries[i]
	if e.EliminationOrder > 0 {
		e.EliminationOrder = 0
		e.Position = 0
		l.mutatedLocked(ctx)
		return nil
	}
	maxOrder := 0
	for j := range l.entries {
		if l.entries[j].EliminationOrder > maxOrder {
			maxOrder = l.entries[j].EliminationOrder
		}
	}
	e.EliminationOrder = maxOrder + 1
	total := len(l.entries)
	for j := range l.entries {
		if l.entries[j].EliminationOrder > 0 {
			l.entries[j].Position = total - l.entries[j].EliminationOrder + 1
		}
	}
	l.mutatedLocked(ctx)
	return nil
}

// Entries returns a copy of the current entries.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// TotalEntries returns the number of players in the stage.
func (l *Ledger) TotalEntries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// PlayersRemaining counts entries not yet eliminated.
func (l *Ledger) PlayersRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := 0
	for i := range l.entries {
		if l.entries[i].EliminationOrder == 0 {
			remaining++
		}
	}
	return remaining
}

// Discard abandons the session: clears all entries and removes the draft.
func (l *Ledger) Discard(ctx context.Context) error {
	l.mu.Lock()
	l.entries = nil
	onChange := l.onChange
	l.mu.Unlock()
	if onChange != nil {
		onChange()
	}
	if l.drafts == nil {
		return nil
	}
	if err := l.drafts.ClearDraft(ctx, l.key); err != nil {
		return fmt.Errorf("clearing draft %q: %w", l.key, err)
	}
	return nil
}

// clearAfterFinalize resets the ledger once its entries have been consumed by
// a settled stage. Draft clear failures are logged, the settlement already
// persisted.
func (l *Ledger) clearAfterFinalize(ctx context.Context) {
	l.mu.Lock()
	l.entries = nil
	onChange := l.onChange
	l.mu.Unlock()
	if onChange != nil {
		onChange()
	}
	if l.drafts != nil {
		if err := l.drafts.ClearDraft(ctx, l.key); err != nil {
			l.logger.Warn("failed to clear draft after finalize", "key", l.key, "error", err)
		}
	}
}

func (l *Ledger) update(ctx context.Context, playerID string, fn func(*Entry)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(playerID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	fn(&l.entries[i])
	l.mutatedLocked(ctx)
	return nil
}

func (l *Ledger) indexLocked(playerID string) int {
	for i := range l.entries {
		if l.entries[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// mutatedLocked mirrors the entries to the draft store and fires the change
// callback. Called with l.mu held; the callback must not re-enter the ledger.
func (l *Ledger) mutatedLocked(ctx context.Context) {
	if l.drafts != nil {
		entries := make([]Entry, len(l.entries))
		copy(entries, l.entries)
		if err := l.drafts.SaveDraft(ctx, l.key, entries); err != nil {
			l.logger.Warn("failed to save draft", "key", l.key, "error", err)
		}
	}
	if l.onChange != nil {
		l.onChange()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
