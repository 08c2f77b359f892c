package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/rankmaster/internal/payout"
	"github.com/lox/rankmaster/internal/scoring"
	"github.com/lox/rankmaster/internal/settlement"
	"github.com/lox/rankmaster/internal/stageid"
)

var (
	// ErrNothingToSettle is returned by finalize when no entry has a settled
	// position.
	ErrNothingToSettle = errors.New("no entries with a settled position")
	// ErrNoFeeSchedule is returned by finalize when no category has been
	// selected; the money figures are undefined without one.
	ErrNoFeeSchedule = errors.New("no fee schedule selected")
)

// RankingState is the persisted shape of a ranking: the player aggregates
// plus the settled-stage history, most recent first.
type RankingState struct {
	ID      string                    `json:"id"`
	Players []scoring.PlayerAggregate `json:"players"`
	History []scoring.HistoryEntry    `json:"history"`
}

// RankingStore persists a full ranking state in one call. The engine never
// writes partial updates; a failed save leaves the previous persisted state
// intact.
type RankingStore interface {
	SaveRanking(ctx context.Context, state RankingState) error
}

// FinalizeInput carries the operator's knobs for settling a stage.
type FinalizeInput struct {
	// Multiplier is 1 for a normal stage, 2 for a double-points stage.
	Multiplier int
	// RankingPrizeOverride replaces the computed ranking prize when non-nil.
	RankingPrizeOverride *float64
	// AdministrativeAmount is subtracted from the net house take.
	AdministrativeAmount float64
	// PlacesPaidOverride forces the ITM table size when > 0.
	PlacesPaidOverride int
}

// Outcome is everything a finalize produces: the money settlement, the
// history entry, the updated aggregates, and the ITM payout table. Preview
// computes it without persisting; Finalize persists it.
type Outcome struct {
	Settlement settlement.Result
	Entry      scoring.HistoryEntry
	Players    []scoring.PlayerAggregate
	Prizes     []payout.Entry
}

// Session ties a stage ledger to the ranking it settles into.
type Session struct {
	Ledger *Ledger

	ranking RankingState
	fees    *settlement.FeeSchedule
	table   scoring.Table
	store   RankingStore
	logger  *log.Logger
	newID   func() string
	now     func() time.Time
}

// NewSession opens a stage-entry session against the given ranking. The
// draft store keys in-progress work by the ranking ID; a nil store disables
// persistence (useful for dry runs).
func NewSession(ranking RankingState, table scoring.Table, store RankingStore, drafts DraftStore, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(nil)
	}
	return &Session{
		Ledger:  NewLedger(ranking.ID, drafts, logger),
		ranking: ranking,
		table:   table,
		store:   store,
		logger:  logger.WithPrefix("session"),
		newID:   stageid.Generate,
		now:     time.Now,
	}
}

// SelectFees chooses the category the stage settles under.
func (s *Session) SelectFees(fees settlement.FeeSchedule) {
	s.fees = &fees
}

// Ranking returns the current ranking state.
func (s *Session) Ranking() RankingState {
	return s.ranking
}

// Standings returns the ranking's players sorted by total points.
func (s *Session) Standings() []scoring.PlayerAggregate {
	return scoring.Standings(s.ranking.Players)
}

// Preview computes the full settlement outcome without touching persisted
// state. Finalize with the same inputs persists exactly this result.
func (s *Session) Preview(input FinalizeInput) (Outcome, error) {
	if s.fees == nil {
		return Outcome{}, ErrNoFeeSchedule
	}
	entries := s.Ledger.Entries()
	entries = completeImplicitWinner(entries)

	placed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Position > 0 {
			placed = append(placed, e)
		}
	}
	if len(placed) == 0 {
		return Outcome{}, ErrNothingToSettle
	}

	// Gross revenue counts every entry, placed or not: they all paid in.
	contributions := make([]settlement.Contribution, len(entries))
	for i, e := range entries {
		contributions[i] = settlement.Contribution{
			Rebuys:       e.Rebuys,
			DoubleRebuys: e.DoubleRebuys,
			Addons:       e.Addons,
		}
	}
	settled := settlement.Settle(contributions, *s.fees, input.AdministrativeAmount, input.RankingPrizeOverride)

	placements := make([]scoring.Placement, len(placed))
	for i, e := range placed {
		placements[i] = scoring.Placement{
			PlayerID: e.PlayerID,
			Name:     e.Name,
			Position: e.Position,
			Paid:     e.Paid,
		}
	}
	players, entry := scoring.Apply(
		s.ranking.Players, s.table, placements,
		input.Multiplier, settled.RankingPrizeAmount,
		s.fees.ID, s.newID(), s.now(),
	)

	return Outcome{
		Settlement: settled,
		Entry:      entry,
		Players:    players,
		Prizes:     payout.DistributeFor(settled.NetAmount, len(entries), input.PlacesPaidOverride),
	}, nil
}

// Finalize settles the stage: computes the outcome, persists the updated
// ranking in a single save, and clears the working draft. On a persistence
// failure the computed outcome is returned alongside the error so the caller
// can retry the save without recomputation, and the draft is kept.
func (s *Session) Finalize(ctx context.Context, input FinalizeInput) (Outcome, error) {
	out, err := s.Preview(input)
	if err != nil {
		return Outcome{}, err
	}

	state := RankingState{
		ID:      s.ranking.ID,
		Players: out.Players,
		History: prependHistory(out.Entry, s.ranking.History),
	}
	if s.store != nil {
		if err := s.store.SaveRanking(ctx, state); err != nil {
			return out, fmt.Errorf("saving ranking %q: %w", s.ranking.ID, err)
		}
	}
	s.ranking = state
	s.Ledger.clearAfterFinalize(ctx)
	s.logger.Info("stage finalized",
		"entry", out.Entry.ID,
		"players", len(out.Entry.Results),
		"gross", out.Settlement.GrossTotal,
		"prize", out.Settlement.RankingPrizeAmount,
	)
	return out, nil
}

// DeleteHistoryEntry reverses a settled stage, restoring the aggregates to
// the state they would hold had the entry never been applied, then persists
// the result in a single save.
func (s *Session) DeleteHistoryEntry(ctx context.Context, entryID string) error {
	players, remaining, err := scoring.Revert(s.ranking.Players, s.ranking.History, entryID)
	if err != nil {
		return err
	}
	state := RankingState{ID: s.ranking.ID, Players: players, History: remaining}
	if s.store != nil {
		if err := s.store.SaveRanking(ctx, state); err != nil {
			return fmt.Errorf("saving ranking %q: %w", s.ranking.ID, err)
		}
	}
	s.ranking = state
	s.logger.Info("history entry deleted", "entry", entryID)
	return nil
}

// completeImplicitWinner assigns position 1 to the sole remaining
// zero-position entry, if exactly one exists. The last player standing is
// never explicitly eliminated.
func completeImplicitWinner(entries []Entry) []Entry {
	idx := -1
	for i := range entries {
		if entries[i].Position == 0 {
			if idx >= 0 {
				return entries
			}
			idx = i
		}
	}
	if idx >= 0 {
		entries[idx].Position = 1
	}
	return entries
}

func prependHistory(entry scoring.HistoryEntry, history []scoring.HistoryEntry) []scoring.HistoryEntry {
	out := make([]scoring.HistoryEntry, 0, len(history)+1)
	out = append(out, entry)
	return append(out, history...)
}
