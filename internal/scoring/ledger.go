package scoring

import (
	"errors"
	"sort"
	"time"
)

// ErrEntryNotFound is returned by Revert when the history entry to delete
// is not present.
var ErrEntryNotFound = errors.New("history entry not found")

// PlayerAggregate is one player's cumulative standing in a ranking. The
// cumulative fields (TotalPoints, Attendances, Wins, AccumulatedValue)
// never go negative: Revert clamps at zero to tolerate data drift from
// manual edits or out-of-order deletions.
type PlayerAggregate struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	TotalPoints      int     `json:"totalPoints"`
	PrevPoints       int     `json:"prevPoints"`
	Attendances      int     `json:"attendances"`
	Wins             int     `json:"wins"`
	DayPoints        int     `json:"dayPoints"`
	AccumulatedValue float64 `json:"accumulatedValue"`
}

// Result is one player's line in a settled stage.
type Result struct {
	PlayerID     string  `json:"playerId"`
	Position     int     `json:"position"`
	PointsEarned int     `json:"pointsEarned"`
	TotalValue   float64 `json:"totalValue"`
	Paid         bool    `json:"paid"`
}

// HistoryEntry is a settled, applied stage. Immutable once created; its
// only further lifecycle event is deletion via Revert.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Multiplier int       `json:"multiplier"`
	CategoryID string    `json:"categoryId"`
	Results    []Result  `json:"results"`
}

// Placement is the input to Apply: a player and their settled finishing
// position for the stage being folded in.
type Placement struct {
	PlayerID string
	Name     string
	Position int
	Paid     bool
}

// Apply folds a settled stage into the aggregates and builds the history
// entry for it. The input slice is not mutated; a fresh collection is
// returned for the host to persist. Players placing for the first time are
// created with zero-initialized aggregates. Players in the ranking but
// absent from this stage only have DayPoints reset to zero.
//
// The ranking prize goes exclusively to the outright winner (position 1);
// ITM cash payouts are a separate, display-side distribution.
func Apply(players []PlayerAggregate, table Table, placements []Placement, multiplier int, rankingPrize float64, categoryID, entryID string, date time.Time) ([]PlayerAggregate, HistoryEntry) {
	if multiplier != 2 {
		multiplier = 1
	}

	entry := HistoryEntry{
		ID:         entryID,
		Date:       date,
		Multiplier: multiplier,
		CategoryID: categoryID,
		Results:    make([]Result, 0, len(placements)),
	}

	updated := make([]PlayerAggregate, len(players))
	copy(updated, players)

	known := make(map[string]bool, len(updated))
	for _, p := range updated {
		known[p.ID] = true
	}
	for _, pl := range placements {
		if !known[pl.PlayerID] {
			updated = append(updated, PlayerAggregate{ID: pl.PlayerID, Name: pl.Name})
			known[pl.PlayerID] = true
		}
	}

	for _, pl := range placements {
		res := Result{
			PlayerID:     pl.PlayerID,
			Position:     pl.Position,
			PointsEarned: table.StagePoints(pl.Position, multiplier),
			Paid:         pl.Paid,
		}
		if pl.Position == 1 {
			res.TotalValue = rankingPrize
		}
		entry.Results = append(entry.Results, res)
	}

	byPlayer := resultIndex(entry)
	for i := range updated {
		res, ok := byPlayer[updated[i].ID]
		if !ok {
			updated[i].DayPoints = 0
			continue
		}
		updated[i].PrevPoints = updated[i].TotalPoints
		updated[i].TotalPoints += res.PointsEarned
		updated[i].Attendances++
		if res.Position == 1 {
			updated[i].Wins++
		}
		updated[i].DayPoints = res.PointsEarned
		updated[i].AccumulatedValue += res.TotalValue
	}

	return updated, entry
}

// Revert deletes a history entry and undoes its effect on the aggregates:
// the exact algebraic inverse of Apply for the removed entry, clamped at
// zero. DayPoints and PrevPoints are then recomputed from whatever entry is
// newest in the remaining history - only that one, not a full replay.
func Revert(players []PlayerAggregate, history []HistoryEntry, entryID string) ([]PlayerAggregate, []HistoryEntry, error) {
	idx := -1
	for i, h := range history {
		if h.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, ErrEntryNotFound
	}
	entry := history[idx]

	remaining := make([]HistoryEntry, 0, len(history)-1)
	remaining = append(remaining, history[:idx]...)
	remaining = append(remaining, history[idx+1:]...)

	updated := make([]PlayerAggregate, len(players))
	copy(updated, players)

	byPlayer := resultIndex(entry)
	for i := range updated {
		res, ok := byPlayer[updated[i].ID]
		if !ok {
			continue
		}
		updated[i].TotalPoints = clampInt(updated[i].TotalPoints - res.PointsEarned)
		updated[i].Attendances = clampInt(updated[i].Attendances - 1)
		if res.Position == 1 {
			updated[i].Wins = clampInt(updated[i].Wins - 1)
		}
		updated[i].AccumulatedValue = clampMoney(updated[i].AccumulatedValue - res.TotalValue)
	}

	var latest map[string]Result
	if len(remaining) > 0 {
		// History is kept newest-first.
		latest = resultIndex(remaining[0])
	}
	for i := range updated {
		day := 0
		if res, ok := latest[updated[i].ID]; ok {
			day = res.PointsEarned
		}
		updated[i].DayPoints = day
		updated[i].PrevPoints = updated[i].TotalPoints - day
	}

	return updated, remaining, nil
}

// Standings returns the players ordered by total points, best first. Ties
// keep the incoming order stable.
func Standings(players []PlayerAggregate) []PlayerAggregate {
	out := make([]PlayerAggregate, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPoints > out[j].TotalPoints
	})
	return out
}

func resultIndex(entry HistoryEntry) map[string]Result {
	byPlayer := make(map[string]Result, len(entry.Results))
	for _, res := range entry.Results {
		byPlayer[res.PlayerID] = res
	}
	return byPlayer
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampMoney(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
