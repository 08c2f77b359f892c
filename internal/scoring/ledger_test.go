package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

func testPlayers() []PlayerAggregate {
	return []PlayerAggregate{
		{ID: "p1", Name: "Alice", TotalPoints: 450, PrevPoints: 430, Attendances: 12, Wins: 3, AccumulatedValue: 150},
		{ID: "p2", Name: "Bob", TotalPoints: 410, PrevPoints: 390, Attendances: 10, Wins: 1, AccumulatedValue: 80},
		{ID: "p3", Name: "Carol", TotalPoints: 380, PrevPoints: 380, Attendances: 8, Wins: 2, AccumulatedValue: 200},
	}
}

func TestApplyUpdatesAggregates(t *testing.T) {
	t.Parallel()

	placements := []Placement{
		{PlayerID: "p2", Name: "Bob", Position: 1, Paid: true},
		{PlayerID: "p1", Name: "Alice", Position: 2},
	}

	updated, entry := Apply(testPlayers(), DefaultTable(), placements, 1, 81, "cat-main", "h1", testDate)

	require.Len(t, entry.Results, 2)
	assert.Equal(t, "h1", entry.ID)
	assert.Equal(t, 1, entry.Multiplier)
	assert.Equal(t, "cat-main", entry.CategoryID)

	byID := indexPlayers(updated)

	// Winner: 100 position + 20 attendance, plus the full ranking prize.
	bob := byID["p2"]
	assert.Equal(t, 410+120, bob.TotalPoints)
	assert.Equal(t, 410, bob.PrevPoints)
	assert.Equal(t, 11, bob.Attendances)
	assert.Equal(t, 2, bob.Wins)
	assert.Equal(t, 120, bob.DayPoints)
	assert.Equal(t, 161.0, bob.AccumulatedValue)

	// Runner-up earns points but no prize money.
	alice := byID["p1"]
	assert.Equal(t, 450+100, alice.TotalPoints)
	assert.Equal(t, 3, alice.Wins)
	assert.Equal(t, 150.0, alice.AccumulatedValue, "only the winner accumulates the ranking prize")

	// Absent player: only the day counter resets.
	carol := byID["p3"]
	assert.Equal(t, 380, carol.TotalPoints)
	assert.Equal(t, 8, carol.Attendances)
	assert.Equal(t, 0, carol.DayPoints)
}

func TestApplyDoublePointsStage(t *testing.T) {
	t.Parallel()

	placements := []Placement{{PlayerID: "p1", Name: "Alice", Position: 1}}
	updated, entry := Apply(testPlayers(), DefaultTable(), placements, 2, 50, "cat", "h1", testDate)

	assert.Equal(t, 240, entry.Results[0].PointsEarned, "(100+20)*2")
	assert.Equal(t, 450+240, indexPlayers(updated)["p1"].TotalPoints)
}

func TestApplyCreatesUnknownPlayers(t *testing.T) {
	t.Parallel()

	placements := []Placement{{PlayerID: "p9", Name: "Dave", Position: 3}}
	updated, _ := Apply(testPlayers(), DefaultTable(), placements, 1, 0, "cat", "h1", testDate)

	require.Len(t, updated, 4)
	dave := indexPlayers(updated)["p9"]
	assert.Equal(t, "Dave", dave.Name)
	assert.Equal(t, 80, dave.TotalPoints, "60 position + 20 attendance from a zero base")
	assert.Equal(t, 1, dave.Attendances)
	assert.Equal(t, 0, dave.PrevPoints)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	players := testPlayers()
	Apply(players, DefaultTable(), []Placement{{PlayerID: "p1", Position: 1}}, 1, 10, "cat", "h1", testDate)
	assert.Equal(t, testPlayers(), players)
}

func TestApplyThenRevertRoundTrips(t *testing.T) {
	t.Parallel()

	before := testPlayers()
	placements := []Placement{
		{PlayerID: "p1", Name: "Alice", Position: 1},
		{PlayerID: "p3", Name: "Carol", Position: 2},
	}

	applied, entry := Apply(before, DefaultTable(), placements, 2, 81, "cat", "h1", testDate)
	history := []HistoryEntry{entry}

	reverted, remaining, err := Revert(applied, history, "h1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// With no history left, DayPoints is zero and PrevPoints equals the
	// restored total, which matches the pre-apply fixture exactly for the
	// touched cumulative fields.
	byID := indexPlayers(reverted)
	for _, want := range before {
		got := byID[want.ID]
		assert.Equal(t, want.TotalPoints, got.TotalPoints, want.Name)
		assert.Equal(t, want.Attendances, got.Attendances, want.Name)
		assert.Equal(t, want.Wins, got.Wins, want.Name)
		assert.Equal(t, want.AccumulatedValue, got.AccumulatedValue, want.Name)
		assert.Equal(t, 0, got.DayPoints, want.Name)
		assert.Equal(t, want.TotalPoints, got.PrevPoints, want.Name)
	}
}

func TestRevertClampsAtZero(t *testing.T) {
	t.Parallel()

	// Totals manually edited below what the entry granted: revert must not
	// drive the aggregates negative.
	players := []PlayerAggregate{{ID: "p1", Name: "Alice", TotalPoints: 10, Attendances: 0, Wins: 0, AccumulatedValue: 5}}
	history := []HistoryEntry{{
		ID:      "h1",
		Results: []Result{{PlayerID: "p1", Position: 1, PointsEarned: 120, TotalValue: 81}},
	}}

	reverted, _, err := Revert(players, history, "h1")
	require.NoError(t, err)
	assert.Equal(t, 0, reverted[0].TotalPoints)
	assert.Equal(t, 0, reverted[0].Attendances)
	assert.Equal(t, 0, reverted[0].Wins)
	assert.Equal(t, 0.0, reverted[0].AccumulatedValue)
}

func TestRevertRecomputesDayFromNewLatest(t *testing.T) {
	t.Parallel()

	players := []PlayerAggregate{{ID: "p1", Name: "Alice", TotalPoints: 300, DayPoints: 90, PrevPoints: 210}}
	history := []HistoryEntry{
		{ID: "h3", Results: []Result{{PlayerID: "p1", Position: 2, PointsEarned: 90}}},
		{ID: "h2", Results: []Result{{PlayerID: "p1", Position: 1, PointsEarned: 120}}},
		{ID: "h1", Results: []Result{{PlayerID: "p1", Position: 4, PointsEarned: 60}}},
	}

	// Deleting the newest entry: day points come from h2, the new latest.
	reverted, remaining, err := Revert(players, history, "h3")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "h2", remaining[0].ID)
	assert.Equal(t, 120, reverted[0].DayPoints)
	assert.Equal(t, 210, reverted[0].TotalPoints)
	assert.Equal(t, 90, reverted[0].PrevPoints, "prevPoints = total - day points of the new latest")
}

func TestRevertMissingEntry(t *testing.T) {
	t.Parallel()

	_, _, err := Revert(testPlayers(), nil, "nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestStandingsSortsByTotalPoints(t *testing.T) {
	t.Parallel()

	ordered := Standings(testPlayers())
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, testPlayers()))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Total Points")
	assert.Equal(t, "1,Alice,450,430,12,3,0,150.00", lines[1])
}

func indexPlayers(players []PlayerAggregate) map[string]PlayerAggregate {
	byID := make(map[string]PlayerAggregate, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	return byID
}
