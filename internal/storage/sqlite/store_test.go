package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rankmaster/internal/display"
	"github.com/lox/rankmaster/internal/scoring"
	"github.com/lox/rankmaster/internal/stage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "rankmaster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRankingRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := openTestStore(t)
	state := stage.RankingState{
		ID: "r1",
		Players: []scoring.PlayerAggregate{
			{ID: "p1", Name: "Alice", TotalPoints: 120, Wins: 1, AccumulatedValue: 81},
		},
		History: []scoring.HistoryEntry{
			{
				ID:         "h1",
				Date:       time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
				Multiplier: 1,
				CategoryID: "cat-1",
				Results:    []scoring.Result{{PlayerID: "p1", Position: 1, PointsEarned: 120, TotalValue: 81}},
			},
		},
	}

	require.NoError(t, store.SaveRanking(ctx, state))

	got, ok, err := store.LoadRanking(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)
}

func TestSaveRankingUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := openTestStore(t)
	require.NoError(t, store.SaveRanking(ctx, stage.RankingState{ID: "r1"}))
	require.NoError(t, store.SaveRanking(ctx, stage.RankingState{
		ID:      "r1",
		Players: []scoring.PlayerAggregate{{ID: "p1", Name: "Alice"}},
	}))

	got, ok, err := store.LoadRanking(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Players, 1)

	ids, err := store.ListRankingIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)
}

func TestLoadRankingMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, ok, err := store.LoadRanking(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisplayPublisherWritesPacket(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := openTestStore(t)
	pub := store.DisplayPublisher("house-1")

	packet := display.Packet{
		PlayersRemaining: 3,
		TotalPlayers:     9,
		TotalPrize:       324,
		ITMReached:       false,
		UpdatedAt:        time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishDisplay(ctx, packet))

	got, ok, err := store.LoadDisplay(ctx, "house-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, packet, got)

	// Publishes overwrite, one row per house.
	packet.PlayersRemaining = 2
	require.NoError(t, pub.PublishDisplay(ctx, packet))
	got, _, err = store.LoadDisplay(ctx, "house-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.PlayersRemaining)

	_, ok, err = store.LoadDisplay(ctx, "house-2")
	require.NoError(t, err)
	assert.False(t, ok)
}
