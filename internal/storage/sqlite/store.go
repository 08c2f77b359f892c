// Package sqlite is the shared persistence layer: settled rankings and the
// second-screen display packets live here, keyed by ranking and house. The
// stage engine only ever writes whole documents, never partial updates.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/rankmaster/internal/display"
	"github.com/lox/rankmaster/internal/stage"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS rankings (
	id         TEXT PRIMARY KEY,
	players    TEXT NOT NULL,
	history    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS displays (
	house_id   TEXT PRIMARY KEY,
	packet     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is a SQLite-backed implementation of the persistence ports.
type Store struct {
	db *sql.DB
}

var _ stage.RankingStore = (*Store)(nil)

// Open opens (or creates) the store at the given path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRanking upserts the full ranking document in one statement.
func (s *Store) SaveRanking(ctx context.Context, state stage.RankingState) error {
	players, err := json.Marshal(state.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	history, err := json.Marshal(state.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rankings (id, players, history, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			players = excluded.players,
			history = excluded.history,
			updated_at = excluded.updated_at
	`, state.ID, string(players), string(history), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save ranking %q: %w", state.ID, err)
	}
	return nil
}

// LoadRanking fetches a ranking document, reporting whether it exists.
func (s *Store) LoadRanking(ctx context.Context, id string) (stage.RankingState, bool, error) {
	var players, history string
	err := s.db.QueryRowContext(ctx,
		`SELECT players, history FROM rankings WHERE id = ?`, id,
	).Scan(&players, &history)
	if err == sql.ErrNoRows {
		return stage.RankingState{}, false, nil
	}
	if err != nil {
		return stage.RankingState{}, false, fmt.Errorf("load ranking %q: %w", id, err)
	}

	state := stage.RankingState{ID: id}
	if err := json.Unmarshal([]byte(players), &state.Players); err != nil {
		return stage.RankingState{}, false, fmt.Errorf("decode players for %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(history), &state.History); err != nil {
		return stage.RankingState{}, false, fmt.Errorf("decode history for %q: %w", id, err)
	}
	return state, true, nil
}

// ListRankingIDs returns the IDs of every stored ranking.
func (s *Store) ListRankingIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rankings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ranking id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveDisplay upserts the display packet for a house.
func (s *Store) SaveDisplay(ctx context.Context, houseID string, packet display.Packet) error {
	data, err := json.Marshal(packet)
	if err != nil {
		return fmt.Errorf("encode display packet: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO displays (house_id, packet, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(house_id) DO UPDATE SET
			packet = excluded.packet,
			updated_at = excluded.updated_at
	`, houseID, string(data), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save display for %q: %w", houseID, err)
	}
	return nil
}

// LoadDisplay fetches the latest display packet for a house.
func (s *Store) LoadDisplay(ctx context.Context, houseID string) (display.Packet, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT packet FROM displays WHERE house_id = ?`, houseID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return display.Packet{}, false, nil
	}
	if err != nil {
		return display.Packet{}, false, fmt.Errorf("load display for %q: %w", houseID, err)
	}
	var packet display.Packet
	if err := json.Unmarshal([]byte(data), &packet); err != nil {
		return display.Packet{}, false, fmt.Errorf("decode display packet for %q: %w", houseID, err)
	}
	return packet, true, nil
}

// DisplayPublisher adapts the store to the display broadcast port for one
// house.
func (s *Store) DisplayPublisher(houseID string) display.Publisher {
	return displayPublisher{store: s, houseID: houseID}
}

type displayPublisher struct {
	store   *Store
	houseID string
}

func (p displayPublisher) PublishDisplay(ctx context.Context, packet display.Packet) error {
	return p.store.SaveDisplay(ctx, p.houseID, packet)
}
