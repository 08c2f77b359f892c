// Package draft persists in-progress stage ledgers as JSON files, one per
// ranking, so an interrupted entry session survives a restart. Drafts are
// local working state only; nothing here reaches the shared store.
package draft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lox/rankmaster/internal/fileutil"
	"github.com/lox/rankmaster/internal/stage"
)

// Store keeps one draft file per key under a base directory.
type Store struct {
	dir string
}

var _ stage.DraftStore = (*Store)(nil)

// NewStore creates a draft store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// LoadDraft returns the saved entries for key, reporting whether a draft
// exists.
func (s *Store) LoadDraft(_ context.Context, key string) ([]stage.Entry, bool, error) {
	var entries []stage.Entry
	err := fileutil.ReadJSON(s.path(key), &entries)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading draft %q: %w", key, err)
	}
	return entries, true, nil
}

// SaveDraft writes the entries for key, replacing any previous draft.
func (s *Store) SaveDraft(_ context.Context, key string, entries []stage.Entry) error {
	if err := fileutil.WriteJSONAtomic(s.path(key), entries, 0o644); err != nil {
		return fmt.Errorf("writing draft %q: %w", key, err)
	}
	return nil
}

// ClearDraft removes the draft for key. Clearing a missing draft is not an
// error.
func (s *Store) ClearDraft(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing draft %q: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

// sanitize maps a draft key to a safe file name.
func sanitize(key string) string {
	if key == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
