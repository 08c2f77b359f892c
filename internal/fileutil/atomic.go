// Package fileutil has the small file-system helpers the draft and config
// stores share.
package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic replaces filename with data via a temp file and rename in the
// same directory, so a reader sees either the old content or the new content,
// never a torn write.
func WriteAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	// Rename within one directory keeps the swap on a single filesystem,
	// which is what makes it atomic.
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replacing %s: %w", filename, err)
	}
	return nil
}

// WriteJSONAtomic marshals v with indentation and writes it atomically.
// Parent directories are created as needed.
func WriteJSONAtomic(filename string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", filename, err)
	}
	return WriteAtomic(filename, data, perm)
}

// ReadJSON unmarshals filename into v. A missing file is reported via
// os.IsNotExist on the returned error.
func ReadJSON(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filename, err)
	}
	return nil
}
