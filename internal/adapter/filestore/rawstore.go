// Package filestore persists raw monthly batches as JSON and built datasets
// as CSV under the configured data roots.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
)

// Months are not zero-padded: alice_2024_3.json.
var batchFileRe = regexp.MustCompile(`^(.+)_(\d{4})_([1-9]|1[0-2])\.json$`)

// RawStore keeps one JSON file per player and month:
// {root}/{player}/{player}_{year}_{month}.json.
type RawStore struct {
	root string
}

// NewRawStore returns a raw store rooted at root. The directory is created
// lazily on the first write.
func NewRawStore(root string) *RawStore {
	return &RawStore{root: root}
}

// Root returns the store's root directory.
func (s *RawStore) Root() string { return s.root }

// Persist writes the raw games of one month, replacing any previous batch.
// Identical input produces a byte-identical file.
func (s *RawStore) Persist(player string, year, month int, games []json.RawMessage) error {
	if games == nil {
		games = []json.RawMessage{}
	}
	// Game URLs and PGNs keep their & < > unescaped.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(games); err != nil {
		return fmt.Errorf("encode batch %s/%04d-%02d: %w", player, year, month, err)
	}

	dir := s.playerDir(player)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create player dir: %w", err)
	}
	return writeAtomic(filepath.Join(dir, batchName(player, year, month)), buf.Bytes())
}

// Exists reports whether the batch for (year, month) is already stored.
func (s *RawStore) Exists(player string, year, month int) bool {
	info, err := os.Stat(filepath.Join(s.playerDir(player), batchName(player, year, month)))
	return err == nil && info.Mode().IsRegular()
}

// ListBatches returns the player's stored batches, oldest first. Files not
// following the batch naming scheme are ignored. A player without a
// directory has no batches.
func (s *RawStore) ListBatches(player string) ([]domain.BatchRef, error) {
	entries, err := os.ReadDir(s.playerDir(player))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list batches for %s: %w", player, err)
	}

	var refs []domain.BatchRef
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		m := batchFileRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != player {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		month, _ := strconv.Atoi(m[3])
		refs = append(refs, domain.BatchRef{Player: player, Year: year, Month: month})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Before(refs[j]) })
	return refs, nil
}

// ReadBatch returns the raw games of one stored batch.
func (s *RawStore) ReadBatch(ref domain.BatchRef) ([]json.RawMessage, error) {
	path := filepath.Join(s.playerDir(ref.Player), batchName(ref.Player, ref.Year, ref.Month))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", ref, err)
	}
	var games []json.RawMessage
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", ref, err)
	}
	return games, nil
}

// RemoveIfEmpty deletes the player's directory when it exists and holds no
// entries. It reports whether a directory was removed.
func (s *RawStore) RemoveIfEmpty(player string) (bool, error) {
	dir := s.playerDir(player)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect player dir: %w", err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, fmt.Errorf("remove player dir: %w", err)
	}
	return true, nil
}

func (s *RawStore) playerDir(player string) string {
	return filepath.Join(s.root, player)
}

func batchName(player string, year, month int) string {
	return fmt.Sprintf("%s_%d_%d.json", player, year, month)
}

// writeAtomic replaces path with data via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
