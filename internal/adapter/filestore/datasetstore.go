package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
)

// ErrDatasetNotFound is returned when no dataset has been built for a player.
var ErrDatasetNotFound = errors.New("dataset not found")

const dateLayout = "2006-01-02"

// DatasetStore keeps one CSV artifact per player:
// {root}/{player}/{player}_transformed_games.csv.
type DatasetStore struct {
	root string
}

// NewDatasetStore returns a dataset store rooted at root.
func NewDatasetStore(root string) *DatasetStore {
	return &DatasetStore{root: root}
}

// Path returns the artifact location for player.
func (s *DatasetStore) Path(player string) string {
	return filepath.Join(s.root, player, player+"_transformed_games.csv")
}

// CheckReadiness reports whether the dataset root exists and is a directory.
func (s *DatasetStore) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("dataset root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dataset root %s is not a directory", s.root)
	}
	return nil
}

// Write replaces the player's artifact with d, header row first.
func (s *DatasetStore) Write(d domain.Dataset) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(domain.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, g := range d.Games {
		if err := w.Write(encodeRow(g)); err != nil {
			return fmt.Errorf("write row %s: %w", g.GameID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}

	path := s.Path(d.Player)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

// ModTime returns the artifact's modification time, or ErrDatasetNotFound.
func (s *DatasetStore) ModTime(player string) (time.Time, error) {
	info, err := os.Stat(s.Path(player))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrDatasetNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat dataset: %w", err)
	}
	return info.ModTime(), nil
}

// Read loads the player's persisted dataset. A header-only artifact is an
// empty dataset; a missing artifact is ErrDatasetNotFound.
func (s *DatasetStore) Read(player string) (domain.Dataset, error) {
	f, err := os.Open(s.Path(player))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Dataset{}, ErrDatasetNotFound
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(domain.Columns)
	header, err := r.Read()
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, domain.Columns) {
		return domain.Dataset{}, fmt.Errorf("unexpected dataset header %v", header)
	}

	d := domain.EmptyDataset(player)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("read row: %w", err)
		}
		g, err := decodeRow(rec)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("line %d: %w", line, err)
		}
		d.Games = append(d.Games, g)
	}
	return d, nil
}

func encodeRow(g domain.NormalizedGame) []string {
	var date string
	if g.Date != nil {
		date = g.Date.Format(dateLayout)
	}
	return []string{
		g.GameURL,
		g.GameID,
		date,
		strconv.FormatBool(g.Rated),
		string(g.TimeClass),
		g.Opening,
		formatOptFloat(g.WhiteAccuracy),
		formatOptFloat(g.BlackAccuracy),
		string(g.PlayerColor),
		strconv.Itoa(g.PlayerRating),
		g.OpponentUsername,
		strconv.Itoa(g.OpponentRating),
		string(g.PlayerResult),
	}
}

func decodeRow(rec []string) (domain.NormalizedGame, error) {
	g := domain.NormalizedGame{
		GameURL:          rec[0],
		GameID:           rec[1],
		TimeClass:        domain.TimeClass(rec[4]),
		Opening:          rec[5],
		PlayerColor:      domain.Color(rec[8]),
		OpponentUsername: rec[10],
		PlayerResult:     domain.Result(rec[12]),
	}

	var err error
	if rec[2] != "" {
		t, perr := time.Parse(dateLayout, rec[2])
		if perr != nil {
			return g, fmt.Errorf("date: %w", perr)
		}
		g.Date = &t
	}
	if g.Rated, err = strconv.ParseBool(rec[3]); err != nil {
		return g, fmt.Errorf("rated: %w", err)
	}
	if g.WhiteAccuracy, err = parseOptFloat(rec[6]); err != nil {
		return g, fmt.Errorf("white_accuracy: %w", err)
	}
	if g.BlackAccuracy, err = parseOptFloat(rec[7]); err != nil {
		return g, fmt.Errorf("black_accuracy: %w", err)
	}
	if g.PlayerRating, err = strconv.Atoi(rec[9]); err != nil {
		return g, fmt.Errorf("player_rating: %w", err)
	}
	if g.OpponentRating, err = strconv.Atoi(rec[11]); err != nil {
		return g, fmt.Errorf("opponent_rating: %w", err)
	}
	return g, nil
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
