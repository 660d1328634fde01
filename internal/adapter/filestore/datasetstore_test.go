package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testDataset() domain.Dataset {
	day := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	return domain.Dataset{
		Player: "alice",
		Games: []domain.NormalizedGame{
			{
				GameURL:          "https://www.chess.com/game/live/101",
				GameID:           "101",
				Date:             &day,
				Rated:            true,
				TimeClass:        "blitz",
				Opening:          "Italian-Game-Two-Knights-Defense",
				WhiteAccuracy:    ptr(87.25),
				BlackAccuracy:    ptr(0.0),
				PlayerColor:      domain.ColorWhite,
				PlayerRating:     1520,
				OpponentUsername: "bob_k",
				OpponentRating:   1488,
				PlayerResult:     domain.ResultWin,
			},
			{
				GameURL:          "https://www.chess.com/game/daily/102",
				GameID:           "102",
				Rated:            false,
				TimeClass:        "daily",
				Opening:          domain.OpeningNA,
				PlayerColor:      domain.ColorBlack,
				PlayerRating:     1300,
				OpponentUsername: "carol, \"the rook\"",
				OpponentRating:   1350,
				PlayerResult:     domain.ResultNA,
			},
		},
	}
}

func TestDatasetStore_RoundTrip(t *testing.T) {
	s := NewDatasetStore(t.TempDir())
	want := testDataset()

	require.NoError(t, s.Write(want))
	got, err := s.Read("alice")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}
}

func TestDatasetStore_Layout(t *testing.T) {
	root := t.TempDir()
	s := NewDatasetStore(root)
	require.NoError(t, s.Write(testDataset()))

	path := filepath.Join(root, "alice", "alice_transformed_games.csv")
	assert.Equal(t, path, s.Path("alice"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(domain.Columns, ","), lines[0])
	assert.Equal(t,
		"https://www.chess.com/game/live/101,101,2024-03-17,true,blitz,Italian-Game-Two-Knights-Defense,87.25,0,white,1520,bob_k,1488,win",
		lines[1])
	assert.Contains(t, lines[2], ",,,", "absent date and accuracies are empty fields")
}

func TestDatasetStore_Overwrite(t *testing.T) {
	s := NewDatasetStore(t.TempDir())
	full := testDataset()
	require.NoError(t, s.Write(full))

	smaller := domain.Dataset{Player: "alice", Games: full.Games[:1]}
	require.NoError(t, s.Write(smaller))

	got, err := s.Read("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestDatasetStore_NotFound(t *testing.T) {
	s := NewDatasetStore(t.TempDir())

	_, err := s.Read("alice")
	require.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = s.ModTime("alice")
	require.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_HeaderOnlyIsEmpty(t *testing.T) {
	s := NewDatasetStore(t.TempDir())
	require.NoError(t, s.Write(domain.EmptyDataset("alice")))

	got, err := s.Read("alice")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.NotNil(t, got.Games)
}

func TestDatasetStore_RejectsForeignHeader(t *testing.T) {
	root := t.TempDir()
	s := NewDatasetStore(root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alice"), 0o755))
	require.NoError(t, os.WriteFile(s.Path("alice"), []byte("a,b,c,d,e,f,g,h,i,j,k,l,m\n"), 0o644))

	_, err := s.Read("alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_RejectsBadRow(t *testing.T) {
	root := t.TempDir()
	s := NewDatasetStore(root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alice"), 0o755))
	content := strings.Join(domain.Columns, ",") + "\n" +
		"u,1,2024-03-17,maybe,blitz,N/A,,,white,1500,bob,1400,win\n"
	require.NoError(t, os.WriteFile(s.Path("alice"), []byte(content), 0o644))

	_, err := s.Read("alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "rated")
}

func TestDatasetStore_CheckReadiness(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, NewDatasetStore(root).CheckReadiness(context.Background()))

	assert.Error(t, NewDatasetStore(filepath.Join(root, "missing")).CheckReadiness(context.Background()))

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, NewDatasetStore(file).CheckReadiness(context.Background()))
}
