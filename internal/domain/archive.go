package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrPlayerNotInGame marks a game in which the queried player did not
	// take part. Such games are dropped, never kept with empty fields.
	ErrPlayerNotInGame = errors.New("player not in game")

	// ErrMissingField marks a raw game without one of its mandatory fields.
	ErrMissingField = errors.New("missing mandatory field")

	// ErrInvalidPlayer marks a player identifier that cannot address the API
	// or the stores.
	ErrInvalidPlayer = errors.New("invalid player identifier")
)

// chess.com usernames: letters, digits, underscore and hyphen.
var playerRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// PlayerKey validates a player identifier and returns the lower-cased form
// used in API paths and store locations.
func PlayerKey(player string) (string, error) {
	player = strings.TrimSpace(player)
	if !playerRe.MatchString(player) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlayer, player)
	}
	return strings.ToLower(player), nil
}

// ArchiveLocator identifies one (player, year, month) bucket of games on the
// source service, e.g. https://api.chess.com/pub/player/alice/games/2024/03.
type ArchiveLocator string

// YearMonth extracts the year and month from the last two path segments.
func (l ArchiveLocator) YearMonth() (int, int, error) {
	parts := strings.Split(strings.TrimRight(string(l), "/"), "/")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("archive locator %q: too few segments", l)
	}
	year, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, 0, fmt.Errorf("archive locator %q: year: %w", l, err)
	}
	month, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("archive locator %q: month: %w", l, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("archive locator %q: month %d out of range", l, month)
	}
	return year, month, nil
}

// BatchRef addresses one persisted raw batch.
type BatchRef struct {
	Player string
	Year   int
	Month  int
}

func (b BatchRef) String() string {
	return fmt.Sprintf("%s/%04d-%02d", b.Player, b.Year, b.Month)
}

// Before orders batches chronologically.
func (b BatchRef) Before(o BatchRef) bool {
	if b.Year != o.Year {
		return b.Year < o.Year
	}
	return b.Month < o.Month
}
