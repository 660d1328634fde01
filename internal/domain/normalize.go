package domain

import (
	"regexp"
	"strings"
	"time"
)

// pgnDateRe matches the PGN Date tag, e.g. [Date "2024.03.17"].
var pgnDateRe = regexp.MustCompile(`\[Date "(.*?)"\]`)

const pgnDateLayout = "2006.01.02"

// Normalize flattens a raw game to the perspective of player. It returns
// ErrPlayerNotInGame when neither side's username matches player
// (case-insensitively). Missing optional data falls back to documented
// defaults and never fails the game.
func Normalize(raw RawGame, player string) (NormalizedGame, error) {
	if err := raw.Validate(); err != nil {
		return NormalizedGame{}, err
	}

	var (
		color         Color
		self, opposed *RawPlayer
	)
	switch {
	case strings.EqualFold(raw.White.Username, player):
		color, self, opposed = ColorWhite, raw.White, raw.Black
	case strings.EqualFold(raw.Black.Username, player):
		color, self, opposed = ColorBlack, raw.Black, raw.White
	default:
		return NormalizedGame{}, ErrPlayerNotInGame
	}

	game := NormalizedGame{
		GameURL:          raw.URL,
		GameID:           lastSegment(raw.URL),
		Date:             ExtractDate(raw.PGN),
		Rated:            raw.Rated,
		TimeClass:        TimeClass(raw.TimeClass),
		Opening:          extractOpening(raw.ECO),
		PlayerColor:      color,
		PlayerRating:     self.Rating,
		OpponentUsername: opposed.Username,
		OpponentRating:   opposed.Rating,
		PlayerResult:     ClassifyResult(self.Result),
	}
	if raw.Accuracies != nil {
		game.WhiteAccuracy = raw.Accuracies.White
		game.BlackAccuracy = raw.Accuracies.Black
	}
	return game, nil
}

// ClassifyResult maps a chess.com outcome code to the player's result
// bucket. Unlisted codes (abandoned, lose, kingofthehill, ...) map to
// ResultNA.
func ClassifyResult(code string) Result {
	switch code {
	case "win":
		return ResultWin
	case "resigned", "timeout", "checkmated":
		return ResultLoss
	case "draw", "stalemate", "insufficientmaterial", "50move", "agreed", "repetition":
		return ResultDraw
	default:
		return ResultNA
	}
}

// ExtractDate returns the date from the PGN Date tag, or nil when the tag
// is missing or not a full YYYY.MM.DD date (chess.com writes "????.??.??"
// for unknown dates).
func ExtractDate(pgn string) *time.Time {
	m := pgnDateRe.FindStringSubmatch(pgn)
	if len(m) != 2 {
		return nil
	}
	d, err := time.Parse(pgnDateLayout, strings.TrimSpace(m[1]))
	if err != nil {
		return nil
	}
	return &d
}

// extractOpening takes the ECO code from the last path segment of the
// opening URL, e.g. ".../openings/Italian-Game" or ".../C50".
func extractOpening(eco *string) string {
	if eco == nil {
		return OpeningNA
	}
	if code := lastSegment(*eco); code != "" {
		return code
	}
	return OpeningNA
}

// lastSegment returns the text after the final slash. A trailing slash
// yields "".
func lastSegment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
