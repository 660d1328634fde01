package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Color is the side the queried player had in a game.
type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// Result is the queried player's outcome bucket.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
	ResultNA   Result = "N/A"
)

// TimeClass is the chess.com time control family (blitz, bullet, rapid,
// daily, ...). Kept open so new source values pass through unchanged.
type TimeClass string

// OpeningNA is the opening value used when a game carries no ECO reference.
const OpeningNA = "N/A"

// RawPlayer is one side of a raw chess.com game.
type RawPlayer struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Accuracies holds the optional engine accuracy scores of a game. Either
// side may be missing; zero is a real score and never a placeholder.
type Accuracies struct {
	White *float64 `json:"white"`
	Black *float64 `json:"black"`
}

// RawGame is the validated intermediate form of one game returned by the
// monthly archive endpoint. Only the fields used downstream are decoded.
type RawGame struct {
	URL        string      `json:"url"`
	PGN        string      `json:"pgn"`
	Rated      bool        `json:"rated"`
	TimeClass  string      `json:"time_class"`
	ECO        *string     `json:"eco"`
	Accuracies *Accuracies `json:"accuracies"`
	White      *RawPlayer  `json:"white"`
	Black      *RawPlayer  `json:"black"`
}

// NormalizedGame is one game flattened to the queried player's perspective.
// Field order matches the persisted column order.
type NormalizedGame struct {
	GameURL          string     `json:"game_url"`
	GameID           string     `json:"game_id"`
	Date             *time.Time `json:"date"`
	Rated            bool       `json:"rated"`
	TimeClass        TimeClass  `json:"time_class"`
	Opening          string     `json:"opening"`
	WhiteAccuracy    *float64   `json:"white_accuracy"`
	BlackAccuracy    *float64   `json:"black_accuracy"`
	PlayerColor      Color      `json:"player_color"`
	PlayerRating     int        `json:"player_rating"`
	OpponentUsername string     `json:"opponent_username"`
	OpponentRating   int        `json:"opponent_rating"`
	PlayerResult     Result     `json:"player_result"`
}

// ParseRawGame decodes one raw game and checks the fields every game must
// carry: the game URL and both sides with a username.
func ParseRawGame(data json.RawMessage) (RawGame, error) {
	var g RawGame
	if err := json.Unmarshal(data, &g); err != nil {
		return RawGame{}, fmt.Errorf("parse raw game: %w", err)
	}
	if err := g.Validate(); err != nil {
		return RawGame{}, err
	}
	return g, nil
}

// Validate reports the first mandatory field missing from the game.
func (g RawGame) Validate() error {
	switch {
	case g.URL == "":
		return fmt.Errorf("%w: url", ErrMissingField)
	case g.White == nil || g.White.Username == "":
		return fmt.Errorf("%w: white", ErrMissingField)
	case g.Black == nil || g.Black.Username == "":
		return fmt.Errorf("%w: black", ErrMissingField)
	}
	return nil
}
