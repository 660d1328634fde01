package domain

import (
	"sort"
	"time"
)

// Columns is the persisted column order of a dataset.
var Columns = []string{
	"game_url",
	"game_id",
	"date",
	"rated",
	"time_class",
	"opening",
	"white_accuracy",
	"black_accuracy",
	"player_color",
	"player_rating",
	"opponent_username",
	"opponent_rating",
	"player_result",
}

// Dataset is the complete set of normalized games of one player, in batch
// discovery order. A dataset with no games is a valid "nothing to show"
// state, distinct from a dataset that was never built.
type Dataset struct {
	Player string           `json:"player"`
	Games  []NormalizedGame `json:"games"`
}

// EmptyDataset returns the explicit empty dataset for player.
func EmptyDataset(player string) Dataset {
	return Dataset{Player: player, Games: []NormalizedGame{}}
}

// IsEmpty reports whether the dataset holds no games.
func (d Dataset) IsEmpty() bool { return len(d.Games) == 0 }

// Len returns the number of games.
func (d Dataset) Len() int { return len(d.Games) }

// Between returns the games dated within [from, to], both days inclusive.
// A zero bound is open. Undated games are kept only when both bounds are
// open.
func (d Dataset) Between(from, to time.Time) Dataset {
	if from.IsZero() && to.IsZero() {
		return d
	}
	out := EmptyDataset(d.Player)
	for _, g := range d.Games {
		if g.Date == nil {
			continue
		}
		if !from.IsZero() && g.Date.Before(truncateDay(from)) {
			continue
		}
		if !to.IsZero() && g.Date.After(truncateDay(to)) {
			continue
		}
		out.Games = append(out.Games, g)
	}
	return out
}

// DateRange returns the first and last game dates, or zero times when no
// game is dated.
func (d Dataset) DateRange() (time.Time, time.Time) {
	var first, last time.Time
	for _, g := range d.Games {
		if g.Date == nil {
			continue
		}
		if first.IsZero() || g.Date.Before(first) {
			first = *g.Date
		}
		if last.IsZero() || g.Date.After(last) {
			last = *g.Date
		}
	}
	return first, last
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// OpeningCount is the number of games played with one opening.
type OpeningCount struct {
	Opening string `json:"opening"`
	Games   int    `json:"games"`
}

// TimeClassSummary aggregates the games of one time class.
type TimeClassSummary struct {
	TimeClass         TimeClass        `json:"time_class"`
	Games             int              `json:"games"`
	Results           map[Result]int   `json:"results"`
	AvgOpponentRating float64          `json:"avg_opponent_rating"`
	TopOpenings       []OpeningCount   `json:"top_openings"`
	Ratings           []RatingSnapshot `json:"ratings"`
}

// RatingSnapshot is the player's rating after a dated game.
type RatingSnapshot struct {
	Date   time.Time `json:"date"`
	Rating int       `json:"rating"`
}

// Summary is the aggregate view the presentation layer charts.
type Summary struct {
	Player      string             `json:"player"`
	TotalGames  int                `json:"total_games"`
	FirstGame   *time.Time         `json:"first_game,omitempty"`
	LastGame    *time.Time         `json:"last_game,omitempty"`
	TimeClasses []TimeClassSummary `json:"time_classes"`
}

// MaxTopOpenings caps the opening ranking per time class.
const MaxTopOpenings = 20

// Summarize aggregates a dataset per time class: result distribution,
// mean opponent rating, rating history and the topOpenings most played
// openings. Time classes are ordered by game count, then name.
func Summarize(d Dataset, topOpenings int) Summary {
	if topOpenings <= 0 || topOpenings > MaxTopOpenings {
		topOpenings = MaxTopOpenings
	}

	s := Summary{Player: d.Player, TotalGames: d.Len(), TimeClasses: []TimeClassSummary{}}
	if first, last := d.DateRange(); !first.IsZero() {
		s.FirstGame, s.LastGame = &first, &last
	}

	type acc struct {
		sum       TimeClassSummary
		ratingSum int
		openings  map[string]int
	}
	byClass := make(map[TimeClass]*acc)
	for _, g := range d.Games {
		a, ok := byClass[g.TimeClass]
		if !ok {
			a = &acc{
				sum:      TimeClassSummary{TimeClass: g.TimeClass, Results: map[Result]int{}},
				openings: map[string]int{},
			}
			byClass[g.TimeClass] = a
		}
		a.sum.Games++
		a.sum.Results[g.PlayerResult]++
		a.ratingSum += g.OpponentRating
		a.openings[g.Opening]++
		if g.Date != nil {
			a.sum.Ratings = append(a.sum.Ratings, RatingSnapshot{Date: *g.Date, Rating: g.PlayerRating})
		}
	}

	for _, a := range byClass {
		a.sum.AvgOpponentRating = float64(a.ratingSum) / float64(a.sum.Games)
		a.sum.TopOpenings = rankOpenings(a.openings, topOpenings)
		sort.SliceStable(a.sum.Ratings, func(i, j int) bool {
			return a.sum.Ratings[i].Date.Before(a.sum.Ratings[j].Date)
		})
		s.TimeClasses = append(s.TimeClasses, a.sum)
	}
	sort.Slice(s.TimeClasses, func(i, j int) bool {
		if s.TimeClasses[i].Games != s.TimeClasses[j].Games {
			return s.TimeClasses[i].Games > s.TimeClasses[j].Games
		}
		return s.TimeClasses[i].TimeClass < s.TimeClasses[j].TimeClass
	})
	return s
}

func rankOpenings(counts map[string]int, n int) []OpeningCount {
	out := make([]OpeningCount, 0, len(counts))
	for opening, games := range counts {
		out = append(out, OpeningCount{Opening: opening, Games: games})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Opening < out[j].Opening
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
