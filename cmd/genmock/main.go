// Command genmock writes deterministic synthetic raw batches for one player
// into a raw store, in the same layout the extractor produces. Every game
// carries a legal PGN played out with the chess rules engine, so the output
// also exercises cmd/validate.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -player kasparov_fan \
//	  -raw-dir data/mock/json \
//	  -from 2024-01 -months 6 -games 12 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/notnil/chess"
)

var opponents = []string{"bob_k", "carol_rook", "dan_the_knight", "eve-gambit", "frank_fianchetto", "grace_endgame"}

var timeClasses = []string{"bullet", "blitz", "blitz", "rapid", "daily"}

var openings = []string{
	"Italian-Game-Two-Knights-Defense",
	"Sicilian-Defense-Najdorf-Variation",
	"Queens-Gambit-Declined",
	"Ruy-Lopez-Opening-Berlin-Defense",
	"French-Defense-Advance-Variation",
	"Caro-Kann-Defense",
	"Kings-Indian-Defense",
}

// rawPlayer and rawGame mirror the archive endpoint's JSON shape.
type rawPlayer struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

type rawGame struct {
	URL        string              `json:"url"`
	PGN        string              `json:"pgn"`
	Rated      bool                `json:"rated"`
	TimeClass  string              `json:"time_class"`
	ECO        *string             `json:"eco,omitempty"`
	Accuracies *map[string]float64 `json:"accuracies,omitempty"`
	White      rawPlayer           `json:"white"`
	Black      rawPlayer           `json:"black"`
}

type generator struct {
	player string
	rng    *rand.Rand
	rating int
	nextID int
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	player := flag.String("player", "", "player whose history is generated")
	rawDir := flag.String("raw-dir", "", "raw store root directory")
	from := flag.String("from", "2024-01", "first month, YYYY-MM")
	months := flag.Int("months", 6, "number of consecutive months")
	games := flag.Int("games", 12, "games per month")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *player == "" || *rawDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -player, -raw-dir")
	}
	key, err := domain.PlayerKey(*player)
	if err != nil {
		return err
	}
	start, err := time.Parse("2006-01", *from)
	if err != nil {
		return fmt.Errorf("invalid -from %q: %w", *from, err)
	}
	if *months <= 0 || *games <= 0 {
		return fmt.Errorf("-months and -games must be positive")
	}

	g := &generator{
		player: key,
		rng:    rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)),
		rating: 1500,
		nextID: 100000,
	}
	store := filestore.NewRawStore(*rawDir)

	stats := map[string]int{}
	total := 0
	for i := range *months {
		month := start.AddDate(0, i, 0)
		batch := make([]json.RawMessage, 0, *games)
		for range *games {
			game, result, err := g.game(month)
			if err != nil {
				return fmt.Errorf("generate game: %w", err)
			}
			data, err := json.Marshal(game)
			if err != nil {
				return fmt.Errorf("marshal game: %w", err)
			}
			batch = append(batch, data)
			stats[result]++
		}
		if err := store.Persist(key, month.Year(), int(month.Month()), batch); err != nil {
			return fmt.Errorf("persist %s: %w", month.Format("2006-01"), err)
		}
		total += len(batch)
		log.Printf("%s: %d games", month.Format("2006-01"), len(batch))
	}

	log.Printf("wrote %d games for %s under %s", total, key, store.Root())
	printStats(stats)
	return nil
}

// game plays out one synthetic game in month and returns it with the
// queried player's result code.
func (g *generator) game(month time.Time) (rawGame, string, error) {
	g.nextID++
	day := 1 + g.rng.IntN(daysIn(month))
	date := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC)
	opponent := opponents[g.rng.IntN(len(opponents))]
	oppRating := g.rating - 150 + g.rng.IntN(300)
	playerWhite := g.rng.IntN(2) == 0

	white, black := g.player, opponent
	if !playerWhite {
		white, black = opponent, g.player
	}

	cg := chess.NewGame()
	cg.AddTagPair("Event", "Live Chess")
	cg.AddTagPair("Site", "Chess.com")
	cg.AddTagPair("Date", date.Format("2006.01.02"))
	cg.AddTagPair("White", white)
	cg.AddTagPair("Black", black)

	plies := 10 + g.rng.IntN(70)
	for range plies {
		moves := cg.ValidMoves()
		if len(moves) == 0 || cg.Outcome() != chess.NoOutcome {
			break
		}
		if err := cg.Move(moves[g.rng.IntN(len(moves))]); err != nil {
			return rawGame{}, "", err
		}
	}
	if cg.Outcome() == chess.NoOutcome {
		if err := g.conclude(cg); err != nil {
			return rawGame{}, "", err
		}
	}
	whiteCode, blackCode := resultCodes(cg)

	tc := timeClasses[g.rng.IntN(len(timeClasses))]
	game := rawGame{
		URL:       fmt.Sprintf("https://www.chess.com/game/%s/%d", gameKind(tc), g.nextID),
		PGN:       cg.String(),
		Rated:     g.rng.IntN(10) != 0,
		TimeClass: tc,
	}
	if g.rng.IntN(8) != 0 {
		eco := "https://www.chess.com/openings/" + openings[g.rng.IntN(len(openings))]
		game.ECO = &eco
	}
	if g.rng.IntN(3) != 0 {
		acc := map[string]float64{
			"white": roundAccuracy(45 + g.rng.Float64()*50),
			"black": roundAccuracy(45 + g.rng.Float64()*50),
		}
		game.Accuracies = &acc
	}

	me := rawPlayer{Username: g.player, Rating: g.rating}
	them := rawPlayer{Username: opponent, Rating: oppRating}
	if playerWhite {
		me.Result, them.Result = whiteCode, blackCode
		game.White, game.Black = me, them
	} else {
		me.Result, them.Result = blackCode, whiteCode
		game.White, game.Black = them, me
	}

	g.rating += ratingDelta(domain.ClassifyResult(me.Result))
	return game, me.Result, nil
}

// conclude ends an unfinished game by resignation or agreement.
func (g *generator) conclude(cg *chess.Game) error {
	switch g.rng.IntN(5) {
	case 0:
		return cg.Draw(chess.DrawOffer)
	case 1, 2:
		cg.Resign(chess.Black)
	default:
		cg.Resign(chess.White)
	}
	return nil
}

// resultCodes maps the played-out outcome to chess.com result codes.
func resultCodes(cg *chess.Game) (string, string) {
	switch cg.Outcome() {
	case chess.WhiteWon:
		return "win", loserCode(cg.Method())
	case chess.BlackWon:
		return loserCode(cg.Method()), "win"
	default:
		code := drawCode(cg.Method())
		return code, code
	}
}

func loserCode(m chess.Method) string {
	if m == chess.Checkmate {
		return "checkmated"
	}
	return "resigned"
}

func drawCode(m chess.Method) string {
	switch m {
	case chess.Stalemate:
		return "stalemate"
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return "repetition"
	case chess.InsufficientMaterial:
		return "insufficientmaterial"
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return "50move"
	default:
		return "agreed"
	}
}

func ratingDelta(r domain.Result) int {
	switch r {
	case domain.ResultWin:
		return 8
	case domain.ResultLoss:
		return -8
	default:
		return 0
	}
}

func gameKind(timeClass string) string {
	if timeClass == "daily" {
		return "daily"
	}
	return "live"
}

func roundAccuracy(v float64) float64 {
	return float64(int(v*100)) / 100
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func printStats(stats map[string]int) {
	codes := make([]string, 0, len(stats))
	for c := range stats {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	fmt.Println("\n=== Player result codes ===")
	for _, c := range codes {
		fmt.Printf("  %-14s %4d  (%s)\n", c, stats[c], domain.ClassifyResult(c))
	}
}
