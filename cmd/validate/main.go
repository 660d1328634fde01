// Command validate performs data integrity checks on one player's stored
// history: the raw monthly batches, the PGN of every game, and (optionally)
// the built dataset. It verifies that each batch decodes, that each PGN
// parses under the chess rules, that PGN tags agree with the JSON fields,
// and that the persisted dataset matches a fresh normalization of the raw
// store.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -player kasparov_fan \
//	  -raw-dir data/json \
//	  -dataset-dir data/transformed
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/chess-data-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/notnil/chess"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// storedGame is one decoded raw game with its batch of origin.
type storedGame struct {
	batch domain.BatchRef
	index int
	raw   domain.RawGame
}

func (g storedGame) label() string {
	return fmt.Sprintf("%s #%d (%s)", g.batch, g.index, g.raw.URL)
}

func main() {
	player := flag.String("player", "", "player whose history is validated")
	rawDir := flag.String("raw-dir", "", "raw store root directory")
	datasetDir := flag.String("dataset-dir", "", "dataset store root directory (optional)")
	flag.Parse()

	if *player == "" || *rawDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*player, *rawDir, *datasetDir); code != 0 {
		os.Exit(code)
	}
}

func run(player, rawDir, datasetDir string) int {
	key, err := domain.PlayerKey(player)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== Chess History Integrity Validation ===")
	fmt.Println()

	raw := filestore.NewRawStore(rawDir)
	refs, err := raw.ListBatches(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list batches: %v\n", err)
		return 1
	}
	if len(refs) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no raw batches for %s under %s\n", key, rawDir)
		return 1
	}

	batches, games := validateBatches(raw, refs)
	phases := []*phase{
		batches,
		validatePGN(games),
		validateParticipation(key, games),
	}
	if datasetDir != "" {
		phases = append(phases, validateDataset(key, games, filestore.NewDatasetStore(datasetDir)))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Batches: %d, games: %d\n", len(refs), len(games))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Raw batches ──
// Every batch decodes and every game carries its mandatory fields.

func validateBatches(raw *filestore.RawStore, refs []domain.BatchRef) (*phase, []storedGame) {
	p := &phase{name: "Phase 1: Raw Batches (JSON)"}

	var games []storedGame
	seen := map[string]domain.BatchRef{}
	for _, ref := range refs {
		items, err := raw.ReadBatch(ref)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if len(items) == 0 {
			p.errorf("%s: batch is empty", ref)
		}
		for i, item := range items {
			g, err := domain.ParseRawGame(item)
			if err != nil {
				p.errorf("%s #%d: %v", ref, i, err)
				continue
			}
			if prev, dup := seen[g.URL]; dup {
				p.errorf("%s #%d: game %s already stored in %s", ref, i, g.URL, prev)
			}
			seen[g.URL] = ref
			games = append(games, storedGame{batch: ref, index: i, raw: g})
		}
	}
	return p, games
}

// ── Phase 2: PGN ──
// Every PGN parses, has moves, and its tags agree with the JSON fields.

func validatePGN(games []storedGame) *phase {
	p := &phase{name: "Phase 2: PGN Consistency (chess rules)"}

	for _, g := range games {
		if strings.TrimSpace(g.raw.PGN) == "" {
			p.errorf("%s: missing PGN", g.label())
			continue
		}
		cg := chess.NewGame()
		if err := cg.UnmarshalText([]byte(g.raw.PGN)); err != nil {
			p.errorf("%s: PGN does not parse: %v", g.label(), err)
			continue
		}
		if len(cg.Moves()) == 0 {
			p.errorf("%s: PGN has no moves", g.label())
		}
		checkTags(p, g, cg)
	}
	return p
}

func checkTags(p *phase, g storedGame, cg *chess.Game) {
	if tag := cg.GetTagPair("White"); tag != nil && !strings.EqualFold(tag.Value, g.raw.White.Username) {
		p.errorf("%s: White tag %q, JSON white %q", g.label(), tag.Value, g.raw.White.Username)
	}
	if tag := cg.GetTagPair("Black"); tag != nil && !strings.EqualFold(tag.Value, g.raw.Black.Username) {
		p.errorf("%s: Black tag %q, JSON black %q", g.label(), tag.Value, g.raw.Black.Username)
	}

	date := domain.ExtractDate(g.raw.PGN)
	tag := cg.GetTagPair("Date")
	switch {
	case tag == nil && date != nil:
		p.errorf("%s: date extracted without a Date tag", g.label())
	case tag != nil && date == nil && !strings.Contains(tag.Value, "?"):
		p.errorf("%s: Date tag %q not extracted", g.label(), tag.Value)
	case date != nil && afterBatch(date.Year(), int(date.Month()), g.batch):
		// Daily games start before the archive month they end in, never after.
		p.errorf("%s: dated %s, after its archive month", g.label(), date.Format("2006-01-02"))
	}
}

func afterBatch(year, month int, ref domain.BatchRef) bool {
	return ref.Before(domain.BatchRef{Year: year, Month: month})
}

// ── Phase 3: Participation ──
// Reports how many games involve the player, and flags foreign games that
// would be dropped by the transform.

func validateParticipation(player string, games []storedGame) *phase {
	p := &phase{name: "Phase 3: Player Participation"}

	var foreign int
	for _, g := range games {
		if _, err := domain.Normalize(g.raw, player); err != nil {
			foreign++
		}
	}
	if foreign == len(games) && len(games) > 0 {
		p.errorf("none of %d games involve %s", len(games), player)
	}
	if foreign > 0 {
		fmt.Printf("  Note: %d game(s) do not involve %s and are dropped by the transform\n", foreign, player)
	}
	return p
}

// ── Phase 4: Dataset ──
// The persisted dataset equals a fresh normalization of the raw store.

func validateDataset(player string, games []storedGame, store *filestore.DatasetStore) *phase {
	p := &phase{name: "Phase 4: Dataset Parity (CSV vs raw)"}

	want := domain.EmptyDataset(player)
	for _, g := range games {
		ng, err := domain.Normalize(g.raw, player)
		if err != nil {
			continue
		}
		want.Games = append(want.Games, ng)
	}

	got, err := store.Read(player)
	if err != nil {
		if want.IsEmpty() {
			return p
		}
		p.errorf("read dataset: %v", err)
		return p
	}

	if got.Len() != want.Len() {
		p.errorf("row count: expected %d, got %d", want.Len(), got.Len())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		p.errorf("dataset differs from raw store (-want +got):\n%s", diff)
	}
	if data, err := json.Marshal(domain.Summarize(got, 3)); err == nil {
		fmt.Printf("  Summary: %s\n", data)
	}
	return p
}
