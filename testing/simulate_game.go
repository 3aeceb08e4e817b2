package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/config"
	"github.com/tatianab/idolab/internal/engine"
	"github.com/tatianab/idolab/internal/journal"
	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/narrator"
	"github.com/tatianab/idolab/internal/rules"
)

func main() {
	var (
		maxTurns = flag.Int("turns", 20, "turns to play")
		seed     = flag.Uint64("seed", 2024, "game seed")
		useLLM   = flag.Bool("llm", false, "let Gemini pick actions (needs GEMINI_API_KEY)")
	)
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	b := balance.Default()
	j, err := journal.Open(":memory:")
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	w := rules.NewGame(cfg.Company, *seed, b)
	if err := j.StartGame(journal.Game{ID: w.GameID, Seed: w.Seed, Company: w.Company.Name}); err != nil {
		log.Fatalf("Failed to start journal: %v", err)
	}
	eng := engine.NewEngine(w, b, engine.WithRecorder(j, 0))

	var player *genai.GenerativeModel
	if *useLLM {
		if cfg.GeminiAPIKey == "" {
			log.Fatalf("-llm needs GEMINI_API_KEY")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer client.Close()
		player = client.GenerativeModel("gemini-2.5-flash")
	}

	applied := 0
	for eng.CurrentView().Calendar.Turn <= *maxTurns {
		view := eng.CurrentView()
		choices := rules.Legal(view, b)
		if len(choices) == 0 {
			log.Fatalf("no legal actions at turn %d %s", view.Calendar.Turn, view.Calendar.Phase)
		}

		pick := scriptedPick(view, choices)
		if player != nil {
			pick = llmPick(ctx, player, view, choices, pick)
		}

		out, err := eng.Apply(choices[pick].Action)
		if err != nil {
			log.Fatalf("legal action %q rejected: %v", choices[pick].Label, err)
		}
		applied++
		if view.Calendar.Phase != eng.CurrentView().Calendar.Phase {
			fmt.Printf("--- Turn %d, %s ---\n", eng.CurrentView().Calendar.Turn, eng.CurrentView().Calendar.Phase)
		}
		fmt.Printf("%-32s %s\n", choices[pick].Label, out.Delta)
	}

	final := eng.CurrentView()
	fmt.Printf("\nAfter %d actions: cash %d, reputation %d, roster %d\n",
		applied, final.Company.Cash, final.Company.Reputation, len(final.Company.Contracted))
	for _, t := range final.ListTrainees(nil) {
		fmt.Printf("  %-10s %-8s total %3d popularity %d\n", t.Name, t.Status, t.Skills.Total(), t.Popularity)
	}

	replayed, err := engine.ReplayJournal(j, final.GameID, b)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
	if !reflect.DeepEqual(replayed, final) {
		log.Fatalf("Replay diverged from the live game")
	}
	fmt.Println("Journal replay matches the live game.")

	if cfg.GeminiAPIKey != "" {
		n, err := narrator.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create narrator: %v", err)
		}
		defer n.Close()
		a, err := n.Recap(ctx, final)
		if err != nil {
			fmt.Printf("Recap failed: %v\n", err)
			return
		}
		fmt.Printf("\n%s\n", a)
	}
}

// scriptedPick is a greedy manager: debut whoever qualifies, release when
// flush, rest the tired, evaluate the strong, bond with the distant, train
// the weakest skill while fresh, and otherwise move the calendar on.
// AdvanceTurn is always the last choice.
func scriptedPick(w *models.World, choices []rules.Choice) int {
	advance := len(choices) - 1
	first := func(match func(rules.Action) bool) int {
		for i, c := range choices[:advance] {
			if match(c.Action) {
				return i
			}
		}
		return -1
	}

	if i := first(func(a rules.Action) bool { _, ok := a.(rules.Debut); return ok }); i >= 0 {
		return i
	}
	if w.Company.Cash > 1500 {
		if i := first(func(a rules.Action) bool { _, ok := a.(rules.Release); return ok }); i >= 0 {
			return i
		}
	}
	if w.Calendar.Phase == models.PhaseTrainee {
		if i := first(func(a rules.Action) bool {
			r, ok := a.(rules.Rest)
			if !ok {
				return false
			}
			t, _ := w.GetTrainee(r.Trainee)
			return t.Fatigue >= 50
		}); i >= 0 {
			return i
		}
		if i := first(func(a rules.Action) bool {
			e, ok := a.(rules.Evaluate)
			if !ok {
				return false
			}
			t, _ := w.GetTrainee(e.Trainee)
			return t.Skills.Total() >= 200
		}); i >= 0 {
			return i
		}
		if i := first(func(a rules.Action) bool {
			bd, ok := a.(rules.Bond)
			if !ok {
				return false
			}
			t, _ := w.GetTrainee(bd.Trainee)
			return t.Relationship < 50
		}); i >= 0 {
			return i
		}
	}
	if i := first(func(a rules.Action) bool {
		tr, ok := a.(rules.Train)
		if !ok {
			return false
		}
		t, _ := w.GetTrainee(tr.Trainee)
		return t.Fatigue < 50 && tr.Focus == weakest(t.Skills)
	}); i >= 0 {
		return i
	}
	return advance
}

func weakest(s models.Skills) models.Attribute {
	low := models.Attributes[0]
	for _, a := range models.Attributes[1:] {
		if s.Get(a) < s.Get(low) {
			low = a
		}
	}
	return low
}

// llmPick asks the player model for a choice number, falling back to the
// scripted pick on any error.
func llmPick(ctx context.Context, m *genai.GenerativeModel, w *models.World, choices []rules.Choice, fallback int) int {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You run the idol agency %s. Turn %d, phase %s. Cash %d, reputation %d.\n",
		w.Company.Name, w.Calendar.Turn, w.Calendar.Phase, w.Company.Cash, w.Company.Reputation)
	for _, t := range w.ListTrainees(models.WithStatus(models.StatusTrainee, models.StatusDebuted)) {
		fmt.Fprintf(&sb, "- %s (%s) skills %+v fatigue %d\n", t.Name, t.Status, t.Skills, t.Fatigue)
	}
	sb.WriteString("Choose one action by number:\n")
	for i, c := range choices {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Label)
	}
	sb.WriteString("Return ONLY the number.")

	resp, err := m.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])))
	if err != nil || n < 1 || n > len(choices) {
		return fallback
	}
	return n - 1
}
