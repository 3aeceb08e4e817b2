// Package engine owns the single live world and serializes every change to
// it. Both front-ends drive the game through Apply and CurrentView only.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/journal"
	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/rules"
)

// Recorder receives every successfully applied action, and a new game record
// whenever Restore starts a branch.
type Recorder interface {
	StartGame(journal.Game) error
	Record(journal.Entry) error
}

type Engine struct {
	mu    sync.RWMutex
	world *models.World
	seq   int // actions applied to this game so far

	balance balance.Balance
	rec     Recorder
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder journals each applied action. Recording failures are logged
// and never undo the action.
func WithRecorder(r Recorder, lastSeq int) Option {
	return func(e *Engine) {
		e.rec = r
		e.seq = lastSeq
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine takes ownership of a copy of w.
func NewEngine(w *models.World, b balance.Balance, opts ...Option) *Engine {
	e := &Engine{
		world:   w.Snapshot(),
		balance: b,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply resolves a against the live world. At most one Apply runs at a time;
// on error the world is left exactly as it was.
func (e *Engine) Apply(a rules.Action) (rules.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	turn, phase := e.world.Calendar.Turn, e.world.Calendar.Phase
	next, out, err := rules.Resolve(e.world, a, e.balance)
	if err != nil {
		e.log.Debug("action rejected", "kind", actionKind(a), "turn", turn, "phase", phase, "err", err)
		return rules.Outcome{}, err
	}
	e.world = next
	e.seq++
	e.log.Debug("action applied", "kind", a.Kind(), "seq", e.seq, "turn", turn, "phase", phase, "delta", out.Delta.String())

	if e.rec != nil {
		entry := journal.NewEntry(next.GameID, e.seq, turn, string(phase), a, out)
		if err := e.rec.Record(entry); err != nil {
			e.log.Warn("journal write failed", "seq", e.seq, "err", err)
		}
	}
	return out, nil
}

// CurrentView returns an independent snapshot of the live world.
func (e *Engine) CurrentView() *models.World {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.Snapshot()
}

// Restore replaces the live world, e.g. after loading a save, and restarts
// the action sequence. With a recorder attached the restored world gets a new
// game id and is recorded as that game's base. If the record cannot be
// written the live world is left as it was.
func (e *Engine) Restore(w *models.World) error {
	// Normalize through the save encoding so the live world and the journal
	// base are indistinguishable.
	data, err := models.EncodeWorld(w)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	restored, err := models.DecodeWorld(data)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec != nil {
		parent := restored.GameID
		restored.GameID = uuid.NewString()
		g := journal.Game{
			ID:        restored.GameID,
			Parent:    parent,
			Seed:      restored.Seed,
			Company:   restored.Company.Name,
			StartedAt: time.Now().UTC(),
			Base:      restored.Snapshot(),
		}
		if err := e.rec.StartGame(g); err != nil {
			return fmt.Errorf("restore: journal branch: %w", err)
		}
	}
	e.world = restored
	e.seq = 0
	e.log.Info("world restored", "game", restored.GameID, "turn", restored.Calendar.Turn, "phase", restored.Calendar.Phase)
	return nil
}

func actionKind(a rules.Action) rules.Kind {
	if a == nil {
		return ""
	}
	return a.Kind()
}

// Replay applies actions in order to a copy of initial and returns the
// resulting world. Any rejection aborts the replay, since a recorded action
// must have succeeded when it was first applied.
func Replay(initial *models.World, b balance.Balance, actions []rules.Action) (*models.World, error) {
	w := initial.Snapshot()
	for i, a := range actions {
		next, _, err := rules.Resolve(w, a, b)
		if err != nil {
			return nil, fmt.Errorf("replay step %d (%s): %w", i+1, actionKind(a), err)
		}
		w = next
	}
	return w, nil
}

// ReplayJournal rebuilds a recorded game from its journal, starting from the
// game's recorded base or, for a game without one, from NewGame.
func ReplayJournal(j *journal.Journal, gameID string, b balance.Balance) (*models.World, error) {
	g, err := j.Game(gameID)
	if err != nil {
		return nil, err
	}
	entries, err := j.Entries(gameID)
	if err != nil {
		return nil, err
	}
	p := rules.NewParser(b)
	actions := make([]rules.Action, 0, len(entries))
	for _, en := range entries {
		a, err := en.Action(p)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	initial := g.Base
	if initial == nil {
		initial = rules.NewGame(g.Company, g.Seed, b)
	}
	initial.GameID = g.ID
	return Replay(initial, b, actions)
}
