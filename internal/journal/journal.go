// Package journal is an append-only SQLite log of every applied action,
// enough to rebuild a game by replaying it from its opening world.
package journal

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/rules"
)

// Game identifies one recorded game and what is needed to rebuild its
// opening world. A game started from NewGame has no Base. A branch started
// by restoring a save records the restored world as Base and the game it
// was saved from as Parent.
type Game struct {
	ID        string
	Parent    string
	Seed      uint64
	Company   string
	StartedAt time.Time
	Base      *models.World
}

// Entry is one applied action.
type Entry struct {
	GameID     string
	Seq        int
	Turn       int
	Phase      string
	Kind       rules.Kind
	Params     string // URL-encoded, as produced by Action.Params
	Summary    string
	RecordedAt time.Time
}

// NewEntry fills an entry from an action and its outcome.
func NewEntry(gameID string, seq, turn int, phase string, a rules.Action, out rules.Outcome) Entry {
	return Entry{
		GameID:     gameID,
		Seq:        seq,
		Turn:       turn,
		Phase:      phase,
		Kind:       a.Kind(),
		Params:     a.Params().Encode(),
		Summary:    out.Summary,
		RecordedAt: time.Now().UTC(),
	}
}

// Action decodes the recorded action through p.
func (e Entry) Action(p rules.Parser) (rules.Action, error) {
	v, err := url.ParseQuery(e.Params)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	return p.Parse(string(e.Kind), v)
}

// Journal is a handle to the SQLite database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: writes stay ordered and :memory: stays a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			parent TEXT NOT NULL DEFAULT '',
			seed TEXT NOT NULL,
			company TEXT NOT NULL,
			started_at TEXT NOT NULL,
			base BLOB
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			game_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			phase TEXT NOT NULL,
			kind TEXT NOT NULL,
			params TEXT NOT NULL,
			summary TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (game_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// StartGame registers a game. Registering the same id twice is a no-op, so a
// resumed save keeps appending to its original record.
func (j *Journal) StartGame(g Game) error {
	var base []byte
	if g.Base != nil {
		var err error
		if base, err = models.EncodeWorld(g.Base); err != nil {
			return fmt.Errorf("game %s base: %w", g.ID, err)
		}
	}
	// The seed is stored as text; SQLite integers are signed 64-bit.
	_, err := j.db.Exec(
		`INSERT OR IGNORE INTO games (game_id, parent, seed, company, started_at, base) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Parent, fmt.Sprint(g.Seed), g.Company, g.StartedAt.UTC().Format(time.RFC3339Nano), base,
	)
	return err
}

// Game returns the registration for id.
func (j *Journal) Game(id string) (Game, error) {
	var (
		g       Game
		seed    string
		started string
		base    []byte
	)
	row := j.db.QueryRow(`SELECT game_id, parent, seed, company, started_at, base FROM games WHERE game_id = ?`, id)
	if err := row.Scan(&g.ID, &g.Parent, &seed, &g.Company, &started, &base); err != nil {
		return g, fmt.Errorf("game %s: %w", id, err)
	}
	if _, err := fmt.Sscan(seed, &g.Seed); err != nil {
		return g, fmt.Errorf("game %s seed: %w", id, err)
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return g, fmt.Errorf("game %s started_at: %w", id, err)
	}
	g.StartedAt = t
	if len(base) > 0 {
		if g.Base, err = models.DecodeWorld(base); err != nil {
			return g, fmt.Errorf("game %s base: %w", id, err)
		}
	}
	return g, nil
}

// Record appends e.
func (j *Journal) Record(e Entry) error {
	_, err := j.db.Exec(
		`INSERT INTO actions (game_id, seq, turn, phase, kind, params, summary, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GameID, e.Seq, e.Turn, e.Phase, string(e.Kind), e.Params, e.Summary, e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s #%d: %w", e.GameID, e.Seq, err)
	}
	return nil
}

// LastSeq returns the highest recorded sequence number for a game, or 0.
func (j *Journal) LastSeq(gameID string) (int, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRow(`SELECT MAX(seq) FROM actions WHERE game_id = ?`, gameID).Scan(&seq); err != nil {
		return 0, err
	}
	return int(seq.Int64), nil
}

// Entries returns a game's actions in the order they were applied.
func (j *Journal) Entries(gameID string) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT game_id, seq, turn, phase, kind, params, summary, recorded_at
		 FROM actions WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			kind     string
			recorded string
		)
		if err := rows.Scan(&e.GameID, &e.Seq, &e.Turn, &e.Phase, &kind, &e.Params, &e.Summary, &recorded); err != nil {
			return nil, err
		}
		e.Kind = rules.Kind(kind)
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("entry %d recorded_at: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
