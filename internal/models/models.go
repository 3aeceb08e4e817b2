package models

import "slices"

// Phase is one stage of the turn cycle.
type Phase string

const (
	PhaseCEO        Phase = "CEODecision"
	PhaseTrainee    Phase = "TraineeDecision"
	PhaseResolution Phase = "Resolution"
)

// Next returns the phase that follows p in the cycle.
func (p Phase) Next() Phase {
	switch p {
	case PhaseCEO:
		return PhaseTrainee
	case PhaseTrainee:
		return PhaseResolution
	default:
		return PhaseCEO
	}
}

// Status is the contract status of a trainee.
type Status string

const (
	StatusTrainee Status = "Trainee"
	StatusDebuted Status = "Debuted"
	StatusDropped Status = "Dropped"
)

// Attribute names a trainable skill.
type Attribute string

const (
	Vocal   Attribute = "vocal"
	Dance   Attribute = "dance"
	Visual  Attribute = "visual"
	Stamina Attribute = "stamina"
)

// Attributes lists every skill in display order.
var Attributes = []Attribute{Vocal, Dance, Visual, Stamina}

// ParseAttribute maps a lowercase name onto an Attribute.
func ParseAttribute(s string) (Attribute, bool) {
	a := Attribute(s)
	return a, slices.Contains(Attributes, a)
}

// Skills holds the bounded skill scores of a trainee.
type Skills struct {
	Vocal   int `yaml:"vocal"`
	Dance   int `yaml:"dance"`
	Visual  int `yaml:"visual"`
	Stamina int `yaml:"stamina"`
}

// Get returns the score for a.
func (s Skills) Get(a Attribute) int {
	switch a {
	case Vocal:
		return s.Vocal
	case Dance:
		return s.Dance
	case Visual:
		return s.Visual
	case Stamina:
		return s.Stamina
	}
	return 0
}

// Set stores v as the score for a.
func (s *Skills) Set(a Attribute, v int) {
	switch a {
	case Vocal:
		s.Vocal = v
	case Dance:
		s.Dance = v
	case Visual:
		s.Visual = v
	case Stamina:
		s.Stamina = v
	}
}

// Total is the sum of all skill scores.
func (s Skills) Total() int {
	return s.Vocal + s.Dance + s.Visual + s.Stamina
}

// Trainee is a contracted performer, before or after debut.
type Trainee struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	Skills        Skills `yaml:"skills"`
	Fatigue       int    `yaml:"fatigue"`
	Status        Status `yaml:"status"`
	Tenure        int    `yaml:"tenure"` // turns since recruitment
	Popularity    int    `yaml:"popularity"`
	Relationship  int    `yaml:"relationship"`             // rapport with the agency
	Failures      int    `yaml:"failures"`                 // failed evaluations
	EvaluatedTurn int    `yaml:"evaluated_turn,omitempty"` // last turn an evaluation ran
	BondedTurn    int    `yaml:"bonded_turn,omitempty"`    // last turn the CEO spent time with them
}

// Company is the agency run by the CEO.
type Company struct {
	Name       string `yaml:"name"`
	Cash       int    `yaml:"cash"`
	Reputation int    `yaml:"reputation"`
	InDebt     bool   `yaml:"in_debt"`
	Contracted []int  `yaml:"contracted"` // trainee ids under contract
}

// Calendar tracks turn progression.
type Calendar struct {
	Turn  int   `yaml:"turn"`
	Phase Phase `yaml:"phase"`
}

// World is the complete game state at one point in time.
type World struct {
	GameID     string    `yaml:"game_id"`
	Seed       uint64    `yaml:"seed"` // scouting pool seed
	Calendar   Calendar  `yaml:"calendar"`
	Company    Company   `yaml:"company"`
	Roster     []Trainee `yaml:"roster"`
	NextID     int       `yaml:"next_id"`
	Approached []int     `yaml:"approached,omitempty"` // candidates scouted this turn
	Log        []string  `yaml:"log,omitempty"`        // recent outcome summaries
}

// MaxLog bounds the number of summaries kept in World.Log.
const MaxLog = 10

// Filter selects trainees in ListTrainees. A nil Filter matches everything.
type Filter func(Trainee) bool

// WithStatus matches trainees in any of the given statuses.
func WithStatus(statuses ...Status) Filter {
	return func(t Trainee) bool {
		return slices.Contains(statuses, t.Status)
	}
}

// GetCompany returns a copy of the company record.
func (w *World) GetCompany() Company {
	c := w.Company
	c.Contracted = slices.Clone(w.Company.Contracted)
	return c
}

// GetTrainee returns a copy of the trainee with the given id.
func (w *World) GetTrainee(id int) (Trainee, bool) {
	for _, t := range w.Roster {
		if t.ID == id {
			return t, true
		}
	}
	return Trainee{}, false
}

// ListTrainees returns copies of the trainees matching f, ordered by id.
func (w *World) ListTrainees(f Filter) []Trainee {
	var out []Trainee
	for _, t := range w.Roster {
		if f == nil || f(t) {
			out = append(out, t)
		}
	}
	return out
}

// TraineeRef returns a pointer into the roster for in-place updates. Only the
// resolver calls this, and only on a world it owns.
func (w *World) TraineeRef(id int) *Trainee {
	for i := range w.Roster {
		if w.Roster[i].ID == id {
			return &w.Roster[i]
		}
	}
	return nil
}

// Snapshot returns a deep copy that shares no memory with w.
func (w *World) Snapshot() *World {
	cp := *w
	cp.Company.Contracted = slices.Clone(w.Company.Contracted)
	cp.Roster = slices.Clone(w.Roster)
	cp.Approached = slices.Clone(w.Approached)
	cp.Log = slices.Clone(w.Log)
	return &cp
}

// AppendLog records a summary, dropping the oldest past MaxLog.
func (w *World) AppendLog(s string) {
	w.Log = append(w.Log, s)
	if len(w.Log) > MaxLog {
		w.Log = slices.Clone(w.Log[len(w.Log)-MaxLog:])
	}
}
