package rules

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

// Kind names an action variant. It doubles as the URL path segment and the
// console command word.
type Kind string

const (
	KindTrain    Kind = "train"
	KindScout    Kind = "scout"
	KindDebut    Kind = "debut"
	KindAdvance  Kind = "advance"
	KindRest     Kind = "rest"
	KindEvaluate Kind = "evaluate"
	KindRelease  Kind = "release"
	KindPromote  Kind = "promote"
	KindDrop     Kind = "drop"
	KindBond     Kind = "bond"
)

// Action is a validated request to change the world. The set of
// implementations is closed.
type Action interface {
	Kind() Kind
	// Params encodes the action's arguments; Parse(Kind(), Params()) yields
	// an equal action.
	Params() url.Values
	sealed()
}

type Train struct {
	Trainee int
	Focus   models.Attribute
}

type Scout struct {
	Candidate int // 1-based position in this turn's pool
	Budget    int
}

type Debut struct{ Trainee int }

type AdvanceTurn struct{}

type Rest struct{ Trainee int }

type Evaluate struct{ Trainee int }

type Release struct {
	Trainee int
	Budget  int
}

type Promote struct {
	Trainee int
	Budget  int
}

type Drop struct{ Trainee int }

type Bond struct{ Trainee int }

func (Train) Kind() Kind       { return KindTrain }
func (Scout) Kind() Kind       { return KindScout }
func (Debut) Kind() Kind       { return KindDebut }
func (AdvanceTurn) Kind() Kind { return KindAdvance }
func (Rest) Kind() Kind        { return KindRest }
func (Evaluate) Kind() Kind    { return KindEvaluate }
func (Release) Kind() Kind     { return KindRelease }
func (Promote) Kind() Kind     { return KindPromote }
func (Drop) Kind() Kind        { return KindDrop }
func (Bond) Kind() Kind        { return KindBond }

func (Train) sealed()       {}
func (Scout) sealed()       {}
func (Debut) sealed()       {}
func (AdvanceTurn) sealed() {}
func (Rest) sealed()        {}
func (Evaluate) sealed()    {}
func (Release) sealed()     {}
func (Promote) sealed()     {}
func (Drop) sealed()        {}
func (Bond) sealed()        {}

func traineeParams(id int) url.Values {
	return url.Values{"trainee": {strconv.Itoa(id)}}
}

func budgetParams(id int, budget int) url.Values {
	v := traineeParams(id)
	v.Set("budget", strconv.Itoa(budget))
	return v
}

func (a Train) Params() url.Values {
	v := traineeParams(a.Trainee)
	v.Set("focus", string(a.Focus))
	return v
}

func (a Scout) Params() url.Values {
	return url.Values{
		"candidate": {strconv.Itoa(a.Candidate)},
		"budget":    {strconv.Itoa(a.Budget)},
	}
}

func (a Debut) Params() url.Values     { return traineeParams(a.Trainee) }
func (AdvanceTurn) Params() url.Values { return url.Values{} }
func (a Rest) Params() url.Values      { return traineeParams(a.Trainee) }
func (a Evaluate) Params() url.Values  { return traineeParams(a.Trainee) }
func (a Release) Params() url.Values   { return budgetParams(a.Trainee, a.Budget) }
func (a Promote) Params() url.Values   { return budgetParams(a.Trainee, a.Budget) }
func (a Drop) Params() url.Values      { return traineeParams(a.Trainee) }
func (a Bond) Params() url.Values      { return traineeParams(a.Trainee) }

// Spec describes an action kind for menus, help text and argument parsing.
type Spec struct {
	Kind   Kind
	Role   string // who takes the action: CEO, Trainee or Calendar
	Phases []models.Phase
	Params []string // positional order for console commands
	Help   string
}

// Specs lists every action kind in menu order.
var Specs = []Spec{
	{KindTrain, "CEO/Trainee", []models.Phase{models.PhaseCEO, models.PhaseTrainee}, []string{"trainee", "focus"}, "Raise one skill; costs fatigue, gains shrink near the cap."},
	{KindScout, "CEO", []models.Phase{models.PhaseCEO}, []string{"candidate", "budget"}, "Spend cash courting one of this turn's candidates."},
	{KindDebut, "CEO", []models.Phase{models.PhaseCEO}, []string{"trainee"}, "Debut a trainee whose skills and tenure meet the bar."},
	{KindRelease, "CEO", []models.Phase{models.PhaseCEO}, []string{"trainee", "budget"}, "Fund a release for a debuted idol."},
	{KindPromote, "CEO", []models.Phase{models.PhaseCEO}, []string{"trainee", "budget"}, "Buy promotion for a debuted idol."},
	{KindDrop, "CEO", []models.Phase{models.PhaseCEO}, []string{"trainee"}, "End a trainee's contract."},
	{KindRest, "Trainee", []models.Phase{models.PhaseTrainee}, []string{"trainee"}, "Recover fatigue."},
	{KindEvaluate, "Trainee", []models.Phase{models.PhaseTrainee}, []string{"trainee"}, "Sit the monthly evaluation; repeated failures end the contract."},
	{KindBond, "Trainee", []models.Phase{models.PhaseTrainee}, []string{"trainee"}, "Spend time with a trainee; builds relationship and a little popularity, once per turn."},
	{KindAdvance, "Calendar", []models.Phase{models.PhaseCEO, models.PhaseTrainee, models.PhaseResolution}, nil, "Move to the next phase; a new turn settles upkeep and income."},
}

// SpecFor returns the spec for k.
func SpecFor(k Kind) (Spec, bool) {
	for _, s := range Specs {
		if s.Kind == k {
			return s, true
		}
	}
	return Spec{}, false
}

// Allowed reports whether the spec may be used during p.
func (s Spec) Allowed(p models.Phase) bool {
	return slices.Contains(s.Phases, p)
}

// Parser turns untrusted key/value input into Actions. Every numeric
// parameter is range-checked against the balance before an Action exists.
type Parser struct {
	b balance.Balance
}

func NewParser(b balance.Balance) Parser {
	return Parser{b: b}
}

// Parse builds the action named by kind from params.
func (p Parser) Parse(kind string, params url.Values) (Action, error) {
	spec, ok := SpecFor(Kind(strings.ToLower(strings.TrimSpace(kind))))
	if !ok {
		return nil, &MalformedRequest{Reason: fmt.Sprintf("unknown action %q", kind)}
	}
	for name := range params {
		if !slices.Contains(spec.Params, name) {
			return nil, &MalformedRequest{Param: name, Reason: fmt.Sprintf("not a parameter of %s", spec.Kind)}
		}
	}

	switch spec.Kind {
	case KindAdvance:
		return AdvanceTurn{}, nil
	case KindScout:
		c, err := intParam(params, "candidate", 1, p.b.PoolSize)
		if err != nil {
			return nil, err
		}
		budget, err := intParam(params, "budget", p.b.ScoutMinBudget, p.b.ScoutMaxBudget)
		if err != nil {
			return nil, err
		}
		return Scout{Candidate: c, Budget: budget}, nil
	}

	id, err := intParam(params, "trainee", 1, 1<<30)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindTrain:
		raw := strings.ToLower(strings.TrimSpace(params.Get("focus")))
		if raw == "" {
			return nil, &MalformedRequest{Param: "focus", Reason: "missing"}
		}
		focus, ok := models.ParseAttribute(raw)
		if !ok {
			return nil, &MalformedRequest{Param: "focus", Reason: fmt.Sprintf("%q is not one of %v", raw, models.Attributes)}
		}
		return Train{Trainee: id, Focus: focus}, nil
	case KindDebut:
		return Debut{Trainee: id}, nil
	case KindRest:
		return Rest{Trainee: id}, nil
	case KindEvaluate:
		return Evaluate{Trainee: id}, nil
	case KindDrop:
		return Drop{Trainee: id}, nil
	case KindBond:
		return Bond{Trainee: id}, nil
	case KindRelease:
		budget, err := intParam(params, "budget", p.b.ReleaseMinBudget, p.b.ReleaseMaxBudget)
		if err != nil {
			return nil, err
		}
		return Release{Trainee: id, Budget: budget}, nil
	case KindPromote:
		budget, err := intParam(params, "budget", p.b.PromoteMinBudget, p.b.PromoteMaxBudget)
		if err != nil {
			return nil, err
		}
		return Promote{Trainee: id, Budget: budget}, nil
	}
	return nil, &MalformedRequest{Reason: fmt.Sprintf("unknown action %q", kind)}
}

// ParseCommand parses a console line such as "train 1 vocal" or
// "scout candidate=2 budget=300". Positional and key=value arguments may be
// mixed; positional ones fill the spec's parameters in order.
func (p Parser) ParseCommand(line string) (Action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &MalformedRequest{Reason: "empty command"}
	}
	spec, ok := SpecFor(Kind(strings.ToLower(fields[0])))
	if !ok {
		return nil, &MalformedRequest{Reason: fmt.Sprintf("unknown action %q", fields[0])}
	}

	params := url.Values{}
	next := 0
	for _, arg := range fields[1:] {
		if k, v, found := strings.Cut(arg, "="); found {
			params.Set(strings.ToLower(k), v)
			continue
		}
		for next < len(spec.Params) && params.Has(spec.Params[next]) {
			next++
		}
		if next >= len(spec.Params) {
			return nil, &MalformedRequest{Reason: fmt.Sprintf("too many arguments for %s", spec.Kind)}
		}
		params.Set(spec.Params[next], arg)
		next++
	}
	return p.Parse(string(spec.Kind), params)
}

func intParam(params url.Values, name string, lo, hi int) (int, error) {
	vals, ok := params[name]
	if !ok || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return 0, &MalformedRequest{Param: name, Reason: "missing"}
	}
	if len(vals) > 1 {
		return 0, &MalformedRequest{Param: name, Reason: "given more than once"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
	if err != nil {
		return 0, &MalformedRequest{Param: name, Reason: fmt.Sprintf("%q is not a whole number", vals[0])}
	}
	if n < lo || n > hi {
		return 0, &MalformedRequest{Param: name, Reason: fmt.Sprintf("%d is outside %d..%d", n, lo, hi)}
	}
	return n, nil
}
