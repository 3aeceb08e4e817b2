// Package rules resolves actions against a world. Resolution never mutates
// its input: each call works on a private snapshot and returns it.
package rules

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

// Resolve applies a to a copy of w. On success the copy and an outcome are
// returned; on failure the error is a *RuleViolation and w is untouched.
func Resolve(w *models.World, a Action, b balance.Balance) (*models.World, Outcome, error) {
	if a == nil {
		return nil, Outcome{}, &MalformedRequest{Reason: "no action"}
	}
	spec, ok := SpecFor(a.Kind())
	if !ok {
		return nil, Outcome{}, &MalformedRequest{Reason: fmt.Sprintf("unknown action %q", a.Kind())}
	}
	if !spec.Allowed(w.Calendar.Phase) {
		return nil, Outcome{}, violation(CodeWrongPhase, "%s is not allowed during %s", a.Kind(), w.Calendar.Phase)
	}

	next := w.Snapshot()
	var (
		summary string
		err     error
	)
	switch a := a.(type) {
	case Train:
		summary, err = train(next, a, b)
	case Scout:
		summary, err = scout(next, a, b)
	case Debut:
		summary, err = debut(next, a, b)
	case AdvanceTurn:
		summary = advance(next, b)
	case Rest:
		summary, err = rest(next, a, b)
	case Evaluate:
		summary, err = evaluate(next, a, b)
	case Release:
		summary, err = release(next, a, b)
	case Promote:
		summary, err = promote(next, a, b)
	case Drop:
		summary, err = drop(next, a)
	case Bond:
		summary, err = bond(next, a, b)
	}
	if err != nil {
		return nil, Outcome{}, err
	}

	next.AppendLog(summary)
	return next, Outcome{Action: a.Kind(), Summary: summary, Delta: diff(w, next)}, nil
}

// lookup finds a trainee in one of the wanted statuses.
func lookup(w *models.World, id int, want ...models.Status) (*models.Trainee, error) {
	t := w.TraineeRef(id)
	if t == nil {
		return nil, violation(CodeUnknownTrainee, "no trainee with id %d", id)
	}
	if slices.Contains(want, t.Status) {
		return t, nil
	}
	switch t.Status {
	case models.StatusDebuted:
		return nil, violation(CodeBadStatus, "%s has already debuted", t.Name)
	case models.StatusDropped:
		return nil, violation(CodeBadStatus, "%s is no longer under contract", t.Name)
	default:
		return nil, violation(CodeBadStatus, "%s has not debuted yet", t.Name)
	}
}

// spend checks and deducts a budget from the company.
func spend(w *models.World, budget, lo, hi int) error {
	c := &w.Company
	if c.InDebt {
		return violation(CodeDebt, "company is in debt (cash %d)", c.Cash)
	}
	if budget < lo || budget > hi {
		return violation(CodeBudget, "budget %d outside %d..%d", budget, lo, hi)
	}
	if c.Cash < budget {
		return violation(CodeFunds, "insufficient cash: need %d, have %d", budget, c.Cash)
	}
	c.Cash -= budget
	return nil
}

func addReputation(w *models.World, n int, b balance.Balance) {
	w.Company.Reputation = min(max(w.Company.Reputation+n, 0), b.ReputationMax)
}

// TrainingGain is the increase from one session at value v: a fixed share of
// the remaining headroom, at least 1, never past the cap.
func TrainingGain(v int, b balance.Balance) int {
	if v >= b.SkillMax {
		return 0
	}
	gain := int(math.Round(float64(b.SkillMax-v) * b.TrainRate))
	return min(max(gain, 1), b.SkillMax-v)
}

func train(w *models.World, a Train, b balance.Balance) (string, error) {
	if _, ok := models.ParseAttribute(string(a.Focus)); !ok {
		return "", &MalformedRequest{Param: "focus", Reason: fmt.Sprintf("%q is not a skill", a.Focus)}
	}
	t, err := lookup(w, a.Trainee, models.StatusTrainee)
	if err != nil {
		return "", err
	}
	v := t.Skills.Get(a.Focus)
	if v >= b.SkillMax {
		return "", violation(CodeMaxed, "%s already maxed at %d", a.Focus, v)
	}
	if t.Fatigue+b.TrainFatigueCost > b.FatigueMax {
		return "", violation(CodeFatigue, "fatigue limit exceeded")
	}

	gain := TrainingGain(v, b)
	t.Skills.Set(a.Focus, v+gain)
	t.Fatigue += b.TrainFatigueCost
	return fmt.Sprintf("%s trained %s: %d → %d, fatigue %d/%d.", t.Name, a.Focus, v, v+gain, t.Fatigue, b.FatigueMax), nil
}

func scout(w *models.World, a Scout, b balance.Balance) (string, error) {
	if a.Candidate < 1 || a.Candidate > b.PoolSize {
		return "", violation(CodeCandidate, "no candidate %d this turn", a.Candidate)
	}
	if slices.Contains(w.Approached, a.Candidate) {
		return "", violation(CodeApproached, "candidate %d was already approached this turn", a.Candidate)
	}
	c := CandidatePool(w, b)[a.Candidate-1]
	chance := ScoutChance(w.Company.Reputation, a.Budget, b)
	if err := spend(w, a.Budget, b.ScoutMinBudget, b.ScoutMaxBudget); err != nil {
		return "", err
	}
	w.Approached = append(w.Approached, a.Candidate)

	if scoutRoll(w.Seed, w.Calendar.Turn, a.Candidate, a.Budget) >= chance {
		return fmt.Sprintf("%s turned down the offer (%.0f%% odds). Spent %d.", c.Name, chance*100, a.Budget), nil
	}
	id := w.NextID
	w.NextID++
	w.Roster = append(w.Roster, models.Trainee{
		ID:           id,
		Name:         c.Name,
		Skills:       c.Skills,
		Status:       models.StatusTrainee,
		Relationship: b.RelationshipStart,
	})
	w.Company.Contracted = append(w.Company.Contracted, id)
	return fmt.Sprintf("Signed %s as trainee #%d (%.0f%% odds). Spent %d.", c.Name, id, chance*100, a.Budget), nil
}

// DebutBlockers lists every unmet debut condition for t. An empty result
// means t may debut.
func DebutBlockers(t models.Trainee, b balance.Balance) []string {
	var out []string
	for _, attr := range models.Attributes {
		if v := t.Skills.Get(attr); v < b.DebutThreshold {
			out = append(out, fmt.Sprintf("%s %d below debut threshold %d", attr, v, b.DebutThreshold))
		}
	}
	if t.Tenure < b.DebutMinTenure {
		out = append(out, fmt.Sprintf("tenure %d below minimum %d turns", t.Tenure, b.DebutMinTenure))
	}
	return out
}

func debut(w *models.World, a Debut, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusTrainee)
	if err != nil {
		return "", err
	}
	if blockers := DebutBlockers(*t, b); len(blockers) > 0 {
		return "", &RuleViolation{Code: CodeDebutUnmet, Reasons: blockers}
	}
	t.Status = models.StatusDebuted
	t.Popularity += b.DebutPopularity
	addReputation(w, b.DebutReputation, b)
	return fmt.Sprintf("%s debuted! Popularity +%d, reputation now %d.", t.Name, b.DebutPopularity, w.Company.Reputation), nil
}

// advance moves to the next phase. Passive effects and the turn's random
// event run only when the cycle wraps back to the CEO phase. The debt check
// comes last so an event loss can push the company into debt.
func advance(w *models.World, b balance.Balance) string {
	from := w.Calendar.Phase
	w.Calendar.Phase = from.Next()
	if w.Calendar.Phase != models.PhaseCEO {
		return fmt.Sprintf("%s ends; %s begins.", from, w.Calendar.Phase)
	}

	w.Calendar.Turn++
	w.Approached = nil

	var upkeep, income int
	for i := range w.Roster {
		t := &w.Roster[i]
		switch t.Status {
		case models.StatusTrainee:
			upkeep += b.UpkeepPerTrainee
		case models.StatusDebuted:
			income += t.Popularity / b.IncomeDivisor
		default:
			continue
		}
		t.Tenure++
		t.Fatigue = max(t.Fatigue-b.PassiveRecovery, 0)
	}
	c := &w.Company
	c.Cash += income - upkeep
	event := turnEvent(w, b)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn %d begins. Upkeep -%d, income +%d, cash %d.", w.Calendar.Turn, upkeep, income, c.Cash)
	if event != "" {
		sb.WriteString(" " + event)
	}
	switch {
	case c.Cash < 0 && !c.InDebt:
		c.InDebt = true
		sb.WriteString(" The company has entered debt; spending is frozen.")
	case c.Cash >= 0 && c.InDebt:
		c.InDebt = false
		sb.WriteString(" The company is out of debt.")
	}
	return sb.String()
}

func rest(w *models.World, a Rest, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusTrainee, models.StatusDebuted)
	if err != nil {
		return "", err
	}
	if t.Fatigue == 0 {
		return "", violation(CodeRested, "%s is already fully rested", t.Name)
	}
	before := t.Fatigue
	t.Fatigue = max(t.Fatigue-b.RestRecovery, 0)
	return fmt.Sprintf("%s rested and recovered %d fatigue.", t.Name, before-t.Fatigue), nil
}

// EvalThreshold is the score needed to pass an evaluation on turn n.
func EvalThreshold(turn int, b balance.Balance) int {
	return b.EvalBaseThreshold + turn*b.EvalThresholdPerTurn
}

func evaluate(w *models.World, a Evaluate, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusTrainee)
	if err != nil {
		return "", err
	}
	if t.EvaluatedTurn == w.Calendar.Turn {
		return "", violation(CodeAlreadyEvaluated, "%s was already evaluated this turn", t.Name)
	}
	t.EvaluatedTurn = w.Calendar.Turn

	score := t.Skills.Total() + t.Popularity
	threshold := EvalThreshold(w.Calendar.Turn, b)
	if score >= threshold {
		t.Popularity += b.EvalPassPopularity
		addRelationship(t, b.EvalRelationship, b)
		return fmt.Sprintf("%s passed the evaluation (%d/%d). Popularity +%d.", t.Name, score, threshold, b.EvalPassPopularity), nil
	}

	t.Failures++
	addRelationship(t, -b.EvalRelationship, b)
	if t.Failures >= b.EvalMaxFailures {
		t.Status = models.StatusDropped
		removeContract(w, t.ID)
		return fmt.Sprintf("%s failed the evaluation (%d/%d) for the %s time and was cut.", t.Name, score, threshold, ordinal(t.Failures)), nil
	}
	return fmt.Sprintf("%s failed the evaluation (%d/%d). Failures %d/%d.", t.Name, score, threshold, t.Failures, b.EvalMaxFailures), nil
}

func release(w *models.World, a Release, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusDebuted)
	if err != nil {
		return "", err
	}
	if err := spend(w, a.Budget, b.ReleaseMinBudget, b.ReleaseMaxBudget); err != nil {
		return "", err
	}
	gain := t.Skills.Total()/len(models.Attributes)/3 + a.Budget/15
	t.Popularity += gain
	addReputation(w, gain/8, b)
	return fmt.Sprintf("%s released a new single. Popularity +%d. Cost %d.", t.Name, gain, a.Budget), nil
}

func promote(w *models.World, a Promote, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusDebuted)
	if err != nil {
		return "", err
	}
	if err := spend(w, a.Budget, b.PromoteMinBudget, b.PromoteMaxBudget); err != nil {
		return "", err
	}
	gain := a.Budget/20 + 5
	t.Popularity += gain
	addReputation(w, gain/3, b)
	return fmt.Sprintf("Promotions boost %s's popularity by %d. Cost %d.", t.Name, gain, a.Budget), nil
}

func drop(w *models.World, a Drop) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusTrainee)
	if err != nil {
		return "", err
	}
	t.Status = models.StatusDropped
	removeContract(w, t.ID)
	return fmt.Sprintf("%s's contract was ended.", t.Name), nil
}

func addRelationship(t *models.Trainee, n int, b balance.Balance) {
	t.Relationship = min(max(t.Relationship+n, 0), b.RelationshipMax)
}

// BondGain is the relationship gained by bonding with trainee id on turn. It
// is drawn from the seed, so a replay bonds exactly as the live game did.
func BondGain(seed uint64, turn, id int, b balance.Balance) int {
	r := rand.New(rand.NewPCG(seed^uint64(id)<<40, uint64(turn)|1<<62))
	return b.BondMin + r.IntN(b.BondMax-b.BondMin+1)
}

func bond(w *models.World, a Bond, b balance.Balance) (string, error) {
	t, err := lookup(w, a.Trainee, models.StatusTrainee)
	if err != nil {
		return "", err
	}
	if t.BondedTurn == w.Calendar.Turn {
		return "", violation(CodeAlreadyBonded, "already spent time with %s this turn", t.Name)
	}
	t.BondedTurn = w.Calendar.Turn

	before := t.Relationship
	gain := BondGain(w.Seed, w.Calendar.Turn, t.ID, b)
	addRelationship(t, gain, b)
	t.Popularity += gain / 2
	return fmt.Sprintf("Spent time with %s. Relationship %d → %d, popularity +%d.", t.Name, before, t.Relationship, gain/2), nil
}

func removeContract(w *models.World, id int) {
	w.Company.Contracted = slices.DeleteFunc(w.Company.Contracted, func(c int) bool { return c == id })
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return fmt.Sprintf("%dth", n)
}
