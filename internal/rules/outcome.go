package rules

import (
	"fmt"
	"strings"

	"github.com/tatianab/idolab/internal/models"
)

// Outcome is the narrated result of one resolved action.
type Outcome struct {
	Action  Kind
	Summary string
	Delta   Delta
}

// Delta is the difference between the world before and after an action.
type Delta struct {
	Cash        int
	Reputation  int
	TurnBefore  int
	TurnAfter   int
	PhaseBefore models.Phase
	PhaseAfter  models.Phase
	Trainees    []TraineeDelta
	Added       []int // ids of newly signed trainees
}

// TraineeDelta holds the per-field change for one trainee. Skills and the
// integer fields are differences, not absolute values.
type TraineeDelta struct {
	ID           int
	Name         string
	Skills       models.Skills
	Fatigue      int
	Popularity   int
	Relationship int
	Tenure       int
	StatusBefore models.Status
	StatusAfter  models.Status
}

func (d TraineeDelta) empty() bool {
	return d.Skills == (models.Skills{}) && d.Fatigue == 0 && d.Popularity == 0 &&
		d.Relationship == 0 && d.Tenure == 0 && d.StatusBefore == d.StatusAfter
}

func diff(before, after *models.World) Delta {
	d := Delta{
		Cash:        after.Company.Cash - before.Company.Cash,
		Reputation:  after.Company.Reputation - before.Company.Reputation,
		TurnBefore:  before.Calendar.Turn,
		TurnAfter:   after.Calendar.Turn,
		PhaseBefore: before.Calendar.Phase,
		PhaseAfter:  after.Calendar.Phase,
	}
	for _, a := range after.Roster {
		b, ok := before.GetTrainee(a.ID)
		if !ok {
			d.Added = append(d.Added, a.ID)
			continue
		}
		td := TraineeDelta{
			ID:   a.ID,
			Name: a.Name,
			Skills: models.Skills{
				Vocal:   a.Skills.Vocal - b.Skills.Vocal,
				Dance:   a.Skills.Dance - b.Skills.Dance,
				Visual:  a.Skills.Visual - b.Skills.Visual,
				Stamina: a.Skills.Stamina - b.Skills.Stamina,
			},
			Fatigue:      a.Fatigue - b.Fatigue,
			Popularity:   a.Popularity - b.Popularity,
			Relationship: a.Relationship - b.Relationship,
			Tenure:       a.Tenure - b.Tenure,
			StatusBefore: b.Status,
			StatusAfter:  a.Status,
		}
		if !td.empty() {
			d.Trainees = append(d.Trainees, td)
		}
	}
	return d
}

// String renders the non-zero parts of the delta, e.g.
// "cash -300; Ara: vocal +9, fatigue +10".
func (d Delta) String() string {
	var parts []string
	if d.Cash != 0 {
		parts = append(parts, fmt.Sprintf("cash %+d", d.Cash))
	}
	if d.Reputation != 0 {
		parts = append(parts, fmt.Sprintf("reputation %+d", d.Reputation))
	}
	if d.TurnAfter != d.TurnBefore {
		parts = append(parts, fmt.Sprintf("turn %d→%d", d.TurnBefore, d.TurnAfter))
	}
	if d.PhaseAfter != d.PhaseBefore {
		parts = append(parts, fmt.Sprintf("phase %s→%s", d.PhaseBefore, d.PhaseAfter))
	}
	for _, t := range d.Trainees {
		var fields []string
		for _, attr := range models.Attributes {
			if v := t.Skills.Get(attr); v != 0 {
				fields = append(fields, fmt.Sprintf("%s %+d", attr, v))
			}
		}
		if t.Fatigue != 0 {
			fields = append(fields, fmt.Sprintf("fatigue %+d", t.Fatigue))
		}
		if t.Popularity != 0 {
			fields = append(fields, fmt.Sprintf("popularity %+d", t.Popularity))
		}
		if t.Relationship != 0 {
			fields = append(fields, fmt.Sprintf("relationship %+d", t.Relationship))
		}
		if t.StatusAfter != t.StatusBefore {
			fields = append(fields, fmt.Sprintf("%s→%s", t.StatusBefore, t.StatusAfter))
		}
		// Tenure ticks for everyone each turn; leave it out of the summary.
		if len(fields) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", t.Name, strings.Join(fields, ", ")))
		}
	}
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("signed %v", d.Added))
	}
	if len(parts) == 0 {
		return "no change"
	}
	return strings.Join(parts, "; ")
}
