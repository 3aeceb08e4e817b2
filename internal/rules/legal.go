package rules

import (
	"fmt"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

// Choice is one concrete action that would currently succeed.
type Choice struct {
	Label  string
	Action Action
	// Budget is set for actions that take a free budget; the Action carries
	// the minimum and front-ends may let the player raise it up to Max.
	Budget *BudgetRange
}

// BudgetRange bounds a budget parameter.
type BudgetRange struct{ Min, Max int }

// Legal lists every action that would resolve successfully against w right
// now. Each candidate is dry-run through Resolve, so the list can never drift
// from the rules themselves.
func Legal(w *models.World, b balance.Balance) []Choice {
	var proposals []Choice
	phase := w.Calendar.Phase
	contracted := w.ListTrainees(models.WithStatus(models.StatusTrainee))
	debuted := w.ListTrainees(models.WithStatus(models.StatusDebuted))

	if phase == models.PhaseCEO || phase == models.PhaseTrainee {
		for _, t := range contracted {
			for _, attr := range models.Attributes {
				proposals = append(proposals, Choice{
					Label:  fmt.Sprintf("Train %s's %s", t.Name, attr),
					Action: Train{Trainee: t.ID, Focus: attr},
				})
			}
		}
	}
	switch phase {
	case models.PhaseCEO:
		for _, c := range CandidatePool(w, b) {
			proposals = append(proposals, Choice{
				Label:  fmt.Sprintf("Scout %s (V%d D%d Vi%d S%d)", c.Name, c.Skills.Vocal, c.Skills.Dance, c.Skills.Visual, c.Skills.Stamina),
				Action: Scout{Candidate: c.Index, Budget: b.ScoutMinBudget},
				Budget: &BudgetRange{b.ScoutMinBudget, b.ScoutMaxBudget},
			})
		}
		for _, t := range contracted {
			proposals = append(proposals,
				Choice{Label: "Debut " + t.Name, Action: Debut{Trainee: t.ID}},
				Choice{Label: "Drop " + t.Name, Action: Drop{Trainee: t.ID}},
			)
		}
		for _, t := range debuted {
			proposals = append(proposals,
				Choice{
					Label:  "Release a single for " + t.Name,
					Action: Release{Trainee: t.ID, Budget: b.ReleaseMinBudget},
					Budget: &BudgetRange{b.ReleaseMinBudget, b.ReleaseMaxBudget},
				},
				Choice{
					Label:  "Promote " + t.Name,
					Action: Promote{Trainee: t.ID, Budget: b.PromoteMinBudget},
					Budget: &BudgetRange{b.PromoteMinBudget, b.PromoteMaxBudget},
				},
			)
		}
	case models.PhaseTrainee:
		for _, t := range append(contracted, debuted...) {
			proposals = append(proposals, Choice{Label: "Rest " + t.Name, Action: Rest{Trainee: t.ID}})
		}
		for _, t := range contracted {
			proposals = append(proposals,
				Choice{Label: "Evaluate " + t.Name, Action: Evaluate{Trainee: t.ID}},
				Choice{Label: "Spend time with " + t.Name, Action: Bond{Trainee: t.ID}},
			)
		}
	}
	proposals = append(proposals, Choice{Label: fmt.Sprintf("End %s", phase), Action: AdvanceTurn{}})

	var out []Choice
	for _, c := range proposals {
		if _, _, err := Resolve(w, c.Action, b); err == nil {
			out = append(out, c)
		}
	}
	return out
}
