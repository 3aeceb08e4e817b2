package rules

import (
	"fmt"
	"math/rand/v2"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

// eventRand is the generator for the event at the start of turn. It is
// independent of the scouting streams.
func eventRand(seed uint64, turn int) *rand.Rand {
	return rand.New(rand.NewPCG(seed^uint64(turn)*0xBF58476D1CE4E5B9, 0x5EED_E7E7))
}

func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// turnEvent draws and applies the random event for the turn that has just
// begun. A roll below EventChance is a setback (a cancelled venue or an
// injury), a roll at or above 1-EventChance a windfall (a viral moment for
// the most popular idol or a fan edit of a trainee). It returns the sentence
// describing the event, or "" when nothing happened.
func turnEvent(w *models.World, b balance.Balance) string {
	r := eventRand(w.Seed, w.Calendar.Turn)
	roll := r.Float64()
	active := w.ListTrainees(models.WithStatus(models.StatusTrainee, models.StatusDebuted))

	switch {
	case roll < b.EventChance:
		if len(active) == 0 || r.IntN(2) == 0 {
			loss := between(r, b.EventLossMin, b.EventLossMax)
			w.Company.Cash -= loss
			return fmt.Sprintf("A venue cancelled on short notice: cash -%d.", loss)
		}
		t := w.TraineeRef(active[r.IntN(len(active))].ID)
		before := t.Fatigue
		t.Fatigue = min(t.Fatigue+between(r, b.InjuryMin, b.InjuryMax), b.FatigueMax)
		return fmt.Sprintf("%s was injured in practice: fatigue +%d.", t.Name, t.Fatigue-before)

	case roll >= 1-b.EventChance:
		debuted := w.ListTrainees(models.WithStatus(models.StatusDebuted))
		if len(debuted) > 0 && r.IntN(2) == 0 {
			// Ties go to the lowest id.
			top := debuted[0]
			for _, d := range debuted[1:] {
				if d.Popularity > top.Popularity {
					top = d
				}
			}
			t := w.TraineeRef(top.ID)
			bonus := between(r, b.ViralBonusMin, b.ViralBonusMax)
			w.Company.Cash += bonus
			t.Popularity += bonus / 10
			return fmt.Sprintf("%s went viral: cash +%d, popularity +%d.", t.Name, bonus, bonus/10)
		}
		trainees := w.ListTrainees(models.WithStatus(models.StatusTrainee))
		if len(trainees) == 0 {
			return ""
		}
		t := w.TraineeRef(trainees[r.IntN(len(trainees))].ID)
		gain := between(r, b.FanEditMin, b.FanEditMax)
		t.Popularity += gain
		return fmt.Sprintf("A fan edit of %s is trending: popularity +%d.", t.Name, gain)
	}
	return ""
}
