package rules

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

var candidateNames = []string{
	"Ara", "Min", "Jisu", "Luna", "Kai", "Hana", "Yuna", "Seo", "Rin", "Jun",
	"Mina", "Taeo", "Sora", "Eun", "Hwa", "Nari",
}

// Candidate is a scoutable performer offered during one turn.
type Candidate struct {
	Index  int // 1-based position in the pool
	Name   string
	Skills models.Skills
}

// poolRand returns the generator for one scouting stream. Stream 0 seeds the
// starter roster; stream n > 0 is the pool for turn n.
func poolRand(seed uint64, stream int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(stream)))
}

func drawCandidates(r *rand.Rand, n int, b balance.Balance) []Candidate {
	span := b.CandidateMax - b.CandidateMin + 1
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			Index: i + 1,
			Name:  candidateNames[r.IntN(len(candidateNames))],
			Skills: models.Skills{
				Vocal:   b.CandidateMin + r.IntN(span),
				Dance:   b.CandidateMin + r.IntN(span),
				Visual:  b.CandidateMin + r.IntN(span),
				Stamina: b.CandidateMin + r.IntN(span),
			},
		}
	}
	return out
}

// CandidatePool returns this turn's candidates. It depends only on the seed
// and the turn number, so every call within a turn sees the same pool.
func CandidatePool(w *models.World, b balance.Balance) []Candidate {
	return drawCandidates(poolRand(w.Seed, w.Calendar.Turn), b.PoolSize, b)
}

// ScoutChance is the probability that a scouting offer is accepted.
func ScoutChance(reputation, budget int, b balance.Balance) float64 {
	p := b.ScoutBaseChance + float64(reputation)*b.ScoutRepWeight + float64(budget)/b.ScoutBudgetScale
	return min(max(p, 0), b.ScoutMaxChance)
}

// scoutRoll is a uniform draw in [0,1) fixed by the seed, turn, candidate
// and budget.
func scoutRoll(seed uint64, turn, candidate, budget int) float64 {
	hi := seed ^ (uint64(turn) * 0x9E3779B97F4A7C15)
	lo := uint64(candidate)<<32 | uint64(uint32(budget))
	return rand.New(rand.NewPCG(hi, lo)).Float64()
}

// NewGame builds the opening world: starting cash, reputation and a roster of
// starter trainees drawn from the seed.
func NewGame(company string, seed uint64, b balance.Balance) *models.World {
	w := &models.World{
		GameID:   uuid.NewString(),
		Seed:     seed,
		Calendar: models.Calendar{Turn: 1, Phase: models.PhaseCEO},
		Company: models.Company{
			Name:       company,
			Cash:       b.StartingCash,
			Reputation: b.StartingReputation,
		},
		NextID: 1,
	}
	for _, c := range drawCandidates(poolRand(seed, 0), b.StarterTrainees, b) {
		w.Roster = append(w.Roster, models.Trainee{
			ID:           w.NextID,
			Name:         c.Name,
			Skills:       c.Skills,
			Status:       models.StatusTrainee,
			Relationship: b.RelationshipStart,
		})
		w.Company.Contracted = append(w.Company.Contracted, w.NextID)
		w.NextID++
	}
	w.AppendLog(company + " opens its doors.")
	return w
}
