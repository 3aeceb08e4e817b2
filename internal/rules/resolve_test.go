package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
)

func testWorld() *models.World {
	return &models.World{
		GameID:   "test",
		Seed:     42,
		Calendar: models.Calendar{Turn: 1, Phase: models.PhaseCEO},
		Company: models.Company{
			Name:       "IdoLab Entertainment",
			Cash:       1000,
			Reputation: 10,
			Contracted: []int{1, 2},
		},
		Roster: []models.Trainee{
			{ID: 1, Name: "Ara", Skills: models.Skills{Vocal: 40, Dance: 30, Visual: 30, Stamina: 70}, Status: models.StatusTrainee},
			{ID: 2, Name: "Min", Skills: models.Skills{Vocal: 60, Dance: 60, Visual: 60, Stamina: 60}, Tenure: 3, Status: models.StatusTrainee},
		},
		NextID: 3,
	}
}

func mustResolve(t *testing.T, w *models.World, a Action, b balance.Balance) (*models.World, Outcome) {
	t.Helper()
	next, out, err := Resolve(w, a, b)
	if err != nil {
		t.Fatalf("Resolve(%#v): %v", a, err)
	}
	return next, out
}

func wantViolation(t *testing.T, err error, code Code) *RuleViolation {
	t.Helper()
	var rv *RuleViolation
	if !errors.As(err, &rv) {
		t.Fatalf("expected *RuleViolation, got %v", err)
	}
	if rv.Code != code {
		t.Fatalf("violation code = %s (%v), want %s", rv.Code, rv, code)
	}
	return rv
}

func TestTrainScenario(t *testing.T) {
	b := balance.Default()
	w := testWorld()

	next, out := mustResolve(t, w, Train{Trainee: 1, Focus: models.Vocal}, b)
	ara, _ := next.GetTrainee(1)
	if ara.Skills.Vocal <= 40 || ara.Skills.Vocal > 50 {
		t.Errorf("vocal = %d, want in (40,50]", ara.Skills.Vocal)
	}
	if ara.Fatigue != b.TrainFatigueCost {
		t.Errorf("fatigue = %d, want %d", ara.Fatigue, b.TrainFatigueCost)
	}
	if next.Company.Cash != 1000 {
		t.Errorf("cash = %d, want unchanged 1000", next.Company.Cash)
	}
	if out.Delta.Cash != 0 || len(out.Delta.Trainees) != 1 || out.Delta.Trainees[0].Skills.Vocal != ara.Skills.Vocal-40 {
		t.Errorf("delta = %+v", out.Delta)
	}

	tired := next.Snapshot()
	tired.TraineeRef(1).Fatigue = 95
	_, _, err := Resolve(tired, Train{Trainee: 1, Focus: models.Vocal}, b)
	rv := wantViolation(t, err, CodeFatigue)
	if rv.Error() != "fatigue limit exceeded" {
		t.Errorf("message = %q", rv.Error())
	}
	if got, _ := tired.GetTrainee(1); got.Skills.Vocal != ara.Skills.Vocal || got.Fatigue != 95 {
		t.Errorf("rejected training changed the trainee: %+v", got)
	}
}

func TestTrainAlreadyMaxed(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.TraineeRef(1).Skills.Dance = b.SkillMax

	_, _, err := Resolve(w, Train{Trainee: 1, Focus: models.Dance}, b)
	rv := wantViolation(t, err, CodeMaxed)
	if !strings.Contains(rv.Error(), "dance already maxed") {
		t.Errorf("message = %q", rv.Error())
	}
	if got, _ := w.GetTrainee(1); got.Skills.Dance != b.SkillMax || got.Fatigue != 0 {
		t.Errorf("trainee changed: %+v", got)
	}
}

func TestTrainingNeverPassesCap(t *testing.T) {
	b := balance.Default()
	prev := b.SkillMax
	for v := 0; v < b.SkillMax; v++ {
		g := TrainingGain(v, b)
		if g < 1 || v+g > b.SkillMax {
			t.Fatalf("TrainingGain(%d) = %d", v, g)
		}
		if g > prev {
			t.Fatalf("gain increased from %d to %d at v=%d", prev, g, v)
		}
		prev = g
	}

	w := testWorld()
	for i := 0; i < 200; i++ {
		w.TraineeRef(1).Fatigue = 0
		next, _, err := Resolve(w, Train{Trainee: 1, Focus: models.Stamina}, b)
		if err != nil {
			wantViolation(t, err, CodeMaxed)
			break
		}
		w = next
	}
	if got, _ := w.GetTrainee(1); got.Skills.Stamina != b.SkillMax {
		t.Errorf("stamina = %d after repeated training, want %d", got.Skills.Stamina, b.SkillMax)
	}
}

func TestTrainRejectsDebutedAndUnknown(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.TraineeRef(2).Status = models.StatusDebuted

	_, _, err := Resolve(w, Train{Trainee: 2, Focus: models.Vocal}, b)
	rv := wantViolation(t, err, CodeBadStatus)
	if !strings.Contains(rv.Error(), "already debuted") {
		t.Errorf("message = %q", rv.Error())
	}
	_, _, err = Resolve(w, Train{Trainee: 9, Focus: models.Vocal}, b)
	wantViolation(t, err, CodeUnknownTrainee)
}

func TestWrongPhase(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Calendar.Phase = models.PhaseResolution

	_, _, err := Resolve(w, Train{Trainee: 1, Focus: models.Vocal}, b)
	rv := wantViolation(t, err, CodeWrongPhase)
	if !strings.Contains(rv.Error(), "Resolution") {
		t.Errorf("message = %q", rv.Error())
	}
	_, _, err = Resolve(w, Rest{Trainee: 1}, b)
	wantViolation(t, err, CodeWrongPhase)
}

func TestPhaseCycleAndTurnCounter(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	order := []models.Phase{models.PhaseTrainee, models.PhaseResolution, models.PhaseCEO}

	for step := 0; step < 30; step++ {
		// Take whatever legal non-advance actions exist, then advance.
		for _, c := range Legal(w, b) {
			if c.Action.Kind() == KindAdvance {
				continue
			}
			next, _, err := Resolve(w, c.Action, b)
			if err != nil {
				continue
			}
			if next.Calendar != w.Calendar {
				t.Fatalf("%s changed the calendar: %+v → %+v", c.Action.Kind(), w.Calendar, next.Calendar)
			}
			w = next
			break
		}

		before := w.Calendar
		next, _ := mustResolve(t, w, AdvanceTurn{}, b)
		want := order[step%3]
		if next.Calendar.Phase != want {
			t.Fatalf("step %d: phase %s, want %s", step, next.Calendar.Phase, want)
		}
		wantTurn := before.Turn
		if want == models.PhaseCEO {
			wantTurn++
		}
		if next.Calendar.Turn != wantTurn {
			t.Fatalf("step %d: turn %d, want %d", step, next.Calendar.Turn, wantTurn)
		}
		w = next
	}
}

func TestPassiveEffectsOncePerCycle(t *testing.T) {
	b := balance.Default()
	b.EventChance = 0
	w := testWorld()
	w.TraineeRef(1).Fatigue = 50
	w.TraineeRef(2).Status = models.StatusDebuted
	w.TraineeRef(2).Popularity = 40

	for i := 0; i < 2; i++ {
		w, _ = mustResolve(t, w, AdvanceTurn{}, b)
		if w.Company.Cash != 1000 {
			t.Fatalf("cash changed mid-cycle: %d", w.Company.Cash)
		}
	}
	w, out := mustResolve(t, w, AdvanceTurn{}, b)

	wantCash := 1000 - b.UpkeepPerTrainee + 40/b.IncomeDivisor
	if w.Company.Cash != wantCash || out.Delta.Cash != wantCash-1000 {
		t.Errorf("cash = %d (delta %d), want %d", w.Company.Cash, out.Delta.Cash, wantCash)
	}
	ara, _ := w.GetTrainee(1)
	if ara.Fatigue != 50-b.PassiveRecovery || ara.Tenure != 1 {
		t.Errorf("Ara after wrap: %+v", ara)
	}
}

func TestDebtTransition(t *testing.T) {
	b := balance.Default()
	b.EventChance = 0
	w := testWorld()
	w.Company.Cash = 10
	w.Calendar.Phase = models.PhaseResolution

	w, out := mustResolve(t, w, AdvanceTurn{}, b)
	if !w.Company.InDebt || w.Company.Cash >= 0 {
		t.Fatalf("expected debt, got %+v", w.Company)
	}
	if !strings.Contains(out.Summary, "entered debt") {
		t.Errorf("summary = %q", out.Summary)
	}

	_, _, err := Resolve(w, Scout{Candidate: 1, Budget: b.ScoutMinBudget}, b)
	wantViolation(t, err, CodeDebt)
}

func TestSpendingNeverGoesNegative(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Company.Cash = 150

	_, _, err := Resolve(w, Scout{Candidate: 1, Budget: 200}, b)
	rv := wantViolation(t, err, CodeFunds)
	if !strings.Contains(rv.Error(), "need 200, have 150") {
		t.Errorf("message = %q", rv.Error())
	}
}

func TestScoutDeterministic(t *testing.T) {
	b := balance.Default()
	w := testWorld()

	pool1 := CandidatePool(w, b)
	pool2 := CandidatePool(w.Snapshot(), b)
	if !reflect.DeepEqual(pool1, pool2) || len(pool1) != b.PoolSize {
		t.Fatalf("pools differ: %+v vs %+v", pool1, pool2)
	}

	a := Scout{Candidate: 2, Budget: 300}
	n1, o1 := mustResolve(t, w, a, b)
	n2, o2 := mustResolve(t, w, a, b)
	if !reflect.DeepEqual(n1, n2) || o1.Summary != o2.Summary {
		t.Errorf("same scout produced different results:\n%s\n%s", o1.Summary, o2.Summary)
	}
	if n1.Company.Cash != 700 {
		t.Errorf("cash = %d, want 700", n1.Company.Cash)
	}

	later := w.Snapshot()
	later.Calendar.Turn = 2
	if reflect.DeepEqual(CandidatePool(later, b), pool1) {
		t.Errorf("turn 2 offered the same pool as turn 1")
	}
}

func TestScoutSuccessAndFailure(t *testing.T) {
	sure := balance.Default()
	sure.ScoutBaseChance, sure.ScoutMaxChance = 1, 1
	w := testWorld()

	next, out := mustResolve(t, w, Scout{Candidate: 1, Budget: 100}, sure)
	if len(out.Delta.Added) != 1 || out.Delta.Added[0] != 3 || next.NextID != 4 {
		t.Fatalf("expected trainee #3 signed, delta=%+v", out.Delta)
	}
	signed, _ := next.GetTrainee(3)
	if signed.Name != CandidatePool(w, sure)[0].Name || signed.Status != models.StatusTrainee {
		t.Errorf("signed trainee = %+v", signed)
	}
	_, _, err := Resolve(next, Scout{Candidate: 1, Budget: 100}, sure)
	wantViolation(t, err, CodeApproached)

	never := balance.Default()
	never.ScoutBaseChance, never.ScoutRepWeight, never.ScoutBudgetScale = 0, 0, 1e18
	next, out = mustResolve(t, w, Scout{Candidate: 1, Budget: 100}, never)
	if len(out.Delta.Added) != 0 || next.Company.Cash != 900 {
		t.Errorf("failed scout: added=%v cash=%d", out.Delta.Added, next.Company.Cash)
	}
	if !strings.Contains(out.Summary, "turned down") {
		t.Errorf("summary = %q", out.Summary)
	}
}

func TestScoutChanceMonotone(t *testing.T) {
	b := balance.Default()
	if ScoutChance(50, 300, b) <= ScoutChance(10, 300, b) {
		t.Errorf("reputation should raise the odds")
	}
	if ScoutChance(10, 900, b) <= ScoutChance(10, 100, b) {
		t.Errorf("budget should raise the odds")
	}
	if got := ScoutChance(100, 1_000_000, b); got != b.ScoutMaxChance {
		t.Errorf("chance not capped: %v", got)
	}
}

func TestDebutConditions(t *testing.T) {
	b := balance.Default()
	ready := func() *models.World {
		w := testWorld()
		w.TraineeRef(2).Skills = models.Skills{Vocal: 60, Dance: 60, Visual: 60, Stamina: 60}
		w.TraineeRef(2).Tenure = b.DebutMinTenure
		return w
	}

	next, _ := mustResolve(t, ready(), Debut{Trainee: 2}, b)
	if got, _ := next.GetTrainee(2); got.Status != models.StatusDebuted || got.Popularity != b.DebutPopularity {
		t.Errorf("after debut: %+v", got)
	}
	if next.Company.Reputation != 10+b.DebutReputation {
		t.Errorf("reputation = %d", next.Company.Reputation)
	}

	tests := []struct {
		name   string
		mutate func(*models.Trainee)
		want   string
	}{
		{"vocal", func(tr *models.Trainee) { tr.Skills.Vocal = 59 }, "vocal 59 below debut threshold"},
		{"dance", func(tr *models.Trainee) { tr.Skills.Dance = 10 }, "dance 10 below debut threshold"},
		{"visual", func(tr *models.Trainee) { tr.Skills.Visual = 0 }, "visual 0 below debut threshold"},
		{"stamina", func(tr *models.Trainee) { tr.Skills.Stamina = 59 }, "stamina 59 below debut threshold"},
		{"tenure", func(tr *models.Trainee) { tr.Tenure = b.DebutMinTenure - 1 }, "tenure 2 below minimum 3 turns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ready()
			tt.mutate(w.TraineeRef(2))
			_, _, err := Resolve(w, Debut{Trainee: 2}, b)
			rv := wantViolation(t, err, CodeDebutUnmet)
			if len(rv.Reasons) != 1 || !strings.Contains(rv.Reasons[0], tt.want) {
				t.Errorf("reasons = %v, want one containing %q", rv.Reasons, tt.want)
			}
		})
	}

	_, _, err := Resolve(testWorld(), Debut{Trainee: 1}, b)
	rv := wantViolation(t, err, CodeDebutUnmet)
	if len(rv.Reasons) != 4 {
		t.Errorf("Ara should miss vocal, dance, visual and tenure, got %v", rv.Reasons)
	}

	debuted, _ := mustResolve(t, ready(), Debut{Trainee: 2}, b)
	_, _, err = Resolve(debuted, Debut{Trainee: 2}, b)
	wantViolation(t, err, CodeBadStatus)
}

func TestEvaluateCutsAfterRepeatedFailures(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Calendar.Phase = models.PhaseTrainee
	w.TraineeRef(1).Skills = models.Skills{Vocal: 10, Dance: 10, Visual: 10, Stamina: 10}

	for i := 1; i <= b.EvalMaxFailures; i++ {
		var out Outcome
		w, out = mustResolve(t, w, Evaluate{Trainee: 1}, b)
		if _, _, err := Resolve(w, Evaluate{Trainee: 1}, b); err == nil {
			t.Fatalf("second evaluation in the same turn succeeded")
		}
		if i < b.EvalMaxFailures {
			if !strings.Contains(out.Summary, "failed") {
				t.Fatalf("summary = %q", out.Summary)
			}
			w.Calendar.Turn++
		}
	}
	ara, _ := w.GetTrainee(1)
	if ara.Status != models.StatusDropped {
		t.Fatalf("Ara status = %s, want Dropped", ara.Status)
	}
	if len(w.Company.Contracted) != 1 || w.Company.Contracted[0] != 2 {
		t.Errorf("contracted = %v", w.Company.Contracted)
	}
}

func TestEvaluatePass(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Calendar.Phase = models.PhaseTrainee

	next, _ := mustResolve(t, w, Evaluate{Trainee: 2}, b)
	if m, _ := next.GetTrainee(2); m.Popularity != b.EvalPassPopularity || m.Failures != 0 {
		t.Errorf("Min after passing: %+v", m)
	}
}

func TestEvaluateMovesRelationship(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Calendar.Phase = models.PhaseTrainee
	w.TraineeRef(1).Skills = models.Skills{Vocal: 10, Dance: 10, Visual: 10, Stamina: 10}
	w.TraineeRef(1).Relationship = 3
	w.TraineeRef(2).Relationship = 20

	w, _ = mustResolve(t, w, Evaluate{Trainee: 1}, b)
	w, _ = mustResolve(t, w, Evaluate{Trainee: 2}, b)
	if ara, _ := w.GetTrainee(1); ara.Relationship != 0 {
		t.Errorf("Ara relationship after failing = %d, want floor at 0", ara.Relationship)
	}
	if m, _ := w.GetTrainee(2); m.Relationship != 20+b.EvalRelationship {
		t.Errorf("Min relationship after passing = %d, want %d", m.Relationship, 20+b.EvalRelationship)
	}
}

func TestBond(t *testing.T) {
	b := balance.Default()
	w := testWorld()

	_, _, err := Resolve(w, Bond{Trainee: 1}, b)
	wantViolation(t, err, CodeWrongPhase)

	w.Calendar.Phase = models.PhaseTrainee
	w.TraineeRef(1).Relationship = 10
	next, out := mustResolve(t, w, Bond{Trainee: 1}, b)
	gain := BondGain(w.Seed, w.Calendar.Turn, 1, b)
	if gain < b.BondMin || gain > b.BondMax {
		t.Fatalf("BondGain = %d outside %d..%d", gain, b.BondMin, b.BondMax)
	}
	ara, _ := next.GetTrainee(1)
	if ara.Relationship != 10+gain || ara.Popularity != gain/2 {
		t.Errorf("Ara after bonding: relationship %d popularity %d, gain %d", ara.Relationship, ara.Popularity, gain)
	}
	if out.Delta.Trainees[0].Relationship != gain {
		t.Errorf("delta = %+v", out.Delta)
	}
	if again, _ := mustResolve(t, w, Bond{Trainee: 1}, b); !reflect.DeepEqual(again, next) {
		t.Errorf("bonding is not deterministic")
	}

	_, _, err = Resolve(next, Bond{Trainee: 1}, b)
	wantViolation(t, err, CodeAlreadyBonded)
	next.Calendar.Turn++
	if _, _, err := Resolve(next, Bond{Trainee: 1}, b); err != nil {
		t.Errorf("bond on a new turn: %v", err)
	}

	w.TraineeRef(1).Relationship = b.RelationshipMax - 1
	next, _ = mustResolve(t, w, Bond{Trainee: 1}, b)
	if ara, _ := next.GetTrainee(1); ara.Relationship != b.RelationshipMax {
		t.Errorf("relationship %d passed the cap %d", ara.Relationship, b.RelationshipMax)
	}

	w.TraineeRef(2).Status = models.StatusDebuted
	_, _, err = Resolve(w, Bond{Trainee: 2}, b)
	wantViolation(t, err, CodeBadStatus)
}

func TestTurnEvents(t *testing.T) {
	b := balance.Default()
	b.EventChance = 0.5 // every turn start has an event
	seen := map[string]bool{}

	for seed := uint64(1); seed <= 300; seed++ {
		w := testWorld()
		w.Seed = seed
		w.TraineeRef(2).Status = models.StatusDebuted
		w.TraineeRef(2).Popularity = 30
		before := w.Snapshot()

		msg := turnEvent(w, b)
		again := before.Snapshot()
		if turnEvent(again, b) != msg || !reflect.DeepEqual(again, w) {
			t.Fatalf("seed %d: event is not deterministic", seed)
		}

		ara, idol := w.TraineeRef(1), w.TraineeRef(2)
		fatigue := ara.Fatigue + idol.Fatigue
		cash := w.Company.Cash - before.Company.Cash
		switch {
		case strings.Contains(msg, "venue cancelled"):
			seen["cancel"] = true
			if -cash < b.EventLossMin || -cash > b.EventLossMax {
				t.Errorf("seed %d: venue loss %d", seed, -cash)
			}
		case strings.Contains(msg, "injured"):
			seen["injury"] = true
			if fatigue < b.InjuryMin || fatigue > b.InjuryMax || cash != 0 {
				t.Errorf("seed %d: injury fatigue %d cash %d", seed, fatigue, cash)
			}
		case strings.Contains(msg, "went viral"):
			seen["viral"] = true
			if cash < b.ViralBonusMin || cash > b.ViralBonusMax || idol.Popularity != 30+cash/10 {
				t.Errorf("seed %d: viral cash %d popularity %d", seed, cash, idol.Popularity)
			}
		case strings.Contains(msg, "fan edit of Ara"):
			seen["fan edit"] = true
			if ara.Popularity < b.FanEditMin || ara.Popularity > b.FanEditMax || cash != 0 {
				t.Errorf("seed %d: fan edit popularity %d", seed, ara.Popularity)
			}
		default:
			t.Errorf("seed %d: unexpected event %q", seed, msg)
		}
	}
	for _, k := range []string{"cancel", "injury", "viral", "fan edit"} {
		if !seen[k] {
			t.Errorf("no %s in 300 seeds", k)
		}
	}
}

func TestTurnEventsDisabled(t *testing.T) {
	b := balance.Default()
	b.EventChance = 0
	for seed := uint64(1); seed <= 100; seed++ {
		w := testWorld()
		w.Seed = seed
		before := w.Snapshot()
		if msg := turnEvent(w, b); msg != "" || !reflect.DeepEqual(w, before) {
			t.Fatalf("seed %d: event %q with zero chance", seed, msg)
		}
	}
}

func TestEventsOnlyOnTurnWrap(t *testing.T) {
	b := balance.Default()
	b.EventChance = 0.5
	w := testWorld()

	w, out := mustResolve(t, w, AdvanceTurn{}, b)
	if out.Delta.Cash != 0 || len(out.Delta.Trainees) != 0 {
		t.Errorf("mid-cycle advance changed the world: %s", out.Delta)
	}
	w, _ = mustResolve(t, w, AdvanceTurn{}, b)
	w, out = mustResolve(t, w, AdvanceTurn{}, b)

	want := testWorld()
	want.Calendar.Turn = 2
	event := turnEvent(want, b)
	if !strings.Contains(out.Summary, event) {
		t.Errorf("wrap summary %q lacks the turn event %q", out.Summary, event)
	}
}

func TestRest(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Calendar.Phase = models.PhaseTrainee

	_, _, err := Resolve(w, Rest{Trainee: 1}, b)
	wantViolation(t, err, CodeRested)

	w.TraineeRef(1).Fatigue = 10
	next, _ := mustResolve(t, w, Rest{Trainee: 1}, b)
	if ara, _ := next.GetTrainee(1); ara.Fatigue != 0 {
		t.Errorf("fatigue = %d, want floor at 0", ara.Fatigue)
	}
}

func TestReleaseAndPromote(t *testing.T) {
	b := balance.Default()
	w := testWorld()

	_, _, err := Resolve(w, Release{Trainee: 1, Budget: 300}, b)
	wantViolation(t, err, CodeBadStatus)

	w.TraineeRef(2).Status = models.StatusDebuted
	next, out := mustResolve(t, w, Release{Trainee: 2, Budget: 300}, b)
	wantGain := 240/4/3 + 300/15
	if m, _ := next.GetTrainee(2); m.Popularity != wantGain {
		t.Errorf("popularity = %d, want %d", m.Popularity, wantGain)
	}
	if out.Delta.Cash != -300 {
		t.Errorf("delta cash = %d", out.Delta.Cash)
	}

	next, _ = mustResolve(t, next, Promote{Trainee: 2, Budget: 200}, b)
	if next.Company.Cash != 500 {
		t.Errorf("cash = %d, want 500", next.Company.Cash)
	}
	if next.Company.Reputation > b.ReputationMax || next.Company.Reputation < 10 {
		t.Errorf("reputation = %d", next.Company.Reputation)
	}
}

func TestReputationClamped(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	w.Company.Reputation = b.ReputationMax - 1
	w.Company.Cash = 10_000
	w.TraineeRef(2).Status = models.StatusDebuted

	next, _ := mustResolve(t, w, Promote{Trainee: 2, Budget: b.PromoteMaxBudget}, b)
	if next.Company.Reputation != b.ReputationMax {
		t.Errorf("reputation = %d, want clamp at %d", next.Company.Reputation, b.ReputationMax)
	}
}

func TestDrop(t *testing.T) {
	b := balance.Default()
	next, _ := mustResolve(t, testWorld(), Drop{Trainee: 1}, b)
	if ara, _ := next.GetTrainee(1); ara.Status != models.StatusDropped {
		t.Errorf("status = %s", ara.Status)
	}
	_, _, err := Resolve(next, Drop{Trainee: 1}, b)
	rv := wantViolation(t, err, CodeBadStatus)
	if !strings.Contains(rv.Error(), "no longer under contract") {
		t.Errorf("message = %q", rv.Error())
	}
}

func TestResolveLeavesInputUntouched(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	orig := w.Snapshot()

	for _, a := range []Action{
		Train{Trainee: 1, Focus: models.Vocal},
		Scout{Candidate: 1, Budget: 500},
		Debut{Trainee: 2},
		Drop{Trainee: 1},
		AdvanceTurn{},
	} {
		if _, _, err := Resolve(w, a, b); err != nil {
			t.Fatalf("Resolve(%#v): %v", a, err)
		}
		if !reflect.DeepEqual(w, orig) {
			t.Fatalf("Resolve(%#v) mutated its input", a)
		}
	}
}

func TestLegalChoicesResolve(t *testing.T) {
	b := balance.Default()
	w := testWorld()
	choices := Legal(w, b)
	if len(choices) == 0 || choices[len(choices)-1].Action.Kind() != KindAdvance {
		t.Fatalf("choices = %+v", choices)
	}

	p := NewParser(b)
	var sawDebut bool
	for _, c := range choices {
		if c.Action.Kind() == KindDebut {
			sawDebut = true
		}
		parsed, err := p.Parse(string(c.Action.Kind()), c.Action.Params())
		if err != nil {
			t.Fatalf("Parse(%s, %v): %v", c.Action.Kind(), c.Action.Params(), err)
		}
		if parsed != c.Action {
			t.Errorf("Parse round trip: got %#v, want %#v", parsed, c.Action)
		}
	}
	if !sawDebut {
		t.Errorf("Min meets every debut condition but no debut choice was offered")
	}

	w.Calendar.Phase = models.PhaseResolution
	if got := Legal(w, b); len(got) != 1 || got[0].Action.Kind() != KindAdvance {
		t.Errorf("resolution phase choices = %+v", got)
	}
}

func TestNewGame(t *testing.T) {
	b := balance.Default()
	a := NewGame("IdoLab", 7, b)
	c := NewGame("IdoLab", 7, b)

	if a.GameID == c.GameID {
		t.Errorf("game ids should be unique")
	}
	a.GameID, c.GameID = "", ""
	if !reflect.DeepEqual(a, c) {
		t.Errorf("same seed produced different starting worlds")
	}
	if len(a.Roster) != b.StarterTrainees || a.Company.Cash != b.StartingCash || a.Calendar.Turn != 1 || a.Calendar.Phase != models.PhaseCEO {
		t.Errorf("opening world = %+v", a)
	}
	for _, tr := range a.Roster {
		if tr.Relationship != b.RelationshipStart {
			t.Errorf("%s starts with relationship %d, want %d", tr.Name, tr.Relationship, b.RelationshipStart)
		}
	}
}
