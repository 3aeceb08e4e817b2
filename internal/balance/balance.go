// Package balance holds the tunable numbers behind every game rule.
package balance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Balance stores global tuning variables, loadable from YAML.
type Balance struct {
	StartingCash       int `yaml:"starting_cash"`
	StartingReputation int `yaml:"starting_reputation"`
	StarterTrainees    int `yaml:"starter_trainees"`

	SkillMax      int `yaml:"skill_max"`
	FatigueMax    int `yaml:"fatigue_max"`
	ReputationMax int `yaml:"reputation_max"`

	// Training gain is TrainRate of the remaining headroom, at least 1.
	TrainRate        float64 `yaml:"train_rate"`
	TrainFatigueCost int     `yaml:"train_fatigue_cost"`
	RestRecovery     int     `yaml:"rest_recovery"`
	PassiveRecovery  int     `yaml:"passive_recovery"`

	PoolSize         int     `yaml:"pool_size"`
	CandidateMin     int     `yaml:"candidate_min"`
	CandidateMax     int     `yaml:"candidate_max"`
	ScoutMinBudget   int     `yaml:"scout_min_budget"`
	ScoutMaxBudget   int     `yaml:"scout_max_budget"`
	ScoutBaseChance  float64 `yaml:"scout_base_chance"`
	ScoutRepWeight   float64 `yaml:"scout_rep_weight"`
	ScoutBudgetScale float64 `yaml:"scout_budget_scale"`
	ScoutMaxChance   float64 `yaml:"scout_max_chance"`

	DebutThreshold  int `yaml:"debut_threshold"`
	DebutMinTenure  int `yaml:"debut_min_tenure"`
	DebutPopularity int `yaml:"debut_popularity"`
	DebutReputation int `yaml:"debut_reputation"`

	EvalBaseThreshold    int `yaml:"eval_base_threshold"`
	EvalThresholdPerTurn int `yaml:"eval_threshold_per_turn"`
	EvalPassPopularity   int `yaml:"eval_pass_popularity"`
	EvalMaxFailures      int `yaml:"eval_max_failures"`

	ReleaseMinBudget int `yaml:"release_min_budget"`
	ReleaseMaxBudget int `yaml:"release_max_budget"`
	PromoteMinBudget int `yaml:"promote_min_budget"`
	PromoteMaxBudget int `yaml:"promote_max_budget"`

	UpkeepPerTrainee int `yaml:"upkeep_per_trainee"`
	IncomeDivisor    int `yaml:"income_divisor"`

	// Bonding raises relationship by a seeded roll in [BondMin,BondMax]
	// and popularity by half of it.
	RelationshipStart int `yaml:"relationship_start"`
	RelationshipMax   int `yaml:"relationship_max"`
	BondMin           int `yaml:"bond_min"`
	BondMax           int `yaml:"bond_max"`
	EvalRelationship  int `yaml:"eval_relationship"`

	// EventChance is the probability of a setback at each turn start, and
	// separately of a windfall.
	EventChance   float64 `yaml:"event_chance"`
	EventLossMin  int     `yaml:"event_loss_min"`
	EventLossMax  int     `yaml:"event_loss_max"`
	InjuryMin     int     `yaml:"injury_min"`
	InjuryMax     int     `yaml:"injury_max"`
	ViralBonusMin int     `yaml:"viral_bonus_min"`
	ViralBonusMax int     `yaml:"viral_bonus_max"`
	FanEditMin    int     `yaml:"fan_edit_min"`
	FanEditMax    int     `yaml:"fan_edit_max"`
}

// Default returns the built-in tuning.
func Default() Balance {
	return Balance{
		StartingCash:       1000,
		StartingReputation: 10,
		StarterTrainees:    3,

		SkillMax:      100,
		FatigueMax:    100,
		ReputationMax: 100,

		TrainRate:        0.15,
		TrainFatigueCost: 10,
		RestRecovery:     15,
		PassiveRecovery:  5,

		PoolSize:         3,
		CandidateMin:     20,
		CandidateMax:     45,
		ScoutMinBudget:   100,
		ScoutMaxBudget:   1000,
		ScoutBaseChance:  0.25,
		ScoutRepWeight:   0.004,
		ScoutBudgetScale: 2000,
		ScoutMaxChance:   0.95,

		DebutThreshold:  60,
		DebutMinTenure:  3,
		DebutPopularity: 20,
		DebutReputation: 5,

		EvalBaseThreshold:    150,
		EvalThresholdPerTurn: 5,
		EvalPassPopularity:   5,
		EvalMaxFailures:      3,

		ReleaseMinBudget: 100,
		ReleaseMaxBudget: 3000,
		PromoteMinBudget: 50,
		PromoteMaxBudget: 1500,

		UpkeepPerTrainee: 30,
		IncomeDivisor:    2,

		RelationshipStart: 10,
		RelationshipMax:   100,
		BondMin:           3,
		BondMax:           10,
		EvalRelationship:  5,

		EventChance:   0.08,
		EventLossMin:  50,
		EventLossMax:  200,
		InjuryMin:     5,
		InjuryMax:     15,
		ViralBonusMin: 100,
		ViralBonusMax: 300,
		FanEditMin:    8,
		FanEditMax:    18,
	}
}

// Load reads a YAML file over the defaults; keys absent from the file keep
// their default value.
func Load(path string) (Balance, error) {
	b := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("%s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return b, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Validate rejects tunings that would break the bounded-range rules.
func (b Balance) Validate() error {
	switch {
	case b.SkillMax <= 0 || b.FatigueMax <= 0 || b.ReputationMax <= 0:
		return fmt.Errorf("skill_max, fatigue_max and reputation_max must be positive")
	case b.StartingReputation < 0 || b.StartingReputation > b.ReputationMax:
		return fmt.Errorf("starting_reputation %d outside [0,%d]", b.StartingReputation, b.ReputationMax)
	case b.RestRecovery < 0 || b.PassiveRecovery < 0:
		return fmt.Errorf("rest_recovery and passive_recovery must not be negative")
	case b.UpkeepPerTrainee < 0:
		return fmt.Errorf("upkeep_per_trainee must not be negative")
	case b.DebutPopularity < 0:
		return fmt.Errorf("debut_popularity must not be negative")
	case b.TrainRate <= 0 || b.TrainRate >= 1:
		return fmt.Errorf("train_rate must be in (0,1), got %v", b.TrainRate)
	case b.TrainFatigueCost <= 0:
		return fmt.Errorf("train_fatigue_cost must be positive")
	case b.PoolSize <= 0:
		return fmt.Errorf("pool_size must be positive")
	case b.CandidateMin < 0 || b.CandidateMax > b.SkillMax || b.CandidateMin > b.CandidateMax:
		return fmt.Errorf("candidate range [%d,%d] outside [0,%d]", b.CandidateMin, b.CandidateMax, b.SkillMax)
	case b.ScoutMinBudget <= 0 || b.ScoutMinBudget > b.ScoutMaxBudget:
		return fmt.Errorf("invalid scout budget range [%d,%d]", b.ScoutMinBudget, b.ScoutMaxBudget)
	case b.ReleaseMinBudget <= 0 || b.ReleaseMinBudget > b.ReleaseMaxBudget:
		return fmt.Errorf("invalid release budget range [%d,%d]", b.ReleaseMinBudget, b.ReleaseMaxBudget)
	case b.PromoteMinBudget <= 0 || b.PromoteMinBudget > b.PromoteMaxBudget:
		return fmt.Errorf("invalid promote budget range [%d,%d]", b.PromoteMinBudget, b.PromoteMaxBudget)
	case b.IncomeDivisor <= 0:
		return fmt.Errorf("income_divisor must be positive")
	case b.EvalMaxFailures <= 0:
		return fmt.Errorf("eval_max_failures must be positive")
	case b.RelationshipMax <= 0 || b.RelationshipStart < 0 || b.RelationshipStart > b.RelationshipMax:
		return fmt.Errorf("relationship_start %d outside [0,%d]", b.RelationshipStart, b.RelationshipMax)
	case b.BondMin < 0 || b.BondMin > b.BondMax:
		return fmt.Errorf("invalid bond range [%d,%d]", b.BondMin, b.BondMax)
	case b.EvalRelationship < 0:
		return fmt.Errorf("eval_relationship must not be negative")
	case b.EventChance < 0 || b.EventChance > 0.5:
		return fmt.Errorf("event_chance must be in [0,0.5], got %v", b.EventChance)
	case b.EventLossMin < 0 || b.EventLossMin > b.EventLossMax,
		b.InjuryMin < 0 || b.InjuryMin > b.InjuryMax,
		b.ViralBonusMin < 0 || b.ViralBonusMin > b.ViralBonusMax,
		b.FanEditMin < 0 || b.FanEditMin > b.FanEditMax:
		return fmt.Errorf("event ranges must be non-negative with min <= max")
	}
	return nil
}
