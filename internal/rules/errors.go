package rules

import (
	"fmt"
	"strings"
)

// Code classifies why an action was refused.
type Code string

const (
	CodeWrongPhase       Code = "wrong_phase"
	CodeUnknownTrainee   Code = "unknown_trainee"
	CodeBadStatus        Code = "bad_status"
	CodeFatigue          Code = "fatigue_limit"
	CodeMaxed            Code = "already_maxed"
	CodeRested           Code = "already_rested"
	CodeFunds            Code = "insufficient_cash"
	CodeDebt             Code = "in_debt"
	CodeBudget           Code = "budget_out_of_range"
	CodeCandidate        Code = "unknown_candidate"
	CodeApproached       Code = "already_approached"
	CodeDebutUnmet       Code = "debut_unmet"
	CodeAlreadyEvaluated Code = "already_evaluated"
	CodeAlreadyBonded    Code = "already_bonded"
)

// RuleViolation reports an action that is illegal in the current state. The
// world is never changed when one is returned.
type RuleViolation struct {
	Code    Code
	Reasons []string // one entry per unmet precondition
}

func (e *RuleViolation) Error() string {
	return strings.Join(e.Reasons, "; ")
}

func violation(code Code, format string, args ...any) *RuleViolation {
	return &RuleViolation{Code: code, Reasons: []string{fmt.Sprintf(format, args...)}}
}

// MalformedRequest reports input that could not be turned into an Action.
type MalformedRequest struct {
	Param  string // empty when the action kind itself is bad
	Reason string
}

func (e *MalformedRequest) Error() string {
	if e.Param == "" {
		return "malformed request: " + e.Reason
	}
	return fmt.Sprintf("malformed request: %s: %s", e.Param, e.Reason)
}
