// Package constraint implements the ordered policy chain that decides
// whether a proposed (shift, worker) pairing is legal.
//
// Rules are pure functions over an immutable Snapshot; the engine never
// mutates state and never reads outside the snapshot, so evaluating the
// same snapshot twice always yields the same verdict. Callers are
// responsible for reading the snapshot inside the same transaction as any
// subsequent commit.
package constraint

import (
	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// Rule is one policy in the ordered chain. Check must be a pure function
// of the snapshot and worker data.
type Rule interface {
	ID() string
	Check(snap *Snapshot, w WorkerData) Outcome
}

// Limits carries the labor-rule thresholds. Values mirror the compliance
// policy defaults and are overridable through configuration.
type Limits struct {
	MinRestHours            int
	DailyHoursWarn          float64
	DailyHoursHard          float64
	WeeklyHoursWarn         float64
	WeeklyHoursHard         float64
	ConsecutiveDaysWarn     int
	ConsecutiveDaysOverride int
	SuggestionLimit         int
}

// DefaultLimits returns the standard compliance thresholds.
func DefaultLimits() Limits {
	return Limits{
		MinRestHours:            10,
		DailyHoursWarn:          8,
		DailyHoursHard:          12,
		WeeklyHoursWarn:         35,
		WeeklyHoursHard:         40,
		ConsecutiveDaysWarn:     6,
		ConsecutiveDaysOverride: 7,
		SuggestionLimit:         5,
	}
}

// Engine evaluates candidate assignments against the ordered rule chain.
type Engine struct {
	rules           []Rule
	hardRuleCount   int
	suggestionLimit int
}

// NewEngine builds the engine with the standard rule order:
//
//  1. skill match (hard)
//  2. location certification (hard)
//  3. availability (hard)
//  4. no double-booking (hard)
//  5. minimum rest (hard)
//  6. daily hours (warn / hard)
//  7. weekly hours (warn / override-gated hard)
//  8. consecutive days (warn / override-gated hard)
//
// The first five rules are also what a suggested alternative worker must
// pass.
func NewEngine(limits Limits) *Engine {
	return &Engine{
		rules: []Rule{
			NewSkillMatchRule(),
			NewCertificationRule(),
			NewAvailabilityRule(),
			NewDoubleBookingRule(),
			NewMinimumRestRule(limits.MinRestHours),
			NewDailyHoursRule(limits.DailyHoursWarn, limits.DailyHoursHard),
			NewWeeklyHoursRule(limits.WeeklyHoursWarn, limits.WeeklyHoursHard),
			NewConsecutiveDaysRule(limits.ConsecutiveDaysWarn, limits.ConsecutiveDaysOverride),
		},
		hardRuleCount:   5,
		suggestionLimit: limits.SuggestionLimit,
	}
}

// Evaluate runs the full chain for the snapshot's candidate pairing.
//
// The first hard failure decides the verdict, but the remaining rules
// still run so their warning-level outcomes reach the caller in the same
// response. An override token downgrades a covered override-gated failure
// to a warning; tokens are matched per rule identifier, so covering one
// rule never excuses another.
func (e *Engine) Evaluate(snap *Snapshot, override *model.OverrideToken) Verdict {
	verdict := Verdict{OK: true}

	for _, rule := range e.rules {
		outcome := rule.Check(snap, snap.Worker)

		switch outcome.Severity {
		case SeverityPass:
			continue
		case SeverityWarn:
			verdict.Warnings = append(verdict.Warnings, Warning{RuleID: outcome.RuleID, Reason: outcome.Reason})
			continue
		}

		// Hard outcome. An override token covering this rule converts it
		// into a warning so the condition stays visible.
		if outcome.Severity == SeverityOverride && override.Covers(outcome.RuleID) {
			verdict.Warnings = append(verdict.Warnings, Warning{
				RuleID: outcome.RuleID,
				Reason: outcome.Reason + " (overridden by manager token)",
			})
			continue
		}

		if verdict.OK {
			verdict.OK = false
			verdict.FailingRule = outcome.RuleID
			verdict.Reason = outcome.Reason
			verdict.Ambiguous = outcome.Ambiguous
		}
	}

	if !verdict.OK && (verdict.FailingRule == RuleAvailability || verdict.FailingRule == RuleDoubleBooking) {
		verdict.Suggestions = e.suggestAlternatives(snap)
	}

	return verdict
}

// CheckHardRules runs only the first five (hard) rules for the given
// worker. Used for ranking suggestion candidates and for swap-approval
// pre-checks.
func (e *Engine) CheckHardRules(snap *Snapshot, w WorkerData) Outcome {
	for _, rule := range e.rules[:e.hardRuleCount] {
		if outcome := rule.Check(snap, w); outcome.Severity != SeverityPass {
			return outcome
		}
	}
	return Outcome{Severity: SeverityPass}
}
