package constraint

import "github.com/google/uuid"

// Severity classifies a single rule outcome.
type Severity string

const (
	// SeverityPass means the rule is satisfied.
	SeverityPass Severity = "pass"
	// SeverityWarn means the assignment may proceed but the manager should
	// be shown the condition.
	SeverityWarn Severity = "warn"
	// SeverityBlock means the assignment must not proceed.
	SeverityBlock Severity = "block"
	// SeverityOverride means the assignment must not proceed unless the
	// caller supplies an override token covering the rule.
	SeverityOverride Severity = "override_required"
)

// Outcome is the tagged result of one rule check.
type Outcome struct {
	RuleID   string
	Severity Severity
	Reason   string

	// Ambiguous marks an availability failure caused by an unresolved DST
	// edge rather than a plain gap. Surfaced upward as AMBIGUOUS_TIME.
	Ambiguous bool
}

func pass(ruleID string) Outcome {
	return Outcome{RuleID: ruleID, Severity: SeverityPass}
}

func warn(ruleID, reason string) Outcome {
	return Outcome{RuleID: ruleID, Severity: SeverityWarn, Reason: reason}
}

func block(ruleID, reason string) Outcome {
	return Outcome{RuleID: ruleID, Severity: SeverityBlock, Reason: reason}
}

func overrideRequired(ruleID, reason string) Outcome {
	return Outcome{RuleID: ruleID, Severity: SeverityOverride, Reason: reason}
}

// Warning is a non-blocking condition reported alongside the verdict.
type Warning struct {
	RuleID string
	Reason string
}

// Suggestion names an alternative worker who would pass the hard rules for
// the same slot.
type Suggestion struct {
	WorkerID    uuid.UUID
	FullName    string
	WeeklyHours float64
	Reason      string
}

// Verdict is the structured result of evaluating a candidate assignment
// against the full rule chain.
type Verdict struct {
	OK bool

	// FailingRule and Reason describe the first hard failure, if any.
	FailingRule string
	Reason      string

	// Ambiguous is set when the failure stems from an unresolved DST edge.
	Ambiguous bool

	// Warnings accumulates every warning-level outcome encountered, even
	// when an earlier hard rule already failed, so a manager sees the full
	// picture in one call.
	Warnings []Warning

	// Suggestions is populated only for availability/capacity failures.
	Suggestions []Suggestion
}
