package constraint

import "fmt"

// Rule IDs are stable identifiers carried in verdicts, audit records and
// override tokens.
const (
	RuleSkillMatch      = "skill_match"
	RuleCertification   = "location_certification"
	RuleAvailability    = "availability"
	RuleDoubleBooking   = "double_booking"
	RuleMinimumRest     = "minimum_rest"
	RuleDailyHours      = "daily_hours"
	RuleWeeklyHours     = "weekly_hours"
	RuleConsecutiveDays = "consecutive_days"
)

// SkillMatchRule verifies the worker holds the shift's required skill.
type SkillMatchRule struct{}

// NewSkillMatchRule creates the skill match rule.
func NewSkillMatchRule() *SkillMatchRule {
	return &SkillMatchRule{}
}

func (r *SkillMatchRule) ID() string {
	return RuleSkillMatch
}

func (r *SkillMatchRule) Check(snap *Snapshot, w WorkerData) Outcome {
	if w.Worker.HasSkill(snap.Shift.RequiredSkill) {
		return pass(r.ID())
	}
	return block(r.ID(), fmt.Sprintf(
		"%s does not have the %q skill required for this shift",
		w.Worker.FullName(), snap.Shift.RequiredSkill))
}
