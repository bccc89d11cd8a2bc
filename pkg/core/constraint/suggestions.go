package constraint

import (
	"fmt"
	"sort"
)

// suggestAlternatives ranks the snapshot's alternative workers who would
// pass the hard rules for the same slot, ascending by committed weekly
// hours with ties broken by worker ID for determinism, capped at the
// configured count.
func (e *Engine) suggestAlternatives(snap *Snapshot) []Suggestion {
	var out []Suggestion

	for _, other := range snap.Others {
		if other.Worker.ID == snap.Worker.Worker.ID {
			continue
		}
		if !other.Worker.IsActive {
			continue
		}
		if outcome := e.CheckHardRules(snap, other); outcome.Severity != SeverityPass {
			continue
		}

		hours, err := committedWeeklyHours(snap, other)
		if err != nil {
			continue
		}
		out = append(out, Suggestion{
			WorkerID:    other.Worker.ID,
			FullName:    other.Worker.FullName(),
			WeeklyHours: hours,
			Reason: fmt.Sprintf("certified at %s, has the %s skill and is available for this slot",
				snap.Location.Name, snap.Shift.RequiredSkill),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WeeklyHours != out[j].WeeklyHours {
			return out[i].WeeklyHours < out[j].WeeklyHours
		}
		return out[i].WorkerID.String() < out[j].WorkerID.String()
	})

	if len(out) > e.suggestionLimit {
		out = out[:e.suggestionLimit]
	}
	return out
}
