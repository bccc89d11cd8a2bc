package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coastal-eats/shiftsync/pkg/core/coordinator"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// AssignCmd creates the assign command
func AssignCmd(app *AppContext) *cobra.Command {
	var overrideToken, overrideReason string
	var overrideRules []string

	cmd := &cobra.Command{
		Use:   "assign <shift_id> <worker_id>",
		Short: "Assign a worker to a shift, enforcing the compliance rule chain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("shift_id must be a UUID: %w", err)
			}
			workerID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("worker_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			override := buildOverride(overrideToken, overrideReason, overrideRules, actor)
			result, err := app.Coordinator.TryAssign(app.Ctx, shiftID, workerID, actor, override)
			if err != nil {
				return err
			}

			printAssignResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&overrideToken, "override-token", "", "Manager override token")
	cmd.Flags().StringSliceVar(&overrideRules, "override-rules", nil, "Rule IDs the override token covers")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "Reason recorded with the override")

	return cmd
}

func buildOverride(token, reason string, rules []string, actor model.Actor) *model.OverrideToken {
	if token == "" {
		return nil
	}
	return &model.OverrideToken{
		Token:    token,
		IssuedBy: actor.WorkerID,
		Reason:   reason,
		RuleIDs:  rules,
	}
}

func printAssignResult(result coordinator.Result) {
	switch result.Code {
	case model.CodeOK:
		fmt.Printf("\n✓ Assignment committed: %s\n", result.Assignment.ID)
		for _, warn := range result.Verdict.Warnings {
			fmt.Printf("  ⚠ [%s] %s\n", warn.RuleID, warn.Reason)
		}
	case model.CodeContended:
		fmt.Printf("\n✗ Contended: %s is editing this shift right now. Try again shortly.\n", holderName(result.Holder))
	case model.CodePermissionDenied:
		fmt.Printf("\n✗ Permission denied: %s\n", result.Reason)
	case model.CodeAmbiguousTime:
		fmt.Printf("\n✗ Ambiguous local time: %s\n", result.Reason)
	default:
		fmt.Printf("\n✗ Rejected [%s]: %s\n", result.Verdict.FailingRule, result.Reason)
		if len(result.Verdict.Suggestions) > 0 {
			fmt.Println("\nAlternative workers:")
			for _, s := range result.Verdict.Suggestions {
				fmt.Printf("  - %s (%.1fh this week)\n", s.FullName, s.WeeklyHours)
			}
		}
	}
	fmt.Println()
}

func holderName(holder string) string {
	if strings.TrimSpace(holder) == "" {
		return "another manager"
	}
	return holder
}
