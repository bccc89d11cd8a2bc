package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coastal-eats/shiftsync/pkg/core/services"
)

// EditShiftCmd creates the editShift command
func EditShiftCmd(app *AppContext) *cobra.Command {
	var (
		startStr, endStr  string
		locationStr       string
		skill, notes      string
		headcount         int
		overrideToken     string
		overrideReason    string
	)

	cmd := &cobra.Command{
		Use:   "editShift <shift_id>",
		Short: "Edit a shift; material edits cancel open swap requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("shift_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			in := services.EditShiftInput{ShiftID: shiftID}
			if cmd.Flags().Changed("start") {
				start, err := time.Parse(time.RFC3339, startStr)
				if err != nil {
					return fmt.Errorf("start must be RFC3339: %w", err)
				}
				in.StartUTC = &start
			}
			if cmd.Flags().Changed("end") {
				end, err := time.Parse(time.RFC3339, endStr)
				if err != nil {
					return fmt.Errorf("end must be RFC3339: %w", err)
				}
				in.EndUTC = &end
			}
			if cmd.Flags().Changed("location") {
				locID, err := uuid.Parse(locationStr)
				if err != nil {
					return fmt.Errorf("location must be a UUID: %w", err)
				}
				in.LocationID = &locID
			}
			if cmd.Flags().Changed("skill") {
				in.RequiredSkill = &skill
			}
			if cmd.Flags().Changed("headcount") {
				in.Headcount = &headcount
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			if overrideToken != "" {
				in.Override = buildOverride(overrideToken, overrideReason, []string{"edit_cutoff"}, actor)
			}

			shift, err := services.EditShift(app.Ctx, app.Database, app.Workflow, app.Logger, actor, in)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift updated: %s → %s at location %s\n\n",
				shift.StartUTC.Format(time.RFC3339), shift.EndUTC.Format(time.RFC3339), shift.LocationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "New start instant (RFC3339)")
	cmd.Flags().StringVar(&endStr, "end", "", "New end instant (RFC3339)")
	cmd.Flags().StringVar(&locationStr, "location", "", "New location UUID")
	cmd.Flags().StringVar(&skill, "skill", "", "New required skill")
	cmd.Flags().IntVar(&headcount, "headcount", 0, "New headcount")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	cmd.Flags().StringVar(&overrideToken, "override-token", "", "Manager override for edits past the cutoff")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "Reason recorded with the override")

	return cmd
}
