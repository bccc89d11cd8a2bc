package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coastal-eats/shiftsync/pkg/core/services"
)

// DefineShiftsCmd creates the defineShifts command
func DefineShiftsCmd(app *AppContext) *cobra.Command {
	var (
		rruleStr  string
		startTime string
		endTime   string
		skill     string
		headcount int
		fromStr   string
		cutoffHrs int
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "defineShifts <location_id>",
		Short: "Generate a recurring shift series at a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locationID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("location_id must be a UUID: %w", err)
			}

			actor, err := app.ResolveActor()
			if err != nil {
				return err
			}

			from := time.Now().UTC()
			if fromStr != "" {
				from, err = time.Parse("2006-01-02", fromStr)
				if err != nil {
					return fmt.Errorf("from must be formatted 2006-01-02: %w", err)
				}
			}

			result, err := services.DefineShiftSeries(app.Ctx, app.Database, app.Logger, actor, services.SeriesInput{
				LocationID:    locationID,
				RequiredSkill: skill,
				Headcount:     headcount,
				RRule:         rruleStr,
				StartTime:     startTime,
				EndTime:       endTime,
				From:          from,
				EditCutoffHrs: cutoffHrs,
				Notes:         notes,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Created %d shifts\n\n", len(result.Shifts))
			for i, s := range result.Shifts {
				fmt.Printf("  %2d. %s → %s\n", i+1,
					s.StartUTC.Format(time.RFC3339), s.EndUTC.Format(time.RFC3339))
			}
			if len(result.Skipped) > 0 {
				fmt.Printf("\nSkipped %d dates where the local time does not exist (DST gap):\n", len(result.Skipped))
				for _, d := range result.Skipped {
					fmt.Printf("  - %s\n", d.Format("2006-01-02"))
				}
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&rruleStr, "rrule", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=12")
	cmd.Flags().StringVar(&startTime, "start", "", "Local start time, e.g. 09:00")
	cmd.Flags().StringVar(&endTime, "end", "", "Local end time, e.g. 17:00")
	cmd.Flags().StringVar(&skill, "skill", "", "Required skill")
	cmd.Flags().IntVar(&headcount, "headcount", 1, "Workers needed per shift")
	cmd.Flags().StringVar(&fromStr, "from", "", "First date to generate from (defaults to today)")
	cmd.Flags().IntVar(&cutoffHrs, "cutoff", 0, "Edit cutoff in hours before start (0 = default)")
	cmd.Flags().StringVar(&notes, "notes", "", "Shift notes")
	cmd.MarkFlagRequired("rrule")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("skill")

	return cmd
}
