package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SweepCmd creates the sweep command, which expires overdue swap/drop
// requests. One-shot by default; --watch runs on the configured cron
// schedule until interrupted.
func SweepCmd(app *AppContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire swap/drop requests whose deadline has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watch {
				count, err := app.Workflow.ExpireDue(app.Ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Printf("\n✓ Expired %d requests\n\n", count)
				return nil
			}

			scheduler := cron.New()
			_, err := scheduler.AddFunc(app.Cfg.SweepCron, func() {
				count, err := app.Workflow.ExpireDue(app.Ctx, time.Now().UTC())
				if err != nil {
					app.Logger.Warn("Sweep failed", zap.Error(err))
					return
				}
				if count > 0 {
					app.Logger.Info("Sweep expired requests", zap.Int("count", count))
				}
			})
			if err != nil {
				return fmt.Errorf("failed to schedule sweep: %w", err)
			}

			app.Logger.Info("Sweep running", zap.String("schedule", app.Cfg.SweepCron))
			scheduler.Start()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			<-scheduler.Stop().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running on the configured schedule")

	return cmd
}
