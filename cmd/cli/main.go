package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/cmd/cli/commands"
	"github.com/coastal-eats/shiftsync/internal/config"
	"github.com/coastal-eats/shiftsync/pkg/core/constraint"
	"github.com/coastal-eats/shiftsync/pkg/core/coordinator"
	"github.com/coastal-eats/shiftsync/pkg/core/swap"
	"github.com/coastal-eats/shiftsync/pkg/events"
	"github.com/coastal-eats/shiftsync/pkg/postgres"
	"github.com/coastal-eats/shiftsync/pkg/utils/logging"
)

var (
	configPath string
	verbose    bool
	app        *commands.AppContext
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftsync",
		Short: "ShiftSync CLI - Manage shifts, assignments and swaps",
		Long:  `A CLI tool for scheduling workers onto shifts across locations, enforcing labor-compliance rules and coordinating swap/drop negotiations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if closer, ok := app.Emitter.(interface{ Close() }); ok {
					closer.Close()
				}
				if app.Database != nil {
					app.Database.Close()
				}
				if app.Logger != nil {
					app.Logger.Sync()
				}
			}
		},
	}

	app = &commands.AppContext{}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (defaults to shiftsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&app.ActorID, "actor", "a", "", "Worker UUID performing the operation")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.DefineShiftsCmd(app))
	rootCmd.AddCommand(commands.EditShiftCmd(app))
	rootCmd.AddCommand(commands.AssignCmd(app))
	rootCmd.AddCommand(commands.SwapCmd(app))
	rootCmd.AddCommand(commands.SweepCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, emitter and the scheduling core
func initApp() error {
	var err error
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger("shiftsync", verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Debug("Loading configuration")
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.Logger.Debug("Connecting to database")
	app.Database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if app.Cfg.NATSURL != "" {
		app.Logger.Debug("Connecting to NATS", zap.String("url", app.Cfg.NATSURL))
		app.Emitter, err = events.NewNATSEmitter(app.Cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
	} else {
		app.Emitter = events.NewMemoryEmitter()
	}

	engine := constraint.NewEngine(constraint.Limits{
		MinRestHours:            app.Cfg.Limits.MinRestHours,
		DailyHoursWarn:          app.Cfg.Limits.DailyHoursWarn,
		DailyHoursHard:          app.Cfg.Limits.DailyHoursHard,
		WeeklyHoursWarn:         app.Cfg.Limits.WeeklyHoursWarn,
		WeeklyHoursHard:         app.Cfg.Limits.WeeklyHoursHard,
		ConsecutiveDaysWarn:     app.Cfg.Limits.ConsecutiveDaysWarn,
		ConsecutiveDaysOverride: app.Cfg.Limits.ConsecutiveDaysOverride,
		SuggestionLimit:         app.Cfg.Limits.SuggestionLimit,
	})

	// Advisory locks hold the exclusive section across every process
	// sharing the database, not just this one.
	locker := postgres.NewAdvisoryLocker(app.Database, app.Cfg.LockWait())
	presence := coordinator.NewPresenceRegistry(app.Cfg.PresenceTTL())

	app.Coordinator = coordinator.New(app.Database, locker, presence, engine, app.Emitter, app.Logger)
	app.Workflow = swap.New(app.Database, app.Coordinator, app.Emitter, app.Logger, swap.Config{
		AcceptanceTTL:       time.Duration(app.Cfg.Swaps.AcceptanceTTLHours) * time.Hour,
		DropExpiryLead:      time.Duration(app.Cfg.Swaps.DropExpiryLeadHours) * time.Hour,
		MaxPendingPerWorker: app.Cfg.Swaps.MaxPendingPerWorker,
	})

	app.Logger.Debug("Application initialized")
	return nil
}
