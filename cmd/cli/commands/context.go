package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coastal-eats/shiftsync/internal/config"
	"github.com/coastal-eats/shiftsync/pkg/core/coordinator"
	"github.com/coastal-eats/shiftsync/pkg/core/model"
	"github.com/coastal-eats/shiftsync/pkg/core/swap"
	"github.com/coastal-eats/shiftsync/pkg/events"
	"github.com/coastal-eats/shiftsync/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg         *config.Config
	Database    *postgres.DB
	Coordinator *coordinator.Coordinator
	Workflow    *swap.Workflow
	Emitter     events.Emitter
	Logger      *zap.Logger
	Ctx         context.Context

	// ActorID is the worker acting on behalf of every command, from the
	// persistent --actor flag.
	ActorID string
}

// ResolveActor loads the acting worker and builds the actor identity
// carried through permission checks and audit records.
func (app *AppContext) ResolveActor() (model.Actor, error) {
	id, err := uuid.Parse(app.ActorID)
	if err != nil {
		return model.Actor{}, fmt.Errorf("actor must be a worker UUID: %w", err)
	}
	worker, err := app.Database.GetWorker(app.Ctx, id)
	if err != nil {
		return model.Actor{}, fmt.Errorf("failed to load acting worker: %w", err)
	}
	return model.Actor{
		WorkerID:           worker.ID,
		Name:               worker.FullName(),
		Role:               worker.Role,
		ManagedLocationIDs: worker.ManagedLocationIDs,
	}, nil
}
