package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// insertAudit writes an audit event within the caller's transaction so the
// record commits or rolls back with the change it describes.
func insertAudit(ctx context.Context, tx pgx.Tx, event model.AuditEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity_id, before, after, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.ActorID, event.Action, event.EntityID, event.Before, event.After, event.At)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}
