// internal/admin/audit.go
package admin

import (
	"context"
	"time"

	"admin-gateway/internal/common/database"
	errs "admin-gateway/internal/common/errors"
	"admin-gateway/internal/common/logger"

	"github.com/google/uuid"
)

const insertAuditLog = `
INSERT INTO admin_logs (id, admin_id, action, entity_id, created_at)
VALUES ($1, $2, $3, $4, $5)`

// AuditLog persists one row per mutating admin action.
type AuditLog struct {
	db  *database.PostgresClient
	log logger.Logger
}

// NewAuditLog wraps the database client. A nil db disables auditing.
func NewAuditLog(db *database.PostgresClient, log logger.Logger) *AuditLog {
	return &AuditLog{db: db, log: log}
}

// Record inserts an audit row for the given admin action.
func (a *AuditLog) Record(ctx context.Context, adminID, action, entityID string) error {
	if a.db == nil {
		return nil
	}

	_, err := a.db.Exec(ctx, insertAuditLog, uuid.NewString(), adminID, action, entityID, time.Now().UTC())
	if err != nil {
		a.log.Error("failed to write audit log", map[string]interface{}{
			"admin_id":  adminID,
			"action":    action,
			"entity_id": entityID,
			"error":     err.Error(),
		})
		return errs.NewAuditWriteFailed(err)
	}
	return nil
}
