package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// AuditRepo provides append-only audit log writes and reads.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditRepo creates a new AuditRepo with the real clock.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAuditRepoWithTimeProvider creates an AuditRepo with a custom clock (useful for tests).
func NewAuditRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: tp}
}

// InsertInTx appends one audit record inside a caller-owned transaction,
// so import and sweep summaries commit or roll back with the work they
// describe. Payload is any JSON-marshalable summary.
func (r *AuditRepo) InsertInTx(
	ctx context.Context,
	tx pgx.Tx,
	orgID, action string,
	payload any,
) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_logs (org_id, action, payload_json, created_at)
		VALUES ($1, $2, $3, $4)`,
		orgID, action, raw, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListRecent retrieves the org's newest audit records.
func (r *AuditRepo) ListRecent(ctx context.Context, orgID string, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var rowsOut []model.AuditLog
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, org_id, action, payload_json, created_by, created_at
			FROM audit_logs
			WHERE org_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, orgID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditLog])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.AuditLog, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}
