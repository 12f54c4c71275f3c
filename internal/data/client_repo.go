package data

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// ClientRepo provides database operations for clients and their jobs.
type ClientRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewClientRepo creates a new ClientRepo with the real clock.
func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewClientRepoWithTimeProvider creates a ClientRepo with a custom clock (useful for tests).
func NewClientRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ClientRepo {
	return &ClientRepo{DB: db, timeProvider: tp}
}

// CreateClient inserts a new client under the org.
func (r *ClientRepo) CreateClient(ctx context.Context, orgID, name string) (*model.Client, error) {
	orgID = strings.TrimSpace(orgID)
	name = strings.TrimSpace(name)
	if orgID == "" {
		return nil, apperrors.ValidationField("org_id", "org id is required")
	}
	if name == "" {
		return nil, apperrors.ValidationField("name", "client name is required")
	}

	var out model.Client
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO clients (org_id, name, created_at)
			VALUES ($1, $2, $3)
			RETURNING id, org_id, name, created_at`,
			orgID, name, r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Client])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetClient retrieves a client by id.
func (r *ClientRepo) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var out model.Client
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, org_id, name, created_at
			FROM clients
			WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Client])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListClients retrieves the org's clients, newest first.
func (r *ClientRepo) ListClients(ctx context.Context, orgID string) ([]*model.Client, error) {
	var rowsOut []model.Client
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, org_id, name, created_at
			FROM clients
			WHERE org_id = $1
			ORDER BY created_at DESC`, orgID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Client])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Client, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// CreateJob inserts a job and its first airwork posting in one
// transaction. Every job carries at least one posting from birth.
func (r *ClientRepo) CreateJob(ctx context.Context, orgID, clientID, internalTitle string) (*model.Job, error) {
	orgID = strings.TrimSpace(orgID)
	internalTitle = strings.TrimSpace(internalTitle)
	if orgID == "" {
		return nil, apperrors.ValidationField("org_id", "org id is required")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, apperrors.ValidationField("client_id", "client id is required")
	}
	if internalTitle == "" {
		return nil, apperrors.ValidationField("internal_title", "internal title is required")
	}

	now := r.timeProvider.Now().UTC()
	var out model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			INSERT INTO jobs (org_id, client_id, internal_title, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, org_id, client_id, internal_title, created_at`,
			orgID, clientID, internalTitle, now,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO job_postings (job_id, channel, created_at)
			VALUES ($1, $2, $3)`,
			out.ID, model.ChannelAirwork, now,
		)
		return err
	}})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetJob retrieves a job by id.
func (r *ClientRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var out model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, org_id, client_id, internal_title, created_at
			FROM jobs
			WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListJobs retrieves a client's jobs in creation order.
func (r *ClientRepo) ListJobs(ctx context.Context, clientID string) ([]*model.Job, error) {
	var rowsOut []model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, org_id, client_id, internal_title, created_at
			FROM jobs
			WHERE client_id = $1
			ORDER BY created_at`, clientID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Job, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}
