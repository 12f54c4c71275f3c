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

const todoColumns = `id, org_id, status, type, title, instructions, evidence_urls,
	due_at, client_id, run_id, job_id, created_at, updated_at`

// TodoRepo provides database operations for operator todos.
type TodoRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTodoRepo creates a new TodoRepo with the real clock.
func NewTodoRepo(db *sql.DB) *TodoRepo {
	return &TodoRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewTodoRepoWithTimeProvider creates a TodoRepo with a custom clock (useful for tests).
func NewTodoRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *TodoRepo {
	return &TodoRepo{DB: db, timeProvider: tp}
}

// EnsureInTx creates the todo unless a non-closed twin already exists for
// the same (org, type, client, job, run) key. Returns the new todo's id,
// or the empty string when the twin made the call a no-op. Pipeline steps
// call this on every pass, so the dedupe is what keeps repeated imports
// and sweeps from piling up duplicate tasks.
func (r *TodoRepo) EnsureInTx(ctx context.Context, tx pgx.Tx, params model.EnsureTodoParams) (string, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM todos
			WHERE org_id = $1 AND type = $2
			  AND client_id IS NOT DISTINCT FROM $3
			  AND job_id IS NOT DISTINCT FROM $4
			  AND run_id IS NOT DISTINCT FROM $5
			  AND status NOT IN ('done', 'canceled')
		)`,
		params.OrgID, params.Type, params.ClientID, params.JobID, params.RunID,
	).Scan(&exists)
	if err != nil {
		return "", apperrors.MapDBError(err)
	}
	if exists {
		return "", nil
	}

	var instructions *string
	if v := strings.TrimSpace(params.Instructions); v != "" {
		instructions = &v
	}
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO todos (org_id, status, type, title, instructions, client_id, run_id, job_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		params.OrgID, model.TodoStatusOpen, params.Type, params.Title,
		instructions, params.ClientID, params.RunID, params.JobID,
		r.timeProvider.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", apperrors.MapDBError(err)
	}
	return id, nil
}

// ListOpen retrieves the org's non-closed todos, oldest first.
func (r *TodoRepo) ListOpen(ctx context.Context, orgID string) ([]*model.Todo, error) {
	var rowsOut []model.Todo
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+todoColumns+`
			FROM todos
			WHERE org_id = $1 AND status NOT IN ('done', 'canceled')
			ORDER BY created_at`, orgID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Todo])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Todo, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// UpdateStatus moves a todo to the given status.
func (r *TodoRepo) UpdateStatus(ctx context.Context, id string, status model.TodoStatus) (*model.Todo, error) {
	var out model.Todo
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE todos SET status = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+todoColumns,
			id, status, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Todo])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
