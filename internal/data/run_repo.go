package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

const runColumns = `id, org_id, client_id, run_type, status, file_format,
	file_blob_url, file_sha256, created_at, updated_at`

const runItemColumns = `id, run_id, job_posting_id, job_revision_id, action,
	validation_json, created_at, updated_at`

const runItemDetailQuery = `
	SELECT i.id, i.action, p.job_offer_id, j.id AS job_id,
	       j.internal_title AS job_title, i.job_posting_id,
	       rev.payload_json, i.validation_json
	FROM run_items i
	JOIN job_postings p ON p.id = i.job_posting_id
	JOIN jobs j ON j.id = p.job_id
	JOIN job_revisions rev ON rev.id = i.job_revision_id
	WHERE i.run_id = $1
	ORDER BY i.id`

// RunRepo provides database operations for runs and run items.
type RunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRunRepo creates a new RunRepo with the real clock.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewRunRepoWithTimeProvider creates a RunRepo with a custom clock (useful for tests).
func NewRunRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RunRepo {
	return &RunRepo{DB: db, timeProvider: tp}
}

// runCandidate is one (posting, approved revision) pair eligible for a
// new run.
type runCandidate struct {
	PostingID  string  `db:"posting_id"`
	RevisionID string  `db:"revision_id"`
	JobOfferID *string `db:"job_offer_id"`
}

// Create builds a run and its items in one transaction: for every job of
// the client, the latest airwork posting with a current approved revision
// becomes one item. Items snapshot the revision id; later edits to the
// job never change what an existing run exports. A run with zero items is
// a valid, empty run.
func (r *RunRepo) Create(ctx context.Context, req *model.CreateRunRequest) (*model.Run, []model.RunItem, error) {
	if req == nil {
		return nil, nil, apperrors.Validation("create run request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	var run model.Run
	var items []model.RunItem
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		created, err := r.InsertRunInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		run = *created

		candidates, err := r.selectCandidatesInTx(ctx, tx, req.ClientID, req.IncludeLatestApprovedOnly)
		if err != nil {
			return err
		}

		for _, c := range candidates {
			action := model.RunItemActionCreate
			if c.JobOfferID != nil {
				action = model.RunItemActionUpdate
			}
			item, itemErr := r.insertItemInTx(ctx, tx, insertItemParams{
				RunID:      run.ID,
				PostingID:  c.PostingID,
				RevisionID: c.RevisionID,
				Action:     action,
			})
			if itemErr != nil {
				return itemErr
			}
			items = append(items, *item)
		}
		return nil
	}})
	if err != nil {
		return nil, nil, apperrors.MapDBError(err)
	}
	return &run, items, nil
}

func (r *RunRepo) selectCandidatesInTx(
	ctx context.Context,
	tx pgx.Tx,
	clientID string,
	latestApprovedOnly bool,
) ([]runCandidate, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.id AS posting_id, rev.id AS revision_id, p.job_offer_id
		FROM jobs j
		JOIN LATERAL (
			SELECT id, job_offer_id
			FROM job_postings
			WHERE job_id = j.id AND channel = $2
			ORDER BY created_at DESC
			LIMIT 1
		) p ON true
		JOIN LATERAL (
			SELECT id, rev_no
			FROM job_revisions
			WHERE job_posting_id = p.id AND status = 'approved'
			ORDER BY approved_at DESC NULLS LAST, rev_no DESC
			LIMIT 1
		) rev ON true
		WHERE j.client_id = $1
		  AND (NOT $3::boolean OR rev.rev_no = (
			SELECT MAX(rev_no) FROM job_revisions WHERE job_posting_id = p.id
		  ))
		ORDER BY j.created_at`,
		clientID, model.ChannelAirwork, latestApprovedOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[runCandidate])
}

// InsertRunInTx inserts a draft run inside a caller-owned transaction.
func (r *RunRepo) InsertRunInTx(ctx context.Context, tx pgx.Tx, req *model.CreateRunRequest) (*model.Run, error) {
	rows, err := tx.Query(ctx, `
		INSERT INTO runs (org_id, client_id, run_type, status, file_format, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+runColumns,
		req.OrgID, req.ClientID, req.RunType, model.RunStatusDraft,
		req.FileFormat, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Run])
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type insertItemParams struct {
	RunID      int64
	PostingID  string
	RevisionID string
	Action     model.RunItemAction
}

func (r *RunRepo) insertItemInTx(ctx context.Context, tx pgx.Tx, params insertItemParams) (*model.RunItem, error) {
	rows, err := tx.Query(ctx, `
		INSERT INTO run_items (run_id, job_posting_id, job_revision_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+runItemColumns,
		params.RunID, params.PostingID, params.RevisionID, params.Action,
		r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.RunItem])
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendItemInTx appends one item to a run inside a caller-owned
// transaction. The freshness sweep batches refresh items this way.
func (r *RunRepo) AppendItemInTx(
	ctx context.Context,
	tx pgx.Tx,
	runID int64,
	postingID, revisionID string,
	action model.RunItemAction,
) (*model.RunItem, error) {
	item, err := r.insertItemInTx(ctx, tx, insertItemParams{
		RunID: runID, PostingID: postingID, RevisionID: revisionID, Action: action,
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return item, nil
}

// Get retrieves a run by id.
func (r *RunRepo) Get(ctx context.Context, id int64) (*model.Run, error) {
	var out model.Run
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Run])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetDetail retrieves a run joined with its client name and item count.
func (r *RunRepo) GetDetail(ctx context.Context, id int64) (*model.RunDetail, error) {
	var out model.RunDetail
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT r.id, r.org_id, r.client_id, r.run_type, r.status, r.file_format,
			       r.file_blob_url, r.file_sha256, r.created_at, r.updated_at,
			       c.name AS client_name,
			       (SELECT COUNT(*) FROM run_items WHERE run_id = r.id)::int AS item_count
			FROM runs r
			JOIN clients c ON c.id = r.client_id
			WHERE r.id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.RunDetail])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves the org's runs with client names, newest first.
func (r *RunRepo) List(ctx context.Context, orgID string, limit, offset int) ([]*model.RunDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rowsOut []model.RunDetail
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT r.id, r.org_id, r.client_id, r.run_type, r.status, r.file_format,
			       r.file_blob_url, r.file_sha256, r.created_at, r.updated_at,
			       c.name AS client_name,
			       (SELECT COUNT(*) FROM run_items WHERE run_id = r.id)::int AS item_count
			FROM runs r
			JOIN clients c ON c.id = r.client_id
			WHERE r.org_id = $1
			ORDER BY r.created_at DESC
			LIMIT $2 OFFSET $3`, orgID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.RunDetail])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.RunDetail, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ListItems retrieves a run's raw items in id order.
func (r *RunRepo) ListItems(ctx context.Context, runID int64) ([]*model.RunItem, error) {
	var rowsOut []model.RunItem
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+runItemColumns+`
			FROM run_items
			WHERE run_id = $1
			ORDER BY id`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.RunItem])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.RunItem, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ListItemDetails retrieves a run's items joined with the posting, job
// and snapshot payload the validator and file generator need, in id
// order. Id order doubles as file row order.
func (r *RunRepo) ListItemDetails(ctx context.Context, runID int64) ([]*model.RunItemDetail, error) {
	var rowsOut []model.RunItemDetail
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, runItemDetailQuery, runID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.RunItemDetail])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.RunItemDetail, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ListItemDetailsInTx is ListItemDetails inside a caller-owned
// transaction.
func (r *RunRepo) ListItemDetailsInTx(ctx context.Context, tx pgx.Tx, runID int64) ([]*model.RunItemDetail, error) {
	rows, err := tx.Query(ctx, runItemDetailQuery, runID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	rowsOut, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.RunItemDetail])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.RunItemDetail, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// UpdateItemValidationInTx replaces one item's stored validation blob.
func (r *RunRepo) UpdateItemValidationInTx(
	ctx context.Context,
	tx pgx.Tx,
	itemID int64,
	validation *model.RunItemValidation,
) error {
	_, err := tx.Exec(ctx, `
		UPDATE run_items SET validation_json = $2, updated_at = $3
		WHERE id = $1`,
		itemID, validation, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// SetFileMetadata records the generated file's blob url and digest and
// moves the run to file_generated. Only draft and file_generated runs can
// be (re)generated; anything later is a conflict.
func (r *RunRepo) SetFileMetadata(ctx context.Context, runID int64, blobURL, sha256Hex string) (*model.Run, error) {
	var out model.Run
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE runs SET
				file_blob_url = $2,
				file_sha256 = $3,
				status = $4,
				updated_at = $5
			WHERE id = $1 AND status = ANY($6)
			RETURNING `+runColumns,
			runID, blobURL, sha256Hex, model.RunStatusFileGenerated,
			r.timeProvider.Now().UTC(),
			[]string{string(model.RunStatusDraft), string(model.RunStatusFileGenerated)},
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Run])
		return err
	})
	if err == nil {
		return &out, nil
	}

	mapped := apperrors.MapDBError(err)
	if !apperrors.IsNotFound(mapped) {
		return nil, mapped
	}
	current, checkErr := r.Get(ctx, runID)
	if checkErr != nil {
		return nil, checkErr
	}
	return nil, apperrors.Conflict(
		fmt.Sprintf("run is %s and its file can no longer be generated", current.Status))
}

// UpdateStatus moves a run along its lifecycle, rejecting illegal jumps.
func (r *RunRepo) UpdateStatus(ctx context.Context, runID int64, next model.RunStatus) (*model.Run, error) {
	if !next.Valid() {
		return nil, apperrors.ValidationField("status", "unsupported run status")
	}

	current, err := r.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("run cannot move from %s to %s", current.Status, next))
	}

	var out model.Run
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			UPDATE runs SET status = $2, updated_at = $3
			WHERE id = $1 AND status = $4
			RETURNING `+runColumns,
			runID, next, r.timeProvider.Now().UTC(), current.Status,
		)
		if qErr != nil {
			return qErr
		}
		out, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Run])
		return qErr
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			// Lost the race against a concurrent transition.
			return nil, apperrors.Conflict("run status changed concurrently")
		}
		return nil, mapped
	}
	return &out, nil
}

// FindSameDayRefreshRunInTx retrieves a still-amendable refresh run the
// sweep created for this client today, or nil. Reusing it keeps repeated
// sweeps from minting duplicate runs.
func (r *RunRepo) FindSameDayRefreshRunInTx(
	ctx context.Context,
	tx pgx.Tx,
	orgID, clientID string,
	dayStart time.Time,
) (*model.Run, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE org_id = $1 AND client_id = $2 AND run_type = $3
		  AND status = ANY($4)
		  AND created_at >= $5
		ORDER BY created_at DESC
		LIMIT 1`,
		orgID, clientID, model.RunTypeRefresh,
		[]string{
			string(model.RunStatusDraft),
			string(model.RunStatusFileGenerated),
			string(model.RunStatusExecuting),
		},
		dayStart,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Run])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
