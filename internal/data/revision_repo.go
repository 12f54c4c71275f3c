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

const revisionColumns = `id, job_posting_id, rev_no, source, status, payload_json,
	payload_hash, approved_by, approved_at, created_at, updated_at`

// RevisionRepo provides database operations for job revisions.
type RevisionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRevisionRepo creates a new RevisionRepo with the real clock.
func NewRevisionRepo(db *sql.DB) *RevisionRepo {
	return &RevisionRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewRevisionRepoWithTimeProvider creates a RevisionRepo with a custom clock (useful for tests).
func NewRevisionRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RevisionRepo {
	return &RevisionRepo{DB: db, timeProvider: tp}
}

// SaveDraft saves draft content for a posting. A posting has at most one
// draft: a hash-identical save is a no-op, a differing save overwrites the
// draft in place, and absent any draft a new revision is inserted with the
// next contiguous rev_no. The read-check-write runs in one transaction so
// concurrent saves cannot mint duplicate rev numbers.
func (r *RevisionRepo) SaveDraft(ctx context.Context, params model.SaveDraftParams) (*model.Revision, model.SaveDraftOutcome, error) {
	source := params.Source
	if source == "" {
		source = model.RevisionSourceManual
	}
	if !source.Valid() {
		return nil, "", apperrors.ValidationField("source", "unsupported revision source")
	}

	now := r.timeProvider.Now().UTC()
	var out model.Revision
	var outcome model.SaveDraftOutcome
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+revisionColumns+`
			FROM job_revisions
			WHERE job_posting_id = $1 AND status = $2
			ORDER BY rev_no DESC
			LIMIT 1
			FOR UPDATE`, params.JobPostingID, model.RevisionStatusDraft)
		if err != nil {
			return err
		}
		draft, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
		switch {
		case err == nil:
			if draft.PayloadHash == params.PayloadHash {
				out, outcome = draft, model.SaveDraftNoChanges
				return nil
			}
			return r.overwriteDraft(ctx, tx, draftUpdate{
				id: draft.ID, params: params, source: source, now: now,
			}, &out, &outcome)
		case errors.Is(err, pgx.ErrNoRows):
			return r.insertDraft(ctx, tx, params, source, now, &out, &outcome)
		default:
			return err
		}
	}})
	if err != nil {
		return nil, "", apperrors.MapDBError(err)
	}
	return &out, outcome, nil
}

type draftUpdate struct {
	id     string
	params model.SaveDraftParams
	source model.RevisionSource
	now    time.Time
}

func (r *RevisionRepo) overwriteDraft(
	ctx context.Context,
	tx pgx.Tx,
	upd draftUpdate,
	out *model.Revision,
	outcome *model.SaveDraftOutcome,
) error {
	rows, err := tx.Query(ctx, `
		UPDATE job_revisions SET
			source = $2,
			payload_json = $3,
			payload_hash = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING `+revisionColumns,
		upd.id, upd.source, upd.params.Payload, upd.params.PayloadHash, upd.now,
	)
	if err != nil {
		return err
	}
	rev, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
	if err != nil {
		return err
	}
	*out, *outcome = rev, model.SaveDraftUpdated
	return nil
}

func (r *RevisionRepo) insertDraft(
	ctx context.Context,
	tx pgx.Tx,
	params model.SaveDraftParams,
	source model.RevisionSource,
	now time.Time,
	out *model.Revision,
	outcome *model.SaveDraftOutcome,
) error {
	rows, err := tx.Query(ctx, `
		INSERT INTO job_revisions (job_posting_id, rev_no, source, status, payload_json, payload_hash, created_at)
		SELECT $1, COALESCE(MAX(rev_no), 0) + 1, $2, $3, $4, $5, $6
		FROM job_revisions
		WHERE job_posting_id = $1
		RETURNING `+revisionColumns,
		params.JobPostingID, source, model.RevisionStatusDraft,
		params.Payload, params.PayloadHash, now,
	)
	if err != nil {
		return err
	}
	rev, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
	if err != nil {
		return err
	}
	*out, *outcome = rev, model.SaveDraftCreated
	return nil
}

// SubmitForReview moves a draft to in_review.
func (r *RevisionRepo) SubmitForReview(ctx context.Context, id string) (*model.Revision, error) {
	return r.transition(ctx, transitionParams{
		id:   id,
		from: []model.RevisionStatus{model.RevisionStatusDraft},
		to:   model.RevisionStatusInReview,
	})
}

// Approve moves a draft or in_review revision to approved, recording the
// approver and timestamp in the same statement.
func (r *RevisionRepo) Approve(ctx context.Context, id, approvedBy string) (*model.Revision, error) {
	return r.transition(ctx, transitionParams{
		id:         id,
		from:       []model.RevisionStatus{model.RevisionStatusDraft, model.RevisionStatusInReview},
		to:         model.RevisionStatusApproved,
		approvedBy: &approvedBy,
	})
}

// Cancel moves a draft or in_review revision to canceled. Approved
// revisions are immutable history and cannot be canceled.
func (r *RevisionRepo) Cancel(ctx context.Context, id string) (*model.Revision, error) {
	return r.transition(ctx, transitionParams{
		id:   id,
		from: []model.RevisionStatus{model.RevisionStatusDraft, model.RevisionStatusInReview},
		to:   model.RevisionStatusCanceled,
	})
}

type transitionParams struct {
	id         string
	from       []model.RevisionStatus
	to         model.RevisionStatus
	approvedBy *string
}

// transition performs the compare-and-set status move. A zero-row update
// against an existing revision is a conflict naming the current status; a
// missing revision is not_found.
func (r *RevisionRepo) transition(ctx context.Context, params transitionParams) (*model.Revision, error) {
	now := r.timeProvider.Now().UTC()
	from := make([]string, len(params.from))
	for i, s := range params.from {
		from[i] = string(s)
	}

	var out model.Revision
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE job_revisions SET
				status = $2,
				approved_by = CASE WHEN $3::text IS NULL THEN approved_by ELSE $3 END,
				approved_at = CASE WHEN $3::text IS NULL THEN approved_at ELSE $4 END,
				updated_at = $4
			WHERE id = $1 AND status = ANY($5)
			RETURNING `+revisionColumns,
			params.id, params.to, params.approvedBy, now, from,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
		return err
	})
	if err == nil {
		return &out, nil
	}

	mapped := apperrors.MapDBError(err)
	if !apperrors.IsNotFound(mapped) {
		return nil, mapped
	}

	// Zero rows: distinguish a missing revision from an illegal move.
	current, checkErr := r.Get(ctx, params.id)
	if checkErr != nil {
		return nil, checkErr
	}
	return nil, apperrors.Conflict(
		fmt.Sprintf("revision is %s and cannot move to %s", current.Status, params.to))
}

// Get retrieves a revision by id.
func (r *RevisionRepo) Get(ctx context.Context, id string) (*model.Revision, error) {
	var out model.Revision
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+revisionColumns+` FROM job_revisions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// CurrentApproved retrieves the posting's effective approved revision:
// most recently approved first, rev_no breaking ties.
func (r *RevisionRepo) CurrentApproved(ctx context.Context, postingID string) (*model.Revision, error) {
	var out model.Revision
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, currentApprovedQuery, postingID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// CurrentApprovedInTx is CurrentApproved inside a caller-owned
// transaction. Returns nil without error when no revision is approved.
func (r *RevisionRepo) CurrentApprovedInTx(ctx context.Context, tx pgx.Tx, postingID string) (*model.Revision, error) {
	rows, err := tx.Query(ctx, currentApprovedQuery, postingID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListByPosting retrieves the posting's full revision history, newest
// rev_no first.
func (r *RevisionRepo) ListByPosting(ctx context.Context, postingID string) ([]*model.Revision, error) {
	var rowsOut []model.Revision
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+revisionColumns+`
			FROM job_revisions
			WHERE job_posting_id = $1
			ORDER BY rev_no DESC`, postingID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Revision])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	res := make([]*model.Revision, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// InsertApprovedCloneInTx inserts an already approved revision carrying a
// copied payload, used when the freshness sweep clones a stale posting.
func (r *RevisionRepo) InsertApprovedCloneInTx(
	ctx context.Context,
	tx pgx.Tx,
	params model.SaveDraftParams,
) (*model.Revision, error) {
	now := r.timeProvider.Now().UTC()
	system := "system"
	rows, err := tx.Query(ctx, `
		INSERT INTO job_revisions (
			job_posting_id, rev_no, source, status, payload_json, payload_hash,
			approved_by, approved_at, created_at
		)
		SELECT $1, COALESCE(MAX(rev_no), 0) + 1, $2, $3, $4, $5, $6, $7, $7
		FROM job_revisions
		WHERE job_posting_id = $1
		RETURNING `+revisionColumns,
		params.JobPostingID, model.RevisionSourceSystem, model.RevisionStatusApproved,
		params.Payload, params.PayloadHash, system, now,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Revision])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

const currentApprovedQuery = `
	SELECT ` + revisionColumns + `
	FROM job_revisions
	WHERE job_posting_id = $1 AND status = 'approved'
	ORDER BY approved_at DESC NULLS LAST, rev_no DESC
	LIMIT 1`
