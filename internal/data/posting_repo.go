package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/data/pgxutil"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

const postingColumns = `id, job_id, channel, job_offer_id, publish_status_cache,
	last_published_at, freshness_expires_at, is_refresh_candidate, created_at, updated_at`

// PostingRepo provides database operations for job postings.
type PostingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPostingRepo creates a new PostingRepo with the real clock.
func NewPostingRepo(db *sql.DB) *PostingRepo {
	return &PostingRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewPostingRepoWithTimeProvider creates a PostingRepo with a custom clock (useful for tests).
func NewPostingRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *PostingRepo {
	return &PostingRepo{DB: db, timeProvider: tp}
}

// Get retrieves a posting by id.
func (r *PostingRepo) Get(ctx context.Context, id string) (*model.Posting, error) {
	var out model.Posting
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+postingColumns+` FROM job_postings WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Posting])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// LatestForJob retrieves the most recently created airwork posting of a
// job. New drafts and runs always target this one.
func (r *PostingRepo) LatestForJob(ctx context.Context, jobID string) (*model.Posting, error) {
	var out model.Posting
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+postingColumns+`
			FROM job_postings
			WHERE job_id = $1 AND channel = $2
			ORDER BY created_at DESC
			LIMIT 1`, jobID, model.ChannelAirwork)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Posting])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListForClientSyncInTx retrieves the latest airwork posting of every job
// of the client together with its current approved payload (empty when no
// revision is approved yet).
func (r *PostingRepo) ListForClientSyncInTx(ctx context.Context, tx pgx.Tx, clientID string) ([]model.PostingSync, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.id, p.job_id, p.job_offer_id, COALESCE(rev.payload_json, '{}'::jsonb) AS payload_json
		FROM jobs j
		JOIN LATERAL (
			SELECT id, job_id, job_offer_id
			FROM job_postings
			WHERE job_id = j.id AND channel = $2
			ORDER BY created_at DESC
			LIMIT 1
		) p ON true
		LEFT JOIN LATERAL (
			SELECT payload_json
			FROM job_revisions
			WHERE job_posting_id = p.id AND status = 'approved'
			ORDER BY approved_at DESC NULLS LAST, rev_no DESC
			LIMIT 1
		) rev ON true
		WHERE j.client_id = $1
		ORDER BY j.created_at`, clientID, model.ChannelAirwork)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.PostingSync])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// ApplySyncInTx merges marketplace state into a posting. The offer id
// only ever fills an absent value; the marketplace cannot relink an
// already linked posting. The remaining fields keep their stored value
// when the incoming one is absent.
func (r *PostingRepo) ApplySyncInTx(ctx context.Context, tx pgx.Tx, postingID string, upd model.SyncUpdate) error {
	_, err := tx.Exec(ctx, `
		UPDATE job_postings SET
			job_offer_id = COALESCE(job_offer_id, $2),
			publish_status_cache = COALESCE($3, publish_status_cache),
			last_published_at = COALESCE($4, last_published_at),
			freshness_expires_at = COALESCE($5, freshness_expires_at),
			updated_at = $6
		WHERE id = $1`,
		postingID, upd.JobOfferID, upd.PublishStatusCache,
		upd.LastPublishedAt, upd.FreshnessExpiresAt, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListStaleInTx retrieves the latest airwork posting per job where the
// last publication is at or past the cutoff, or the stamped expiry has
// passed. Postings never published are not stale.
func (r *PostingRepo) ListStaleInTx(ctx context.Context, tx pgx.Tx, cutoff, now time.Time) ([]model.StalePosting, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.*, j.org_id, j.client_id, j.internal_title
		FROM (
			SELECT DISTINCT ON (job_id) `+postingColumns+`
			FROM job_postings
			WHERE channel = $1
			ORDER BY job_id, created_at DESC
		) p
		JOIN jobs j ON j.id = p.job_id
		WHERE (p.last_published_at IS NOT NULL AND p.last_published_at <= $2)
		   OR (p.freshness_expires_at IS NOT NULL AND p.freshness_expires_at <= $3)
		ORDER BY j.org_id, j.client_id, p.created_at`,
		model.ChannelAirwork, cutoff, now)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.StalePosting])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// MarkRefreshCandidateInTx flags a posting for refresh and stamps its
// expiry. The stamp applies when no expiry is stored or the stored one is
// still in the future; an expiry already in the past stays as the record
// of when the listing lapsed.
func (r *PostingRepo) MarkRefreshCandidateInTx(ctx context.Context, tx pgx.Tx, postingID string, expiry *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE job_postings SET
			is_refresh_candidate = true,
			freshness_expires_at = CASE
				WHEN $2::timestamptz IS NOT NULL
				 AND (freshness_expires_at IS NULL OR freshness_expires_at > $3)
				THEN $2
				ELSE freshness_expires_at
			END,
			updated_at = $3
		WHERE id = $1`,
		postingID, expiry, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// LatestUnlinkedSiblingInTx retrieves the newest airwork posting of the
// job that has no offer id yet, or nil when none exists. The sweep uses
// it to avoid cloning the same stale posting twice.
func (r *PostingRepo) LatestUnlinkedSiblingInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+postingColumns+`
		FROM job_postings
		WHERE job_id = $1 AND channel = $2 AND job_offer_id IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, jobID, model.ChannelAirwork)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Posting])
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, nil
		}
		return nil, mapped
	}
	return &out, nil
}

// HasRunItemInTx reports whether any run references the posting.
func (r *PostingRepo) HasRunItemInTx(ctx context.Context, tx pgx.Tx, postingID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM run_items WHERE job_posting_id = $1)`, postingID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

// InsertCloneInTx creates a fresh unlinked posting for the job, the
// republish target of a refresh cycle.
func (r *PostingRepo) InsertCloneInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error) {
	rows, err := tx.Query(ctx, `
		INSERT INTO job_postings (job_id, channel, created_at)
		VALUES ($1, $2, $3)
		RETURNING `+postingColumns,
		jobID, model.ChannelAirwork, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Posting])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
