package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/canonical"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
	"github.com/ensembleops/recruitops/internal/testutil"
)

func TestRevisionRepo_SaveDraft_Outcomes(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		payload := testPayload()
		params := model.SaveDraftParams{
			JobPostingID: posting.ID,
			Source:       model.RevisionSourceManual,
			Payload:      payload,
			PayloadHash:  canonical.Hash(payload),
		}

		rev, outcome, err := repo.SaveDraft(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, model.SaveDraftCreated, outcome)
		assert.Equal(t, 1, rev.RevNo)
		assert.Equal(t, model.RevisionStatusDraft, rev.Status)

		// Identical content is a no-op.
		again, outcome, err := repo.SaveDraft(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, model.SaveDraftNoChanges, outcome)
		assert.Equal(t, rev.ID, again.ID)

		// Different content overwrites the draft in place.
		payload[model.PayloadKeyTitle] = "Night Shift Picker"
		params.Payload = payload
		params.PayloadHash = canonical.Hash(payload)

		updated, outcome, err := repo.SaveDraft(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, model.SaveDraftUpdated, outcome)
		assert.Equal(t, rev.ID, updated.ID)
		assert.Equal(t, 1, updated.RevNo)
		assert.Equal(t, "Night Shift Picker", updated.Payload[model.PayloadKeyTitle])
	})
}

func TestRevisionRepo_SaveDraft_RevNoContiguous(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		first := approveTestRevision(t, db, posting.ID, testPayload())
		assert.Equal(t, 1, first.RevNo)

		payload := testPayload()
		payload[model.PayloadKeyTitle] = "Second Draft"
		second := saveTestDraft(t, db, posting.ID, payload)
		assert.Equal(t, 2, second.RevNo)

		history, err := repo.ListByPosting(ctx, posting.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 2, history[0].RevNo)
		assert.Equal(t, 1, history[1].RevNo)
	})
}

func TestRevisionRepo_Transitions(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		rev := saveTestDraft(t, db, posting.ID, testPayload())

		inReview, err := repo.SubmitForReview(ctx, rev.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RevisionStatusInReview, inReview.Status)

		approved, err := repo.Approve(ctx, rev.ID, "reviewer@example.com")
		require.NoError(t, err)
		assert.Equal(t, model.RevisionStatusApproved, approved.Status)
		require.NotNil(t, approved.ApprovedBy)
		assert.Equal(t, "reviewer@example.com", *approved.ApprovedBy)
		assert.NotNil(t, approved.ApprovedAt)

		// Approved revisions are immutable history.
		_, err = repo.Cancel(ctx, rev.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		_, err = repo.SubmitForReview(ctx, rev.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestRevisionRepo_Transition_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		_, err := NewRevisionRepo(db).SubmitForReview(context.Background(),
			"00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestRevisionRepo_ApproveFromDraftDirectly(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		rev := saveTestDraft(t, db, posting.ID, testPayload())

		approved, err := repo.Approve(ctx, rev.ID, "tester")
		require.NoError(t, err)
		assert.Equal(t, model.RevisionStatusApproved, approved.Status)
	})
}

func TestRevisionRepo_CurrentApproved_PicksLatestApproval(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := testutil.NewTestTimeProvider(testutil.TestTime())
		repo := NewRevisionRepoWithTimeProvider(db, tp)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		firstPayload := testPayload()
		first, _, err := repo.SaveDraft(ctx, model.SaveDraftParams{
			JobPostingID: posting.ID,
			Payload:      firstPayload,
			PayloadHash:  canonical.Hash(firstPayload),
		})
		require.NoError(t, err)
		_, err = repo.Approve(ctx, first.ID, "tester")
		require.NoError(t, err)

		tp.AddTime(time.Hour)

		secondPayload := testPayload()
		secondPayload[model.PayloadKeyTitle] = "Updated Title"
		second, _, err := repo.SaveDraft(ctx, model.SaveDraftParams{
			JobPostingID: posting.ID,
			Payload:      secondPayload,
			PayloadHash:  canonical.Hash(secondPayload),
		})
		require.NoError(t, err)
		_, err = repo.Approve(ctx, second.ID, "tester")
		require.NoError(t, err)

		current, err := repo.CurrentApproved(ctx, posting.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, current.ID)
		assert.Equal(t, "Updated Title", current.Payload[model.PayloadKeyTitle])
	})
}

func TestRevisionRepo_CurrentApprovedInTx_NilWhenNone(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		saveTestDraft(t, db, posting.ID, testPayload())

		err := NewTransactor(db).InTx(ctx, func(tx pgx.Tx) error {
			current, txErr := repo.CurrentApprovedInTx(ctx, tx, posting.ID)
			require.NoError(t, txErr)
			assert.Nil(t, current)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestRevisionRepo_InsertApprovedCloneInTx(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRevisionRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")

		approveTestRevision(t, db, posting.ID, testPayload())

		payload := testPayload()
		err := NewTransactor(db).InTx(ctx, func(tx pgx.Tx) error {
			clone, txErr := repo.InsertApprovedCloneInTx(ctx, tx, model.SaveDraftParams{
				JobPostingID: posting.ID,
				Payload:      payload,
				PayloadHash:  canonical.Hash(payload),
			})
			require.NoError(t, txErr)
			assert.Equal(t, 2, clone.RevNo)
			assert.Equal(t, model.RevisionSourceSystem, clone.Source)
			assert.Equal(t, model.RevisionStatusApproved, clone.Status)
			require.NotNil(t, clone.ApprovedBy)
			assert.Equal(t, "system", *clone.ApprovedBy)
			return nil
		})
		require.NoError(t, err)
	})
}
