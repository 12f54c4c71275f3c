package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
	"github.com/ensembleops/recruitops/internal/testutil"
)

func TestRunRepo_Create_SnapshotsApprovedPostings(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")

		// Job with an approved revision enters the run.
		_, approvedPosting := createTestJob(t, db, client.ID, "Picker")
		approved := approveTestRevision(t, db, approvedPosting.ID, testPayload())

		// Job with only a draft stays out.
		_, draftPosting := createTestJob(t, db, client.ID, "Admin")
		saveTestDraft(t, db, draftPosting.ID, testPayload())

		run, items, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusDraft, run.Status)
		assert.Equal(t, model.RunTypeUpdate, run.RunType)
		require.Len(t, items, 1)
		assert.Equal(t, approvedPosting.ID, items[0].JobPostingID)
		assert.Equal(t, approved.ID, items[0].JobRevisionID)
		// Unlinked postings are create actions.
		assert.Equal(t, model.RunItemActionCreate, items[0].Action)
	})
}

func TestRunRepo_Create_ZeroEligiblePostings(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Empty Client")

		run, items, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusDraft, run.Status)
		assert.Empty(t, items)
	})
}

func TestRunRepo_Create_LatestApprovedOnly(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")

		// Approved revision, then a newer draft on top: the approval is
		// superseded and latest-approved-only excludes the posting.
		_, posting := createTestJob(t, db, client.ID, "Picker")
		approveTestRevision(t, db, posting.ID, testPayload())
		newer := testPayload()
		newer[model.PayloadKeyTitle] = "Newer Draft"
		saveTestDraft(t, db, posting.ID, newer)

		all, items, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)
		assert.NotNil(t, all)
		require.Len(t, items, 1)

		_, filtered, err := repo.Create(ctx,
			testutil.NewRunRequest().WithClient(client.ID).LatestApprovedOnly().Build())
		require.NoError(t, err)
		assert.Empty(t, filtered)
	})
}

func TestRunRepo_Get_List_Detail(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")
		_, posting := createTestJob(t, db, client.ID, "Picker")
		approveTestRevision(t, db, posting.ID, testPayload())

		run, _, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)

		got, err := repo.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)

		detail, err := repo.GetDetail(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "Northwind", detail.ClientName)
		assert.Equal(t, 1, detail.ItemCount)

		listed, err := repo.List(ctx, testOrgID, 10, 0)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, run.ID, listed[0].ID)

		// Pagination past the end returns an empty list.
		page, err := repo.List(ctx, testOrgID, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestRunRepo_ListItemDetails_CarriesSnapshotPayload(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")
		job, posting := createTestJob(t, db, client.ID, "Picker")
		approveTestRevision(t, db, posting.ID, testPayload())

		run, _, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)

		details, err := repo.ListItemDetails(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, job.ID, details[0].JobID)
		assert.Equal(t, "Picker", details[0].JobTitle)
		assert.Equal(t, testPayload()[model.PayloadKeyTitle],
			details[0].PayloadValue(model.PayloadKeyTitle))
	})
}

func TestRunRepo_SetFileMetadata(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")

		run, _, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)

		updated, err := repo.SetFileMetadata(ctx, run.ID, "file:///runs/1.xlsx", "abc123")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFileGenerated, updated.Status)
		require.NotNil(t, updated.FileBlobURL)
		assert.Equal(t, "file:///runs/1.xlsx", *updated.FileBlobURL)

		// Regeneration while still file_generated is allowed.
		again, err := repo.SetFileMetadata(ctx, run.ID, "file:///runs/1-v2.xlsx", "def456")
		require.NoError(t, err)
		require.NotNil(t, again.FileSHA256)
		assert.Equal(t, "def456", *again.FileSHA256)

		// Once executing, the file is frozen.
		_, err = repo.UpdateStatus(ctx, run.ID, model.RunStatusExecuting)
		require.NoError(t, err)
		_, err = repo.SetFileMetadata(ctx, run.ID, "file:///runs/1-v3.xlsx", "zzz")
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestRunRepo_UpdateStatus_RejectsIllegalJumps(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewRunRepo(db)
		client := createTestClient(t, db, "Northwind")

		run, _, err := repo.Create(ctx, testutil.NewRunRequest().WithClient(client.ID).Build())
		require.NoError(t, err)

		// draft cannot jump straight to done.
		_, err = repo.UpdateStatus(ctx, run.ID, model.RunStatusDone)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		_, err = repo.UpdateStatus(ctx, run.ID, "bogus")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		fileGen, err := repo.UpdateStatus(ctx, run.ID, model.RunStatusFileGenerated)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFileGenerated, fileGen.Status)

		executing, err := repo.UpdateStatus(ctx, run.ID, model.RunStatusExecuting)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusExecuting, executing.Status)

		done, err := repo.UpdateStatus(ctx, run.ID, model.RunStatusDone)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusDone, done.Status)

		// Terminal states never move.
		_, err = repo.UpdateStatus(ctx, run.ID, model.RunStatusFailed)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}
