package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/canonical"
	"github.com/ensembleops/recruitops/internal/domain/model"
	"github.com/ensembleops/recruitops/internal/testutil"
)

const testOrgID = "org-test"

func createTestClient(t *testing.T, db *sql.DB, name string) *model.Client {
	t.Helper()
	client, err := NewClientRepo(db).CreateClient(context.Background(), testOrgID, name)
	require.NoError(t, err)
	return client
}

// createTestJob creates a job and returns it with its auto-created
// airwork posting.
func createTestJob(t *testing.T, db *sql.DB, clientID, title string) (*model.Job, *model.Posting) {
	t.Helper()
	ctx := context.Background()

	job, err := NewClientRepo(db).CreateJob(ctx, testOrgID, clientID, title)
	require.NoError(t, err)

	posting, err := NewPostingRepo(db).LatestForJob(ctx, job.ID)
	require.NoError(t, err)
	return job, posting
}

func saveTestDraft(t *testing.T, db *sql.DB, postingID string, payload map[string]string) *model.Revision {
	t.Helper()

	rev, _, err := NewRevisionRepo(db).SaveDraft(context.Background(), model.SaveDraftParams{
		JobPostingID: postingID,
		Source:       model.RevisionSourceManual,
		Payload:      payload,
		PayloadHash:  canonical.Hash(payload),
	})
	require.NoError(t, err)
	return rev
}

// approveTestRevision saves a draft and walks it to approved.
func approveTestRevision(t *testing.T, db *sql.DB, postingID string, payload map[string]string) *model.Revision {
	t.Helper()

	repo := NewRevisionRepo(db)
	rev := saveTestDraft(t, db, postingID, payload)

	approved, err := repo.Approve(context.Background(), rev.ID, "tester")
	require.NoError(t, err)
	return approved
}

func testPayload() map[string]string {
	return testutil.ApprovedPayload()
}
