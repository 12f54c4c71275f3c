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

func TestClientRepo_CreateClient_Validation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewClientRepo(db)

		_, err := repo.CreateClient(ctx, "", "Northwind")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		_, err = repo.CreateClient(ctx, testOrgID, "   ")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestClientRepo_CreateClient_Get_List(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewClientRepo(db)

		created, err := repo.CreateClient(ctx, testOrgID, "Northwind Staffing")
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, testOrgID, created.OrgID)
		assert.NotZero(t, created.CreatedAt)

		got, err := repo.GetClient(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Name, got.Name)

		// Other orgs never see the client.
		other, err := repo.ListClients(ctx, "org-other")
		require.NoError(t, err)
		assert.Empty(t, other)

		listed, err := repo.ListClients(ctx, testOrgID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, created.ID, listed[0].ID)
	})
}

func TestClientRepo_GetClient_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		_, err := NewClientRepo(db).GetClient(context.Background(), "00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestClientRepo_CreateJob_CreatesFirstPosting(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewClientRepo(db)
		client := createTestClient(t, db, "Acme Logistics")

		job, err := repo.CreateJob(ctx, testOrgID, client.ID, "Delivery driver")
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		assert.Equal(t, client.ID, job.ClientID)

		posting, err := NewPostingRepo(db).LatestForJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, posting.JobID)
		assert.Equal(t, model.ChannelAirwork, posting.Channel)
		assert.Nil(t, posting.JobOfferID)

		jobs, err := repo.ListJobs(ctx, client.ID)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, job.ID, jobs[0].ID)
	})
}
