package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/model"
	"github.com/ensembleops/recruitops/internal/testutil"
)

func ensureTodo(t *testing.T, db *sql.DB, params model.EnsureTodoParams) bool {
	t.Helper()

	repo := NewTodoRepo(db)
	var created bool
	err := NewTransactor(db).InTx(context.Background(), func(tx pgx.Tx) error {
		id, txErr := repo.EnsureInTx(context.Background(), tx, params)
		created = id != ""
		return txErr
	})
	require.NoError(t, err)
	return created
}

func TestTodoRepo_EnsureInTx_DedupesOpenTwins(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTodoRepo(db)
		client := createTestClient(t, db, "Northwind")

		params := model.EnsureTodoParams{
			OrgID:        testOrgID,
			Type:         model.TodoTypeUploadFile,
			Title:        "Upload generated file to Airwork",
			Instructions: "Upload the run file through the Airwork bulk screen.",
			ClientID:     &client.ID,
		}

		created := ensureTodo(t, db, params)
		assert.True(t, created)

		// An open twin suppresses the second ensure.
		created = ensureTodo(t, db, params)
		assert.False(t, created)

		open, err := repo.ListOpen(ctx, testOrgID)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, model.TodoStatusOpen, open[0].Status)
		require.NotNil(t, open[0].Instructions)

		// Closing the todo reopens the key.
		_, err = repo.UpdateStatus(ctx, open[0].ID, model.TodoStatusDone)
		require.NoError(t, err)

		created = ensureTodo(t, db, params)
		assert.True(t, created)
	})
}

func TestTodoRepo_EnsureInTx_ScopeKeysAreDistinct(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTodoRepo(db)
		client := createTestClient(t, db, "Northwind")
		job, _ := createTestJob(t, db, client.ID, "Picker")

		clientScoped := model.EnsureTodoParams{
			OrgID:    testOrgID,
			Type:     model.TodoTypeDownloadSync,
			Title:    "Download latest export",
			ClientID: &client.ID,
		}
		jobScoped := model.EnsureTodoParams{
			OrgID: testOrgID,
			Type:  model.TodoTypeDownloadSync,
			Title: "Download latest export",
			JobID: &job.ID,
		}

		assert.True(t, ensureTodo(t, db, clientScoped))
		assert.True(t, ensureTodo(t, db, jobScoped))

		open, err := repo.ListOpen(ctx, testOrgID)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})
}

func TestTodoRepo_ListOpen_ExcludesClosed(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTodoRepo(db)

		ensureTodo(t, db, model.EnsureTodoParams{
			OrgID: testOrgID,
			Type:  model.TodoTypeRepublish,
			Title: "Republish delisted posting",
		})
		ensureTodo(t, db, model.EnsureTodoParams{
			OrgID: testOrgID,
			Type:  model.TodoTypeUnpublish,
			Title: "Unpublish withdrawn posting",
		})

		open, err := repo.ListOpen(ctx, testOrgID)
		require.NoError(t, err)
		require.Len(t, open, 2)

		canceled, err := repo.UpdateStatus(ctx, open[0].ID, model.TodoStatusCanceled)
		require.NoError(t, err)
		assert.Equal(t, model.TodoStatusCanceled, canceled.Status)

		remaining, err := repo.ListOpen(ctx, testOrgID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, open[1].ID, remaining[0].ID)

		// In-progress still counts as open.
		_, err = repo.UpdateStatus(ctx, remaining[0].ID, model.TodoStatusInProgress)
		require.NoError(t, err)
		stillOpen, err := repo.ListOpen(ctx, testOrgID)
		require.NoError(t, err)
		assert.Len(t, stillOpen, 1)
	})
}
