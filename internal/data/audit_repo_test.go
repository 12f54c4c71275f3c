package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/testutil"
)

func TestAuditRepo_InsertInTx_ListRecent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewAuditRepo(db)

		err := NewTransactor(db).InTx(ctx, func(tx pgx.Tx) error {
			return repo.InsertInTx(ctx, tx, testOrgID, "import.sync", map[string]int{
				"rows_parsed": 12,
				"matched":     10,
			})
		})
		require.NoError(t, err)

		logs, err := repo.ListRecent(ctx, testOrgID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "import.sync", logs[0].Action)

		var payload map[string]int
		require.NoError(t, json.Unmarshal(logs[0].Payload, &payload))
		assert.Equal(t, 12, payload["rows_parsed"])

		// Other orgs never see the record.
		other, err := repo.ListRecent(ctx, "org-other", 10)
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestAuditRepo_InsertInTx_RollsBackWithTransaction(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewAuditRepo(db)

		err := NewTransactor(db).InTx(ctx, func(tx pgx.Tx) error {
			if insertErr := repo.InsertInTx(ctx, tx, testOrgID, "sweep.run", nil); insertErr != nil {
				return insertErr
			}
			return fmt.Errorf("forced rollback")
		})
		require.Error(t, err)

		logs, err := repo.ListRecent(ctx, testOrgID, 10)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestAuditRepo_ListRecent_DefaultsLimit(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewAuditRepo(db)

		err := NewTransactor(db).InTx(ctx, func(tx pgx.Tx) error {
			return repo.InsertInTx(ctx, tx, testOrgID, "run.created", nil)
		})
		require.NoError(t, err)

		logs, err := repo.ListRecent(ctx, testOrgID, 0)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})
}
