package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/model"
	"github.com/ensembleops/recruitops/internal/testutil"
)

func TestMasterRepo_UpsertAndRead(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewMasterRepo(db)
		client := createTestClient(t, db, "Northwind")

		require.NoError(t, repo.UpsertFields(ctx, []model.FieldDef{
			{FieldKey: model.PayloadKeyTitle, Label: "Title", InputKind: model.FieldInputText, IsEditable: true, SortOrder: 2, SpecVersion: "2026-01"},
			{FieldKey: model.PayloadKeyJobType, Label: "Job type", InputKind: model.FieldInputCode, IsEditable: true, SortOrder: 1, SpecVersion: "2026-01"},
		}))
		require.NoError(t, repo.UpsertCodes(ctx, []model.Code{
			{FieldKey: model.PayloadKeyJobType, Code: "part_time", Name: "Part time", IsActive: true},
			{FieldKey: model.PayloadKeyJobType, Code: "seasonal", Name: "Seasonal", IsActive: false},
		}))
		require.NoError(t, repo.UpsertLocations(ctx, client.ID, []model.Location{
			{WorkingLocationID: "WL-TEST-001", Name: "Shinjuku Office"},
		}))

		fields, err := repo.ListFields(ctx)
		require.NoError(t, err)
		require.Len(t, fields, 2)
		// Fields come back in sort order.
		assert.Equal(t, model.PayloadKeyJobType, fields[0].FieldKey)
		assert.Equal(t, model.PayloadKeyTitle, fields[1].FieldKey)

		masters, err := repo.MastersForClient(ctx, client.ID)
		require.NoError(t, err)
		assert.True(t, masters.HasLocation("WL-TEST-001"))
		assert.False(t, masters.HasLocation("WL-OTHER"))
		// Inactive codes stay out of the valid set.
		assert.True(t, masters.HasJobTypeCode("part_time"))
		assert.False(t, masters.HasJobTypeCode("seasonal"))
	})
}

func TestMasterRepo_Upsert_OverwritesExisting(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewMasterRepo(db)
		client := createTestClient(t, db, "Northwind")

		require.NoError(t, repo.UpsertLocations(ctx, client.ID, []model.Location{
			{WorkingLocationID: "WL-TEST-001", Name: "Old Name"},
		}))
		require.NoError(t, repo.UpsertLocations(ctx, client.ID, []model.Location{
			{WorkingLocationID: "WL-TEST-001", Name: "New Name"},
		}))

		masters, err := repo.MastersForClient(ctx, client.ID)
		require.NoError(t, err)
		assert.Len(t, masters.LocationIDs, 1)

		require.NoError(t, repo.UpsertCodes(ctx, []model.Code{
			{FieldKey: model.PayloadKeyJobType, Code: "part_time", Name: "Part time", IsActive: true},
		}))
		require.NoError(t, repo.UpsertCodes(ctx, []model.Code{
			{FieldKey: model.PayloadKeyJobType, Code: "part_time", Name: "Part time", IsActive: false},
		}))

		masters, err = repo.MastersForClient(ctx, client.ID)
		require.NoError(t, err)
		assert.False(t, masters.HasJobTypeCode("part_time"))
	})
}

func TestMasterRepo_MastersForClient_EmptyIsNoConstraint(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewMasterRepo(db)
		client := createTestClient(t, db, "Empty")

		masters, err := repo.MastersForClient(ctx, client.ID)
		require.NoError(t, err)
		assert.Empty(t, masters.LocationIDs)
		assert.Empty(t, masters.JobTypeCodes)
		assert.Empty(t, masters.FieldKeys)
	})
}
