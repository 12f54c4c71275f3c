package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

type stubMasterRepo struct {
	fields    []model.FieldDef
	codes     []model.Code
	locations []model.Location
}

func (r *stubMasterRepo) MastersForClient(context.Context, string) (*model.Masters, error) {
	return &model.Masters{}, nil
}

func (r *stubMasterRepo) ListFields(context.Context) ([]model.FieldDef, error) {
	return r.fields, nil
}

func (r *stubMasterRepo) UpsertLocations(_ context.Context, _ string, locations []model.Location) error {
	r.locations = append(r.locations, locations...)
	return nil
}

func (r *stubMasterRepo) UpsertFields(_ context.Context, defs []model.FieldDef) error {
	r.fields = append(r.fields, defs...)
	return nil
}

func (r *stubMasterRepo) UpsertCodes(_ context.Context, codes []model.Code) error {
	r.codes = append(r.codes, codes...)
	return nil
}

type stubInvalidator struct {
	invalidated []string
}

func (s *stubInvalidator) Invalidate(_ context.Context, clientID string) {
	s.invalidated = append(s.invalidated, clientID)
}

func TestMasterService_ImportFieldsKeepsValidRows(t *testing.T) {
	repo := &stubMasterRepo{}
	svc := NewMasterService(MasterServiceOptions{Masters: repo})

	csvText := "field_key,label_ja,input_kind,is_editable,sort_order,spec_version\n" +
		"occupation_id,職種ID,id,true,10,2026-06\n" +
		"bad_row,ラベル,nonsense,true,20,2026-06\n"

	report, err := svc.ImportFields(context.Background(), csvText)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 3, report.Rejected[0].Line)
	require.Len(t, repo.fields, 1)
	assert.Equal(t, "occupation_id", repo.fields[0].FieldKey)
}

func TestMasterService_ImportLocationsInvalidatesCache(t *testing.T) {
	repo := &stubMasterRepo{}
	cache := &stubInvalidator{}
	svc := NewMasterService(MasterServiceOptions{Masters: repo, Cache: cache})

	csvText := "working_location_id,name\nL100,渋谷店\n"
	report, err := svc.ImportLocations(context.Background(), "client-1", csvText)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, []string{"client-1"}, cache.invalidated)
	require.Len(t, repo.locations, 1)
	assert.Equal(t, "client-1", repo.locations[0].ClientID)
}

func TestMasterService_ImportLocationsRequiresClient(t *testing.T) {
	svc := NewMasterService(MasterServiceOptions{Masters: &stubMasterRepo{}})

	_, err := svc.ImportLocations(context.Background(), "  ", "working_location_id,name\n")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestMasterService_ImportCodesAllRejectedSkipsUpsert(t *testing.T) {
	repo := &stubMasterRepo{}
	svc := NewMasterService(MasterServiceOptions{Masters: repo})

	report, err := svc.ImportCodes(context.Background(), "wrong,header\n")
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.NotEmpty(t, report.Rejected)
	assert.Empty(t, repo.codes)
}
