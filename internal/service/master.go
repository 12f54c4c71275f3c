package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/airwork"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// mastersInvalidator drops the cached masters after an upload changes
// them. Optional; nil means no cache is in front of the repository.
type mastersInvalidator interface {
	Invalidate(ctx context.Context, clientID string)
}

// MasterServiceOptions groups dependencies for MasterService.
type MasterServiceOptions struct {
	Masters core.MasterRepository
	Cache   mastersInvalidator
}

// MasterService imports reference master uploads.
type MasterService struct {
	masters core.MasterRepository
	cache   mastersInvalidator
}

// NewMasterService constructs a new MasterService.
func NewMasterService(opts MasterServiceOptions) *MasterService {
	if opts.Masters == nil {
		panic("MasterRepository is required")
	}
	return &MasterService{masters: opts.Masters, cache: opts.Cache}
}

// ImportReport summarizes one master CSV import. Rejected rows carry
// their line numbers so the operator can fix the upload.
type ImportReport struct {
	Imported int
	Rejected []airwork.RowError
}

// ImportFields imports a field-key master CSV. Valid rows upsert even
// when other rows are rejected.
func (s *MasterService) ImportFields(ctx context.Context, csvText string) (*ImportReport, error) {
	defs, rowErrs := airwork.ParseFieldsCSV(csvText)
	if len(defs) > 0 {
		if err := s.masters.UpsertFields(ctx, defs); err != nil {
			return nil, fmt.Errorf("upsert fields: %w", err)
		}
	}
	return &ImportReport{Imported: len(defs), Rejected: rowErrs}, nil
}

// ImportCodes imports a code master CSV.
func (s *MasterService) ImportCodes(ctx context.Context, csvText string) (*ImportReport, error) {
	codes, rowErrs := airwork.ParseCodesCSV(csvText)
	if len(codes) > 0 {
		if err := s.masters.UpsertCodes(ctx, codes); err != nil {
			return nil, fmt.Errorf("upsert codes: %w", err)
		}
	}
	return &ImportReport{Imported: len(codes), Rejected: rowErrs}, nil
}

// ImportLocations imports a client's working-location master CSV and
// invalidates the client's cached masters.
func (s *MasterService) ImportLocations(ctx context.Context, clientID, csvText string) (*ImportReport, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apperrors.ValidationField("client_id", "client id is required")
	}
	locations, rowErrs := airwork.ParseLocationsCSV(clientID, csvText)
	if len(locations) > 0 {
		if err := s.masters.UpsertLocations(ctx, clientID, locations); err != nil {
			return nil, fmt.Errorf("upsert locations: %w", err)
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx, clientID)
		}
	}
	return &ImportReport{Imported: len(locations), Rejected: rowErrs}, nil
}
