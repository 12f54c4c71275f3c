package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/airwork"
	"github.com/ensembleops/recruitops/internal/domain/model"
)

// RunServiceOptions groups dependencies for RunService.
type RunServiceOptions struct {
	Runs    core.RunRepository
	Masters core.MastersProvider
	Tx      core.Transactor
}

// RunService orchestrates run creation, validation and lifecycle.
type RunService struct {
	runs    core.RunRepository
	masters core.MastersProvider
	tx      core.Transactor
}

// NewRunService constructs a new RunService.
func NewRunService(opts RunServiceOptions) *RunService {
	if opts.Runs == nil {
		panic("RunRepository is required")
	}
	if opts.Masters == nil {
		panic("MastersProvider is required")
	}
	if opts.Tx == nil {
		panic("Transactor is required")
	}
	return &RunService{runs: opts.Runs, masters: opts.Masters, tx: opts.Tx}
}

// Create creates a run and snapshots its items from the client's
// approved postings. A run with zero eligible postings is still created.
func (s *RunService) Create(
	ctx context.Context,
	req *model.CreateRunRequest,
) (*model.Run, []model.RunItem, error) {
	run, items, err := s.runs.Create(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}
	return run, items, nil
}

// Validate recomputes validation for every item of the run and persists
// the results. Previously imported marketplace errors are carried over
// untouched; only the computed hard errors and warnings are replaced.
func (s *RunService) Validate(ctx context.Context, runID int64) ([]*model.RunItemDetail, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	masters, err := s.masters.MastersForClient(ctx, run.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load masters: %w", err)
	}

	var items []*model.RunItemDetail
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		items, txErr = s.runs.ListItemDetailsInTx(ctx, tx, runID)
		if txErr != nil {
			return fmt.Errorf("list run items: %w", txErr)
		}
		for _, item := range items {
			result := airwork.ValidateItem(item, masters)
			if item.Validation != nil {
				result.Imported = item.Validation.Imported
			}
			if txErr = s.runs.UpdateItemValidationInTx(ctx, tx, item.ID, &result); txErr != nil {
				return fmt.Errorf("store validation for item %d: %w", item.ID, txErr)
			}
			item.Validation = &result
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus moves a run along its lifecycle.
func (s *RunService) UpdateStatus(ctx context.Context, runID int64, next model.RunStatus) (*model.Run, error) {
	run, err := s.runs.UpdateStatus(ctx, runID, next)
	if err != nil {
		return nil, fmt.Errorf("update run status: %w", err)
	}
	return run, nil
}

// Get retrieves a run by ID.
func (s *RunService) Get(ctx context.Context, id int64) (*model.Run, error) {
	return s.runs.Get(ctx, id)
}

// GetDetail retrieves a run with its client name and item count.
func (s *RunService) GetDetail(ctx context.Context, id int64) (*model.RunDetail, error) {
	return s.runs.GetDetail(ctx, id)
}

// List returns the org's runs, newest first.
func (s *RunService) List(ctx context.Context, orgID string, limit, offset int) ([]*model.RunDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.runs.List(ctx, orgID, limit, offset)
}

// ListItemDetails returns the run's items with their posting and
// revision context.
func (s *RunService) ListItemDetails(ctx context.Context, runID int64) ([]*model.RunItemDetail, error) {
	return s.runs.ListItemDetails(ctx, runID)
}
