package service

import (
	"context"
	"fmt"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/canonical"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// jobSource resolves the job a draft save targets.
type jobSource interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
}

// postingSource resolves the posting a draft save attaches to.
type postingSource interface {
	LatestForJob(ctx context.Context, jobID string) (*model.Posting, error)
}

// RevisionScope bundles the lookups that anchor a draft to its posting.
type RevisionScope struct {
	Jobs     jobSource
	Postings postingSource
}

// RevisionServiceOptions groups dependencies for RevisionService.
type RevisionServiceOptions struct {
	Revisions core.RevisionRepository
	Scope     RevisionScope
	Masters   core.MastersProvider
}

// RevisionService orchestrates draft saves and the revision lifecycle.
type RevisionService struct {
	revisions core.RevisionRepository
	scope     RevisionScope
	masters   core.MastersProvider
}

// NewRevisionService constructs a new RevisionService.
func NewRevisionService(opts RevisionServiceOptions) *RevisionService {
	if opts.Revisions == nil {
		panic("RevisionRepository is required")
	}
	if opts.Scope.Jobs == nil || opts.Scope.Postings == nil {
		panic("RevisionScope is required")
	}
	if opts.Masters == nil {
		panic("MastersProvider is required")
	}
	return &RevisionService{
		revisions: opts.Revisions,
		scope:     opts.Scope,
		masters:   opts.Masters,
	}
}

// SaveDraft canonicalizes the request into a payload and saves it as the
// draft of the job's latest posting. Saving content identical to the
// existing draft is a no-op; different content overwrites the draft in
// place; absent any draft a new revision is appended.
func (s *RevisionService) SaveDraft(
	ctx context.Context,
	req *model.DraftRequest,
) (*model.Revision, model.SaveDraftOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	job, err := s.scope.Jobs.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, "", fmt.Errorf("get job: %w", err)
	}
	// Cross-org access reads as absence, never as a permission error.
	if job.OrgID != req.OrgID {
		return nil, "", apperrors.NotFound("job not found")
	}

	posting, err := s.scope.Postings.LatestForJob(ctx, job.ID)
	if err != nil {
		return nil, "", fmt.Errorf("latest posting: %w", err)
	}

	payload := req.BuildPayload()
	if err := s.checkLocationScope(ctx, job.ClientID, payload); err != nil {
		return nil, "", err
	}

	rev, outcome, err := s.revisions.SaveDraft(ctx, model.SaveDraftParams{
		JobPostingID: posting.ID,
		Source:       model.RevisionSourceManual,
		Payload:      payload,
		PayloadHash:  canonical.Hash(payload),
	})
	if err != nil {
		return nil, "", fmt.Errorf("save draft: %w", err)
	}
	return rev, outcome, nil
}

// checkLocationScope rejects a payload referencing a working location the
// client has not registered. Unlike the job-type and field-key checks,
// an empty location master is no waiver: locations are per-client, so an
// unregistered one always belongs to someone else.
func (s *RevisionService) checkLocationScope(
	ctx context.Context,
	clientID string,
	payload map[string]string,
) error {
	loc := payload[model.PayloadKeyWorkingLocationID]
	if loc == "" {
		return nil
	}
	masters, err := s.masters.MastersForClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load masters: %w", err)
	}
	if !masters.HasLocation(loc) {
		return apperrors.ValidationField(
			model.PayloadKeyWorkingLocationID,
			"working location is not registered for this client",
		)
	}
	return nil
}

// SubmitForReview moves a draft into review.
func (s *RevisionService) SubmitForReview(ctx context.Context, id string) (*model.Revision, error) {
	rev, err := s.revisions.SubmitForReview(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("submit for review: %w", err)
	}
	return rev, nil
}

// Approve approves an in-review revision, recording who approved it.
func (s *RevisionService) Approve(ctx context.Context, id, approvedBy string) (*model.Revision, error) {
	if approvedBy == "" {
		return nil, apperrors.ValidationField("approved_by", "approver is required")
	}
	rev, err := s.revisions.Approve(ctx, id, approvedBy)
	if err != nil {
		return nil, fmt.Errorf("approve revision: %w", err)
	}
	return rev, nil
}

// Cancel cancels a draft or in-review revision.
func (s *RevisionService) Cancel(ctx context.Context, id string) (*model.Revision, error) {
	rev, err := s.revisions.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel revision: %w", err)
	}
	return rev, nil
}

// Get retrieves a revision by ID.
func (s *RevisionService) Get(ctx context.Context, id string) (*model.Revision, error) {
	return s.revisions.Get(ctx, id)
}

// CurrentApproved returns the posting's effective content: the most
// recently approved revision, or a not-found error when nothing has been
// approved yet.
func (s *RevisionService) CurrentApproved(ctx context.Context, postingID string) (*model.Revision, error) {
	return s.revisions.CurrentApproved(ctx, postingID)
}

// ListByPosting returns the posting's revision history, newest first.
func (s *RevisionService) ListByPosting(ctx context.Context, postingID string) ([]*model.Revision, error) {
	return s.revisions.ListByPosting(ctx, postingID)
}
