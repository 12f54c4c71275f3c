package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// Hand-written stubs for the core ports. Function fields left nil make
// the stub return zero values, so each test only wires what it uses.

type stubTx struct {
	calls int
}

func (t *stubTx) InTx(_ context.Context, fn func(pgx.Tx) error) error {
	t.calls++
	return fn(nil)
}

type stubMasters struct {
	masters *model.Masters
	err     error
	calls   int
}

func (m *stubMasters) MastersForClient(context.Context, string) (*model.Masters, error) {
	m.calls++
	return m.masters, m.err
}

type stubJobSource struct {
	job *model.Job
	err error
}

func (s *stubJobSource) GetJob(context.Context, string) (*model.Job, error) {
	return s.job, s.err
}

type stubPostingSource struct {
	posting *model.Posting
	err     error
}

func (s *stubPostingSource) LatestForJob(context.Context, string) (*model.Posting, error) {
	return s.posting, s.err
}

type stubRevisionRepo struct {
	saveDraftFn     func(ctx context.Context, params model.SaveDraftParams) (*model.Revision, model.SaveDraftOutcome, error)
	approveFn       func(ctx context.Context, id, approvedBy string) (*model.Revision, error)
	currentInTxFn   func(ctx context.Context, tx pgx.Tx, postingID string) (*model.Revision, error)
	insertCloneFn   func(ctx context.Context, tx pgx.Tx, params model.SaveDraftParams) (*model.Revision, error)
	submitFn        func(ctx context.Context, id string) (*model.Revision, error)
	cancelFn        func(ctx context.Context, id string) (*model.Revision, error)
	getFn           func(ctx context.Context, id string) (*model.Revision, error)
	currentFn       func(ctx context.Context, postingID string) (*model.Revision, error)
	listByPostingFn func(ctx context.Context, postingID string) ([]*model.Revision, error)
}

func (r *stubRevisionRepo) SaveDraft(ctx context.Context, params model.SaveDraftParams) (*model.Revision, model.SaveDraftOutcome, error) {
	if r.saveDraftFn == nil {
		return nil, "", nil
	}
	return r.saveDraftFn(ctx, params)
}

func (r *stubRevisionRepo) SubmitForReview(ctx context.Context, id string) (*model.Revision, error) {
	if r.submitFn == nil {
		return nil, nil
	}
	return r.submitFn(ctx, id)
}

func (r *stubRevisionRepo) Approve(ctx context.Context, id, approvedBy string) (*model.Revision, error) {
	if r.approveFn == nil {
		return nil, nil
	}
	return r.approveFn(ctx, id, approvedBy)
}

func (r *stubRevisionRepo) Cancel(ctx context.Context, id string) (*model.Revision, error) {
	if r.cancelFn == nil {
		return nil, nil
	}
	return r.cancelFn(ctx, id)
}

func (r *stubRevisionRepo) Get(ctx context.Context, id string) (*model.Revision, error) {
	if r.getFn == nil {
		return nil, nil
	}
	return r.getFn(ctx, id)
}

func (r *stubRevisionRepo) CurrentApproved(ctx context.Context, postingID string) (*model.Revision, error) {
	if r.currentFn == nil {
		return nil, nil
	}
	return r.currentFn(ctx, postingID)
}

func (r *stubRevisionRepo) CurrentApprovedInTx(ctx context.Context, tx pgx.Tx, postingID string) (*model.Revision, error) {
	if r.currentInTxFn == nil {
		return nil, nil
	}
	return r.currentInTxFn(ctx, tx, postingID)
}

func (r *stubRevisionRepo) ListByPosting(ctx context.Context, postingID string) ([]*model.Revision, error) {
	if r.listByPostingFn == nil {
		return nil, nil
	}
	return r.listByPostingFn(ctx, postingID)
}

func (r *stubRevisionRepo) InsertApprovedCloneInTx(ctx context.Context, tx pgx.Tx, params model.SaveDraftParams) (*model.Revision, error) {
	if r.insertCloneFn == nil {
		return nil, nil
	}
	return r.insertCloneFn(ctx, tx, params)
}

type stubPostingRepo struct {
	getFn          func(ctx context.Context, id string) (*model.Posting, error)
	latestForJobFn func(ctx context.Context, jobID string) (*model.Posting, error)
	listSyncFn     func(ctx context.Context, tx pgx.Tx, clientID string) ([]model.PostingSync, error)
	applySyncFn    func(ctx context.Context, tx pgx.Tx, postingID string, upd model.SyncUpdate) error
	listStaleFn    func(ctx context.Context, tx pgx.Tx, cutoff, now time.Time) ([]model.StalePosting, error)
	markFn         func(ctx context.Context, tx pgx.Tx, postingID string, expiry *time.Time) error
	siblingFn      func(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error)
	hasRunItemFn   func(ctx context.Context, tx pgx.Tx, postingID string) (bool, error)
	insertCloneFn  func(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error)
}

func (r *stubPostingRepo) Get(ctx context.Context, id string) (*model.Posting, error) {
	if r.getFn == nil {
		return nil, nil
	}
	return r.getFn(ctx, id)
}

func (r *stubPostingRepo) LatestForJob(ctx context.Context, jobID string) (*model.Posting, error) {
	if r.latestForJobFn == nil {
		return nil, nil
	}
	return r.latestForJobFn(ctx, jobID)
}

func (r *stubPostingRepo) ListForClientSyncInTx(ctx context.Context, tx pgx.Tx, clientID string) ([]model.PostingSync, error) {
	if r.listSyncFn == nil {
		return nil, nil
	}
	return r.listSyncFn(ctx, tx, clientID)
}

func (r *stubPostingRepo) ApplySyncInTx(ctx context.Context, tx pgx.Tx, postingID string, upd model.SyncUpdate) error {
	if r.applySyncFn == nil {
		return nil
	}
	return r.applySyncFn(ctx, tx, postingID, upd)
}

func (r *stubPostingRepo) ListStaleInTx(ctx context.Context, tx pgx.Tx, cutoff, now time.Time) ([]model.StalePosting, error) {
	if r.listStaleFn == nil {
		return nil, nil
	}
	return r.listStaleFn(ctx, tx, cutoff, now)
}

func (r *stubPostingRepo) MarkRefreshCandidateInTx(ctx context.Context, tx pgx.Tx, postingID string, expiry *time.Time) error {
	if r.markFn == nil {
		return nil
	}
	return r.markFn(ctx, tx, postingID, expiry)
}

func (r *stubPostingRepo) LatestUnlinkedSiblingInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error) {
	if r.siblingFn == nil {
		return nil, nil
	}
	return r.siblingFn(ctx, tx, jobID)
}

func (r *stubPostingRepo) HasRunItemInTx(ctx context.Context, tx pgx.Tx, postingID string) (bool, error) {
	if r.hasRunItemFn == nil {
		return false, nil
	}
	return r.hasRunItemFn(ctx, tx, postingID)
}

func (r *stubPostingRepo) InsertCloneInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error) {
	if r.insertCloneFn == nil {
		return nil, nil
	}
	return r.insertCloneFn(ctx, tx, jobID)
}

type stubRunRepo struct {
	createFn           func(ctx context.Context, req *model.CreateRunRequest) (*model.Run, []model.RunItem, error)
	getFn              func(ctx context.Context, id int64) (*model.Run, error)
	getDetailFn        func(ctx context.Context, id int64) (*model.RunDetail, error)
	listFn             func(ctx context.Context, orgID string, limit, offset int) ([]*model.RunDetail, error)
	listItemsFn        func(ctx context.Context, runID int64) ([]*model.RunItem, error)
	listDetailsFn      func(ctx context.Context, runID int64) ([]*model.RunItemDetail, error)
	listDetailsInTxFn  func(ctx context.Context, tx pgx.Tx, runID int64) ([]*model.RunItemDetail, error)
	updateValidationFn func(ctx context.Context, tx pgx.Tx, itemID int64, validation *model.RunItemValidation) error
	setFileFn          func(ctx context.Context, runID int64, blobURL, sha string) (*model.Run, error)
	updateStatusFn     func(ctx context.Context, runID int64, next model.RunStatus) (*model.Run, error)
	findSameDayFn      func(ctx context.Context, tx pgx.Tx, orgID, clientID string, dayStart time.Time) (*model.Run, error)
	insertRunFn        func(ctx context.Context, tx pgx.Tx, req *model.CreateRunRequest) (*model.Run, error)
	appendItemFn       func(ctx context.Context, tx pgx.Tx, runID int64, postingID, revisionID string, action model.RunItemAction) (*model.RunItem, error)
}

func (r *stubRunRepo) Create(ctx context.Context, req *model.CreateRunRequest) (*model.Run, []model.RunItem, error) {
	if r.createFn == nil {
		return nil, nil, nil
	}
	return r.createFn(ctx, req)
}

func (r *stubRunRepo) Get(ctx context.Context, id int64) (*model.Run, error) {
	if r.getFn == nil {
		return nil, nil
	}
	return r.getFn(ctx, id)
}

func (r *stubRunRepo) GetDetail(ctx context.Context, id int64) (*model.RunDetail, error) {
	if r.getDetailFn == nil {
		return nil, nil
	}
	return r.getDetailFn(ctx, id)
}

func (r *stubRunRepo) List(ctx context.Context, orgID string, limit, offset int) ([]*model.RunDetail, error) {
	if r.listFn == nil {
		return nil, nil
	}
	return r.listFn(ctx, orgID, limit, offset)
}

func (r *stubRunRepo) ListItems(ctx context.Context, runID int64) ([]*model.RunItem, error) {
	if r.listItemsFn == nil {
		return nil, nil
	}
	return r.listItemsFn(ctx, runID)
}

func (r *stubRunRepo) ListItemDetails(ctx context.Context, runID int64) ([]*model.RunItemDetail, error) {
	if r.listDetailsFn == nil {
		return nil, nil
	}
	return r.listDetailsFn(ctx, runID)
}

func (r *stubRunRepo) ListItemDetailsInTx(ctx context.Context, tx pgx.Tx, runID int64) ([]*model.RunItemDetail, error) {
	if r.listDetailsInTxFn == nil {
		return nil, nil
	}
	return r.listDetailsInTxFn(ctx, tx, runID)
}

func (r *stubRunRepo) UpdateItemValidationInTx(ctx context.Context, tx pgx.Tx, itemID int64, validation *model.RunItemValidation) error {
	if r.updateValidationFn == nil {
		return nil
	}
	return r.updateValidationFn(ctx, tx, itemID, validation)
}

func (r *stubRunRepo) SetFileMetadata(ctx context.Context, runID int64, blobURL, sha string) (*model.Run, error) {
	if r.setFileFn == nil {
		return nil, nil
	}
	return r.setFileFn(ctx, runID, blobURL, sha)
}

func (r *stubRunRepo) UpdateStatus(ctx context.Context, runID int64, next model.RunStatus) (*model.Run, error) {
	if r.updateStatusFn == nil {
		return nil, nil
	}
	return r.updateStatusFn(ctx, runID, next)
}

func (r *stubRunRepo) FindSameDayRefreshRunInTx(ctx context.Context, tx pgx.Tx, orgID, clientID string, dayStart time.Time) (*model.Run, error) {
	if r.findSameDayFn == nil {
		return nil, nil
	}
	return r.findSameDayFn(ctx, tx, orgID, clientID, dayStart)
}

func (r *stubRunRepo) InsertRunInTx(ctx context.Context, tx pgx.Tx, req *model.CreateRunRequest) (*model.Run, error) {
	if r.insertRunFn == nil {
		return nil, nil
	}
	return r.insertRunFn(ctx, tx, req)
}

func (r *stubRunRepo) AppendItemInTx(ctx context.Context, tx pgx.Tx, runID int64, postingID, revisionID string, action model.RunItemAction) (*model.RunItem, error) {
	if r.appendItemFn == nil {
		return &model.RunItem{RunID: runID, JobPostingID: postingID, JobRevisionID: revisionID, Action: action}, nil
	}
	return r.appendItemFn(ctx, tx, runID, postingID, revisionID, action)
}

type todoCall struct {
	params model.EnsureTodoParams
}

type stubTodoRepo struct {
	ensured  []todoCall
	ensureFn func(ctx context.Context, tx pgx.Tx, params model.EnsureTodoParams) (string, error)
}

func (r *stubTodoRepo) EnsureInTx(ctx context.Context, tx pgx.Tx, params model.EnsureTodoParams) (string, error) {
	r.ensured = append(r.ensured, todoCall{params: params})
	if r.ensureFn == nil {
		return fmt.Sprintf("todo-%d", len(r.ensured)), nil
	}
	return r.ensureFn(ctx, tx, params)
}

func (r *stubTodoRepo) ListOpen(context.Context, string) ([]*model.Todo, error) {
	return nil, nil
}

func (r *stubTodoRepo) UpdateStatus(context.Context, string, model.TodoStatus) (*model.Todo, error) {
	return nil, nil
}

func (r *stubTodoRepo) typesEnsured() []model.TodoType {
	types := make([]model.TodoType, 0, len(r.ensured))
	for _, c := range r.ensured {
		types = append(types, c.params.Type)
	}
	return types
}

type auditCall struct {
	orgID   string
	action  string
	payload any
}

type stubAuditRepo struct {
	inserted []auditCall
	err      error
}

func (r *stubAuditRepo) InsertInTx(_ context.Context, _ pgx.Tx, orgID, action string, payload any) error {
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, auditCall{orgID: orgID, action: action, payload: payload})
	return nil
}

func (r *stubAuditRepo) ListRecent(context.Context, string, int) ([]*model.AuditLog, error) {
	return nil, nil
}

type blobCall struct {
	name        string
	data        []byte
	contentType string
}

type stubBlobStore struct {
	puts []blobCall
	err  error
}

func (b *stubBlobStore) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.puts = append(b.puts, blobCall{name: name, data: append([]byte(nil), data...), contentType: contentType})
	return "mem://" + name, nil
}
