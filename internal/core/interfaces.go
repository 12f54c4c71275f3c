// Package core defines the ports between the service layer and its
// collaborators: repositories, the blob store, the cache and metrics.
// Services depend on these interfaces, not on concrete implementations.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// ClientRepository defines client and job data operations.
type ClientRepository interface {
	CreateClient(ctx context.Context, orgID, name string) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, orgID string) ([]*model.Client, error)
	CreateJob(ctx context.Context, orgID, clientID, internalTitle string) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, clientID string) ([]*model.Job, error)
}

// PostingRepository defines posting data operations, including the
// transaction-scoped ones the import and freshness flows compose.
type PostingRepository interface {
	Get(ctx context.Context, id string) (*model.Posting, error)
	LatestForJob(ctx context.Context, jobID string) (*model.Posting, error)
	ListForClientSyncInTx(ctx context.Context, tx pgx.Tx, clientID string) ([]model.PostingSync, error)
	ApplySyncInTx(ctx context.Context, tx pgx.Tx, postingID string, upd model.SyncUpdate) error
	ListStaleInTx(ctx context.Context, tx pgx.Tx, cutoff, now time.Time) ([]model.StalePosting, error)
	MarkRefreshCandidateInTx(ctx context.Context, tx pgx.Tx, postingID string, expiry *time.Time) error
	LatestUnlinkedSiblingInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error)
	HasRunItemInTx(ctx context.Context, tx pgx.Tx, postingID string) (bool, error)
	InsertCloneInTx(ctx context.Context, tx pgx.Tx, jobID string) (*model.Posting, error)
}

// RevisionRepository defines revision data operations.
type RevisionRepository interface {
	SaveDraft(ctx context.Context, params model.SaveDraftParams) (*model.Revision, model.SaveDraftOutcome, error)
	SubmitForReview(ctx context.Context, id string) (*model.Revision, error)
	Approve(ctx context.Context, id, approvedBy string) (*model.Revision, error)
	Cancel(ctx context.Context, id string) (*model.Revision, error)
	Get(ctx context.Context, id string) (*model.Revision, error)
	CurrentApproved(ctx context.Context, postingID string) (*model.Revision, error)
	CurrentApprovedInTx(ctx context.Context, tx pgx.Tx, postingID string) (*model.Revision, error)
	ListByPosting(ctx context.Context, postingID string) ([]*model.Revision, error)
	InsertApprovedCloneInTx(ctx context.Context, tx pgx.Tx, params model.SaveDraftParams) (*model.Revision, error)
}

// RunRepository defines run and run item data operations.
type RunRepository interface {
	Create(ctx context.Context, req *model.CreateRunRequest) (*model.Run, []model.RunItem, error)
	Get(ctx context.Context, id int64) (*model.Run, error)
	GetDetail(ctx context.Context, id int64) (*model.RunDetail, error)
	List(ctx context.Context, orgID string, limit, offset int) ([]*model.RunDetail, error)
	ListItems(ctx context.Context, runID int64) ([]*model.RunItem, error)
	ListItemDetails(ctx context.Context, runID int64) ([]*model.RunItemDetail, error)
	ListItemDetailsInTx(ctx context.Context, tx pgx.Tx, runID int64) ([]*model.RunItemDetail, error)
	UpdateItemValidationInTx(ctx context.Context, tx pgx.Tx, itemID int64, validation *model.RunItemValidation) error
	SetFileMetadata(ctx context.Context, runID int64, blobURL, sha256Hex string) (*model.Run, error)
	UpdateStatus(ctx context.Context, runID int64, next model.RunStatus) (*model.Run, error)
	FindSameDayRefreshRunInTx(ctx context.Context, tx pgx.Tx, orgID, clientID string, dayStart time.Time) (*model.Run, error)
	InsertRunInTx(ctx context.Context, tx pgx.Tx, req *model.CreateRunRequest) (*model.Run, error)
	AppendItemInTx(ctx context.Context, tx pgx.Tx, runID int64, postingID, revisionID string, action model.RunItemAction) (*model.RunItem, error)
}

// MasterRepository defines reference master data operations.
type MasterRepository interface {
	MastersForClient(ctx context.Context, clientID string) (*model.Masters, error)
	ListFields(ctx context.Context) ([]model.FieldDef, error)
	UpsertLocations(ctx context.Context, clientID string, locations []model.Location) error
	UpsertFields(ctx context.Context, defs []model.FieldDef) error
	UpsertCodes(ctx context.Context, codes []model.Code) error
}

// TodoRepository defines operator todo data operations.
type TodoRepository interface {
	EnsureInTx(ctx context.Context, tx pgx.Tx, params model.EnsureTodoParams) (string, error)
	ListOpen(ctx context.Context, orgID string) ([]*model.Todo, error)
	UpdateStatus(ctx context.Context, id string, status model.TodoStatus) (*model.Todo, error)
}

// AuditRepository defines append-only audit log operations.
type AuditRepository interface {
	InsertInTx(ctx context.Context, tx pgx.Tx, orgID, action string, payload any) error
	ListRecent(ctx context.Context, orgID string, limit int) ([]*model.AuditLog, error)
}

// Transactor runs a function inside one database transaction so services
// can compose the repositories' *InTx methods atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// MastersProvider yields the validation masters for one client. Satisfied
// by both MasterRepository and its caching wrapper.
type MastersProvider interface {
	MastersForClient(ctx context.Context, clientID string) (*model.Masters, error)
}

// BlobStore is the outbound port for generated files and archived
// uploads. Put stores the named object and returns a stable URL.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// CacheRepository defines the caching operations the pipeline uses.
type CacheRepository interface {
	// Set stores a value with the given key and TTL. TTL 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get retrieves a value by key; a missing or expired key yields nil.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// SetIfNotExists atomically sets a key only if absent. Used for the
	// cross-instance sweep lock.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Health checks the cache connection.
	Health(ctx context.Context) error
}

// MetricsSink receives operational counters and timings.
type MetricsSink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}
