package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/airwork"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// ImportRepos bundles the repositories the import flows compose.
type ImportRepos struct {
	Postings core.PostingRepository
	Runs     core.RunRepository
	Todos    core.TodoRepository
	Audits   core.AuditRepository
}

// ImportServiceOptions groups dependencies for ImportService.
type ImportServiceOptions struct {
	Repos ImportRepos
	Blobs core.BlobStore
	Tx    core.Transactor
}

// ImportService reconciles marketplace-produced files (export syncs and
// upload result reports) back into the pipeline's state.
type ImportService struct {
	repos ImportRepos
	blobs core.BlobStore
	tx    core.Transactor
	now   func() time.Time
}

// NewImportService constructs a new ImportService.
func NewImportService(opts ImportServiceOptions) *ImportService {
	if opts.Repos.Postings == nil || opts.Repos.Runs == nil ||
		opts.Repos.Todos == nil || opts.Repos.Audits == nil {
		panic("ImportRepos is required")
	}
	if opts.Blobs == nil {
		panic("BlobStore is required")
	}
	if opts.Tx == nil {
		panic("Transactor is required")
	}
	return &ImportService{
		repos: opts.Repos,
		blobs: opts.Blobs,
		tx:    opts.Tx,
		now:   time.Now,
	}
}

// ImportSyncRequest carries one marketplace export download to reconcile
// against the run's client.
type ImportSyncRequest struct {
	OrgID    string
	RunID    int64
	FileName string
	Data     []byte
}

// SyncReport summarizes what an export-sync import changed.
type SyncReport struct {
	RowsParsed     int    `json:"rows_parsed"`
	Matched        int    `json:"matched"`
	OfferIDsLinked int    `json:"offer_ids_linked"`
	Unmatched      int    `json:"unmatched"`
	UnlinkedLeft   int    `json:"unlinked_left"`
	TodoCreated    bool   `json:"todo_created"`
	ArchiveURL     string `json:"archive_url"`
}

// ImportExportSync parses a marketplace export file downloaded after a
// run and copies its published state onto the run's client's postings.
// Rows match by job offer id first, then by title plus working location
// fingerprint. A stored offer id is never overwritten; the marketplace's
// value only fills the gap.
func (s *ImportService) ImportExportSync(ctx context.Context, req ImportSyncRequest) (*SyncReport, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return nil, apperrors.ValidationField("org_id", "org id is required")
	}
	if len(req.Data) == 0 {
		return nil, apperrors.ValidationField("file", "file is empty")
	}
	run, err := s.repos.Runs.Get(ctx, req.RunID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	// Cross-org access reads as absence, never as a permission error.
	if run.OrgID != req.OrgID {
		return nil, apperrors.NotFound("run not found")
	}

	rows := airwork.ParseExportFile(req.FileName, req.Data)

	archiveURL, err := s.archive(ctx,
		fmt.Sprintf("runs/%d/imports/%s-%s", run.ID, s.stamp(), safeFileName(req.FileName)), req.Data)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{RowsParsed: len(rows), ArchiveURL: archiveURL}
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		postings, txErr := s.repos.Postings.ListForClientSyncInTx(ctx, tx, run.ClientID)
		if txErr != nil {
			return fmt.Errorf("list postings: %w", txErr)
		}

		byOffer := make(map[string]*model.PostingSync, len(postings))
		byFingerprint := make(map[string]*model.PostingSync, len(postings))
		for i := range postings {
			p := &postings[i]
			if p.JobOfferID != nil && *p.JobOfferID != "" {
				byOffer[*p.JobOfferID] = p
			}
			title := p.Payload[model.PayloadKeyTitle]
			loc := p.Payload[model.PayloadKeyWorkingLocationID]
			if title == "" || loc == "" {
				continue
			}
			fp := airwork.Fingerprint(title, loc)
			if _, taken := byFingerprint[fp]; !taken {
				byFingerprint[fp] = p
			}
		}

		for _, row := range rows {
			target := matchSyncRow(row, byOffer, byFingerprint)
			if target == nil {
				report.Unmatched++
				continue
			}
			report.Matched++

			offer := row.Get(model.PayloadKeyJobOfferID)
			if offer != "" && (target.JobOfferID == nil || *target.JobOfferID == "") {
				report.OfferIDsLinked++
			}
			upd := model.SyncUpdate{
				JobOfferID:         optionalString(offer),
				PublishStatusCache: optionalString(row.Get("publish_status_cache")),
				LastPublishedAt:    airwork.ParseDate(row.Get("last_published_at")),
				FreshnessExpiresAt: airwork.ParseDate(row.Get("freshness_expires_at")),
			}
			if txErr = s.repos.Postings.ApplySyncInTx(ctx, tx, target.ID, upd); txErr != nil {
				return fmt.Errorf("apply sync to posting %s: %w", target.ID, txErr)
			}
		}

		// What the link todo keys on: the run's own create items whose
		// postings the sync still left without an offer id.
		items, txErr := s.repos.Runs.ListItemDetailsInTx(ctx, tx, run.ID)
		if txErr != nil {
			return fmt.Errorf("list run items: %w", txErr)
		}
		for _, item := range items {
			if item.Action == model.RunItemActionCreate && (item.JobOfferID == nil || *item.JobOfferID == "") {
				report.UnlinkedLeft++
			}
		}

		return s.repos.Audits.InsertInTx(ctx, tx, req.OrgID, model.AuditActionImportExport, map[string]any{
			"run_id":           run.ID,
			"client_id":        run.ClientID,
			"file_name":        req.FileName,
			"rows_parsed":      report.RowsParsed,
			"matched":          report.Matched,
			"offer_ids_linked": report.OfferIDsLinked,
			"unmatched":        report.Unmatched,
			"archive_url":      archiveURL,
		})
	})
	if err != nil {
		return nil, err
	}

	if report.UnlinkedLeft > 0 {
		report.TodoCreated = s.ensureTodo(ctx, model.EnsureTodoParams{
			OrgID: req.OrgID,
			Type:  model.TodoTypeLinkOfferID,
			Title: fmt.Sprintf("Link job offer IDs for run %d", run.ID),
			Instructions: fmt.Sprintf(
				"%d created item(s) of run %d still have no job offer ID. Download a fresh export after the marketplace assigns them and import it again.",
				report.UnlinkedLeft, run.ID),
			ClientID: &run.ClientID,
			RunID:    &run.ID,
		})
	}
	return report, nil
}

// ImportResultsRequest carries one marketplace upload result file for a
// run.
type ImportResultsRequest struct {
	RunID    int64
	FileName string
	Data     []byte
}

// ResultsReport summarizes what a result-file import recorded.
type ResultsReport struct {
	ErrorsParsed int    `json:"errors_parsed"`
	ItemsFlagged int    `json:"items_flagged"`
	Unattributed int    `json:"unattributed"`
	TodoCreated  bool   `json:"todo_created"`
	ArchiveURL   string `json:"archive_url"`
}

// ImportResults parses a marketplace result file and attaches its
// reported errors to the run's items. Errors attribute by job offer id
// when stated, then by the reported row number, then by position. The
// imported set on every item is replaced wholesale, so a clean re-upload
// clears previous marketplace errors.
func (s *ImportService) ImportResults(ctx context.Context, req ImportResultsRequest) (*ResultsReport, error) {
	if len(req.Data) == 0 {
		return nil, apperrors.ValidationField("file", "file is empty")
	}
	run, err := s.repos.Runs.Get(ctx, req.RunID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	parsed := airwork.ParseResultFile(req.FileName, req.Data)

	archiveURL, err := s.archive(ctx,
		fmt.Sprintf("runs/%d/imports/%s-%s", run.ID, s.stamp(), safeFileName(req.FileName)), req.Data)
	if err != nil {
		return nil, err
	}

	report := &ResultsReport{ErrorsParsed: len(parsed), ArchiveURL: archiveURL}
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		items, txErr := s.repos.Runs.ListItemDetailsInTx(ctx, tx, run.ID)
		if txErr != nil {
			return fmt.Errorf("list run items: %w", txErr)
		}

		assigned := attributeResultErrors(parsed, items)
		report.Unattributed = len(parsed)
		for _, item := range items {
			errs := assigned[item.ID]
			report.Unattributed -= len(errs)
			if len(errs) > 0 {
				report.ItemsFlagged++
			}

			var validation model.RunItemValidation
			if item.Validation != nil {
				validation = *item.Validation
			}
			validation.Imported = errs
			if txErr = s.repos.Runs.UpdateItemValidationInTx(ctx, tx, item.ID, &validation); txErr != nil {
				return fmt.Errorf("store imported errors for item %d: %w", item.ID, txErr)
			}
		}

		return s.repos.Audits.InsertInTx(ctx, tx, run.OrgID, model.AuditActionImportResults, map[string]any{
			"run_id":        run.ID,
			"file_name":     req.FileName,
			"errors_parsed": report.ErrorsParsed,
			"items_flagged": report.ItemsFlagged,
			"unattributed":  report.Unattributed,
			"archive_url":   archiveURL,
		})
	})
	if err != nil {
		return nil, err
	}

	if report.ErrorsParsed > 0 {
		report.TodoCreated = s.ensureTodo(ctx, model.EnsureTodoParams{
			OrgID: run.OrgID,
			Type:  model.TodoTypeDownloadSync,
			Title: fmt.Sprintf("Review marketplace errors for run %d", run.ID),
			Instructions: fmt.Sprintf(
				"The marketplace reported %d error(s) on the uploaded file. Fix the flagged items, regenerate and re-upload, then download a fresh export sync.",
				report.ErrorsParsed),
			ClientID: &run.ClientID,
			RunID:    &run.ID,
		})
	}
	return report, nil
}

// matchSyncRow finds the posting an export row refers to: offer id wins,
// content fingerprint is the fallback.
func matchSyncRow(
	row airwork.ExportRow,
	byOffer, byFingerprint map[string]*model.PostingSync,
) *model.PostingSync {
	if offer := row.Get(model.PayloadKeyJobOfferID); offer != "" {
		if p, ok := byOffer[offer]; ok {
			return p
		}
	}
	title := row.Get(model.PayloadKeyTitle)
	loc := row.Get(model.PayloadKeyWorkingLocationID)
	// Title or location alone is too ambiguous to match on.
	if title == "" || loc == "" {
		return nil
	}
	return byFingerprint[airwork.Fingerprint(title, loc)]
}

// attributeResultErrors assigns parsed errors to run items. Row numbers
// are 1-based with row 1 being the header, so row N maps to item N-2.
func attributeResultErrors(
	parsed []model.ImportedError,
	items []*model.RunItemDetail,
) map[int64][]model.ImportedError {
	byOffer := make(map[string]int64, len(items))
	for _, item := range items {
		if offer := item.EffectiveJobOfferID(); offer != "" {
			byOffer[offer] = item.ID
		}
	}

	assigned := make(map[int64][]model.ImportedError)
	for i, e := range parsed {
		var itemID int64
		switch {
		case e.JobOfferID != nil && byOffer[*e.JobOfferID] != 0:
			itemID = byOffer[*e.JobOfferID]
		case e.RowNumber != nil && *e.RowNumber >= 2 && *e.RowNumber-2 < len(items):
			itemID = items[*e.RowNumber-2].ID
		case i < len(items):
			itemID = items[i].ID
		default:
			continue
		}
		assigned[itemID] = append(assigned[itemID], e)
	}
	return assigned
}

// ensureTodo opens the follow-up todo in its own transaction and reports
// whether a new one was inserted. A missing todos table is tolerated so
// partially migrated databases still complete imports.
func (s *ImportService) ensureTodo(ctx context.Context, params model.EnsureTodoParams) bool {
	inserted := false
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		id, txErr := s.repos.Todos.EnsureInTx(ctx, tx, params)
		inserted = id != ""
		return txErr
	})
	if err != nil {
		if apperrors.IsSchemaMissing(err) {
			slog.Warn("todos table missing, skipping follow-up todo", "type", params.Type)
			return false
		}
		slog.Error("ensure todo failed", "type", params.Type, "error", err)
		return false
	}
	return inserted
}

func (s *ImportService) archive(ctx context.Context, name string, data []byte) (string, error) {
	url, err := s.blobs.Put(ctx, name, data, "application/octet-stream")
	if err != nil {
		return "", fmt.Errorf("archive import file: %w", err)
	}
	return url, nil
}

func (s *ImportService) stamp() string {
	// Uploads never overwrite: a same-second re-import still gets a
	// distinct archive name.
	return s.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func safeFileName(name string) string {
	base := strings.TrimSpace(name)
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		return "upload.dat"
	}
	return base
}
