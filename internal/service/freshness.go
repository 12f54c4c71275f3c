package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/model"
)

// Freshness window defaults, matching the marketplace's 14-day listing
// lifetime.
const (
	DefaultStaleAfter   = 14 * 24 * time.Hour
	DefaultSiblingReuse = 7 * 24 * time.Hour
)

// FreshnessConfig tunes the sweep windows.
type FreshnessConfig struct {
	// StaleAfter is how long after publication a listing counts as stale.
	StaleAfter time.Duration
	// SiblingReuse is how recently an unlinked sibling posting must have
	// been created to be reused instead of cloning a new one.
	SiblingReuse time.Duration
}

// FreshnessRepos bundles the repositories the sweep composes.
type FreshnessRepos struct {
	Postings  core.PostingRepository
	Revisions core.RevisionRepository
	Runs      core.RunRepository
	Todos     core.TodoRepository
	Audits    core.AuditRepository
}

// FreshnessServiceOptions groups dependencies for FreshnessService.
type FreshnessServiceOptions struct {
	Repos  FreshnessRepos
	Tx     core.Transactor
	Config FreshnessConfig
}

// FreshnessService scans for listings approaching the marketplace's
// freshness expiry and queues their re-publication as new listings.
type FreshnessService struct {
	repos FreshnessRepos
	tx    core.Transactor
	cfg   FreshnessConfig
	now   func() time.Time
}

// NewFreshnessService constructs a new FreshnessService.
func NewFreshnessService(opts FreshnessServiceOptions) *FreshnessService {
	if opts.Repos.Postings == nil || opts.Repos.Revisions == nil ||
		opts.Repos.Runs == nil || opts.Repos.Todos == nil || opts.Repos.Audits == nil {
		panic("FreshnessRepos is required")
	}
	if opts.Tx == nil {
		panic("Transactor is required")
	}
	cfg := opts.Config
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.SiblingReuse <= 0 {
		cfg.SiblingReuse = DefaultSiblingReuse
	}
	return &FreshnessService{
		repos: opts.Repos,
		tx:    opts.Tx,
		cfg:   cfg,
		now:   time.Now,
	}
}

// SweepReport summarizes one freshness sweep.
type SweepReport struct {
	Scanned        int `json:"scanned"`
	Marked         int `json:"marked"`
	SkippedNoRev   int `json:"skipped_no_revision"`
	SiblingsReused int `json:"siblings_reused"`
	Cloned         int `json:"cloned"`
	AlreadyQueued  int `json:"already_queued"`
	RunsCreated    int `json:"runs_created"`
	ItemsAppended  int `json:"items_appended"`
	TodosCreated   int `json:"todos_created"`
}

// orgSweep tallies one org's share of a sweep for its audit row.
type orgSweep struct {
	scanned        int
	marked         int
	skippedNoRev   int
	siblingsReused int
	cloned         int
	alreadyQueued  int
	runsCreated    int
	itemsAppended  int
	todosCreated   int

	postingIDs       []string
	clonedPostingIDs []string
	runIDs           []int64
	todoIDs          []string
}

func (o *orgSweep) auditPayload() map[string]any {
	return map[string]any{
		"scanned":             o.scanned,
		"marked":              o.marked,
		"skipped_no_revision": o.skippedNoRev,
		"siblings_reused":     o.siblingsReused,
		"cloned":              o.cloned,
		"already_queued":      o.alreadyQueued,
		"runs_created":        o.runsCreated,
		"items_appended":      o.itemsAppended,
		"todos_created":       o.todosCreated,
		"posting_ids":         o.postingIDs,
		"cloned_posting_ids":  o.clonedPostingIDs,
		"run_ids":             o.runIDs,
		"todo_ids":            o.todoIDs,
	}
}

// Sweep finds published postings past the staleness window, marks them
// as refresh candidates and queues a replacement listing for each: the
// approved content is carried onto a fresh unlinked posting (a recent
// sibling is reused before a new one is cloned) and appended to the
// day's refresh run for the client. Operator todos cover the manual
// marketplace steps. The whole sweep runs in one transaction and is safe
// to repeat: a second pass on the same day changes nothing.
func (s *FreshnessService) Sweep(ctx context.Context) (*SweepReport, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.StaleAfter)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	report := &SweepReport{}
	orgs := make(map[string]*orgSweep)
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		stale, err := s.repos.Postings.ListStaleInTx(ctx, tx, cutoff, now)
		if err != nil {
			return fmt.Errorf("list stale postings: %w", err)
		}
		report.Scanned = len(stale)

		runs := make(map[string]*model.Run)
		for i := range stale {
			p := &stale[i]
			org, ok := orgs[p.OrgID]
			if !ok {
				org = &orgSweep{}
				orgs[p.OrgID] = org
			}
			org.scanned++
			org.postingIDs = append(org.postingIDs, p.ID)
			if err := s.sweepOne(ctx, tx, p, now, dayStart, runs, report, org); err != nil {
				return err
			}
		}

		for orgID, org := range orgs {
			if err := s.repos.Audits.InsertInTx(ctx, tx, orgID, model.AuditActionFreshnessSweep, org.auditPayload()); err != nil {
				return fmt.Errorf("write sweep audit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// sweepOne handles one stale posting inside the sweep transaction. The
// refresh-candidate mark and the unpublish/republish todos apply to every
// stale posting; only the replacement listing needs approved content.
func (s *FreshnessService) sweepOne(
	ctx context.Context,
	tx pgx.Tx,
	p *model.StalePosting,
	now, dayStart time.Time,
	runs map[string]*model.Run,
	report *SweepReport,
	org *orgSweep,
) error {
	var expiry *time.Time
	if p.LastPublishedAt != nil {
		e := p.LastPublishedAt.Add(s.cfg.StaleAfter)
		expiry = &e
	}
	if err := s.repos.Postings.MarkRefreshCandidateInTx(ctx, tx, p.ID, expiry); err != nil {
		return fmt.Errorf("mark refresh candidate %s: %w", p.ID, err)
	}
	report.Marked++
	org.marked++

	jobID := p.JobID
	if err := s.ensureSweepTodo(ctx, tx, report, org, model.EnsureTodoParams{
		OrgID:        p.OrgID,
		Type:         model.TodoTypeUnpublish,
		Title:        fmt.Sprintf("Unpublish stale listing for %q", p.InternalTitle),
		Instructions: "The listing has passed the freshness window. Take it down in the marketplace console before the replacement goes up.",
		ClientID:     &p.ClientID,
		JobID:        &jobID,
	}); err != nil {
		return err
	}
	if err := s.ensureSweepTodo(ctx, tx, report, org, model.EnsureTodoParams{
		OrgID:        p.OrgID,
		Type:         model.TodoTypeRepublish,
		Title:        fmt.Sprintf("Republish %q as a new listing", p.InternalTitle),
		Instructions: "Upload the refresh run file once it is generated; the job re-enters the marketplace as a new listing.",
		ClientID:     &p.ClientID,
		JobID:        &jobID,
	}); err != nil {
		return err
	}

	approved, err := s.repos.Revisions.CurrentApprovedInTx(ctx, tx, p.ID)
	if err != nil {
		return fmt.Errorf("current approved for posting %s: %w", p.ID, err)
	}
	if approved == nil {
		// Nothing approved to republish. The posting stays marked with
		// its todos but no replacement listing is queued.
		report.SkippedNoRev++
		org.skippedNoRev++
		return nil
	}

	target, queued, err := s.targetPosting(ctx, tx, p, now, report, org)
	if err != nil {
		return err
	}
	if queued {
		// The pending replacement is already in a run; queuing another
		// would double the refresh.
		report.AlreadyQueued++
		org.alreadyQueued++
		return nil
	}

	rev, err := s.repos.Revisions.CurrentApprovedInTx(ctx, tx, target.ID)
	if err != nil {
		return fmt.Errorf("current approved for posting %s: %w", target.ID, err)
	}
	if rev == nil {
		rev, err = s.repos.Revisions.InsertApprovedCloneInTx(ctx, tx, model.SaveDraftParams{
			JobPostingID: target.ID,
			Source:       model.RevisionSourceSystem,
			Payload:      approved.Payload,
			PayloadHash:  approved.PayloadHash,
		})
		if err != nil {
			return fmt.Errorf("clone approved revision onto posting %s: %w", target.ID, err)
		}
	}

	run, err := s.refreshRun(ctx, tx, p, dayStart, runs, report, org)
	if err != nil {
		return err
	}
	if _, err := s.repos.Runs.AppendItemInTx(ctx, tx, run.ID, target.ID, rev.ID, model.RunItemActionCreate); err != nil {
		return fmt.Errorf("append run item: %w", err)
	}
	report.ItemsAppended++
	org.itemsAppended++

	runID := run.ID
	return s.ensureSweepTodo(ctx, tx, report, org, model.EnsureTodoParams{
		OrgID:        p.OrgID,
		Type:         model.TodoTypeLinkOfferID,
		Title:        fmt.Sprintf("Link new job offer IDs after refresh run %d", runID),
		Instructions: "Once the marketplace creates the new listings, import a fresh export sync so their job offer IDs attach to the replacement postings.",
		ClientID:     &p.ClientID,
		RunID:        &runID,
	})
}

// targetPosting picks the unlinked posting that will carry the refreshed
// listing, reusing a recent sibling before cloning a new one. A sibling
// that already sits in a run means the refresh is planned; queued is
// reported and nothing is cloned.
func (s *FreshnessService) targetPosting(
	ctx context.Context,
	tx pgx.Tx,
	p *model.StalePosting,
	now time.Time,
	report *SweepReport,
	org *orgSweep,
) (*model.Posting, bool, error) {
	sibling, err := s.repos.Postings.LatestUnlinkedSiblingInTx(ctx, tx, p.JobID)
	if err != nil {
		return nil, false, fmt.Errorf("find sibling posting for job %s: %w", p.JobID, err)
	}
	if sibling != nil {
		queued, err := s.repos.Postings.HasRunItemInTx(ctx, tx, sibling.ID)
		if err != nil {
			return nil, false, fmt.Errorf("check queued posting %s: %w", sibling.ID, err)
		}
		if queued {
			return nil, true, nil
		}
		if now.Sub(sibling.CreatedAt) <= s.cfg.SiblingReuse {
			report.SiblingsReused++
			org.siblingsReused++
			return sibling, false, nil
		}
	}
	clone, err := s.repos.Postings.InsertCloneInTx(ctx, tx, p.JobID)
	if err != nil {
		return nil, false, fmt.Errorf("clone posting for job %s: %w", p.JobID, err)
	}
	report.Cloned++
	org.cloned++
	org.clonedPostingIDs = append(org.clonedPostingIDs, clone.ID)
	return clone, false, nil
}

// refreshRun finds or creates the client's refresh run for the day, then
// opens its operator todos once.
func (s *FreshnessService) refreshRun(
	ctx context.Context,
	tx pgx.Tx,
	p *model.StalePosting,
	dayStart time.Time,
	runs map[string]*model.Run,
	report *SweepReport,
	org *orgSweep,
) (*model.Run, error) {
	key := p.OrgID + "/" + p.ClientID
	if run, ok := runs[key]; ok {
		return run, nil
	}

	run, err := s.repos.Runs.FindSameDayRefreshRunInTx(ctx, tx, p.OrgID, p.ClientID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("find refresh run: %w", err)
	}
	if run == nil {
		run, err = s.repos.Runs.InsertRunInTx(ctx, tx, &model.CreateRunRequest{
			OrgID:      p.OrgID,
			ClientID:   p.ClientID,
			RunType:    model.RunTypeRefresh,
			FileFormat: model.FileFormatXLSX,
		})
		if err != nil {
			return nil, fmt.Errorf("create refresh run: %w", err)
		}
		report.RunsCreated++
		org.runsCreated++
		org.runIDs = append(org.runIDs, run.ID)
	}
	runs[key] = run

	runID := run.ID
	if err := s.ensureSweepTodo(ctx, tx, report, org, model.EnsureTodoParams{
		OrgID:        p.OrgID,
		Type:         model.TodoTypeUploadFile,
		Title:        fmt.Sprintf("Upload refresh run %d to the marketplace", runID),
		Instructions: "Generate the run file and upload it through the marketplace console.",
		ClientID:     &p.ClientID,
		RunID:        &runID,
	}); err != nil {
		return nil, err
	}
	if err := s.ensureSweepTodo(ctx, tx, report, org, model.EnsureTodoParams{
		OrgID:        p.OrgID,
		Type:         model.TodoTypeDownloadSync,
		Title:        fmt.Sprintf("Download the export sync after run %d is processed", runID),
		Instructions: "Once the marketplace processes the upload, download a fresh export and import it to link the new job offer IDs.",
		ClientID:     &p.ClientID,
		RunID:        &runID,
	}); err != nil {
		return nil, err
	}
	return run, nil
}

// ensureSweepTodo opens a todo inside the sweep transaction. Duplicate
// open todos are never created; insert failures from a missing todos
// table abort the sweep since the transaction is already poisoned.
func (s *FreshnessService) ensureSweepTodo(
	ctx context.Context,
	tx pgx.Tx,
	report *SweepReport,
	org *orgSweep,
	params model.EnsureTodoParams,
) error {
	id, err := s.repos.Todos.EnsureInTx(ctx, tx, params)
	if err != nil {
		return fmt.Errorf("ensure %s todo: %w", params.Type, err)
	}
	if id != "" {
		report.TodosCreated++
		org.todosCreated++
		org.todoIDs = append(org.todoIDs, id)
		slog.Debug("sweep opened todo", "type", params.Type, "org_id", params.OrgID)
	}
	return nil
}
