// Package devseed populates a development database with a demo org,
// clients, jobs, masters, and revisions so the pipeline can be exercised
// end to end without hand-entering data.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ensembleops/recruitops/internal/data"
	"github.com/ensembleops/recruitops/internal/domain/model"
	"github.com/ensembleops/recruitops/internal/service"
)

const demoOrgID = "org-demo"

// Seed runs the full development seeding workflow against the provided
// DB. Seeding is idempotent: existing clients and jobs are reused and
// drafts with unchanged content are no-ops.
func Seed(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if db == nil {
		return fmt.Errorf("devseed: db is required")
	}

	clients := data.NewClientRepo(db)
	postings := data.NewPostingRepo(db)
	revisions := data.NewRevisionRepo(db)
	masters := data.NewMasterRepo(db)

	revisionService := service.NewRevisionService(service.RevisionServiceOptions{
		Revisions: revisions,
		Scope: service.RevisionScope{
			Jobs:     clients,
			Postings: postings,
		},
		Masters: masters,
	})

	s := seeder{
		clients:   clients,
		masters:   masters,
		revisions: revisionService,
		logger:    logger,
	}

	failures := 0
	failures += s.seedMasters(ctx)

	for _, spec := range demoClients() {
		client, err := s.findOrCreateClient(ctx, spec.name)
		if err != nil {
			s.logError(ctx, "seed client", "name", spec.name, "error", err)
			failures++
			continue
		}
		if err := s.masters.UpsertLocations(ctx, client.ID, spec.locations); err != nil {
			s.logError(ctx, "seed locations", "client", client.Name, "error", err)
			failures++
		}
		failures += s.seedJobs(ctx, client, spec.jobs)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

type seeder struct {
	clients   *data.ClientRepo
	masters   *data.MasterRepo
	revisions *service.RevisionService
	logger    *slog.Logger
}

type clientSpec struct {
	name      string
	locations []model.Location
	jobs      []jobSpec
}

type jobSpec struct {
	internalTitle string
	draft         model.DraftRequest
	approve       bool
}

func demoClients() []clientSpec {
	return []clientSpec{
		{
			name: "Northwind Staffing",
			locations: []model.Location{
				{WorkingLocationID: "WL-NW-001", Name: "Shinjuku Office"},
				{WorkingLocationID: "WL-NW-002", Name: "Yokohama Warehouse"},
			},
			jobs: []jobSpec{
				{
					internalTitle: "Warehouse picker (Yokohama)",
					draft: model.DraftRequest{
						Title:             "Warehouse Picking Staff",
						Subtitle:          "Day shift, no experience required",
						Description:       "Pick and pack orders at our Yokohama warehouse.",
						WorkingLocationID: "WL-NW-002",
						JobType:           "part_time",
						OccupationID:      "occ-logistics-01",
					},
					approve: true,
				},
				{
					internalTitle: "Office admin (Shinjuku)",
					draft: model.DraftRequest{
						Title:             "Administrative Assistant",
						Description:       "Support the Shinjuku branch with scheduling and data entry.",
						WorkingLocationID: "WL-NW-001",
						JobType:           "full_time",
					},
				},
			},
		},
		{
			name: "Acme Logistics",
			locations: []model.Location{
				{WorkingLocationID: "WL-AC-001", Name: "Kawasaki Depot"},
			},
			jobs: []jobSpec{
				{
					internalTitle: "Delivery driver (Kawasaki)",
					draft: model.DraftRequest{
						Title:             "Delivery Driver",
						Subtitle:          "Company vehicle provided",
						Description:       "Deliver parcels on fixed local routes from the Kawasaki depot.",
						WorkingLocationID: "WL-AC-001",
						JobType:           "contract",
						OccupationID:      "occ-driver-02",
					},
					approve: true,
				},
			},
		},
	}
}

func (s seeder) seedMasters(ctx context.Context) int {
	failures := 0

	defs := []model.FieldDef{
		{FieldKey: model.PayloadKeyTitle, Label: "Title", InputKind: model.FieldInputText, IsEditable: true, SortOrder: 1, SpecVersion: "2026-01"},
		{FieldKey: model.PayloadKeySubtitle, Label: "Subtitle", InputKind: model.FieldInputText, IsEditable: true, SortOrder: 2, SpecVersion: "2026-01"},
		{FieldKey: model.PayloadKeyDescription, Label: "Description", InputKind: model.FieldInputText, IsEditable: true, SortOrder: 3, SpecVersion: "2026-01"},
		{FieldKey: model.PayloadKeyWorkingLocationID, Label: "Working location", InputKind: model.FieldInputID, IsEditable: true, SortOrder: 4, SpecVersion: "2026-01"},
		{FieldKey: model.PayloadKeyJobType, Label: "Job type", InputKind: model.FieldInputCode, IsEditable: true, SortOrder: 5, SpecVersion: "2026-01"},
		{FieldKey: model.PayloadKeyOccupationID, Label: "Occupation", InputKind: model.FieldInputID, IsEditable: true, SortOrder: 6, SpecVersion: "2026-01"},
	}
	if err := s.masters.UpsertFields(ctx, defs); err != nil {
		s.logError(ctx, "seed field defs", "error", err)
		failures++
	}

	codes := []model.Code{
		{FieldKey: model.PayloadKeyJobType, Code: "full_time", Name: "Full time", IsActive: true},
		{FieldKey: model.PayloadKeyJobType, Code: "part_time", Name: "Part time", IsActive: true},
		{FieldKey: model.PayloadKeyJobType, Code: "contract", Name: "Contract", IsActive: true},
		{FieldKey: model.PayloadKeyJobType, Code: "seasonal", Name: "Seasonal", IsActive: false},
	}
	if err := s.masters.UpsertCodes(ctx, codes); err != nil {
		s.logError(ctx, "seed codes", "error", err)
		failures++
	}

	return failures
}

func (s seeder) findOrCreateClient(ctx context.Context, name string) (*model.Client, error) {
	existing, err := s.clients.ListClients(ctx, demoOrgID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	for _, c := range existing {
		if c.Name == name {
			return c, nil
		}
	}

	client, err := s.clients.CreateClient(ctx, demoOrgID, name)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.logInfo(ctx, "created demo client", "name", name, "id", client.ID)
	return client, nil
}

func (s seeder) findOrCreateJob(ctx context.Context, clientID, internalTitle string) (*model.Job, error) {
	existing, err := s.clients.ListJobs(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	for _, j := range existing {
		if j.InternalTitle == internalTitle {
			return j, nil
		}
	}

	job, err := s.clients.CreateJob(ctx, demoOrgID, clientID, internalTitle)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logInfo(ctx, "created demo job", "title", internalTitle, "id", job.ID)
	return job, nil
}

func (s seeder) seedJobs(ctx context.Context, client *model.Client, jobs []jobSpec) int {
	failures := 0
	for _, spec := range jobs {
		job, err := s.findOrCreateJob(ctx, client.ID, spec.internalTitle)
		if err != nil {
			s.logError(ctx, "seed job", "title", spec.internalTitle, "error", err)
			failures++
			continue
		}

		draft := spec.draft
		draft.OrgID = demoOrgID
		draft.JobID = job.ID

		rev, outcome, err := s.revisions.SaveDraft(ctx, &draft)
		if err != nil {
			s.logError(ctx, "seed draft", "job", spec.internalTitle, "error", err)
			failures++
			continue
		}
		s.logInfo(ctx, "seeded draft", "job", spec.internalTitle, "outcome", string(outcome))

		// Re-running the seed finds an already-approved revision; only a
		// fresh or rewritten draft moves through the approval flow.
		if !spec.approve || rev.Status != model.RevisionStatusDraft {
			continue
		}
		if _, err := s.revisions.SubmitForReview(ctx, rev.ID); err != nil {
			s.logError(ctx, "seed submit", "job", spec.internalTitle, "error", err)
			failures++
			continue
		}
		if _, err := s.revisions.Approve(ctx, rev.ID, "devseed"); err != nil {
			s.logError(ctx, "seed approve", "job", spec.internalTitle, "error", err)
			failures++
			continue
		}
		s.logInfo(ctx, "approved revision", "job", spec.internalTitle, "revision", rev.ID)
	}
	return failures
}

func (s seeder) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s seeder) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}
