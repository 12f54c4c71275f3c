package testutil

import (
	"github.com/ensembleops/recruitops/internal/domain/model"
)

// DraftRequestBuilder provides a fluent interface for building
// DraftRequest objects for testing.
type DraftRequestBuilder struct {
	req *model.DraftRequest
}

// NewDraftRequest creates a new DraftRequestBuilder with sensible defaults.
func NewDraftRequest() *DraftRequestBuilder {
	return &DraftRequestBuilder{
		req: &model.DraftRequest{
			OrgID:       "org-test",
			Title:       "Warehouse Staff",
			Description: "Pick and pack orders at the test warehouse.",
		},
	}
}

// WithOrg sets the org id.
func (b *DraftRequestBuilder) WithOrg(orgID string) *DraftRequestBuilder {
	b.req.OrgID = orgID
	return b
}

// WithJob sets the job id.
func (b *DraftRequestBuilder) WithJob(jobID string) *DraftRequestBuilder {
	b.req.JobID = jobID
	return b
}

// WithTitle sets the listing title.
func (b *DraftRequestBuilder) WithTitle(title string) *DraftRequestBuilder {
	b.req.Title = title
	return b
}

// WithSubtitle sets the listing subtitle.
func (b *DraftRequestBuilder) WithSubtitle(subtitle string) *DraftRequestBuilder {
	b.req.Subtitle = subtitle
	return b
}

// WithDescription sets the listing description.
func (b *DraftRequestBuilder) WithDescription(description string) *DraftRequestBuilder {
	b.req.Description = description
	return b
}

// WithWorkingLocation sets the working location id.
func (b *DraftRequestBuilder) WithWorkingLocation(locationID string) *DraftRequestBuilder {
	b.req.WorkingLocationID = locationID
	return b
}

// WithJobType sets the job type code.
func (b *DraftRequestBuilder) WithJobType(jobType string) *DraftRequestBuilder {
	b.req.JobType = jobType
	return b
}

// WithOccupation sets the occupation id.
func (b *DraftRequestBuilder) WithOccupation(occupationID string) *DraftRequestBuilder {
	b.req.OccupationID = occupationID
	return b
}

// Build returns the constructed DraftRequest.
func (b *DraftRequestBuilder) Build() *model.DraftRequest {
	return b.req
}

// RunRequestBuilder provides a fluent interface for building
// CreateRunRequest objects for testing.
type RunRequestBuilder struct {
	req *model.CreateRunRequest
}

// NewRunRequest creates a new RunRequestBuilder with sensible defaults.
func NewRunRequest() *RunRequestBuilder {
	return &RunRequestBuilder{
		req: &model.CreateRunRequest{
			OrgID:      "org-test",
			RunType:    model.RunTypeUpdate,
			FileFormat: model.FileFormatXLSX,
		},
	}
}

// WithOrg sets the org id.
func (b *RunRequestBuilder) WithOrg(orgID string) *RunRequestBuilder {
	b.req.OrgID = orgID
	return b
}

// WithClient sets the client id.
func (b *RunRequestBuilder) WithClient(clientID string) *RunRequestBuilder {
	b.req.ClientID = clientID
	return b
}

// WithRunType sets the run type.
func (b *RunRequestBuilder) WithRunType(runType model.RunType) *RunRequestBuilder {
	b.req.RunType = runType
	return b
}

// WithFileFormat sets the output file format.
func (b *RunRequestBuilder) WithFileFormat(format model.FileFormat) *RunRequestBuilder {
	b.req.FileFormat = format
	return b
}

// LatestApprovedOnly restricts the run to postings whose approval is
// current.
func (b *RunRequestBuilder) LatestApprovedOnly() *RunRequestBuilder {
	b.req.IncludeLatestApprovedOnly = true
	return b
}

// Build returns the constructed CreateRunRequest.
func (b *RunRequestBuilder) Build() *model.CreateRunRequest {
	return b.req
}

// ApprovedPayload returns a payload map that passes validation against
// the masters created by SeedMasters-style fixtures.
func ApprovedPayload() map[string]string {
	return map[string]string{
		model.PayloadKeyTitle:             "Warehouse Staff",
		model.PayloadKeyDescription:       "Pick and pack orders at the test warehouse.",
		model.PayloadKeyWorkingLocationID: "WL-TEST-001",
		model.PayloadKeyJobType:           "part_time",
	}
}
