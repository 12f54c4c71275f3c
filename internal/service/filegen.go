package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/domain/airwork"
	"github.com/ensembleops/recruitops/internal/domain/model"
	apperrors "github.com/ensembleops/recruitops/internal/errors"
)

// runValidator recomputes and persists validation for a run's items.
type runValidator interface {
	Validate(ctx context.Context, runID int64) ([]*model.RunItemDetail, error)
}

// fieldSource lists the marketplace field-key master.
type fieldSource interface {
	ListFields(ctx context.Context) ([]model.FieldDef, error)
}

// FileGenOutput bundles the column master and the blob destination for
// generated files.
type FileGenOutput struct {
	Fields fieldSource
	Blobs  core.BlobStore
}

// FileGenServiceOptions groups dependencies for FileGenService.
type FileGenServiceOptions struct {
	Runs      core.RunRepository
	Validator runValidator
	Output    FileGenOutput
}

// FileGenService renders a run into its marketplace upload file.
type FileGenService struct {
	runs      core.RunRepository
	validator runValidator
	output    FileGenOutput
	now       func() time.Time
}

// NewFileGenService constructs a new FileGenService.
func NewFileGenService(opts FileGenServiceOptions) *FileGenService {
	if opts.Runs == nil {
		panic("RunRepository is required")
	}
	if opts.Validator == nil {
		panic("run validator is required")
	}
	if opts.Output.Fields == nil || opts.Output.Blobs == nil {
		panic("FileGenOutput is required")
	}
	return &FileGenService{
		runs:      opts.Runs,
		validator: opts.Validator,
		output:    opts.Output,
		now:       time.Now,
	}
}

// Generate re-validates the run, renders its items in the run's file
// format and stores the result, recording the blob URL and content hash
// on the run. Items with hard errors block generation; regenerating a
// file replaces the previous one. A run without items still yields a
// header-only file.
func (s *FileGenService) Generate(ctx context.Context, runID int64) (*model.Run, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	items, err := s.validator.Validate(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("validate run: %w", err)
	}
	blocked := 0
	for _, item := range items {
		if item.Validation.HasHardErrors() {
			blocked++
		}
	}
	if blocked > 0 {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"run %d has %d item(s) with hard errors; fix them before generating the file", runID, blocked))
	}

	fields, err := s.output.Fields.ListFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("list field master: %w", err)
	}
	fieldKeys := make([]string, len(fields))
	for i, f := range fields {
		fieldKeys[i] = f.FieldKey
	}

	columns := airwork.BuildColumns(items, fieldKeys)
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, airwork.BuildRow(item, columns))
	}

	data, ext, contentType, err := encodeRunFile(run.FileFormat, columns, rows)
	if err != nil {
		return nil, err
	}

	// Uploads never overwrite: regeneration gets a fresh object name.
	name := fmt.Sprintf("runs/run-%d-%s-%s.%s", runID, s.now().UTC().Format("20060102T150405Z"), uuid.NewString(), ext)
	url, err := s.output.Blobs.Put(ctx, name, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store run file: %w", err)
	}

	updated, err := s.runs.SetFileMetadata(ctx, runID, url, airwork.SHA256Hex(data))
	if err != nil {
		return nil, fmt.Errorf("record file metadata: %w", err)
	}
	return updated, nil
}

func encodeRunFile(format model.FileFormat, columns []string, rows [][]string) ([]byte, string, string, error) {
	switch format {
	case model.FileFormatTXT:
		return airwork.EncodeTSV(columns, rows), "txt", airwork.ContentTypeTSV, nil
	case model.FileFormatXLSX, "":
		data, err := airwork.EncodeXLSX(columns, rows)
		if err != nil {
			return nil, "", "", fmt.Errorf("encode xlsx: %w", err)
		}
		return data, "xlsx", airwork.ContentTypeXLSX, nil
	default:
		return nil, "", "", apperrors.ValidationField("file_format", "unsupported file format")
	}
}
