package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ensembleops/recruitops/internal/bootstrap"
	"github.com/ensembleops/recruitops/internal/domain/model"
)

func runCreateClient(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create-client", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	name := fs.String("name", "", "client name (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		client, err := services.Repos.Clients.CreateClient(ctx, *orgID, *name)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		return writef(os.Stdout, "created client %s (%s)\n", client.ID, client.Name)
	})
}

func runCreateJob(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create-job", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	clientID := fs.String("client", "", "client id (required)")
	title := fs.String("title", "", "internal title (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		job, err := services.Repos.Clients.CreateJob(ctx, *orgID, *clientID, *title)
		if err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		return writef(os.Stdout, "created job %s (%s)\n", job.ID, job.InternalTitle)
	})
}

func runSaveDraft(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("save-draft", flag.ContinueOnError)
	req := &model.DraftRequest{}
	fs.StringVar(&req.OrgID, "org", "", "org id (required)")
	fs.StringVar(&req.JobID, "job", "", "job id (required)")
	fs.StringVar(&req.Title, "title", "", "listing title (required)")
	fs.StringVar(&req.Subtitle, "subtitle", "", "listing subtitle")
	fs.StringVar(&req.Description, "description", "", "listing description")
	fs.StringVar(&req.WorkingLocationID, "location", "", "working location id")
	fs.StringVar(&req.JobType, "job-type", "", "job type code")
	fs.StringVar(&req.OccupationID, "occupation", "", "occupation id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		rev, outcome, err := services.Revisions.SaveDraft(ctx, req)
		if err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return writef(os.Stdout, "%s revision %s (rev %d, hash %s)\n", outcome, rev.ID, rev.RevNo, rev.PayloadHash)
	})
}

func runSubmitReview(cmdCtx *commandContext, args []string) error {
	return runRevisionTransition(cmdCtx, args, "submit-review",
		func(ctx context.Context, services bootstrap.ServiceContainer, id string) (*model.Revision, error) {
			return services.Revisions.SubmitForReview(ctx, id)
		})
}

func runApproveRevision(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("approve-revision", flag.ContinueOnError)
	id := fs.String("revision", "", "revision id (required)")
	approver := fs.String("approver", "", "approver identity (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("--revision is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		rev, err := services.Revisions.Approve(ctx, *id, *approver)
		if err != nil {
			return fmt.Errorf("approve revision: %w", err)
		}
		return writef(os.Stdout, "revision %s is now %s\n", rev.ID, rev.Status)
	})
}

func runCancelRevision(cmdCtx *commandContext, args []string) error {
	return runRevisionTransition(cmdCtx, args, "cancel-revision",
		func(ctx context.Context, services bootstrap.ServiceContainer, id string) (*model.Revision, error) {
			return services.Revisions.Cancel(ctx, id)
		})
}

func runRevisionTransition(
	cmdCtx *commandContext,
	args []string,
	name string,
	transition func(context.Context, bootstrap.ServiceContainer, string) (*model.Revision, error),
) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("revision", "", "revision id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("--revision is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		rev, err := transition(ctx, services, *id)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return writef(os.Stdout, "revision %s is now %s\n", rev.ID, rev.Status)
	})
}

func runListRevisions(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-revisions", flag.ContinueOnError)
	postingID := fs.String("posting", "", "posting id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*postingID) == "" {
		return errors.New("--posting is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		revisions, err := services.Revisions.ListByPosting(ctx, *postingID)
		if err != nil {
			return fmt.Errorf("list revisions: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\trev\tsource\tstatus\thash\tcreated")
		for _, rev := range revisions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				rev.ID, rev.RevNo, rev.Source, rev.Status, rev.PayloadHash,
				rev.CreatedAt.UTC().Format(time.RFC3339))
		}
		return w.Flush()
	})
}

func runCreateRun(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create-run", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	clientID := fs.String("client", "", "client id (required)")
	runType := fs.String("type", string(model.RunTypeUpdate), "run type (update|refresh)")
	format := fs.String("format", string(model.FileFormatXLSX), "file format (xlsx|txt)")
	latestOnly := fs.Bool("latest-approved-only", false, "exclude postings whose approval is superseded by newer work")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		run, items, err := services.Runs.Create(ctx, &model.CreateRunRequest{
			OrgID:                     *orgID,
			ClientID:                  *clientID,
			RunType:                   model.RunType(*runType),
			FileFormat:                model.FileFormat(*format),
			IncludeLatestApprovedOnly: *latestOnly,
		})
		if err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		return writef(os.Stdout, "created run %d with %d item(s)\n", run.ID, len(items))
	})
}

func runValidateRun(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("validate-run", flag.ContinueOnError)
	runID := fs.Int64("run", 0, "run id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *runID <= 0 {
		return errors.New("--run is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		items, err := services.Runs.Validate(ctx, *runID)
		if err != nil {
			return fmt.Errorf("validate run: %w", err)
		}

		hardErrors := 0
		warnings := 0
		for _, item := range items {
			if item.Validation == nil {
				continue
			}
			hardErrors += len(item.Validation.HardErrors)
			warnings += len(item.Validation.Warnings)
		}
		return writef(os.Stdout, "validated %d item(s): %d hard error(s), %d warning(s)\n",
			len(items), hardErrors, warnings)
	})
}

func runGenerateFile(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("generate-file", flag.ContinueOnError)
	runID := fs.Int64("run", 0, "run id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *runID <= 0 {
		return errors.New("--run is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		run, err := services.Files.Generate(ctx, *runID)
		if err != nil {
			return fmt.Errorf("generate file: %w", err)
		}

		blobURL := ""
		if run.FileBlobURL != nil {
			blobURL = *run.FileBlobURL
		}
		sha := ""
		if run.FileSHA256 != nil {
			sha = *run.FileSHA256
		}
		return writef(os.Stdout, "run %d file generated: %s (sha256 %s)\n", run.ID, blobURL, sha)
	})
}

func runListRuns(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-runs", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	limit := fs.Int("limit", 50, "max runs to list")
	offset := fs.Int("offset", 0, "offset into the run list")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*orgID) == "" {
		return errors.New("--org is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		runs, err := services.Runs.List(ctx, *orgID, *limit, *offset)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\tclient\ttype\tstatus\tformat\titems\tcreated")
		for _, run := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
				run.ID, run.ClientName, run.RunType, run.Status, run.FileFormat,
				run.ItemCount, run.CreatedAt.UTC().Format(time.RFC3339))
		}
		return w.Flush()
	})
}
