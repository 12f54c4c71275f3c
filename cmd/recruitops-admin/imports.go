package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/ensembleops/recruitops/internal/bootstrap"
	"github.com/ensembleops/recruitops/internal/service"
)

func runImportExport(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("import-export", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	runID := fs.Int64("run", 0, "run id (required)")
	file := fs.String("file", "", "marketplace export file, xlsx or tsv (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *runID <= 0 {
		return errors.New("--run is required")
	}

	data, name, err := readImportFile(*file)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		report, err := services.Imports.ImportExportSync(ctx, service.ImportSyncRequest{
			OrgID:    *orgID,
			RunID:    *runID,
			FileName: name,
			Data:     data,
		})
		if err != nil {
			return fmt.Errorf("import export sync: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "rows parsed\t%d\n", report.RowsParsed)
		fmt.Fprintf(w, "matched\t%d\n", report.Matched)
		fmt.Fprintf(w, "offer ids linked\t%d\n", report.OfferIDsLinked)
		fmt.Fprintf(w, "unmatched\t%d\n", report.Unmatched)
		fmt.Fprintf(w, "unlinked left\t%d\n", report.UnlinkedLeft)
		fmt.Fprintf(w, "todo created\t%t\n", report.TodoCreated)
		fmt.Fprintf(w, "archive\t%s\n", report.ArchiveURL)
		return w.Flush()
	})
}

func runImportResults(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("import-results", flag.ContinueOnError)
	runID := fs.Int64("run", 0, "run id (required)")
	file := fs.String("file", "", "marketplace result file, xlsx or tsv (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *runID <= 0 {
		return errors.New("--run is required")
	}

	data, name, err := readImportFile(*file)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		report, err := services.Imports.ImportResults(ctx, service.ImportResultsRequest{
			RunID:    *runID,
			FileName: name,
			Data:     data,
		})
		if err != nil {
			return fmt.Errorf("import results: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "errors parsed\t%d\n", report.ErrorsParsed)
		fmt.Fprintf(w, "items flagged\t%d\n", report.ItemsFlagged)
		fmt.Fprintf(w, "unattributed\t%d\n", report.Unattributed)
		fmt.Fprintf(w, "todo created\t%t\n", report.TodoCreated)
		fmt.Fprintf(w, "archive\t%s\n", report.ArchiveURL)
		return w.Flush()
	})
}

func runImportLocations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("import-locations", flag.ContinueOnError)
	clientID := fs.String("client", "", "client id (required)")
	file := fs.String("file", "", "working-location master CSV (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*clientID) == "" {
		return errors.New("--client is required")
	}

	data, _, err := readImportFile(*file)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		report, err := services.Masters.ImportLocations(ctx, *clientID, string(data))
		if err != nil {
			return fmt.Errorf("import locations: %w", err)
		}
		return printImportReport(report)
	})
}

func runImportFields(cmdCtx *commandContext, args []string) error {
	return runMasterCSVImport(cmdCtx, args, "import-fields", "field-key master CSV (required)",
		func(ctx context.Context, services bootstrap.ServiceContainer, csvText string) (*service.ImportReport, error) {
			return services.Masters.ImportFields(ctx, csvText)
		})
}

func runImportCodes(cmdCtx *commandContext, args []string) error {
	return runMasterCSVImport(cmdCtx, args, "import-codes", "code master CSV (required)",
		func(ctx context.Context, services bootstrap.ServiceContainer, csvText string) (*service.ImportReport, error) {
			return services.Masters.ImportCodes(ctx, csvText)
		})
}

func runMasterCSVImport(
	cmdCtx *commandContext,
	args []string,
	name, fileUsage string,
	importFn func(context.Context, bootstrap.ServiceContainer, string) (*service.ImportReport, error),
) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	file := fs.String("file", "", fileUsage)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	data, _, err := readImportFile(*file)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		report, err := importFn(ctx, services, string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return printImportReport(report)
	})
}

func readImportFile(path string) ([]byte, string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", errors.New("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read import file: %w", err)
	}
	return data, filepath.Base(path), nil
}

func printImportReport(report *service.ImportReport) error {
	if err := writef(os.Stdout, "imported %d row(s), rejected %d\n", report.Imported, len(report.Rejected)); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, rej := range report.Rejected {
		fmt.Fprintf(w, "line %d\t%s\n", rej.Line, rej.Message)
	}
	return w.Flush()
}
