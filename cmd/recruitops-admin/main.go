// Command recruitops-admin is the operator CLI for the job revision and
// run pipeline: drafts, runs, file generation, imports and the sweep.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/ensembleops/recruitops/config"
	"github.com/ensembleops/recruitops/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrateCommand,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run database migrations and seed development data",
			run:         runDBSeed,
		},
		"create-client": {
			name:        "create-client",
			description: "Create a client under an org",
			run:         runCreateClient,
		},
		"create-job": {
			name:        "create-job",
			description: "Create a job (and its first posting) under a client",
			run:         runCreateJob,
		},
		"save-draft": {
			name:        "save-draft",
			description: "Save a draft revision for a job's latest posting",
			run:         runSaveDraft,
		},
		"submit-review": {
			name:        "submit-review",
			description: "Submit a draft revision for review",
			run:         runSubmitReview,
		},
		"approve-revision": {
			name:        "approve-revision",
			description: "Approve an in-review revision",
			run:         runApproveRevision,
		},
		"cancel-revision": {
			name:        "cancel-revision",
			description: "Cancel a draft or in-review revision",
			run:         runCancelRevision,
		},
		"list-revisions": {
			name:        "list-revisions",
			description: "List revisions of a posting",
			run:         runListRevisions,
		},
		"create-run": {
			name:        "create-run",
			description: "Create a run snapshotting a client's approved postings",
			run:         runCreateRun,
		},
		"validate-run": {
			name:        "validate-run",
			description: "Re-validate every item of a run",
			run:         runValidateRun,
		},
		"generate-file": {
			name:        "generate-file",
			description: "Generate the marketplace upload file for a run",
			run:         runGenerateFile,
		},
		"list-runs": {
			name:        "list-runs",
			description: "List recent runs for an org",
			run:         runListRuns,
		},
		"import-export": {
			name:        "import-export",
			description: "Import a marketplace export file downloaded for a run to sync posting state",
			run:         runImportExport,
		},
		"import-results": {
			name:        "import-results",
			description: "Import a marketplace upload result file for a run",
			run:         runImportResults,
		},
		"import-locations": {
			name:        "import-locations",
			description: "Import a working-location master CSV for a client",
			run:         runImportLocations,
		},
		"import-fields": {
			name:        "import-fields",
			description: "Import the field-definition master CSV",
			run:         runImportFields,
		},
		"import-codes": {
			name:        "import-codes",
			description: "Import the code master CSV",
			run:         runImportCodes,
		},
		"freshness-sweep": {
			name:        "freshness-sweep",
			description: "Run one freshness sweep immediately",
			run:         runFreshnessSweep,
		},
		"list-todos": {
			name:        "list-todos",
			description: "List open operator todos for an org",
			run:         runListTodos,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: recruitops-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}

	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(os.Stdout, "  %-20s %s\n", name, all[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
