package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ensembleops/recruitops/config"
	"github.com/ensembleops/recruitops/internal/bootstrap"
	"github.com/ensembleops/recruitops/internal/devseed"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectInfra wires up the database and, when configured, Redis.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func connectInfra(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	redisClient, err := maybeConnectRedis(logger, &cfg.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			logger.Info("no redis configuration detected; skipping redis connection")
			return db, nil, nil
		}
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close db: %w", closeErr))
		}
		return nil, nil, err
	}

	return db, redisClient, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	hasConfig := strings.TrimSpace(cfg.URI) != "" || (cfg.UseSentinel && len(cfg.SentinelNodes) > 0)
	if !hasConfig {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

// withServices connects infrastructure, wires services and runs fn,
// closing everything afterwards.
func withServices(cmdCtx *commandContext, fn func(ctx context.Context, services bootstrap.ServiceContainer) error) error {
	db, redisClient, err := connectInfra(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(db, redisClient); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	return fn(cmdCtx.Ctx, services)
}

func runMigrateCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cmdCtx.Config.Postgres, Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "seed timeout")
	allowRemote := fs.Bool("allow-remote", false, "allow seeding a non-local database")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if !*allowRemote && !isLocalHost(cmdCtx.Config.Postgres.Host) {
		return fmt.Errorf("refusing to seed non-local database %q without --allow-remote", cmdCtx.Config.Postgres.Host)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cmdCtx.Config.Postgres, Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()

	if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
		return err
	}

	return devseed.Seed(ctx, db, cmdCtx.Logger)
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1", "":
		return true
	}
	return false
}

func runFreshnessSweep(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("freshness-sweep", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Minute, "sweep timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()

		report, err := services.Freshness.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("freshness sweep: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "scanned\tmarked\treused\tcloned\truns\titems\ttodos")
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			report.Scanned, report.Marked, report.SiblingsReused, report.Cloned,
			report.RunsCreated, report.ItemsAppended, report.TodosCreated)
		return w.Flush()
	})
}

func runListTodos(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-todos", flag.ContinueOnError)
	orgID := fs.String("org", "", "org id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if strings.TrimSpace(*orgID) == "" {
		return errors.New("--org is required")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		todos, err := services.Repos.Todos.ListOpen(ctx, *orgID)
		if err != nil {
			return fmt.Errorf("list todos: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "id\ttype\tstatus\ttitle\tcreated")
		for _, todo := range todos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				todo.ID, todo.Type, todo.Status, todo.Title,
				todo.CreatedAt.UTC().Format(time.RFC3339))
		}
		return w.Flush()
	})
}
