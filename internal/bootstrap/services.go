package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ensembleops/recruitops/config"
	"github.com/ensembleops/recruitops/internal/adapters/blob"
	"github.com/ensembleops/recruitops/internal/adapters/sweeper"
	"github.com/ensembleops/recruitops/internal/core"
	"github.com/ensembleops/recruitops/internal/data"
	"github.com/ensembleops/recruitops/internal/observability/notify"
	"github.com/ensembleops/recruitops/internal/observability/statsd"
	"github.com/ensembleops/recruitops/internal/service"
)

// ServiceDeps contains the shared dependencies NewServices wires from.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Repositories holds the concrete data repositories so the CLI can reach
// past the services when a command needs direct reads.
type Repositories struct {
	Clients   *data.ClientRepo
	Postings  *data.PostingRepo
	Revisions *data.RevisionRepo
	Runs      *data.RunRepo
	Masters   *data.MasterRepo
	Todos     *data.TodoRepo
	Audits    *data.AuditRepo
	Tx        *data.Transactor
}

// ObservabilityContainer bundles the metric sink and failure notifier.
type ObservabilityContainer struct {
	MetricsSink *statsd.Client
	Notifier    *notify.Fanout
}

// ServiceContainer holds the wired pipeline services.
type ServiceContainer struct {
	Repos         *Repositories
	Cache         core.CacheRepository
	Blobs         *blob.FSStore
	Observability ObservabilityContainer

	MastersProvider *core.MastersCacheService

	Revisions *service.RevisionService
	Runs      *service.RunService
	Files     *service.FileGenService
	Imports   *service.ImportService
	Freshness *service.FreshnessService
	Masters   *service.MasterService
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Clients:   data.NewClientRepo(db),
		Postings:  data.NewPostingRepo(db),
		Revisions: data.NewRevisionRepo(db),
		Runs:      data.NewRunRepo(db),
		Masters:   data.NewMasterRepo(db),
		Todos:     data.NewTodoRepo(db),
		Audits:    data.NewAuditRepo(db),
		Tx:        data.NewTransactor(db),
	}
}

// NewServices wires repositories, adapters and services from shared deps.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("service deps require config and database")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB)

	var cache core.CacheRepository
	if deps.RedisClient != nil {
		cache = data.NewRedisCacheRepo(deps.RedisClient)
	}

	blobs, err := BuildBlobStore(deps.Config.Blob)
	if err != nil {
		return ServiceContainer{}, err
	}

	observability := ObservabilityContainer{
		MetricsSink: buildMetricsSink(logger, deps.Config.Observability.Metrics),
		Notifier:    buildNotifier(logger, deps.Config.Observability.Notifications),
	}

	mastersProvider := core.NewMastersCacheService(core.MastersCacheServiceOptions{
		Cache:   cache,
		Masters: repos.Masters,
		Config:  core.MastersCacheConfig{TTL: deps.Config.Cache.MastersTTL},
	})

	runs := service.NewRunService(service.RunServiceOptions{
		Runs:    repos.Runs,
		Masters: mastersProvider,
		Tx:      repos.Tx,
	})

	return ServiceContainer{
		Repos:           repos,
		Cache:           cache,
		Blobs:           blobs,
		Observability:   observability,
		MastersProvider: mastersProvider,
		Revisions: service.NewRevisionService(service.RevisionServiceOptions{
			Revisions: repos.Revisions,
			Scope: service.RevisionScope{
				Jobs:     repos.Clients,
				Postings: repos.Postings,
			},
			Masters: mastersProvider,
		}),
		Runs: runs,
		Files: service.NewFileGenService(service.FileGenServiceOptions{
			Runs:      repos.Runs,
			Validator: runs,
			Output: service.FileGenOutput{
				Fields: repos.Masters,
				Blobs:  blobs,
			},
		}),
		Imports: service.NewImportService(service.ImportServiceOptions{
			Repos: service.ImportRepos{
				Postings: repos.Postings,
				Runs:     repos.Runs,
				Todos:    repos.Todos,
				Audits:   repos.Audits,
			},
			Blobs: blobs,
			Tx:    repos.Tx,
		}),
		Freshness: service.NewFreshnessService(service.FreshnessServiceOptions{
			Repos: service.FreshnessRepos{
				Postings:  repos.Postings,
				Revisions: repos.Revisions,
				Runs:      repos.Runs,
				Todos:     repos.Todos,
				Audits:    repos.Audits,
			},
			Tx: repos.Tx,
			Config: service.FreshnessConfig{
				StaleAfter:   deps.Config.Freshness.StaleAfter(),
				SiblingReuse: deps.Config.Freshness.SiblingReuse(),
			},
		}),
		Masters: service.NewMasterService(service.MasterServiceOptions{
			Masters: repos.Masters,
			Cache:   mastersProvider,
		}),
	}, nil
}

// WorkerConfig contains the lifecycle dependencies for the worker process.
type WorkerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWorkerWithShutdown starts the worker's background services and blocks
// until a shutdown signal arrives or one of them fails.
func RunWorkerWithShutdown(cfg *WorkerConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("worker config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Config.Freshness.Enabled {
		runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
			Sweeper:    cfg.Services.Freshness,
			Schedule:   cfg.Config.Freshness.Schedule,
			Lock:       cfg.Services.Cache,
			LockTTL:    cfg.Config.Freshness.LockTTL,
			RunOnStart: cfg.Config.Freshness.RunOnStart,
			Logger:     logger.With("component", "sweeper"),
			Metrics:    cfg.Services.Observability.MetricsSink,
			Notifier:   cfg.Services.Observability.Notifier,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return runner.Run(ctx) })
	} else {
		logger.Info("freshness sweep disabled via config")
		// Nothing else runs in the worker; hold until signalled.
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	return g.Wait()
}
