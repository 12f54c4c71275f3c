package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/ensembleops/recruitops/config"
	"github.com/ensembleops/recruitops/internal/adapters/blob"
	"github.com/ensembleops/recruitops/internal/observability/notify"
	"github.com/ensembleops/recruitops/internal/observability/notify/pagerduty"
	"github.com/ensembleops/recruitops/internal/observability/notify/slack"
	"github.com/ensembleops/recruitops/internal/observability/statsd"
)

// BuildBlobStore opens the filesystem blob store for generated files and
// archived uploads.
func BuildBlobStore(cfg config.BlobConfig) (*blob.FSStore, error) {
	store, err := blob.NewFSStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, nil
}

// buildMetricsSink creates the StatsD client when metrics are enabled.
// A failed dial logs and degrades to no metrics rather than blocking
// startup.
func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildNotifier assembles the sweep failure fanout from the enabled sinks.
func buildNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *notify.Fanout {
	if !cfg.Enabled {
		return notify.NewFanout()
	}

	sinks := make([]notify.Sink, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:       cfg.Slack.WebhookURL,
			Channel:          cfg.Slack.Channel,
			Username:         cfg.Slack.Username,
			Timeout:          cfg.Timeout,
			RetryLimit:       cfg.RetryLimit,
			ConsoleURLPrefix: cfg.Slack.ConsoleURLPrefix,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, client)
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, client)
		}
	}

	return notify.NewFanout(sinks...)
}
