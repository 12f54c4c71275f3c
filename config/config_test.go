package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "recruitops_test")
	t.Setenv("REDIS_URI", "redis.internal:6379")
	t.Setenv("CACHE_MASTERS_TTL", "5m")
	t.Setenv("BLOB_DIR", "/srv/recruitops/blobs")
	t.Setenv("FRESHNESS_SCHEDULE", "30 2 * * *")
	t.Setenv("FRESHNESS_STALE_AFTER_DAYS", "21")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("expected DB_HOST to map to Postgres.Host, got %q", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 5433 {
		t.Fatalf("expected DB_PORT 5433, got %d", cfg.Postgres.Port)
	}
	if cfg.Postgres.Name != "recruitops_test" {
		t.Fatalf("expected DB_NAME recruitops_test, got %q", cfg.Postgres.Name)
	}
	if cfg.Redis.URI != "redis.internal:6379" {
		t.Fatalf("expected REDIS_URI to map to Redis.URI, got %q", cfg.Redis.URI)
	}
	if cfg.Cache.MastersTTL != 5*time.Minute {
		t.Fatalf("expected masters TTL 5m, got %v", cfg.Cache.MastersTTL)
	}
	if cfg.Blob.Dir != "/srv/recruitops/blobs" {
		t.Fatalf("expected BLOB_DIR to map to Blob.Dir, got %q", cfg.Blob.Dir)
	}
	if cfg.Freshness.Schedule != "30 2 * * *" {
		t.Fatalf("expected FRESHNESS_SCHEDULE to map to Freshness.Schedule, got %q", cfg.Freshness.Schedule)
	}
	if cfg.Freshness.StaleAfterDays != 21 {
		t.Fatalf("expected FRESHNESS_STALE_AFTER_DAYS 21, got %d", cfg.Freshness.StaleAfterDays)
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestFreshnessConfig_Sanitize(t *testing.T) {
	cfg := FreshnessConfig{
		Schedule:         "  ",
		StaleAfterDays:   0,
		SiblingReuseDays: -1,
		LockTTL:          0,
	}

	cfg.Sanitize()

	if cfg.Schedule != "0 3 * * *" {
		t.Fatalf("expected default schedule, got %q", cfg.Schedule)
	}
	if cfg.StaleAfterDays != 14 {
		t.Fatalf("expected default stale-after days, got %d", cfg.StaleAfterDays)
	}
	if cfg.SiblingReuseDays != 7 {
		t.Fatalf("expected default sibling reuse days, got %d", cfg.SiblingReuseDays)
	}
	if cfg.LockTTL != 30*time.Minute {
		t.Fatalf("expected default lock TTL, got %v", cfg.LockTTL)
	}

	if cfg.StaleAfter() != 14*24*time.Hour {
		t.Fatalf("expected stale-after duration 14d, got %v", cfg.StaleAfter())
	}
	if cfg.SiblingReuse() != 7*24*time.Hour {
		t.Fatalf("expected sibling reuse duration 7d, got %v", cfg.SiblingReuse())
	}
}

func TestBlobConfig_Sanitize(t *testing.T) {
	cfg := BlobConfig{Dir: "   "}
	cfg.Sanitize()
	if cfg.Dir != "./var/blobs" {
		t.Fatalf("expected default blob dir, got %q", cfg.Dir)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
			Source:     "",
			Component:  "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "recruitops" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
	if cfg.PagerDuty.Component != "recruitops" {
		t.Fatalf("expected pagerduty component default, got %q", cfg.PagerDuty.Component)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "abc",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled when top-level notifications disabled")
	}
}
