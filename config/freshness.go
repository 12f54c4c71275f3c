package config

import (
	"strings"
	"time"
)

// FreshnessConfig controls the scheduled freshness sweep.
type FreshnessConfig struct {
	// Enabled toggles the sweep scheduler in the worker process.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// Schedule is a standard 5-field cron expression, evaluated in UTC.
	Schedule string `env:"SCHEDULE" envDefault:"0 3 * * *"`

	// StaleAfterDays marks a posting stale this many days after its
	// last publish.
	StaleAfterDays int `env:"STALE_AFTER_DAYS" envDefault:"14"`

	// SiblingReuseDays bounds how old an unlinked sibling posting may be
	// before the sweep clones a new one instead of reusing it.
	SiblingReuseDays int `env:"SIBLING_REUSE_DAYS" envDefault:"7"`

	// LockTTL is the lifetime of the cross-instance sweep lock. Must
	// outlive the longest expected sweep.
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"30m"`

	// RunOnStart fires one sweep immediately at worker startup, in
	// addition to the cron schedule.
	RunOnStart bool `env:"RUN_ON_START" envDefault:"false"`
}

// Sanitize normalises sweep configuration and enforces safe defaults.
func (c *FreshnessConfig) Sanitize() {
	c.Schedule = strings.TrimSpace(c.Schedule)
	if c.Schedule == "" {
		c.Schedule = "0 3 * * *"
	}
	if c.StaleAfterDays <= 0 {
		c.StaleAfterDays = 14
	}
	if c.SiblingReuseDays <= 0 {
		c.SiblingReuseDays = 7
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Minute
	}
}

// StaleAfter returns the stale threshold as a duration.
func (c *FreshnessConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterDays) * 24 * time.Hour
}

// SiblingReuse returns the sibling reuse window as a duration.
func (c *FreshnessConfig) SiblingReuse() time.Duration {
	return time.Duration(c.SiblingReuseDays) * 24 * time.Hour
}
