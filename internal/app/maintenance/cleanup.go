package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/innkeep/internal/cache"
	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultCacheSpec          = "@every 15m"
	defaultSweepSpec          = "@every 5m"

	JobAuditRetention = "audit_retention"
	JobCachePurge     = "cache_purge"
	JobRateSweep      = "rate_sweep"
)

// Sweeper drops expired in-memory state, such as rate limit counters.
type Sweeper interface {
	Sweep()
}

// Cleaner coordinates background maintenance: pruning stale audit logs,
// purging expired cache entries and sweeping in-memory rate counters.
type Cleaner struct {
	audit     *services.AuditService
	cache     *cache.DatabaseStore
	sweeper   Sweeper
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	auditSchedule string
	cacheSchedule string
	sweepSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained. Zero
// keeps them forever.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days >= 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithCacheStore enables purging expired rows of the database cache.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = store
	}
}

// WithSweeper enables periodic sweeping of an in-memory store.
func WithSweeper(s Sweeper) Option {
	return func(cleaner *Cleaner) {
		cleaner.sweeper = s
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Jobs without a
// dependency are skipped.
func NewCleaner(audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:         audit,
		retention:     defaultAuditRetentionDays,
		auditSchedule: defaultAuditSpec,
		cacheSchedule: defaultCacheSpec,
		sweepSchedule: defaultSweepSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

type job struct {
	name string
	spec string
	run  func(context.Context) (int64, error)
}

func (c *Cleaner) jobs() []job {
	var jobs []job
	if c.audit != nil && c.retention > 0 {
		jobs = append(jobs, job{name: JobAuditRetention, spec: c.auditSchedule, run: func(ctx context.Context) (int64, error) {
			return c.audit.CleanupOlderThan(ctx, c.retention)
		}})
	}
	if c.cache != nil {
		jobs = append(jobs, job{name: JobCachePurge, spec: c.cacheSchedule, run: c.cache.PurgeExpired})
	}
	if c.sweeper != nil {
		jobs = append(jobs, job{name: JobRateSweep, spec: c.sweepSchedule, run: func(context.Context) (int64, error) {
			c.sweeper.Sweep()
			return 0, nil
		}})
	}
	return jobs
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		if _, err := c.cron.AddFunc(j.spec, func() {
			_ = c.execute(context.Background(), j)
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	c.log.Info("maintenance scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once
// running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially and reports
// every failure.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	removed, err := j.run(ctx)
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(j.name, "failure").Inc()
		c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
		return fmt.Errorf("%s: %w", j.name, err)
	}
	metrics.MaintenanceRuns.WithLabelValues(j.name, "success").Inc()
	if removed > 0 {
		c.log.Info("maintenance job completed", zap.String("job", j.name), zap.Int64("removed", removed))
	}
	return nil
}
