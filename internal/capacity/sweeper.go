package capacity

import (
	"context"
	"log/slog"
	"time"

	"tourly/pkg/logger"
)

// SweeperJob runs the expiration sweep on a fixed interval. A hold can
// outlive its nominal TTL by up to one interval; deployments needing a
// tighter bound shorten the interval rather than adding a second mechanism.
type SweeperJob struct {
	service Service
	config  *SweeperConfig
	logger  *logger.Logger
	done    chan struct{}
}

// SweeperConfig contains configuration for the background sweeper
type SweeperConfig struct {
	Interval time.Duration
}

// DefaultSweeperConfig returns the default sweeper configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval: 5 * time.Minute,
	}
}

// NewSweeperJob creates a new background sweeper
func NewSweeperJob(service Service, config *SweeperConfig) *SweeperJob {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	return &SweeperJob{
		service: service,
		config:  config,
		logger:  logger.GetDefault(),
		done:    make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine
func (j *SweeperJob) Start(ctx context.Context) {
	j.logger.Info("starting capacity expiration sweeper",
		slog.Duration("interval", j.config.Interval),
	)
	go j.run(ctx)
}

// Stop stops the sweep loop
func (j *SweeperJob) Stop() {
	close(j.done)
	j.logger.Info("capacity expiration sweeper stopped")
}

func (j *SweeperJob) run(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *SweeperJob) sweep(ctx context.Context) {
	report, err := j.service.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("expiration sweep failed", slog.String("error", err.Error()))
		return
	}
	if report.ReleasedCount > 0 {
		j.logger.Info("expiration sweep completed",
			slog.Int("released", report.ReleasedCount),
			slog.Int("schedules", len(report.AffectedSchedules)),
		)
	}
}
