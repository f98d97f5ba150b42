package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
)

type circuitSnapshotSource interface {
	Snapshots() []entities.AcquirerCircuitState
}

// CircuitSnapshotJob persists breaker state so a restart resumes OPEN circuits.
type CircuitSnapshotJob struct {
	source   circuitSnapshotSource
	repo     repositories.CircuitStateRepository
	interval time.Duration
	stop     chan struct{}
}

func NewCircuitSnapshotJob(source circuitSnapshotSource, repo repositories.CircuitStateRepository, interval time.Duration) *CircuitSnapshotJob {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &CircuitSnapshotJob{
		source:   source,
		repo:     repo,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called, then writes a final snapshot.
func (j *CircuitSnapshotJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting circuit snapshot job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.persistSnapshots(context.WithoutCancel(ctx))
			logger.Info(ctx, "Circuit snapshot job stopped (context cancelled)")
			return
		case <-j.stop:
			j.persistSnapshots(ctx)
			logger.Info(ctx, "Circuit snapshot job stopped")
			return
		case <-ticker.C:
			j.persistSnapshots(ctx)
		}
	}
}

func (j *CircuitSnapshotJob) Stop() {
	close(j.stop)
}

func (j *CircuitSnapshotJob) persistSnapshots(ctx context.Context) {
	states := j.source.Snapshots()
	if len(states) == 0 {
		return
	}
	if err := j.repo.Upsert(ctx, states); err != nil {
		logger.Error(ctx, "Error persisting circuit states", zap.Error(err))
		return
	}
	logger.Debug(ctx, "Circuit states persisted", zap.Int("acquirers", len(states)))
}
