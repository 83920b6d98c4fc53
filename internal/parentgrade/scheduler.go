package parentgrade

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"SchoolNotify/internal/config"
)

// Scheduler runs the periodic sweeps of the policy engine: the deferred
// queue, the daily and weekly digests, the missing-grade check and queue
// compaction. Sweep bodies are fast synchronous store operations; there is
// deliberately no overlap guard.
type Scheduler struct {
	service *Service
	cfg     *config.Config
	log     *zap.Logger
}

func NewScheduler(service *Service, cfg *config.Config, log *zap.Logger) *Scheduler {
	return &Scheduler{service: service, cfg: cfg, log: log}
}

// Start launches the sweep goroutine, tied to the fx lifecycle.
func (s *Scheduler) Start(lc fx.Lifecycle) {
	queueTicker := time.NewTicker(s.cfg.QueueSweepInterval)
	dailyTicker := time.NewTicker(s.cfg.DailyDigestInterval)
	weeklyTicker := time.NewTicker(s.cfg.WeeklyDigestInterval)
	missingTicker := time.NewTicker(s.cfg.MissingGradeInterval)
	compactTicker := time.NewTicker(s.cfg.CompactionInterval)
	done := make(chan bool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("Starting parent grade notification sweeps",
				zap.Duration("queue", s.cfg.QueueSweepInterval),
				zap.Duration("daily", s.cfg.DailyDigestInterval),
				zap.Duration("weekly", s.cfg.WeeklyDigestInterval))
			go func() {
				sweepCtx := context.Background()
				for {
					select {
					case <-queueTicker.C:
						s.service.ProcessDueQueue(sweepCtx)
						s.service.ProcessDueOCRQueue(sweepCtx)
					case <-dailyTicker.C:
						s.service.DeliverDigests(sweepCtx, FrequencyDailyDigest)
					case <-weeklyTicker.C:
						s.service.DeliverDigests(sweepCtx, FrequencyWeeklySummary)
					case <-missingTicker.C:
						s.service.CheckMissingGrades(sweepCtx)
					case <-compactTicker.C:
						s.service.CompactQueues(sweepCtx, s.cfg.QueueRetention)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("Stopping parent grade notification sweeps...")
			queueTicker.Stop()
			dailyTicker.Stop()
			weeklyTicker.Stop()
			missingTicker.Stop()
			compactTicker.Stop()
			done <- true
			return nil
		},
	})
}
