package notification

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler periodically checks for and sends due scheduled notifications.
type Scheduler struct {
	service  *Service
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(service *Service, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{service: service, interval: interval, log: log}
}

// Start runs the background sweep goroutine, tied to the fx lifecycle.
func (s *Scheduler) Start(lc fx.Lifecycle) {
	ticker := time.NewTicker(s.interval)
	done := make(chan bool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("Starting notification scheduler",
				zap.Duration("interval", s.interval))
			go func() {
				sweepCtx := context.Background()
				for {
					select {
					case <-ticker.C:
						s.service.SendDueNotifications(sweepCtx)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("Stopping notification scheduler...")
			ticker.Stop()
			done <- true
			return nil
		},
	})
}
