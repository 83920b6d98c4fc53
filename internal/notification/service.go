package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service handles admin-scheduled notifications: persisting them and
// sending the ones that have come due.
type Service struct {
	repo    ScheduledStore
	manager *Manager
	log     *zap.Logger
}

func NewService(repo ScheduledStore, manager *Manager, log *zap.Logger) *Service {
	return &Service{repo: repo, manager: manager, log: log}
}

// ScheduleNotification saves a new scheduled notification.
func (s *Service) ScheduleNotification(ctx context.Context, sched *Scheduled) error {
	if sched.ID == "" {
		sched.ID = NewID(sched.Notification.Type)
	}
	if sched.Notification.ID == "" {
		sched.Notification.ID = sched.ID
	}
	sched.Status = "scheduled"
	sched.CreatedAt = time.Now()
	sched.UpdatedAt = sched.CreatedAt
	if err := s.repo.Create(ctx, sched); err != nil {
		return storageError("failed to store scheduled notification", err)
	}
	return nil
}

// SendDueNotifications finds and dispatches all notifications that are due.
func (s *Service) SendDueNotifications(ctx context.Context) {
	due, err := s.repo.Due(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to fetch due notifications", zap.Error(err))
		return
	}
	for _, sched := range due {
		delivered, err := s.manager.Dispatch(ctx, sched.Notification)
		if err != nil {
			s.log.Error("Failed to send scheduled notification",
				zap.String("id", sched.ID), zap.Error(err))
			if updErr := s.repo.UpdateStatus(ctx, sched.ID, "failed", delivered); updErr != nil {
				s.log.Error("Failed to update scheduled notification status",
					zap.String("id", sched.ID), zap.Error(updErr))
			}
			continue
		}
		s.log.Info("Scheduled notification sent",
			zap.String("id", sched.ID), zap.Int("delivered", delivered))
		if err := s.repo.UpdateStatus(ctx, sched.ID, "sent", delivered); err != nil {
			s.log.Error("Failed to update scheduled notification status",
				zap.String("id", sched.ID), zap.Error(err))
		}
	}
}

// ListScheduled returns all scheduled notifications, newest first.
func (s *Service) ListScheduled(ctx context.Context) ([]*Scheduled, error) {
	return s.repo.List(ctx)
}

// DeleteScheduled removes a scheduled notification before it is sent.
func (s *Service) DeleteScheduled(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
