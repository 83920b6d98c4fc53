package parentgrade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"SchoolNotify/internal/grades"
	"SchoolNotify/internal/notification"
)

// Dispatcher is the slice of the notification manager the policy engine
// needs. Kept narrow so tests can record calls.
type Dispatcher interface {
	ShowNotification(ctx context.Context, n notification.Notification) error
}

// GradesAPI is the slice of the grades client used for missing-grade
// detection.
type GradesAPI interface {
	RecentGrades(ctx context.Context, studentID string, since time.Time) ([]grades.Grade, error)
}

// Service is the parent grade notification policy engine. Each grade
// event is evaluated independently: settings gate, notify decision,
// quiet-hours deferral, then frequency routing.
type Service struct {
	settings   SettingsStore
	queue      QueueStore
	ocrQueue   OCRQueueStore
	users      notification.UserDirectory
	gradesAPI  GradesAPI
	dispatcher Dispatcher
	log        *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

func NewService(
	settings SettingsStore,
	queue QueueStore,
	ocrQueue OCRQueueStore,
	users notification.UserDirectory,
	gradesAPI GradesAPI,
	dispatcher Dispatcher,
	log *zap.Logger,
) *Service {
	return &Service{
		settings:   settings,
		queue:      queue,
		ocrQueue:   ocrQueue,
		users:      users,
		gradesAPI:  gradesAPI,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// SettingsFor loads a parent's settings, falling back to defaults when
// nothing is stored or the store fails.
func (s *Service) SettingsFor(ctx context.Context, parentID string) Settings {
	st, err := s.settings.Get(ctx, parentID)
	if err != nil {
		s.log.Warn("Failed to load parent settings, using defaults",
			zap.String("parent", parentID), zap.Error(err))
		return DefaultSettings(parentID)
	}
	if st == nil {
		return DefaultSettings(parentID)
	}
	return *st
}

// UpdateSettings persists a parent's settings.
func (s *Service) UpdateSettings(ctx context.Context, st Settings) error {
	if st.UserID == "" {
		return fmt.Errorf("settings require a user id")
	}
	if st.Frequency == "" {
		st.Frequency = FrequencyImmediate
	}
	return s.settings.Put(ctx, st)
}

// ShouldNotify decides whether a grade event is worth telling the parent
// about: a brand-new grade always is, as is a changed value or a score
// below the configured percentage threshold.
func ShouldNotify(st Settings, upd GradeUpdate) bool {
	if upd.PreviousScore == nil {
		return true
	}
	if *upd.PreviousScore != upd.Score {
		return true
	}
	return upd.Percent() < st.GradeThreshold
}

// ProcessGradeUpdate runs one grade event through the policy pipeline.
func (s *Service) ProcessGradeUpdate(ctx context.Context, upd GradeUpdate) error {
	st := s.SettingsFor(ctx, upd.ParentID)
	if !st.Enabled {
		s.log.Debug("Parent grade notifications disabled, skipping",
			zap.String("parent", upd.ParentID))
		return nil
	}
	if len(st.Subjects) > 0 && !containsFold(st.Subjects, upd.Subject) {
		return nil
	}
	if !ShouldNotify(st, upd) {
		return nil
	}
	// Evaluated after the new/changed/threshold checks, so a
	// below-threshold grade on a minor assignment is still suppressed
	// when majorExamsOnly is on.
	if st.MajorExamsOnly && !IsMajorExam(upd.AssignmentType) {
		return nil
	}

	now := s.now()
	if st.Frequency == FrequencyImmediate && WithinQuietHours(now, st.QuietHours) {
		q := QueuedNotification{
			ID:           notification.NewID(notification.TypeGrade),
			StudentID:    upd.StudentID,
			Data:         upd,
			Timestamp:    now,
			ScheduledFor: NextQuietHoursEnd(now, st.QuietHours),
			Frequency:    FrequencyImmediate,
		}
		if err := s.queue.Add(ctx, q); err != nil {
			return fmt.Errorf("failed to defer notification: %w", err)
		}
		s.log.Info("Grade notification deferred to quiet-hours end",
			zap.String("parent", upd.ParentID),
			zap.Time("scheduledFor", q.ScheduledFor))
		return nil
	}

	switch st.Frequency {
	case FrequencyDailyDigest, FrequencyWeeklySummary:
		delay := 24 * time.Hour
		if st.Frequency == FrequencyWeeklySummary {
			delay = 7 * 24 * time.Hour
		}
		q := QueuedNotification{
			ID:           notification.NewID(notification.TypeGrade),
			StudentID:    upd.StudentID,
			Data:         upd,
			Timestamp:    now,
			ScheduledFor: now.Add(delay),
			Frequency:    st.Frequency,
		}
		if err := s.queue.Add(ctx, q); err != nil {
			return fmt.Errorf("failed to enqueue digest entry: %w", err)
		}
		return nil
	default:
		return s.sendGradeNotification(ctx, upd, st)
	}
}

// sendGradeNotification dispatches one immediate grade notification, with
// low-grade framing and high priority when the score is below the
// threshold.
func (s *Service) sendGradeNotification(ctx context.Context, upd GradeUpdate, st Settings) error {
	below := upd.Percent() < st.GradeThreshold
	title := "Grade Updated"
	priority := notification.PriorityNormal
	body := fmt.Sprintf("%s received %g/%g in %s (%s)",
		upd.StudentName, upd.Score, upd.MaxScore, upd.Subject, upd.AssignmentName)
	if below {
		title = "Low Grade Alert"
		priority = notification.PriorityHigh
		body = fmt.Sprintf("%s scored %g/%g (%.0f%%) in %s, below your %g%% threshold",
			upd.StudentName, upd.Score, upd.MaxScore, upd.Percent(), upd.Subject, st.GradeThreshold)
	}
	n := notification.Notification{
		ID:          notification.NewID(notification.TypeGrade),
		Type:        notification.TypeGrade,
		Title:       title,
		Body:        body,
		Timestamp:   s.now(),
		Priority:    priority,
		TargetUsers: []string{upd.ParentID},
		Data: map[string]interface{}{
			"studentId":      upd.StudentID,
			"subject":        upd.Subject,
			"assignmentType": upd.AssignmentType,
			"belowThreshold": below,
		},
	}
	return s.dispatcher.ShowNotification(ctx, n)
}

// ProcessDueQueue sends immediate notifications that were deferred by
// quiet hours and have now come due.
func (s *Service) ProcessDueQueue(ctx context.Context) {
	due, err := s.queue.Due(ctx, FrequencyImmediate, s.now())
	if err != nil {
		s.log.Error("Failed to read notification queue", zap.Error(err))
		return
	}
	var sent []string
	for _, q := range due {
		st := s.SettingsFor(ctx, q.Data.ParentID)
		if err := s.sendGradeNotification(ctx, q.Data, st); err != nil {
			s.log.Error("Failed to send deferred grade notification",
				zap.String("id", q.ID), zap.Error(err))
			continue
		}
		sent = append(sent, q.ID)
	}
	if err := s.queue.MarkSent(ctx, sent); err != nil {
		s.log.Error("Failed to mark queue entries sent", zap.Error(err))
	}
}

// ClearQueue wipes both deferred queues. There is no per-item
// cancellation.
func (s *Service) ClearQueue(ctx context.Context) error {
	if err := s.queue.Clear(ctx); err != nil {
		return err
	}
	return s.ocrQueue.Clear(ctx)
}

// CompactQueues prunes sent entries older than the retention window.
func (s *Service) CompactQueues(ctx context.Context, retention time.Duration) {
	cutoff := s.now().Add(-retention)
	pruned, err := s.queue.Compact(ctx, cutoff)
	if err != nil {
		s.log.Error("Queue compaction failed", zap.Error(err))
	}
	ocrPruned, err := s.ocrQueue.Compact(ctx, cutoff)
	if err != nil {
		s.log.Error("OCR queue compaction failed", zap.Error(err))
	}
	if pruned+ocrPruned > 0 {
		s.log.Info("Compacted notification queues",
			zap.Int64("grade", pruned), zap.Int64("ocr", ocrPruned))
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
