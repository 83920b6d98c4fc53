package parentgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"SchoolNotify/internal/notification"
)

// DigestSummary is the aggregate a digest sweep produces for one student.
type DigestSummary struct {
	StudentID      string
	StudentName    string
	ParentID       string
	Count          int
	Subjects       []string
	BelowThreshold int
	MajorExams     int
}

// BuildDigest folds a student's queued entries into one summary.
func BuildDigest(entries []QueuedNotification, threshold float64) DigestSummary {
	sum := DigestSummary{}
	seen := make(map[string]bool)
	for _, q := range entries {
		sum.Count++
		sum.StudentID = q.StudentID
		sum.StudentName = q.Data.StudentName
		sum.ParentID = q.Data.ParentID
		if !seen[q.Data.Subject] {
			seen[q.Data.Subject] = true
			sum.Subjects = append(sum.Subjects, q.Data.Subject)
		}
		if q.Data.Percent() < threshold {
			sum.BelowThreshold++
		}
		if IsMajorExam(q.Data.AssignmentType) {
			sum.MajorExams++
		}
	}
	sort.Strings(sum.Subjects)
	return sum
}

// DeliverDigests sweeps all unsent digest entries of the given frequency
// whose scheduled time has passed and emits one aggregate notification
// per student.
func (s *Service) DeliverDigests(ctx context.Context, freq Frequency) {
	due, err := s.queue.Due(ctx, freq, s.now())
	if err != nil {
		s.log.Error("Failed to read digest queue",
			zap.String("frequency", string(freq)), zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	byStudent := make(map[string][]QueuedNotification)
	for _, q := range due {
		byStudent[q.StudentID] = append(byStudent[q.StudentID], q)
	}

	title := "Daily Grade Digest"
	if freq == FrequencyWeeklySummary {
		title = "Weekly Grade Summary"
	}

	var sent []string
	for _, entries := range byStudent {
		st := s.SettingsFor(ctx, entries[0].Data.ParentID)
		sum := BuildDigest(entries, st.GradeThreshold)
		body := fmt.Sprintf("%s has %d new grade(s) in %s. %d below threshold, %d from major exams.",
			sum.StudentName, sum.Count, strings.Join(sum.Subjects, ", "),
			sum.BelowThreshold, sum.MajorExams)
		n := notification.Notification{
			ID:          notification.NewID(notification.TypeGrade),
			Type:        notification.TypeGrade,
			Title:       title,
			Body:        body,
			Timestamp:   s.now(),
			Priority:    notification.PriorityNormal,
			TargetUsers: []string{sum.ParentID},
			Data: map[string]interface{}{
				"studentId": sum.StudentID,
				"digest":    string(freq),
				"count":     sum.Count,
			},
		}
		if err := s.dispatcher.ShowNotification(ctx, n); err != nil {
			s.log.Error("Failed to send digest notification",
				zap.String("student", sum.StudentID), zap.Error(err))
			continue
		}
		for _, q := range entries {
			sent = append(sent, q.ID)
		}
	}
	if err := s.queue.MarkSent(ctx, sent); err != nil {
		s.log.Error("Failed to mark digest entries sent", zap.Error(err))
	}
}
