package parentgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"SchoolNotify/internal/grades"
	"SchoolNotify/internal/notification"
)

// missingGradeLookback bounds how far back the grade fetch goes when
// checking for stale subjects.
const missingGradeLookback = 90 * 24 * time.Hour

// MissingSubject is one stale subject in a missing-grades report.
type MissingSubject struct {
	Subject   string
	DaysSince int
	LastType  string
}

// MissingSubjects finds subjects whose most recent grade is older than the
// effective threshold: max(settings.MissingGradeDays, expected frequency
// for the last assignment type).
func MissingSubjects(recent []grades.Grade, st Settings, now time.Time) []MissingSubject {
	type last struct {
		gradedAt time.Time
		typ      string
	}
	latest := make(map[string]last)
	for _, g := range recent {
		cur, ok := latest[g.Subject]
		if !ok || g.GradedAt.After(cur.gradedAt) {
			latest[g.Subject] = last{gradedAt: g.GradedAt, typ: g.AssignmentType}
		}
	}

	var missing []MissingSubject
	for subject, l := range latest {
		days := int(now.Sub(l.gradedAt).Hours() / 24)
		threshold := st.MissingGradeDays
		if expected := ExpectedFrequencyDays(l.typ); expected > threshold {
			threshold = expected
		}
		if days > threshold {
			missing = append(missing, MissingSubject{Subject: subject, DaysSince: days, LastType: l.typ})
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Subject < missing[j].Subject })
	return missing
}

// CheckMissingGrades scans every monitored child of every parent with the
// alert enabled and sends one aggregated report per child with stale
// subjects.
func (s *Service) CheckMissingGrades(ctx context.Context) {
	all, err := s.settings.AllEnabled(ctx)
	if err != nil {
		s.log.Error("Failed to load parent settings for missing-grade check", zap.Error(err))
		return
	}
	now := s.now()
	for _, st := range all {
		if !st.MissingGradeAlert {
			continue
		}
		parent, err := s.users.FindByID(ctx, st.UserID)
		if err != nil || parent == nil {
			continue
		}
		for _, childID := range parent.ChildIDs {
			s.checkChild(ctx, st, childID, now)
		}
	}
}

func (s *Service) checkChild(ctx context.Context, st Settings, childID string, now time.Time) {
	recent, err := s.gradesAPI.RecentGrades(ctx, childID, now.Add(-missingGradeLookback))
	if err != nil {
		s.log.Warn("Failed to fetch grades for missing-grade check",
			zap.String("student", childID), zap.Error(err))
		return
	}
	missing := MissingSubjects(recent, st, now)
	if len(missing) == 0 {
		return
	}

	childName := childID
	if child, err := s.users.FindByID(ctx, childID); err == nil && child != nil {
		childName = child.Name
	}
	subjects := make([]string, 0, len(missing))
	for _, m := range missing {
		subjects = append(subjects, fmt.Sprintf("%s (%d days)", m.Subject, m.DaysSince))
	}
	n := notification.Notification{
		ID:          notification.NewID(notification.TypeMissingGrades),
		Type:        notification.TypeMissingGrades,
		Title:       "Missing Grades",
		Body: fmt.Sprintf("%s has %d subject(s) without recent grades: %s",
			childName, len(missing), strings.Join(subjects, ", ")),
		Timestamp:   now,
		Priority:    notification.PriorityNormal,
		TargetUsers: []string{st.UserID},
		Data: map[string]interface{}{
			"studentId": childID,
			"subjects":  subjects,
		},
	}
	if err := s.dispatcher.ShowNotification(ctx, n); err != nil {
		s.log.Error("Failed to send missing-grades notification",
			zap.String("student", childID), zap.Error(err))
	}
}
