package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"SchoolNotify/internal/user"
)

// Manager orchestrates the dispatch pipeline: permission and settings
// gates, role targeting, delivery fan-out to push/voice/email, and
// history/analytics recording. Handlers are constructed externally and
// injected so each can be tested and swapped independently.
//
// Failure policy: a single handler's failure never prevents the others
// from running. Everything is logged and absorbed except an explicit
// permission denial, which is returned as a classified error.
type Manager struct {
	users     UserDirectory
	history   *HistoryHandler
	analytics *AnalyticsHandler
	templates *TemplateEngine
	push      *PushHandler
	email     *EmailHandler
	voice     *VoiceHandler
	batches   BatchStore
	bus       *Bus
	log       *zap.Logger
}

func NewManager(
	users UserDirectory,
	history *HistoryHandler,
	analytics *AnalyticsHandler,
	templates *TemplateEngine,
	push *PushHandler,
	email *EmailHandler,
	voice *VoiceHandler,
	batches BatchStore,
	bus *Bus,
	log *zap.Logger,
) *Manager {
	return &Manager{
		users:     users,
		history:   history,
		analytics: analytics,
		templates: templates,
		push:      push,
		email:     email,
		voice:     voice,
		batches:   batches,
		bus:       bus,
		log:       log,
	}
}

// Init loads persisted state the manager depends on. Paired with fx's
// OnStart so construction stays side-effect free.
func (m *Manager) Init(ctx context.Context) error {
	return m.templates.Load(ctx)
}

// Bus exposes the event bus for listener registration.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// ShowNotification dispatches a notification to every user its targeting
// filters admit. Returns nil when targeting or settings exclude everyone
// (a deliberate no-op, not an error). A permission denial is returned only
// when it prevented every delivery.
func (m *Manager) ShowNotification(ctx context.Context, n Notification) error {
	_, err := m.Dispatch(ctx, n)
	return err
}

// Dispatch is ShowNotification plus a delivered-recipient count for
// callers that audit fan-out, like the scheduled-send sweep.
func (m *Manager) Dispatch(ctx context.Context, n Notification) (int, error) {
	if n.ID == "" {
		n.ID = NewID(n.Type)
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}

	recipients, err := m.resolveRecipients(ctx, n)
	if err != nil {
		m.log.Error("Recipient resolution failed",
			zap.String("notification", n.ID), zap.Error(err))
		return 0, nil
	}

	delivered := 0
	var permErr error
	for i := range recipients {
		u := &recipients[i]
		if err := m.push.EnsurePermission(ctx, u.ID); err != nil {
			if IsPermissionDenied(err) {
				permErr = err
				continue
			}
			m.log.Warn("Permission lookup failed, delivering anyway",
				zap.String("user", u.ID), zap.Error(err))
		}
		if !m.shouldShowNotification(u, n) {
			continue
		}
		m.deliverTo(ctx, u, n)
		delivered++
	}

	if delivered > 0 {
		if err := m.history.AddToHistory(ctx, n); err != nil {
			m.log.Error("History recording failed",
				zap.String("notification", n.ID), zap.Error(err))
		}
	}
	if delivered == 0 && permErr != nil {
		return 0, permErr
	}
	return delivered, nil
}

// resolveRecipients turns the targeting filters into a user list. Explicit
// target users win; otherwise the role filters select; with no filters at
// all, everyone qualifies.
func (m *Manager) resolveRecipients(ctx context.Context, n Notification) ([]user.User, error) {
	if len(n.TargetUsers) > 0 {
		return m.users.FindByIDs(ctx, n.TargetUsers)
	}
	roles := append(append([]string{}, n.TargetRoles...), n.TargetExtraRoles...)
	return m.users.FindByRoles(ctx, roles)
}

// shouldShowNotification applies the per-user settings gate and the
// targeting filters. Each filter only restricts when present.
func (m *Manager) shouldShowNotification(u *user.User, n Notification) bool {
	if !u.TypeEnabled(string(n.Type)) {
		return false
	}
	if len(n.TargetUsers) > 0 && !containsString(n.TargetUsers, u.ID) {
		return false
	}
	if len(n.TargetRoles) > 0 || len(n.TargetExtraRoles) > 0 {
		roleMatch := false
		for _, r := range n.TargetRoles {
			if u.HasRole(r) {
				roleMatch = true
				break
			}
		}
		if !roleMatch {
			for _, r := range n.TargetExtraRoles {
				if u.HasExtraRole(r) {
					roleMatch = true
					break
				}
			}
		}
		if !roleMatch {
			return false
		}
	}
	return true
}

// deliverTo runs the per-user delivery fan-out. Each handler call is
// guarded so one failing channel cannot block the others.
func (m *Manager) deliverTo(ctx context.Context, u *user.User, n Notification) {
	if err := m.push.Deliver(ctx, u.ID, n); err != nil {
		m.log.Warn("Push delivery failed",
			zap.String("user", u.ID), zap.String("notification", n.ID), zap.Error(err))
	}
	if err := m.analytics.RecordAnalytics(ctx, n.ID, ActionDelivered, u); err != nil {
		m.log.Warn("Analytics recording failed",
			zap.String("notification", n.ID), zap.Error(err))
	}
	m.voice.Announce(ctx, u, n)
	m.email.Deliver(ctx, u, n)
}

// generate renders via the template engine, falling back to a hand-built
// notification when no usable template exists.
func (m *Manager) generate(t Type, data map[string]string, fallback Notification) Notification {
	if n := m.templates.GenerateNotification(t, data, ""); n != nil {
		n.TargetUsers = fallback.TargetUsers
		n.TargetExtraRoles = fallback.TargetExtraRoles
		if len(fallback.TargetRoles) > 0 {
			n.TargetRoles = fallback.TargetRoles
		}
		if fallback.Priority != "" {
			n.Priority = fallback.Priority
		}
		n.Data = fallback.Data
		return *n
	}
	fallback.ID = NewID(t)
	fallback.Type = t
	fallback.Timestamp = time.Now()
	return fallback
}

// NotifyGradeUpdate dispatches a grade-update notification to parents and
// students, then emits a GradeUpdatedEvent.
func (m *Manager) NotifyGradeUpdate(ctx context.Context, studentID, studentName, subject string, score, maxScore float64) error {
	n := m.generate(TypeGrade, map[string]string{
		"studentName": studentName,
		"score":       fmt.Sprintf("%g", score),
		"maxScore":    fmt.Sprintf("%g", maxScore),
		"subject":     subject,
	}, Notification{
		Title:       "Grade Updated",
		Body:        fmt.Sprintf("%s received %g/%g in %s", studentName, score, maxScore, subject),
		Priority:    PriorityNormal,
		TargetRoles: []string{user.RoleParent, user.RoleStudent},
		Data:        map[string]interface{}{"studentId": studentID, "subject": subject},
	})
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(GradeUpdatedEvent{
		StudentID:   studentID,
		StudentName: studentName,
		Subject:     subject,
		Score:       score,
		MaxScore:    maxScore,
	})
	return err
}

// NotifyPPDBStatus dispatches an admissions status change to parents.
func (m *Manager) NotifyPPDBStatus(ctx context.Context, registrationID, applicantName, status string) error {
	n := m.generate(TypePPDB, map[string]string{
		"registrationId": registrationID,
		"applicantName":  applicantName,
		"status":         status,
	}, Notification{
		Title:       "PPDB Status Update",
		Body:        fmt.Sprintf("Registration %s for %s is now %s", registrationID, applicantName, status),
		Priority:    PriorityHigh,
		TargetRoles: []string{user.RoleParent},
		Data:        map[string]interface{}{"registrationId": registrationID, "status": status},
	})
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(PPDBStatusEvent{
		RegistrationID: registrationID,
		ApplicantName:  applicantName,
		Status:         status,
	})
	return err
}

// NotifyLibraryUpdate announces new e-library material.
func (m *Manager) NotifyLibraryUpdate(ctx context.Context, materialID, title, subject string) error {
	n := m.generate(TypeLibrary, map[string]string{
		"title":   title,
		"subject": subject,
	}, Notification{
		Title:       "New Library Material",
		Body:        fmt.Sprintf("%q has been added to %s", title, subject),
		Priority:    PriorityLow,
		TargetRoles: []string{user.RoleTeacher, user.RoleStudent},
		Data:        map[string]interface{}{"materialId": materialID},
	})
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(LibraryUpdatedEvent{MaterialID: materialID, Title: title, Subject: subject})
	return err
}

// NotifyMeetingRequest notifies one parent of a teacher meeting request.
func (m *Manager) NotifyMeetingRequest(ctx context.Context, parentID, teacherName, topic, when string) error {
	n := Notification{
		ID:          NewID(TypeEvent),
		Type:        TypeEvent,
		Title:       "Meeting Request",
		Body:        fmt.Sprintf("%s requests a meeting about %s on %s", teacherName, topic, when),
		Timestamp:   time.Now(),
		Priority:    PriorityHigh,
		TargetUsers: []string{parentID},
		Data:        map[string]interface{}{"topic": topic, "when": when},
	}
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(MeetingRequestedEvent{TeacherName: teacherName, ParentID: parentID, Topic: topic, When: when})
	return err
}

// NotifyScheduleChange announces a timetable change to a class.
func (m *Manager) NotifyScheduleChange(ctx context.Context, className, subject, detail string) error {
	n := Notification{
		ID:          NewID(TypeEvent),
		Type:        TypeEvent,
		Title:       "Schedule Change",
		Body:        fmt.Sprintf("%s %s: %s", className, subject, detail),
		Timestamp:   time.Now(),
		Priority:    PriorityNormal,
		TargetRoles: []string{user.RoleStudent, user.RoleTeacher, user.RoleParent},
		Data:        map[string]interface{}{"className": className, "subject": subject},
	}
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(ScheduleChangedEvent{ClassName: className, Subject: subject, Detail: detail})
	return err
}

// NotifyAttendanceAlert warns parents about an attendance problem.
func (m *Manager) NotifyAttendanceAlert(ctx context.Context, studentID, studentName, detail string) error {
	n := Notification{
		ID:          NewID(TypeSystem),
		Type:        TypeSystem,
		Title:       "Attendance Alert",
		Body:        fmt.Sprintf("%s: %s", studentName, detail),
		Timestamp:   time.Now(),
		Priority:    PriorityHigh,
		TargetRoles: []string{user.RoleParent},
		Data:        map[string]interface{}{"studentId": studentID},
	}
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(AttendanceAlertEvent{StudentID: studentID, StudentName: studentName, Detail: detail})
	return err
}

// NotifyOCRValidation reports a document validation outcome to parents.
func (m *Manager) NotifyOCRValidation(ctx context.Context, documentID, documentName, documentType, severity, result string) error {
	priority := PriorityNormal
	if severity == "failure" {
		priority = PriorityHigh
	}
	n := m.generate(TypeOCRValidation, map[string]string{
		"documentName": documentName,
		"result":       result,
	}, Notification{
		Title:       "Document Validation",
		Body:        fmt.Sprintf("%s: %s", documentName, result),
		Priority:    priority,
		TargetRoles: []string{user.RoleParent},
		Data:        map[string]interface{}{"documentId": documentID, "documentType": documentType, "severity": severity},
	})
	n.Priority = priority
	err := m.ShowNotification(ctx, n)
	m.bus.Emit(OCRValidatedEvent{DocumentID: documentID, DocumentType: documentType, Severity: severity})
	return err
}

// SendBatch runs a bulk send through the pending→processing→completed/
// failed state machine. No retries: the first failure reason is recorded
// and the batch is marked failed, but remaining notifications are still
// attempted.
func (m *Manager) SendBatch(ctx context.Context, notifications []Notification) (*Batch, error) {
	batch := &Batch{
		ID:            NewID(TypeSystem),
		Notifications: notifications,
		Status:        BatchPending,
		CreatedAt:     time.Now(),
	}
	if err := m.batches.Put(ctx, batch); err != nil {
		return nil, storageError("failed to store batch", err)
	}

	batch.Status = BatchProcessing
	if err := m.batches.Put(ctx, batch); err != nil {
		m.log.Warn("Batch status update failed", zap.String("batch", batch.ID), zap.Error(err))
	}

	for _, n := range notifications {
		if err := m.ShowNotification(ctx, n); err != nil {
			if batch.FailureReason == "" {
				batch.FailureReason = err.Error()
			}
		}
	}

	if batch.FailureReason != "" {
		batch.Status = BatchFailed
	} else {
		batch.Status = BatchCompleted
	}
	if err := m.batches.Put(ctx, batch); err != nil {
		m.log.Warn("Batch status update failed", zap.String("batch", batch.ID), zap.Error(err))
	}
	return batch, nil
}
