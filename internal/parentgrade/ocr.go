package parentgrade

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"SchoolNotify/internal/notification"
)

// importantDocMarkers mark document types whose successful validation is
// still worth a notification. Everything else is routine paperwork and
// success is suppressed.
var importantDocMarkers = []string{"certificate", "administrative"}

func isRoutineDocument(documentType string) bool {
	lowered := strings.ToLower(documentType)
	for _, marker := range importantDocMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	return true
}

// ProcessOCRValidation runs a document-validation outcome through the same
// gate, quiet-hours-queue, send pipeline as grade events.
func (s *Service) ProcessOCRValidation(ctx context.Context, res OCRResult) error {
	st := s.SettingsFor(ctx, res.ParentID)
	if !st.Enabled {
		return nil
	}
	if res.Severity == SeveritySuccess && isRoutineDocument(res.DocumentType) {
		s.log.Debug("Suppressing success notification for routine document",
			zap.String("document", res.DocumentID))
		return nil
	}

	now := s.now()
	if WithinQuietHours(now, st.QuietHours) {
		q := QueuedOCR{
			ID:           notification.NewID(notification.TypeOCRValidation),
			Result:       res,
			Timestamp:    now,
			ScheduledFor: NextQuietHoursEnd(now, st.QuietHours),
		}
		if err := s.ocrQueue.Add(ctx, q); err != nil {
			return fmt.Errorf("failed to defer OCR notification: %w", err)
		}
		return nil
	}
	return s.sendOCRNotification(ctx, res)
}

func (s *Service) sendOCRNotification(ctx context.Context, res OCRResult) error {
	var title string
	priority := notification.PriorityNormal
	var body string
	switch res.Severity {
	case SeverityFailure:
		title = "Document Validation Failed"
		priority = notification.PriorityHigh
		body = fmt.Sprintf("%s could not be validated: %s", res.DocumentName, res.Detail)
	case SeverityWarning:
		title = "Document Needs Attention"
		body = fmt.Sprintf("%s was validated with warnings: %s", res.DocumentName, res.Detail)
	default:
		title = "Document Validated"
		body = fmt.Sprintf("%s has been validated successfully", res.DocumentName)
	}

	n := notification.Notification{
		ID:          notification.NewID(notification.TypeOCRValidation),
		Type:        notification.TypeOCRValidation,
		Title:       title,
		Body:        body,
		Timestamp:   s.now(),
		Priority:    priority,
		TargetUsers: []string{res.ParentID},
		Data: map[string]interface{}{
			"documentId":   res.DocumentID,
			"documentType": res.DocumentType,
			"severity":     res.Severity,
		},
	}
	return s.dispatcher.ShowNotification(ctx, n)
}

// ProcessDueOCRQueue sends deferred OCR notifications that have come due.
func (s *Service) ProcessDueOCRQueue(ctx context.Context) {
	due, err := s.ocrQueue.Due(ctx, s.now())
	if err != nil {
		s.log.Error("Failed to read OCR queue", zap.Error(err))
		return
	}
	var sent []string
	for _, q := range due {
		if err := s.sendOCRNotification(ctx, q.Result); err != nil {
			s.log.Error("Failed to send deferred OCR notification",
				zap.String("id", q.ID), zap.Error(err))
			continue
		}
		sent = append(sent, q.ID)
	}
	if err := s.ocrQueue.MarkSent(ctx, sent); err != nil {
		s.log.Error("Failed to mark OCR queue entries sent", zap.Error(err))
	}
}
