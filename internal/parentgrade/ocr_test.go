package parentgrade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SchoolNotify/internal/notification"
)

func ocrResult(severity, documentType string) OCRResult {
	return OCRResult{
		DocumentID:   "doc-1",
		DocumentName: "report.pdf",
		DocumentType: documentType,
		ParentID:     "parent-1",
		Severity:     severity,
		Detail:       "low scan quality",
	}
}

func TestProcessOCRValidationSeverities(t *testing.T) {
	tests := []struct {
		name         string
		severity     string
		documentType string
		wantSent     bool
		wantTitle    string
		wantPriority notification.Priority
	}{
		{
			name:         "failure always notifies with high priority",
			severity:     SeverityFailure,
			documentType: "report_card",
			wantSent:     true,
			wantTitle:    "Document Validation Failed",
			wantPriority: notification.PriorityHigh,
		},
		{
			name:         "warning notifies",
			severity:     SeverityWarning,
			documentType: "report_card",
			wantSent:     true,
			wantTitle:    "Document Needs Attention",
			wantPriority: notification.PriorityNormal,
		},
		{
			name:         "routine success suppressed",
			severity:     SeveritySuccess,
			documentType: "report_card",
			wantSent:     false,
		},
		{
			name:         "certificate success notifies",
			severity:     SeveritySuccess,
			documentType: "birth_certificate",
			wantSent:     true,
			wantTitle:    "Document Validated",
			wantPriority: notification.PriorityNormal,
		},
		{
			name:         "administrative success notifies",
			severity:     SeveritySuccess,
			documentType: "administrative_form",
			wantSent:     true,
			wantTitle:    "Document Validated",
			wantPriority: notification.PriorityNormal,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newPolicyFixture()
			err := f.svc.ProcessOCRValidation(context.Background(), ocrResult(tc.severity, tc.documentType))
			require.NoError(t, err)

			if !tc.wantSent {
				assert.Empty(t, f.dispatcher.sent)
				return
			}
			require.Len(t, f.dispatcher.sent, 1)
			n := f.dispatcher.sent[0]
			assert.Equal(t, notification.TypeOCRValidation, n.Type)
			assert.Equal(t, tc.wantTitle, n.Title)
			assert.Equal(t, tc.wantPriority, n.Priority)
			assert.Equal(t, []string{"parent-1"}, n.TargetUsers)
		})
	}
}

func TestProcessOCRValidationDisabled(t *testing.T) {
	f := newPolicyFixture()
	ctx := context.Background()

	st := DefaultSettings("parent-1")
	st.Enabled = false
	require.NoError(t, f.settings.Put(ctx, st))

	require.NoError(t, f.svc.ProcessOCRValidation(ctx, ocrResult(SeverityFailure, "report_card")))
	assert.Empty(t, f.dispatcher.sent)
}

func TestProcessOCRValidationQuietHoursDefers(t *testing.T) {
	f := newPolicyFixture()
	ctx := context.Background()
	f.freezeClock(clock(23, 0))

	st := DefaultSettings("parent-1")
	st.QuietHours = QuietHours{Enabled: true, Start: "21:00", End: "06:00"}
	require.NoError(t, f.settings.Put(ctx, st))

	require.NoError(t, f.svc.ProcessOCRValidation(ctx, ocrResult(SeverityFailure, "report_card")))

	assert.Empty(t, f.dispatcher.sent)
	require.Len(t, f.ocrQueue.entries, 1)
	assert.Equal(t, time.Date(2026, time.March, 11, 6, 0, 0, 0, time.UTC), f.ocrQueue.entries[0].ScheduledFor)

	// After quiet hours the sweep sends it.
	f.freezeClock(time.Date(2026, time.March, 11, 6, 1, 0, 0, time.UTC))
	f.svc.ProcessDueOCRQueue(ctx)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "Document Validation Failed", f.dispatcher.sent[0].Title)
	assert.True(t, f.ocrQueue.entries[0].Sent)
}
