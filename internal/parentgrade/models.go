package parentgrade

import (
	"strings"
	"time"
)

// Frequency controls how parent grade notifications are delivered.
type Frequency string

const (
	FrequencyImmediate     Frequency = "immediate"
	FrequencyDailyDigest   Frequency = "daily_digest"
	FrequencyWeeklySummary Frequency = "weekly_summary"
)

// QuietHours is a daily window during which immediate notifications are
// deferred. Start > End means the window spans midnight.
type QuietHours struct {
	Enabled bool   `bson:"enabled" json:"enabled"`
	Start   string `bson:"start" json:"start"` // "HH:MM"
	End     string `bson:"end" json:"end"`     // "HH:MM"
}

// Settings is the per-parent policy configuration. Loaded lazily with
// defaults when absent, persisted on every update.
type Settings struct {
	UserID            string     `bson:"_id" json:"userId"`
	Enabled           bool       `bson:"enabled" json:"enabled"`
	GradeThreshold    float64    `bson:"grade_threshold" json:"gradeThreshold"` // percent of max score
	Subjects          []string   `bson:"subjects,omitempty" json:"subjects,omitempty"`
	Frequency         Frequency  `bson:"frequency" json:"frequency"`
	MajorExamsOnly    bool       `bson:"major_exams_only" json:"majorExamsOnly"`
	MissingGradeAlert bool       `bson:"missing_grade_alert" json:"missingGradeAlert"`
	MissingGradeDays  int        `bson:"missing_grade_days" json:"missingGradeDays"`
	QuietHours        QuietHours `bson:"quiet_hours" json:"quietHours"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updatedAt"`
}

// DefaultSettings returns the policy applied before a parent has saved
// anything.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:            userID,
		Enabled:           true,
		GradeThreshold:    70,
		Frequency:         FrequencyImmediate,
		MissingGradeAlert: true,
		MissingGradeDays:  7,
		QuietHours:        QuietHours{Enabled: false, Start: "21:00", End: "06:00"},
	}
}

// GradeUpdate is one grade event flowing in from the grading pipeline.
// Each update is evaluated independently; there is no per-entity state
// machine.
type GradeUpdate struct {
	ParentID       string   `bson:"parent_id" json:"parentId"`
	StudentID      string   `bson:"student_id" json:"studentId"`
	StudentName    string   `bson:"student_name" json:"studentName"`
	Subject        string   `bson:"subject" json:"subject"`
	AssignmentType string   `bson:"assignment_type" json:"assignmentType"`
	AssignmentName string   `bson:"assignment_name" json:"assignmentName"`
	Score          float64  `bson:"score" json:"score"`
	MaxScore       float64  `bson:"max_score" json:"maxScore"`
	PreviousScore  *float64 `bson:"previous_score,omitempty" json:"previousScore,omitempty"`
}

// Percent returns the score as a percentage of max score.
func (g GradeUpdate) Percent() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// QueuedNotification is a deferred grade notification, created when quiet
// hours or digest batching postpones delivery. Entries are marked sent by
// the sweeps and pruned later by compaction.
type QueuedNotification struct {
	ID           string      `bson:"_id" json:"id"`
	StudentID    string      `bson:"student_id" json:"studentId"`
	Data         GradeUpdate `bson:"data" json:"data"`
	Timestamp    time.Time   `bson:"timestamp" json:"timestamp"`
	ScheduledFor time.Time   `bson:"scheduled_for" json:"scheduledFor"`
	Frequency    Frequency   `bson:"frequency" json:"frequency"`
	Sent         bool        `bson:"sent" json:"sent"`
}

// OCR validation severities.
const (
	SeverityFailure = "failure"
	SeverityWarning = "warning"
	SeveritySuccess = "success"
)

// OCRResult is one document-validation outcome from the OCR pipeline.
type OCRResult struct {
	DocumentID   string `bson:"document_id" json:"documentId"`
	DocumentName string `bson:"document_name" json:"documentName"`
	DocumentType string `bson:"document_type" json:"documentType"`
	ParentID     string `bson:"parent_id" json:"parentId"`
	Severity     string `bson:"severity" json:"severity"`
	Detail       string `bson:"detail" json:"detail"`
}

// QueuedOCR is a deferred OCR validation notification.
type QueuedOCR struct {
	ID           string    `bson:"_id" json:"id"`
	Result       OCRResult `bson:"result" json:"result"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	ScheduledFor time.Time `bson:"scheduled_for" json:"scheduledFor"`
	Sent         bool      `bson:"sent" json:"sent"`
}

// majorExamMarkers classify an assignment as a major exam by substring
// match.
var majorExamMarkers = []string{"mid_exam", "final_exam", "uts", "uas", "final_test"}

// IsMajorExam reports whether the assignment type names a major exam.
func IsMajorExam(assignmentType string) bool {
	lowered := strings.ToLower(assignmentType)
	for _, marker := range majorExamMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// ExpectedFrequencyDays returns how many days may pass without a new grade
// before a subject counts as stale, by assignment type.
func ExpectedFrequencyDays(assignmentType string) int {
	lowered := strings.ToLower(assignmentType)
	switch {
	case IsMajorExam(lowered):
		return 30
	case strings.Contains(lowered, "quiz"):
		return 14
	case strings.Contains(lowered, "homework"), strings.Contains(lowered, "assignment"):
		return 7
	default:
		return 10
	}
}
