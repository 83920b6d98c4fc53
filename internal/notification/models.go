package notification

import "time"

// Type discriminates what a notification is about.
type Type string

const (
	TypeAnnouncement   Type = "announcement"
	TypeGrade          Type = "grade"
	TypePPDB           Type = "ppdb"
	TypeEvent          Type = "event"
	TypeLibrary        Type = "library"
	TypeSystem         Type = "system"
	TypeOCR            Type = "ocr"
	TypeOCRValidation  Type = "ocr_validation"
	TypeMissingGrades  Type = "missing_grades"
	TypeProgressReport Type = "progress_report"
)

// Priority of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is the core message passed through the dispatch pipeline.
// Immutable once dispatched, except for the Read flag which history
// mutations flip.
type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	Type      Type      `bson:"type" json:"type"`
	Title     string    `bson:"title" json:"title"`
	Body      string    `bson:"body" json:"body"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Read      bool      `bson:"read" json:"read"`
	Priority  Priority  `bson:"priority" json:"priority"`

	// Targeting filters. An absent filter means "don't filter on this
	// dimension", not "no one qualifies".
	TargetRoles      []string `bson:"target_roles,omitempty" json:"targetRoles,omitempty"`
	TargetExtraRoles []string `bson:"target_extra_roles,omitempty" json:"targetExtraRoles,omitempty"`
	TargetUsers      []string `bson:"target_users,omitempty" json:"targetUsers,omitempty"`

	Data map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
}

// HistoryItem wraps a delivered notification with its interaction state.
// Owned exclusively by the history handler.
type HistoryItem struct {
	Notification `bson:",inline"`

	Clicked     bool      `bson:"clicked" json:"clicked"`
	Dismissed   bool      `bson:"dismissed" json:"dismissed"`
	DeliveredAt time.Time `bson:"delivered_at" json:"deliveredAt"`
}

// Action names a trackable interaction with a notification.
type Action string

const (
	ActionDelivered Action = "delivered"
	ActionRead      Action = "read"
	ActionClicked   Action = "clicked"
	ActionDismissed Action = "dismissed"
)

// Analytics aggregates interaction counters for one notification id.
type Analytics struct {
	NotificationID string         `bson:"_id" json:"notificationId"`
	Delivered      int            `bson:"delivered" json:"delivered"`
	Read           int            `bson:"read" json:"read"`
	Clicked        int            `bson:"clicked" json:"clicked"`
	Dismissed      int            `bson:"dismissed" json:"dismissed"`
	RoleBreakdown  map[string]int `bson:"role_breakdown,omitempty" json:"roleBreakdown,omitempty"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updatedAt"`
}

// Template describes how to render a notification of a given type.
// Built-in templates are seeded at construction, one per type; user
// templates are persisted and take precedence.
type Template struct {
	ID            string   `bson:"_id" json:"id"`
	Type          Type     `bson:"type" json:"type"`
	TitleTemplate string   `bson:"title_template" json:"titleTemplate"`
	BodyTemplate  string   `bson:"body_template" json:"bodyTemplate"`
	TargetRoles   []string `bson:"target_roles,omitempty" json:"targetRoles,omitempty"`
	Priority      Priority `bson:"priority" json:"priority"`
	Variables     []string `bson:"variables,omitempty" json:"variables,omitempty"`
	BuiltIn       bool     `bson:"built_in" json:"builtIn"`
}

// BatchStatus is the linear state machine for a bulk send.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// Batch groups notifications for a bulk send. No retries on partial
// failure; the first failure reason is recorded.
type Batch struct {
	ID            string         `bson:"_id" json:"id"`
	Notifications []Notification `bson:"notifications" json:"notifications"`
	Status        BatchStatus    `bson:"status" json:"status"`
	FailureReason string         `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updatedAt"`
}

// PermissionState mirrors the platform notification permission for a user.
type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// PushSubscription stores a user's push endpoint. Only the endpoint string
// is persisted; the full subscription object is re-derived client side.
type PushSubscription struct {
	UserID     string          `bson:"_id" json:"userId"`
	Endpoint   string          `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	Permission PermissionState `bson:"permission" json:"permission"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Scheduled is an admin-scheduled notification swept by the dispatcher
// once its send time passes.
type Scheduled struct {
	ID           string       `bson:"_id" json:"id"`
	Notification Notification `bson:"notification" json:"notification"`
	SendTime     time.Time    `bson:"send_time" json:"sendTime"`
	Status       string       `bson:"status" json:"status"` // scheduled, sent, failed
	SentTo       int          `bson:"sent_to" json:"sentTo"`
	CreatedAt    time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updatedAt"`
}
