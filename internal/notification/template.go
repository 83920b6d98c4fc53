package notification

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// placeholderRe matches {key} and {{key}} placeholders.
var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}|\{(\w+)\}`)

// TemplateEngine renders notifications from templates. One built-in
// template per notification type is seeded at construction; user-created
// templates are persisted and override the built-in for their type.
type TemplateEngine struct {
	store TemplateStore
	log   *zap.Logger

	mu     sync.RWMutex
	byType map[Type]Template
	byID   map[string]Template
}

func NewTemplateEngine(store TemplateStore, log *zap.Logger) *TemplateEngine {
	e := &TemplateEngine{
		store:  store,
		log:    log,
		byType: make(map[Type]Template),
		byID:   make(map[string]Template),
	}
	for _, tpl := range builtinTemplates() {
		e.byType[tpl.Type] = tpl
		e.byID[tpl.ID] = tpl
	}
	return e
}

// Load reads persisted user templates into memory. User templates override
// built-ins for their type.
func (e *TemplateEngine) Load(ctx context.Context) error {
	templates, err := e.store.All(ctx)
	if err != nil {
		return storageError("failed to load templates", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, tpl := range templates {
		e.byType[tpl.Type] = tpl
		e.byID[tpl.ID] = tpl
	}
	return nil
}

// GenerateNotification renders a notification of the given type from the
// context map. Returns nil (and logs) when the type has no template, or
// when userRole is given and the template does not target it. Placeholders
// with no matching context key are preserved verbatim and logged, so a
// malformed notification is visible in logs rather than silently blank.
func (e *TemplateEngine) GenerateNotification(t Type, data map[string]string, userRole string) *Notification {
	e.mu.RLock()
	tpl, ok := e.byType[t]
	e.mu.RUnlock()
	if !ok {
		e.log.Error("No template registered for notification type", zap.String("type", string(t)))
		return nil
	}
	if userRole != "" && len(tpl.TargetRoles) > 0 && !containsString(tpl.TargetRoles, userRole) {
		e.log.Warn("Template does not target role",
			zap.String("type", string(t)), zap.String("role", userRole))
		return nil
	}

	title := e.interpolate(tpl.TitleTemplate, data, t)
	body := e.interpolate(tpl.BodyTemplate, data, t)

	return &Notification{
		ID:          NewID(t),
		Type:        t,
		Title:       title,
		Body:        body,
		Timestamp:   time.Now(),
		Priority:    tpl.Priority,
		TargetRoles: tpl.TargetRoles,
	}
}

func (e *TemplateEngine) interpolate(s string, data map[string]string, t Type) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		key := strings.Trim(match, "{}")
		if val, ok := data[key]; ok {
			return val
		}
		e.log.Warn("Missing template variable, leaving placeholder intact",
			zap.String("type", string(t)), zap.String("variable", key))
		return match
	})
}

// SaveTemplate persists a user template and makes it active for its type.
func (e *TemplateEngine) SaveTemplate(ctx context.Context, tpl Template) error {
	if tpl.Type == "" || tpl.TitleTemplate == "" || tpl.BodyTemplate == "" {
		return validationError("template requires type, title and body")
	}
	if tpl.ID == "" {
		tpl.ID = NewID(tpl.Type)
	}
	if tpl.Priority == "" {
		tpl.Priority = PriorityNormal
	}
	tpl.BuiltIn = false
	if err := e.store.Put(ctx, tpl); err != nil {
		return storageError("failed to save template", err)
	}
	e.mu.Lock()
	e.byType[tpl.Type] = tpl
	e.byID[tpl.ID] = tpl
	e.mu.Unlock()
	return nil
}

// DeleteTemplate removes a user template. The built-in for the type
// becomes active again.
func (e *TemplateEngine) DeleteTemplate(ctx context.Context, id string) error {
	e.mu.RLock()
	tpl, ok := e.byID[id]
	e.mu.RUnlock()
	if !ok {
		return validationError("template not found")
	}
	if tpl.BuiltIn {
		return validationError("built-in templates cannot be deleted")
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return storageError("failed to delete template", err)
	}
	e.mu.Lock()
	delete(e.byID, id)
	for _, builtin := range builtinTemplates() {
		if builtin.Type == tpl.Type {
			e.byType[tpl.Type] = builtin
			e.byID[builtin.ID] = builtin
			break
		}
	}
	e.mu.Unlock()
	return nil
}

// Templates returns all active templates.
func (e *TemplateEngine) Templates() []Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Template, 0, len(e.byID))
	for _, tpl := range e.byID {
		out = append(out, tpl)
	}
	return out
}

// NewID builds a notification id unique per call, so two notifications of
// the same type generated in the same millisecond do not collide.
func NewID(t Type) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%d-%s", t, time.Now().UnixMilli(), suffix)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func builtinTemplates() []Template {
	return []Template{
		{
			ID:            "builtin-announcement",
			Type:          TypeAnnouncement,
			TitleTemplate: "Announcement: {title}",
			BodyTemplate:  "{body}",
			Priority:      PriorityNormal,
			Variables:     []string{"title", "body"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-grade",
			Type:          TypeGrade,
			TitleTemplate: "Grade Updated",
			BodyTemplate:  "{studentName} received {score}/{maxScore} in {subject}",
			TargetRoles:   []string{"parent", "student"},
			Priority:      PriorityNormal,
			Variables:     []string{"studentName", "score", "maxScore", "subject"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-ppdb",
			Type:          TypePPDB,
			TitleTemplate: "PPDB Status Update",
			BodyTemplate:  "Registration {registrationId} for {applicantName} is now {status}",
			TargetRoles:   []string{"parent"},
			Priority:      PriorityHigh,
			Variables:     []string{"registrationId", "applicantName", "status"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-event",
			Type:          TypeEvent,
			TitleTemplate: "School Event",
			BodyTemplate:  "{eventName} on {date}: {detail}",
			Priority:      PriorityNormal,
			Variables:     []string{"eventName", "date", "detail"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-library",
			Type:          TypeLibrary,
			TitleTemplate: "New Library Material",
			BodyTemplate:  "\"{title}\" has been added to {subject}",
			TargetRoles:   []string{"teacher", "student"},
			Priority:      PriorityLow,
			Variables:     []string{"title", "subject"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-system",
			Type:          TypeSystem,
			TitleTemplate: "System Notice",
			BodyTemplate:  "{message}",
			Priority:      PriorityNormal,
			Variables:     []string{"message"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-ocr",
			Type:          TypeOCR,
			TitleTemplate: "Document Processed",
			BodyTemplate:  "{documentName} has been processed",
			Priority:      PriorityLow,
			Variables:     []string{"documentName"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-ocr-validation",
			Type:          TypeOCRValidation,
			TitleTemplate: "Document Validation",
			BodyTemplate:  "{documentName}: {result}",
			TargetRoles:   []string{"parent"},
			Priority:      PriorityNormal,
			Variables:     []string{"documentName", "result"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-missing-grades",
			Type:          TypeMissingGrades,
			TitleTemplate: "Missing Grades",
			BodyTemplate:  "{studentName} has {count} subject(s) without recent grades: {subjects}",
			TargetRoles:   []string{"parent"},
			Priority:      PriorityNormal,
			Variables:     []string{"studentName", "count", "subjects"},
			BuiltIn:       true,
		},
		{
			ID:            "builtin-progress-report",
			Type:          TypeProgressReport,
			TitleTemplate: "Progress Report",
			BodyTemplate:  "The progress report for {studentName} is ready",
			TargetRoles:   []string{"parent"},
			Priority:      PriorityNormal,
			Variables:     []string{"studentName"},
			BuiltIn:       true,
		},
	}
}
