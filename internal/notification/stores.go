package notification

import (
	"context"
	"time"

	"SchoolNotify/internal/user"
)

// Persistence contracts for the notification pipeline. The Mongo-backed
// implementations live in repository.go; tests substitute in-memory fakes.

type HistoryStore interface {
	Append(ctx context.Context, item HistoryItem) error
	// Recent returns up to limit items, most recent DeliveredAt first.
	Recent(ctx context.Context, limit int) ([]HistoryItem, error)
	// Trim evicts the oldest items until at most keep remain.
	Trim(ctx context.Context, keep int) error
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// Drop removes the underlying store entirely, not just its contents.
	Drop(ctx context.Context) error
}

type AnalyticsStore interface {
	// Increment bumps the counter for action and the role breakdown
	// counter in a single atomic update, creating the record on first use.
	Increment(ctx context.Context, id string, action Action, role string) error
	Get(ctx context.Context, id string) (*Analytics, error)
	All(ctx context.Context) ([]Analytics, error)
	Drop(ctx context.Context) error
}

type TemplateStore interface {
	All(ctx context.Context) ([]Template, error)
	Put(ctx context.Context, tpl Template) error
	Delete(ctx context.Context, id string) error
}

type SubscriptionStore interface {
	Get(ctx context.Context, userID string) (*PushSubscription, error)
	Put(ctx context.Context, sub PushSubscription) error
	Delete(ctx context.Context, userID string) error
}

type BatchStore interface {
	Put(ctx context.Context, batch *Batch) error
	Get(ctx context.Context, id string) (*Batch, error)
}

type ScheduledStore interface {
	Create(ctx context.Context, s *Scheduled) error
	// Due returns scheduled notifications whose send time has passed and
	// that have not been sent yet.
	Due(ctx context.Context, now time.Time) ([]*Scheduled, error)
	UpdateStatus(ctx context.Context, id, status string, sentTo int) error
	List(ctx context.Context) ([]*Scheduled, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory resolves delivery targets. Implemented by user.Repository.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]user.User, error)
	FindByRoles(ctx context.Context, roles []string) ([]user.User, error)
}
