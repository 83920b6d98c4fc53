package parentgrade

import (
	"context"
	"time"
)

// Persistence contracts for the policy engine. Mongo implementations live
// in repository.go; tests substitute in-memory fakes.

type SettingsStore interface {
	// Get returns the stored settings for a parent, or nil when absent.
	Get(ctx context.Context, userID string) (*Settings, error)
	Put(ctx context.Context, st Settings) error
	// AllEnabled returns every stored settings document with Enabled set.
	AllEnabled(ctx context.Context) ([]Settings, error)
}

type QueueStore interface {
	Add(ctx context.Context, q QueuedNotification) error
	// Due returns unsent entries of the given frequency whose scheduled
	// time has passed.
	Due(ctx context.Context, freq Frequency, now time.Time) ([]QueuedNotification, error)
	MarkSent(ctx context.Context, ids []string) error
	// Compact prunes sent entries scheduled before the cutoff, so the
	// queue cannot grow without bound.
	Compact(ctx context.Context, before time.Time) (int64, error)
	Clear(ctx context.Context) error
}

type OCRQueueStore interface {
	Add(ctx context.Context, q QueuedOCR) error
	Due(ctx context.Context, now time.Time) ([]QueuedOCR, error)
	MarkSent(ctx context.Context, ids []string) error
	Compact(ctx context.Context, before time.Time) (int64, error)
	Clear(ctx context.Context) error
}
