package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxHistorySize caps the unified history when no explicit limit is
// configured. Oldest entries are evicted first (FIFO, not LRU).
const DefaultMaxHistorySize = 50

// HistoryHandler owns the unified notification history.
type HistoryHandler struct {
	store HistoryStore
	max   int
	log   *zap.Logger
}

func NewHistoryHandler(store HistoryStore, maxSize int, log *zap.Logger) *HistoryHandler {
	if maxSize <= 0 {
		maxSize = DefaultMaxHistorySize
	}
	return &HistoryHandler{store: store, max: maxSize, log: log}
}

// AddToHistory appends a delivered notification, then enforces the size
// cap by evicting the oldest entries.
func (h *HistoryHandler) AddToHistory(ctx context.Context, n Notification) error {
	item := HistoryItem{
		Notification: n,
		DeliveredAt:  time.Now(),
	}
	if err := h.store.Append(ctx, item); err != nil {
		return storageError("failed to append history", err)
	}
	if err := h.store.Trim(ctx, h.max); err != nil {
		return storageError("failed to trim history", err)
	}
	return nil
}

// GetUnifiedHistory returns the most recent limit entries, newest first by
// delivery time. The cap is also enforced on read in case the store grew
// out of band.
func (h *HistoryHandler) GetUnifiedHistory(ctx context.Context, limit int) ([]HistoryItem, error) {
	if err := h.store.Trim(ctx, h.max); err != nil {
		h.log.Warn("History trim on read failed", zap.Error(err))
	}
	if limit <= 0 || limit > h.max {
		limit = h.max
	}
	items, err := h.store.Recent(ctx, limit)
	if err != nil {
		return nil, storageError("failed to read history", err)
	}
	return items, nil
}

func (h *HistoryHandler) MarkAsRead(ctx context.Context, id string) error {
	if err := h.store.MarkRead(ctx, id); err != nil {
		return storageError("failed to mark notification read", err)
	}
	return nil
}

func (h *HistoryHandler) DeleteFromHistory(ctx context.Context, id string) error {
	if err := h.store.Delete(ctx, id); err != nil {
		return storageError("failed to delete from history", err)
	}
	return nil
}

// ClearUnifiedHistory removes the underlying store entirely rather than
// writing an empty one; presence checks elsewhere rely on the distinction.
func (h *HistoryHandler) ClearUnifiedHistory(ctx context.Context) error {
	if err := h.store.Drop(ctx); err != nil {
		return storageError("failed to clear history", err)
	}
	return nil
}

// Cleanup is a full reset, identical to ClearUnifiedHistory.
func (h *HistoryHandler) Cleanup(ctx context.Context) error {
	return h.ClearUnifiedHistory(ctx)
}

// MaxSize returns the configured cap.
func (h *HistoryHandler) MaxSize() int {
	return h.max
}
