package notification

import (
	"context"

	"go.uber.org/zap"

	"SchoolNotify/internal/user"
)

// AnalyticsHandler maintains one aggregate record per notification id.
// Every mutation is persisted immediately as a single atomic document
// update.
type AnalyticsHandler struct {
	store AnalyticsStore
	log   *zap.Logger
}

func NewAnalyticsHandler(store AnalyticsStore, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, log: log}
}

// RecordAnalytics increments the counter for the action and the per-role
// breakdown counter.
func (h *AnalyticsHandler) RecordAnalytics(ctx context.Context, id string, action Action, u *user.User) error {
	role := ""
	if u != nil {
		role = u.Role
	}
	if err := h.store.Increment(ctx, id, action, role); err != nil {
		return storageError("failed to record analytics", err)
	}
	return nil
}

func (h *AnalyticsHandler) GetAnalytics(ctx context.Context, id string) (*Analytics, error) {
	a, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, storageError("failed to read analytics", err)
	}
	return a, nil
}

// Summary aggregates all analytics records.
type Summary struct {
	Notifications  int            `json:"notifications"`
	TotalDelivered int            `json:"totalDelivered"`
	TotalRead      int            `json:"totalRead"`
	TotalClicked   int            `json:"totalClicked"`
	TotalDismissed int            `json:"totalDismissed"`
	ReadRate       float64        `json:"readRate"`
	RoleBreakdown  map[string]int `json:"roleBreakdown"`
}

func (h *AnalyticsHandler) Summarize(ctx context.Context) (*Summary, error) {
	records, err := h.store.All(ctx)
	if err != nil {
		return nil, storageError("failed to read analytics", err)
	}
	sum := &Summary{RoleBreakdown: make(map[string]int)}
	sum.Notifications = len(records)
	for _, rec := range records {
		sum.TotalDelivered += rec.Delivered
		sum.TotalRead += rec.Read
		sum.TotalClicked += rec.Clicked
		sum.TotalDismissed += rec.Dismissed
		for role, count := range rec.RoleBreakdown {
			sum.RoleBreakdown[role] += count
		}
	}
	if sum.TotalDelivered > 0 {
		sum.ReadRate = float64(sum.TotalRead) / float64(sum.TotalDelivered)
	}
	return sum, nil
}

// Cleanup is a full reset: in-memory state and persisted records both go.
func (h *AnalyticsHandler) Cleanup(ctx context.Context) error {
	if err := h.store.Drop(ctx); err != nil {
		return storageError("failed to clear analytics", err)
	}
	return nil
}
