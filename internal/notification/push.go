package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PushHandler owns the push permission and subscription lifecycle and
// delivers rendered notifications to subscribed endpoints. Only the
// endpoint string is persisted; the rest of the subscription is re-derived
// by the client on reload.
type PushHandler struct {
	subs      SubscriptionStore
	serverKey []byte
	client    *http.Client
	log       *zap.Logger
}

func NewPushHandler(subs SubscriptionStore, vapidPublicKey string, log *zap.Logger) (*PushHandler, error) {
	key, err := DecodeServerKey(vapidPublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID public key: %w", err)
	}
	return &PushHandler{
		subs:      subs,
		serverKey: key,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}, nil
}

// DecodeServerKey decodes a VAPID server key given in either the standard
// or the URL-safe base64 alphabet, padded or not.
func DecodeServerKey(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	s := strings.TrimSpace(key)
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	s = strings.TrimRight(s, "=")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}

// ServerKey returns the decoded VAPID public key handed to clients.
func (h *PushHandler) ServerKey() []byte {
	return h.serverKey
}

// RequestPermission resolves the user's permission state, creating the
// record on first contact. A registered endpoint counts as granted
// consent.
func (h *PushHandler) RequestPermission(ctx context.Context, userID string) (PermissionState, error) {
	sub, err := h.subs.Get(ctx, userID)
	if err != nil {
		return PermissionDefault, storageError("failed to load push subscription", err)
	}
	if sub == nil {
		sub = &PushSubscription{UserID: userID, Permission: PermissionDefault, UpdatedAt: time.Now()}
		if err := h.subs.Put(ctx, *sub); err != nil {
			return PermissionDefault, storageError("failed to store push subscription", err)
		}
		return PermissionDefault, nil
	}
	if sub.Permission == PermissionDefault && sub.Endpoint != "" {
		sub.Permission = PermissionGranted
		sub.UpdatedAt = time.Now()
		if err := h.subs.Put(ctx, *sub); err != nil {
			return PermissionDefault, storageError("failed to store push subscription", err)
		}
	}
	return sub.Permission, nil
}

// EnsurePermission gates delivery on the user's permission. Only an
// explicit denial is an error; an unanswered prompt lets the rest of the
// pipeline proceed (push render will simply have no endpoint to hit).
func (h *PushHandler) EnsurePermission(ctx context.Context, userID string) error {
	state, err := h.RequestPermission(ctx, userID)
	if err != nil {
		return err
	}
	if state == PermissionDenied {
		return permissionError("notification permission denied for user " + userID)
	}
	return nil
}

// SetPermission records an explicit permission decision.
func (h *PushHandler) SetPermission(ctx context.Context, userID string, state PermissionState) error {
	sub, err := h.subs.Get(ctx, userID)
	if err != nil {
		return storageError("failed to load push subscription", err)
	}
	if sub == nil {
		sub = &PushSubscription{UserID: userID}
	}
	sub.Permission = state
	if state == PermissionDenied {
		sub.Endpoint = ""
	}
	sub.UpdatedAt = time.Now()
	if err := h.subs.Put(ctx, *sub); err != nil {
		return storageError("failed to store push subscription", err)
	}
	return nil
}

// SubscribeToPush stores the endpoint of a client push subscription and
// marks permission granted.
func (h *PushHandler) SubscribeToPush(ctx context.Context, userID, endpoint string) error {
	if endpoint == "" {
		return validationError("push endpoint is required")
	}
	sub := PushSubscription{
		UserID:     userID,
		Endpoint:   endpoint,
		Permission: PermissionGranted,
		UpdatedAt:  time.Now(),
	}
	if err := h.subs.Put(ctx, sub); err != nil {
		return storageError("failed to store push subscription", err)
	}
	h.log.Info("Push subscription registered", zap.String("user", userID))
	return nil
}

// UnsubscribeFromPush drops the endpoint but keeps the permission record.
func (h *PushHandler) UnsubscribeFromPush(ctx context.Context, userID string) error {
	sub, err := h.subs.Get(ctx, userID)
	if err != nil {
		return storageError("failed to load push subscription", err)
	}
	if sub == nil {
		return nil
	}
	sub.Endpoint = ""
	sub.UpdatedAt = time.Now()
	if err := h.subs.Put(ctx, *sub); err != nil {
		return storageError("failed to store push subscription", err)
	}
	h.log.Info("Push subscription removed", zap.String("user", userID))
	return nil
}

type pushPayload struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Tag      string                 `json:"tag"`
	Priority string                 `json:"priority"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Deliver posts the rendered notification to the user's push endpoint.
// Best-effort: a missing endpoint is not an error, and a stale endpoint
// (404/410 from the push service) is pruned.
func (h *PushHandler) Deliver(ctx context.Context, userID string, n Notification) error {
	sub, err := h.subs.Get(ctx, userID)
	if err != nil {
		return storageError("failed to load push subscription", err)
	}
	if sub == nil || sub.Endpoint == "" {
		h.log.Debug("No push endpoint for user, skipping render", zap.String("user", userID))
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:    n.Title,
		Body:     n.Body,
		Tag:      n.ID,
		Priority: string(n.Priority),
		Data:     n.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "86400")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach push endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		h.log.Info("Push endpoint gone, removing subscription", zap.String("user", userID))
		return h.UnsubscribeFromPush(ctx, userID)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
