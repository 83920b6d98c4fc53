package notification

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"SchoolNotify/internal/auth"
	"SchoolNotify/internal/user"
)

// Handler exposes the notification pipeline over HTTP.
type Handler struct {
	manager   *Manager
	service   *Service
	history   *HistoryHandler
	analytics *AnalyticsHandler
	templates *TemplateEngine
	push      *PushHandler
	log       *zap.Logger
}

func NewHandler(
	manager *Manager,
	service *Service,
	history *HistoryHandler,
	analytics *AnalyticsHandler,
	templates *TemplateEngine,
	push *PushHandler,
	log *zap.Logger,
) *Handler {
	return &Handler{
		manager:   manager,
		service:   service,
		history:   history,
		analytics: analytics,
		templates: templates,
		push:      push,
		log:       log,
	}
}

func currentClaims(c echo.Context) *auth.JWTClaims {
	claims, _ := c.Get("user").(*auth.JWTClaims)
	return claims
}

func claimsUser(claims *auth.JWTClaims) *user.User {
	if claims == nil {
		return nil
	}
	return &user.User{ID: claims.UserID, Name: claims.Name, Email: claims.Email, Role: claims.Role}
}

// SendRequest is an immediate notification send.
type SendRequest struct {
	Type             Type                   `json:"type" validate:"required"`
	Title            string                 `json:"title" validate:"required"`
	Body             string                 `json:"body" validate:"required"`
	Priority         Priority               `json:"priority"`
	TargetRoles      []string               `json:"targetRoles"`
	TargetExtraRoles []string               `json:"targetExtraRoles"`
	TargetUsers      []string               `json:"targetUsers"`
	Data             map[string]interface{} `json:"data"`
}

func (req SendRequest) toNotification() Notification {
	return Notification{
		Type:             req.Type,
		Title:            req.Title,
		Body:             req.Body,
		Priority:         req.Priority,
		TargetRoles:      req.TargetRoles,
		TargetExtraRoles: req.TargetExtraRoles,
		TargetUsers:      req.TargetUsers,
		Data:             req.Data,
	}
}

// Send dispatches a notification immediately.
func (h *Handler) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.manager.ShowNotification(c.Request().Context(), req.toNotification()); err != nil {
		if IsPermissionDenied(err) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send notification"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification sent"})
}

// ScheduleRequest schedules a notification for later delivery.
type ScheduleRequest struct {
	SendRequest
	SendTime time.Time `json:"sendTime" validate:"required"`
}

// Schedule allows admins to schedule a notification.
func (h *Handler) Schedule(c echo.Context) error {
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if req.SendTime.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Send time must be in the future"})
	}
	sched := &Scheduled{
		Notification: req.toNotification(),
		SendTime:     req.SendTime,
	}
	if err := h.service.ScheduleNotification(c.Request().Context(), sched); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to schedule notification"})
	}
	return c.JSON(http.StatusCreated, sched)
}

// ListScheduled returns all scheduled notifications.
func (h *Handler) ListScheduled(c echo.Context) error {
	scheduled, err := h.service.ListScheduled(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list scheduled notifications"})
	}
	return c.JSON(http.StatusOK, scheduled)
}

// DeleteScheduled removes a scheduled notification.
func (h *Handler) DeleteScheduled(c echo.Context) error {
	if err := h.service.DeleteScheduled(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Scheduled notification not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Scheduled notification deleted"})
}

// SendBatch runs a bulk send.
func (h *Handler) SendBatch(c echo.Context) error {
	var reqs []SendRequest
	if err := c.Bind(&reqs); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	notifications := make([]Notification, 0, len(reqs))
	for _, req := range reqs {
		notifications = append(notifications, req.toNotification())
	}
	batch, err := h.manager.SendBatch(c.Request().Context(), notifications)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process batch"})
	}
	return c.JSON(http.StatusOK, batch)
}

// History returns the most recent history entries.
func (h *Handler) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}
	items, err := h.history.GetUnifiedHistory(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read history"})
	}
	return c.JSON(http.StatusOK, items)
}

// MarkRead flips the read flag on a history entry and records the
// analytics event.
func (h *Handler) MarkRead(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()
	if err := h.history.MarkAsRead(ctx, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	if claims := currentClaims(c); claims != nil {
		if err := h.analytics.RecordAnalytics(ctx, id, ActionRead, claimsUser(claims)); err != nil {
			h.log.Warn("Analytics recording failed", zap.String("notification", id), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// DeleteHistory removes one history entry.
func (h *Handler) DeleteHistory(c echo.Context) error {
	if err := h.history.DeleteFromHistory(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// ClearHistory removes the entire history store.
func (h *Handler) ClearHistory(c echo.Context) error {
	if err := h.history.ClearUnifiedHistory(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to clear history"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "History cleared"})
}

// AnalyticsSummary returns aggregate interaction counters.
func (h *Handler) AnalyticsSummary(c echo.Context) error {
	summary, err := h.analytics.Summarize(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read analytics"})
	}
	return c.JSON(http.StatusOK, summary)
}

// AnalyticsByID returns the record for one notification.
func (h *Handler) AnalyticsByID(c echo.Context) error {
	record, err := h.analytics.GetAnalytics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read analytics"})
	}
	if record == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No analytics for notification"})
	}
	return c.JSON(http.StatusOK, record)
}

// RecordAction tracks a click or dismissal from the client.
func (h *Handler) RecordAction(c echo.Context) error {
	id := c.Param("id")
	action := Action(c.Param("action"))
	switch action {
	case ActionClicked, ActionDismissed, ActionRead:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown action"})
	}
	if err := h.analytics.RecordAnalytics(c.Request().Context(), id, action, claimsUser(currentClaims(c))); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record action"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Recorded"})
}

// Templates lists the active templates.
func (h *Handler) Templates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.templates.Templates())
}

// SaveTemplate creates or updates a user template.
func (h *Handler) SaveTemplate(c echo.Context) error {
	var tpl Template
	if err := c.Bind(&tpl); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.templates.SaveTemplate(c.Request().Context(), tpl); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, tpl)
}

// DeleteTemplate removes a user template.
func (h *Handler) DeleteTemplate(c echo.Context) error {
	if err := h.templates.DeleteTemplate(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Template deleted"})
}

// PushKey hands the VAPID public key to clients.
func (h *Handler) PushKey(c echo.Context) error {
	key := h.push.ServerKey()
	if len(key) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Push is not configured"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"key": base64.RawURLEncoding.EncodeToString(key),
	})
}

// SubscribePush registers the caller's push endpoint.
func (h *Handler) SubscribePush(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	var req struct {
		Endpoint string `json:"endpoint" validate:"required,url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.push.SubscribeToPush(c.Request().Context(), claims.UserID, req.Endpoint); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store subscription"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "Subscribed"})
}

// UnsubscribePush drops the caller's push endpoint.
func (h *Handler) UnsubscribePush(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	if err := h.push.UnsubscribeFromPush(c.Request().Context(), claims.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to remove subscription"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Unsubscribed"})
}

// SetPushPermission records the caller's permission decision.
func (h *Handler) SetPushPermission(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	var req struct {
		State PermissionState `json:"state" validate:"required,oneof=default granted denied"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.push.SetPermission(c.Request().Context(), claims.UserID, req.State); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store permission"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Permission updated"})
}
