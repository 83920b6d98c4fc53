package user

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"SchoolNotify/internal/auth"
)

// Handler exposes the caller's notification preferences.
type Handler struct {
	repo *Repository
	log  *zap.Logger
}

func NewHandler(repo *Repository, log *zap.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

// PreferencesRequest is the updatable preference set.
type PreferencesRequest struct {
	EmailNotifications bool     `json:"emailNotifications"`
	VoiceNotifications bool     `json:"voiceNotifications"`
	DisabledTypes      []string `json:"disabledTypes"`
}

// GetPreferences returns the caller's directory entry with its preference
// fields.
func (h *Handler) GetPreferences(c echo.Context) error {
	claims, _ := c.Get("user").(*auth.JWTClaims)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	u, err := h.repo.FindByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load user"})
	}
	if u == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	return c.JSON(http.StatusOK, u)
}

// UpdatePreferences stores the caller's notification preferences.
func (h *Handler) UpdatePreferences(c echo.Context) error {
	claims, _ := c.Get("user").(*auth.JWTClaims)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user claims"})
	}
	var req PreferencesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.repo.UpdatePreferences(c.Request().Context(), claims.UserID,
		req.EmailNotifications, req.VoiceNotifications, req.DisabledTypes); err != nil {
		h.log.Error("Failed to update preferences", zap.String("user", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update preferences"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Preferences updated"})
}
