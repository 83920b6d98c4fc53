package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"SchoolNotify/internal/user"
)

// Mailer sends a single HTML email. Implemented by config.EmailService.
type Mailer interface {
	SendEmail(to, subject, html string) error
}

// EmailHandler mirrors notifications to email for users who opted in.
// Strictly best-effort: a missing user, a switched-off preference or a
// failed send all end here, never at the manager's caller.
type EmailHandler struct {
	mailer Mailer
	log    *zap.Logger
}

func NewEmailHandler(mailer Mailer, log *zap.Logger) *EmailHandler {
	return &EmailHandler{mailer: mailer, log: log}
}

// Deliver sends the notification to the user's email address.
func (h *EmailHandler) Deliver(ctx context.Context, u *user.User, n Notification) {
	if u == nil || u.Email == "" {
		return
	}
	if !u.EmailNotifications {
		h.log.Debug("Email notifications disabled for user, skipping", zap.String("user", u.ID))
		return
	}
	html := fmt.Sprintf("<p>%s</p><p><small>%s</small></p>", n.Body, n.Timestamp.Format("2 Jan 2006 15:04"))
	if err := h.mailer.SendEmail(u.Email, n.Title, html); err != nil {
		h.log.Warn("Email delivery failed",
			zap.String("user", u.ID),
			zap.String("notification", n.ID),
			zap.Error(err))
	}
}
