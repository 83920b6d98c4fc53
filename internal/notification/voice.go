package notification

import (
	"context"

	"go.uber.org/zap"

	"SchoolNotify/internal/user"
)

// Speaker synthesizes speech. Implemented by config.TTSService.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// VoiceHandler announces notifications through speech synthesis. Skipped
// without error when synthesis fails or the user has voice announcements
// switched off.
type VoiceHandler struct {
	tts Speaker
	log *zap.Logger
}

func NewVoiceHandler(tts Speaker, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{tts: tts, log: log}
}

// Announce speaks the notification title and body.
func (h *VoiceHandler) Announce(ctx context.Context, u *user.User, n Notification) {
	if u == nil || !u.VoiceNotifications {
		return
	}
	text := n.Title + ". " + n.Body
	if err := h.tts.Speak(ctx, text); err != nil {
		h.log.Debug("Voice announcement skipped",
			zap.String("notification", n.ID),
			zap.Error(err))
	}
}
