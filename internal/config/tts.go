package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TTSService is a thin client for the speech-synthesis sidecar used for
// voice announcements. Synthesis is best-effort; callers are expected to
// absorb errors.
type TTSService struct {
	url    string
	voice  string
	client *http.Client
	log    *zap.Logger
}

func NewTTSService(cfg *Config, log *zap.Logger) *TTSService {
	return &TTSService{
		url:    cfg.TTSURL,
		voice:  cfg.TTSVoice,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Speak asks the synthesis service to announce the given text. Returns nil
// without doing anything when no TTS_URL is configured.
func (t *TTSService) Speak(ctx context.Context, text string) error {
	if t.url == "" {
		return nil
	}
	payload, err := json.Marshal(ttsRequest{Text: text, Voice: t.voice})
	if err != nil {
		return fmt.Errorf("failed to marshal tts payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach tts service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("tts service returned status %d", resp.StatusCode)
	}
	return nil
}
