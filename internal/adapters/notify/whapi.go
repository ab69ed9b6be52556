package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/rs/zerolog/log"
)

const DefaultWhapiURL = "https://gate.whapi.cloud/messages/text"

// Whapi sends WhatsApp texts through the WHAPI gateway.
type Whapi struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewWhapi(url, token string) *Whapi {
	if url == "" {
		url = DefaultWhapiURL
	}
	if token == "" {
		log.Warn().Str("module", "notify.whapi").Msg("WHAPI token not configured, WhatsApp unavailable")
	}
	return &Whapi{URL: url, Token: token, Client: &http.Client{Timeout: 15 * time.Second}}
}

type whapiRequest struct {
	TypingTime int    `json:"typing_time"`
	To         string `json:"to"`
	Body       string `json:"body"`
}

type whapiResponse struct {
	Sent    bool `json:"sent"`
	Message struct {
		ID string `json:"id"`
	} `json:"message"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (w *Whapi) SendText(ctx context.Context, recipient, body string) (core.SendResult, error) {
	if w.Token == "" {
		return failed(ErrNotConfigured)
	}
	to := CleanPhone(recipient)
	if to == "" {
		return failed(ErrEmptyRecipient)
	}

	payload, err := json.Marshal(whapiRequest{To: to, Body: body})
	if err != nil {
		return failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return failed(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.Token)

	log.Info().Str("module", "notify.whapi").Str("to", to).Msg("sending WhatsApp")
	resp, err := w.Client.Do(req)
	if err != nil {
		return failed(fmt.Errorf("whapi request: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var out whapiResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		log.Error().Str("module", "notify.whapi").Int("status", resp.StatusCode).Str("error", msg).Msg("WhatsApp not sent")
		return failed(fmt.Errorf("whapi: %s", msg))
	}

	log.Info().Str("module", "notify.whapi").Str("to", to).Str("id", out.Message.ID).Msg("WhatsApp sent")
	return core.SendResult{Success: true, ID: out.Message.ID}, nil
}
