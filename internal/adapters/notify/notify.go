// Package notify delivers outbound text messages (session reports,
// ad-hoc WhatsApp messages) through the configured provider.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConfigured  = errors.New("notifier not configured")
	ErrEmptyRecipient = errors.New("recipient is required")
)

// CleanPhone strips a leading '+' and surrounding spaces.
func CleanPhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct{}

func (LogNotifier) SendText(_ context.Context, recipient, body string) (core.SendResult, error) {
	log.Info().Str("module", "notify.log").Str("to", recipient).Str("body", body).Msg("text message")
	return core.SendResult{Success: true}, nil
}

func failed(err error) (core.SendResult, error) {
	return core.SendResult{Success: false, Error: err.Error()}, err
}
