package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ArchivedText is one entry of the report archive list.
type ArchivedText struct {
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Archive wraps a Notifier and appends every attempt to a Redis list, so
// operations can audit reports that never reached WhatsApp.
type Archive struct {
	Next     core.Notifier
	Redis    redis.Cmdable
	Key      string
	KeepLast int64
	Now      func() time.Time
}

func NewArchive(next core.Notifier, rdb redis.Cmdable, key string, keepLast int64) *Archive {
	return &Archive{Next: next, Redis: rdb, Key: key, KeepLast: keepLast, Now: time.Now}
}

func (a *Archive) SendText(ctx context.Context, recipient, body string) (core.SendResult, error) {
	res, err := a.Next.SendText(ctx, recipient, body)

	entry := ArchivedText{
		Recipient: recipient,
		Body:      body,
		Success:   res.Success,
		Error:     res.Error,
		MessageID: res.ID,
		SentAt:    a.Now(),
	}
	value, merr := json.Marshal(entry)
	if merr != nil {
		log.Error().Err(merr).Str("module", "notify.archive").Msg("marshal archive entry")
		return res, err
	}
	if perr := a.Redis.RPush(ctx, a.Key, value).Err(); perr != nil {
		log.Error().Err(perr).Str("module", "notify.archive").Str("key", a.Key).Msg("archive push failed")
		return res, err
	}
	if a.KeepLast > 0 {
		if terr := a.Redis.LTrim(ctx, a.Key, -a.KeepLast, -1).Err(); terr != nil {
			log.Warn().Err(terr).Str("module", "notify.archive").Str("key", a.Key).Msg("archive trim failed")
		}
	}
	return res, err
}
