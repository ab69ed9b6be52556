package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/Televisit/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the slice of the Twilio REST API used for messaging.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioWhatsApp sends WhatsApp texts through Twilio Programmable Messaging.
type TwilioWhatsApp struct {
	api  MessageCreator
	from string
}

func NewTwilioWhatsApp(accountSID, authToken, from string) *TwilioWhatsApp {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioWhatsApp{api: client.Api, from: from}
}

// NewTwilioWhatsAppWith is used with a custom API, e.g. in tests.
func NewTwilioWhatsAppWith(api MessageCreator, from string) *TwilioWhatsApp {
	return &TwilioWhatsApp{api: api, from: from}
}

func whatsAppAddress(phone string) string {
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:+" + CleanPhone(phone)
}

func (t *TwilioWhatsApp) SendText(_ context.Context, recipient, body string) (core.SendResult, error) {
	if t.api == nil || t.from == "" {
		return failed(ErrNotConfigured)
	}
	if CleanPhone(recipient) == "" {
		return failed(ErrEmptyRecipient)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(recipient))
	params.SetFrom(whatsAppAddress(t.from))
	params.SetBody(body)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		log.Error().Err(err).Str("module", "notify.twilio").Msg("WhatsApp not sent")
		return failed(fmt.Errorf("twilio: %w", err))
	}
	id := ""
	if msg != nil && msg.Sid != nil {
		id = *msg.Sid
	}
	log.Info().Str("module", "notify.twilio").Str("id", id).Msg("WhatsApp sent")
	return core.SendResult{Success: true, ID: id}, nil
}
