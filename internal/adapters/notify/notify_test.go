package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/Televisit/internal/core/coretest"
	"github.com/redis/go-redis/v9"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestWhapiSendText(t *testing.T) {
	var got whapiRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sent":true,"message":{"id":"wamid-1"}}`))
	}))
	defer srv.Close()

	w := NewWhapi(srv.URL, "tok")
	res, err := w.SendText(context.Background(), "+573001112233", "hola")
	if err != nil || !res.Success || res.ID != "wamid-1" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if auth != "Bearer tok" {
		t.Fatalf("auth = %q", auth)
	}
	if got.To != "573001112233" || got.Body != "hola" || got.TypingTime != 0 {
		t.Fatalf("request = %+v", got)
	}
}

func TestWhapiProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"bad token"}}`))
	}))
	defer srv.Close()

	res, err := NewWhapi(srv.URL, "tok").SendText(context.Background(), "573001112233", "x")
	if err == nil || res.Success || res.Error != "whapi: bad token" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestWhapiWithoutToken(t *testing.T) {
	res, err := NewWhapi("", "").SendText(context.Background(), "573001112233", "x")
	if !errors.Is(err, ErrNotConfigured) || res.Success {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

type fakeMessages struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioWhatsApp(t *testing.T) {
	api := &fakeMessages{}
	n := NewTwilioWhatsAppWith(api, "+14155238886")

	res, err := n.SendText(context.Background(), "573001112233", "report")
	if err != nil || !res.Success || res.ID != "SM123" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if *api.params.To != "whatsapp:+573001112233" || *api.params.From != "whatsapp:+14155238886" || *api.params.Body != "report" {
		t.Fatalf("params to=%s from=%s body=%s", *api.params.To, *api.params.From, *api.params.Body)
	}

	api.err = errors.New("21211 invalid to")
	if res, err := n.SendText(context.Background(), "1", "x"); err == nil || res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestArchiveKeepsDeliveryResultWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer rdb.Close()

	next := &coretest.Notifier{}
	a := NewArchive(next, rdb, "reports", 10)
	res, err := a.SendText(context.Background(), "573001112233", "body")
	if err != nil || !res.Success {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if len(next.Sent()) != 1 {
		t.Fatal("message must still be delivered")
	}
}

func TestCleanPhone(t *testing.T) {
	if got := CleanPhone(" +573001112233 "); got != "573001112233" {
		t.Fatalf("got %q", got)
	}
}
