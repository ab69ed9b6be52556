package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Televisit/internal/adapters/http"
	"github.com/dkeye/Televisit/internal/adapters/notify"
	"github.com/dkeye/Televisit/internal/adapters/twilio"
	"github.com/dkeye/Televisit/internal/app"
	"github.com/dkeye/Televisit/internal/app/presence"
	"github.com/dkeye/Televisit/internal/app/relay"
	"github.com/dkeye/Televisit/internal/config"
	"github.com/dkeye/Televisit/internal/core"
)

func newNotifier(cfg *config.Config) core.Notifier {
	var n core.Notifier
	switch cfg.Notify.Provider {
	case "twilio":
		n = notify.NewTwilioWhatsApp(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppFrom)
	case "log":
		n = notify.LogNotifier{}
	default:
		n = notify.NewWhapi(cfg.Whapi.URL, cfg.Whapi.Token)
	}
	if cfg.Redis.Addr == "" {
		return n
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	log.Info().Str("addr", cfg.Redis.Addr).Str("key", cfg.Redis.ReportKey).Msg("archiving reports to redis")
	return notify.NewArchive(n, rdb, cfg.Redis.ReportKey, cfg.Redis.KeepLast)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	clock := core.SystemClock()
	notifier := newNotifier(cfg)
	tracker := presence.New(clock, notifier,
		presence.WithRecipient(cfg.Report.Recipient),
		presence.WithRetention(cfg.Retention),
		presence.WithSweepInterval(cfg.SweepInterval),
		presence.WithLocation(cfg.Location()),
	)
	rel := relay.New(clock,
		relay.WithRetention(cfg.Retention),
		relay.WithSweepInterval(cfg.SweepInterval),
		relay.WithPolicy(app.SimplePolicy{}),
	)
	tracker.Start(ctx)
	rel.Start(ctx)

	video := twilio.NewVideo(twilio.Credentials{
		AccountSID:   cfg.Twilio.AccountSID,
		AuthToken:    cfg.Twilio.AuthToken,
		APIKeySID:    cfg.Twilio.APIKeySID,
		APIKeySecret: cfg.Twilio.APIKeySecret,
		TokenTTL:     cfg.Twilio.TokenTTL,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Video:    video,
		Notifier: notifier,
		Presence: tracker,
		Relay:    rel,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Televisit server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	rel.Stop()
	tracker.Stop()
	log.Info().Msg("Server exited gracefully")
}
