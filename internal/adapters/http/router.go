package http

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Televisit/internal/adapters/signal"
	"github.com/dkeye/Televisit/internal/app/presence"
	"github.com/dkeye/Televisit/internal/app/relay"
	"github.com/dkeye/Televisit/internal/config"
	"github.com/dkeye/Televisit/internal/core"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

// Deps are the collaborators the HTTP layer exposes.
type Deps struct {
	Video    core.VideoProvider
	Notifier core.Notifier
	Presence *presence.Tracker
	Relay    *relay.Relay
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins a stable token to the browser session so log
// lines from REST calls and websocket connections can be correlated.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

var registerOnce sync.Once

func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseRole(fl.Field().String())
			return err == nil
		})
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TelevisitSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Mode,
		})
	})

	video := &videoHandler{provider: deps.Video, notifier: deps.Notifier}
	events := &eventsHandler{tracker: deps.Presence}
	reports := &reportHandler{relay: deps.Relay}

	api := r.Group("/api")

	v := api.Group("/video")
	v.POST("/token", video.generateToken)
	v.POST("/rooms", video.createRoom)
	v.GET("/rooms/:roomName", video.getRoom)
	v.POST("/rooms/:roomName/end", video.endRoom)
	v.GET("/rooms/:roomName/participants", video.listParticipants)
	v.POST("/rooms/:roomName/participants/:participantSid/disconnect", video.disconnectParticipant)
	v.POST("/events/participant-connected", events.participantConnected)
	v.POST("/events/participant-disconnected", events.participantDisconnected)
	v.POST("/whatsapp/send", video.sendWhatsApp)

	tm := api.Group("/telemedicine")
	tm.GET("/sessions", reports.activeSessions)
	tm.GET("/sessions/:roomName", reports.session)

	ctrl := signal.NewSignalWSController(deps.Relay, signal.Options{
		ReadLimit:   cfg.ReadLimit,
		PingPeriod:  cfg.PingPeriod,
		CheckOrigin: originChecker(cfg.AllowedOrigins),
	})
	r.GET("/telemedicine", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws telemedicine endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "path": c.Request.URL.Path})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
