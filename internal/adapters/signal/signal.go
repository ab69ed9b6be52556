package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Televisit/internal/app/relay"
	"github.com/dkeye/Televisit/internal/core"
	"github.com/dkeye/Televisit/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	// CheckOrigin decides whether an upgrade request is accepted; nil accepts all.
	CheckOrigin func(r *http.Request) bool
	// Control limits create/join attempts per connection.
	ControlLimit    int
	ControlInterval time.Duration
}

type SignalWSController struct {
	Relay    *relay.Relay
	opts     Options
	upgrader websocket.Upgrader
	limiter  *RateLimiter
}

func NewSignalWSController(r *relay.Relay, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 65536
	}
	if opts.ControlLimit <= 0 {
		opts.ControlLimit = 10
	}
	if opts.ControlInterval <= 0 {
		opts.ControlInterval = 10 * time.Second
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &SignalWSController{
		Relay:    r,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		limiter:  NewRateLimiter(opts.ControlLimit, opts.ControlInterval),
	}
}

func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.opts.PingPeriod * 10 / 9
}

type WsSignalConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and serves one telemedicine connection
// until the transport drops or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:   domain.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, sendBuffer),
	}
	log.Info().Str("module", "adapters.signal").Str("conn", string(conn.id)).Str("client", client).Msg("new WS connection")

	ctl.Relay.Attach(conn.id, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
