package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/app"
	"github.com/mindlink/peerhub/internal/core"
	"github.com/mindlink/peerhub/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the WebSocket signaling endpoint: it upgrades
// authenticated requests, registers the connection with the router, and
// pumps frames in both directions.
type Controller struct {
	Router *app.Router

	readLimit  int64
	pingPeriod time.Duration
	limiter    *MessageRateLimiter
}

func NewController(router *app.Router, readLimit int64, pingPeriod time.Duration, limiter *MessageRateLimiter) *Controller {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Router:     router,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
		limiter:    limiter,
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request. The auth middleware has already
// resolved the bearer credential; an unauthenticated request never gets here.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	v, ok := c.Get("identity")
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ident := v.(domain.Identity)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("user", string(ident.ID)).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Router.Connect(ident, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, ident, conn)
}
