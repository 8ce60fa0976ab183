package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mindlink/peerhub/internal/domain"
	"github.com/mindlink/peerhub/internal/metrics"
	"github.com/mindlink/peerhub/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, ident domain.Identity, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(ident.ID)).Msg("readPump closing")
		cancel()
		ctl.Router.Disconnect(ident, c)
		c.Close()
	}()

	if ctl.readLimit > 0 {
		c.conn.SetReadLimit(ctl.readLimit)
	}
	// Pong refreshes the read deadline; the transport's own liveness signal
	// is the only disconnect detection.
	readWait := ctl.pingPeriod + writeWait
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("user", string(ident.ID)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(ctx, ident, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, ident domain.Identity, c *wsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}
	metrics.Events.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case protocol.EventJoinRoom:
		ctl.handleJoin(ctx, ident, c, data)
	case protocol.EventLeaveRoom:
		ctl.handleLeave(ctx, ident, c, data)
	case protocol.EventSendMessage:
		ctl.handleSendMessage(ctx, ident, c, data)
	case protocol.EventOffer, protocol.EventAnswer, protocol.EventCandidate:
		ctl.handleRelay(ident, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, protocol.NewError(msg))
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
