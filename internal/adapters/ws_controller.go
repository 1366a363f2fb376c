package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/app"
	"github.com/auralabs/voicelink/internal/app/token"
	"github.com/auralabs/voicelink/internal/core"
	"github.com/auralabs/voicelink/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RelayWSController handles the audio-relay upgrade path and the
// per-connection lifecycle: register on handshake, relay while the socket
// lives, clean up exactly once on close.
type RelayWSController struct {
	Orch       *app.Orchestrator
	Tokens     *token.Issuer
	SendBuffer int
	ReadLimit  int64
}

// HandleRelay upgrades GET /ws/voip. A valid relay token both authorizes
// the upgrade and binds the connection to its session/room; without one
// the connection is only accepted in legacy broadcast mode.
func (ctl *RelayWSController) HandleRelay(ctx context.Context, c *gin.Context) {
	var grant token.Grant
	tok := c.Query("token")
	switch {
	case tok != "":
		g, err := ctl.Tokens.Consume(tok)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.relay").Msg("relay token rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid relay token"})
			return
		}
		grant = g
	case ctl.Orch.AllowUnbound:
		log.Warn().Str("module", "adapters.relay").Msg("unbound relay connection accepted, broadcast fallback")
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "relay token required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	id := core.ConnID(uuid.NewString())
	conn := newRelayConn(id, ws, ctl.SendBuffer)

	if err := ctl.Orch.OnConnect(id, conn); err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Str("conn", string(id)).Msg("register failed")
		conn.Close()
		return
	}
	if grant.Binding.Kind != domain.BindNone {
		if err := ctl.Orch.Bind(id, grant.Binding); err != nil {
			log.Warn().Err(err).Str("module", "adapters.relay").Str("conn", string(id)).Msg("token binding rejected")
			ctl.Orch.OnDisconnect(id)
			conn.Close()
			return
		}
	}

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, id, conn)
}

func (ctl *RelayWSController) writePump(ctx context.Context, c *relayConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.relay").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(msg.mt, msg.data); err != nil {
				log.Error().Err(err).Str("module", "adapters.relay").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drives the connection state machine: binary frames trigger a
// relay cycle, text frames carry the small control protocol. On exit the
// connection is torn down exactly once.
func (ctl *RelayWSController) readPump(ctx context.Context, cancel context.CancelFunc, id core.ConnID, c *relayConn) {
	defer func() {
		log.Info().Str("module", "adapters.relay").Str("conn", string(id)).Msg("readPump closing")
		cancel()
		ctl.Orch.OnDisconnect(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			mt, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			switch mt {
			case websocket.BinaryMessage:
				ctl.Orch.OnFrame(id, data)
			case websocket.TextMessage:
				ctl.handleControl(id, c, data)
			}
		}
	}
}

func (ctl *RelayWSController) handleControl(id core.ConnID, c *relayConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Msg("bad control json")
		return
	}

	switch env.Type {
	case "bind":
		ctl.handleBind(id, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "adapters.relay").Str("type", env.Type).Msg("unknown control message")
	}
}

// handleBind lets clients without a relay token declare the scope their
// connection serves in the first control message.
func (ctl *RelayWSController) handleBind(id core.ConnID, c *relayConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId,omitempty"`
		RoomID    string `json:"roomId,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Msg("bad bind payload")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}
	uid, err := domain.ValidateUserID(p.UserID)
	if err != nil {
		ctl.sendJSON(c, map[string]any{"type": "error", "error": err.Error()})
		return
	}

	b := domain.Binding{UserID: uid}
	switch {
	case p.SessionID != "":
		b.Kind = domain.BindSession
		b.SessionID = domain.SessionID(p.SessionID)
	case p.RoomID != "":
		b.Kind = domain.BindRoom
		b.RoomID = domain.RoomID(p.RoomID)
	default:
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "sessionId or roomId required"})
		return
	}

	if err := ctl.Orch.Bind(id, b); err != nil {
		log.Warn().Err(err).Str("module", "adapters.relay").Str("conn", string(id)).Msg("bind rejected")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": err.Error()})
		return
	}
	ctl.sendJSON(c, map[string]any{"type": "bound", "scope": b.ScopeKey()})
}

func (ctl *RelayWSController) sendJSON(c *relayConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.relay").Msg("sendJSON marshal")
		return
	}
	_ = c.trySendText(b)
}
