package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auralabs/voicelink/internal/adapters"
	"github.com/auralabs/voicelink/internal/app"
	"github.com/auralabs/voicelink/internal/app/token"
	"github.com/auralabs/voicelink/internal/config"
)

// ClientTokenMiddleware gives every browser a stable opaque id cookie.
// The external identity layer maps it to a real user; this core only
// logs it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, _ := c.Cookie("ct")
		if tok == "" {
			tok = uuid.NewString()
			c.SetCookie("ct", tok, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", tok)
		c.Next()
	}
}

// SetupRouter wires the control plane (REST under /call) and the relay
// upgrade (/ws/voip) onto one gin engine.
func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, tokens *token.Issuer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VoicelinkSessions", store))
	r.Use(ClientTokenMiddleware())

	ctl := &CallController{
		Directory: orch.Directory,
		Registry:  orch.Registry,
		Tokens:    tokens,
	}

	call := r.Group("/call")
	call.POST("/start", ctl.StartCall)
	call.POST("/end", ctl.EndCall)
	call.POST("/room/create", ctl.CreateRoom)
	call.GET("/room/list", ctl.ListRooms)
	call.GET("/room/:id", ctl.GetRoom)
	call.POST("/room/join", ctl.JoinRoom)
	call.POST("/room/leave", ctl.LeaveRoom)
	call.POST("/token", ctl.IssueToken)

	r.GET("/healthz", ctl.Health)

	relayCtl := &adapters.RelayWSController{
		Orch:       orch,
		Tokens:     tokens,
		SendBuffer: cfg.SendBuffer,
		ReadLimit:  cfg.ReadLimit,
	}
	r.GET("/ws/voip", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("relay endpoint hit")
		relayCtl.HandleRelay(ctx, c)
	})

	return r
}
