package realtime

import (
	"context"
	"net/http"

	"todoshi/auth"
	"todoshi/internal/config"
	"todoshi/internal/middleware"
	"todoshi/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handler authenticates websocket handshakes and hands upgraded connections
// to the hub and router
type Handler struct {
	ctx      context.Context
	verifier auth.Verifier
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
}

// NewHandler builds the /ws endpoint. ctx outlives single requests and
// bounds every connection's event handling.
func NewHandler(ctx context.Context, verifier auth.Verifier, hub *Hub, router *Router) *Handler {
	return &Handler{
		ctx:      ctx,
		verifier: verifier,
		hub:      hub,
		router:   router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func checkOrigin(r *http.Request) bool {
	if !config.AppConfig.IsProduction() {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == config.AppConfig.FrontendAddress
}

// ServeWS rejects the handshake with 401 unless the token verifies. Missing
// and invalid tokens look the same to the caller.
func (h *Handler) ServeWS(c *gin.Context) {
	log := logrus.WithFields(logrus.Fields{
		"component": "ws",
		"remote":    c.ClientIP(),
	})

	token := middleware.BearerToken(c)
	if token == "" {
		log.Debug("handshake without token")
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	identity, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		log.WithError(err).Info("handshake with invalid token")
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the error response
		log.WithError(err).Warn("upgrade failed")
		return
	}

	client := NewClient(conn, identity.UserID, h.hub, h.router)
	log.WithFields(logrus.Fields{
		"user_id":       identity.UserID,
		"connection_id": client.ID(),
	}).Info("connection established")
	client.Run(h.ctx)
}
