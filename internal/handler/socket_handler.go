package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/boilagbe-backend/internal/relay"
	"github.com/shinyyama/boilagbe-backend/internal/service"
	"go.uber.org/zap"
)

type SocketHandler struct {
	hub      *relay.Hub
	svc      service.MessageService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewSocketHandler serves the push channel. allowOrigin vets browser origins;
// requests without an Origin header (native clients) are always accepted.
func NewSocketHandler(hub *relay.Hub, svc service.MessageService, allowOrigin func(string) bool, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{
		hub: hub,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
		logger: logger.Named("socket"),
	}
}

func (h *SocketHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	relay.NewClient(h.hub, conn, h.svc, actor(c)).Run(c.Request().Context())
	return nil
}
