package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/domain"
	eventsmem "github.com/aescanero/agor/pkg/adapters/events/memory"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler streams run progress events over WebSocket connections.
type Handler struct {
	hub    *eventsmem.Hub
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler backed by the event hub.
func NewHandler(hub *eventsmem.Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// HandleRunStream upgrades the connection and forwards the run's
// events until the run ends or the client disconnects.
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("websocket connection established",
		zap.String("run_id", runID),
		zap.String("client", c.ClientIP()))

	events, cancel := h.hub.Subscribe(runID)
	defer cancel()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			if event.Phase == domain.PhaseComplete || event.Phase == domain.PhaseFailed {
				return
			}
		}
	}
}
