package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
)

// Stream godoc
// @ID          complaintStream
// @Summary     Live complaint events
// @Description Upgrades to a websocket and pushes complaint.created and complaint.status_changed events. Admins receive every event; users only events about their own complaints. Browsers may pass the JWT as access_token.
// @Tags        Complaints
// @Param       access_token  query  string  false "JWT for browser clients"
// @Success     101  {string} string "Switching Protocols"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Streaming disabled"
// @Router      /complaints/stream [get]
func (h *Handlers) Stream(c *gin.Context) {
	if h.hub == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "event stream disabled")
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the handshake error.
		middleware.LoggerFrom(c).Debug().Err(err).Msg("websocket upgrade")
		c.Abort()
		return
	}
	h.hub.Serve(conn, middleware.UserID(c), middleware.IsAdmin(c))
}
