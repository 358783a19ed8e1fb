package notify

import (
	"net/http"
	"strings"
	"time"

	"pulsegen/internal/domain"
	"pulsegen/internal/pkg/jwt"
	"pulsegen/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub *Hub
	jwt *jwt.Service
	log *zap.Logger
}

func NewHandler(hub *Hub, jwtService *jwt.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: hub, jwt: jwtService, log: log}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/videos", h.Connect)
}

// Connect upgrades GET /ws/videos?token=JWT. Browsers cannot set headers on
// a WebSocket handshake, so the token travels in the query string.
func (h *Handler) Connect(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token carries an unknown role")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.hub.register(claims.UserID, role, conn)
	h.log.Debug("websocket connected", zap.Int64("user_id", claims.UserID))

	go h.writePump(cl)
	h.readPump(cl)
}

// readPump only consumes control frames; clients do not send anything.
func (h *Handler) readPump(cl *client) {
	defer func() {
		h.hub.unregister(cl)
		_ = cl.conn.Close()
		h.log.Debug("websocket disconnected", zap.Int64("user_id", cl.userID))
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Info("websocket read error", zap.Int64("user_id", cl.userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
