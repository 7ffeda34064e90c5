package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-dm/internal/audit"
	"github.com/weiawesome/wes-io-dm/internal/config"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/hub"
	"github.com/weiawesome/wes-io-dm/internal/service"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated requests into realtime connections.
type WSHandler struct {
	hub            *hub.Hub
	users          service.UserService
	authMiddleware *middleware.AuthMiddleware
	wsCfg          config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, users service.UserService, authMiddleware *middleware.AuthMiddleware, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:            h,
		users:          users,
		authMiddleware: authMiddleware,
		wsCfg:          wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.authMiddleware.RequireAuthWS(), EnsureUser(h.users), h.HandleWebSocket)
}

// HandleWebSocket registers the caller as online for the lifetime of the
// connection. A newer connection of the same user supersedes this one.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := middleware.GetUserID(c)
	connID := uuid.New().String()

	// The request context ends when this handler returns; the connection
	// outlives it.
	ctx := context.WithoutCancel(log.WithStr(c.Request.Context(), log.FieldConnID, connID))
	l := log.Ctx(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(connID, userID, h.hub, conn, h.wsCfg)
	if err := h.hub.Register(client); err != nil {
		l.Warn().Err(err).Msg("rejecting connection")
		conn.Close()
		return
	}
	audit.Log(ctx, audit.ActionConnect, userID, "websocket connected")

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		audit.Log(ctx, audit.ActionDisconnect, userID, "websocket disconnected")
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.Push(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypePing:
		client.Push(domain.NewPongMessage())

	default:
		client.Push(domain.NewErrorMessage(domain.ErrCodeUnknownType, "Unknown message type"))
	}
}
