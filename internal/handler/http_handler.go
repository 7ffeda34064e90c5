package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/service"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/middleware"
	"github.com/weiawesome/wes-io-dm/pkg/response"
)

// OnlineLister reports the users that currently hold a live connection.
type OnlineLister interface {
	OnlineUserIDs() []string
}

// Handler serves the REST API of dm-service.
type Handler struct {
	messages       service.MessageService
	partners       service.PartnerService
	users          service.UserService
	online         OnlineLister
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	messages service.MessageService,
	partners service.PartnerService,
	users service.UserService,
	online OnlineLister,
	authMiddleware *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		messages:       messages,
		partners:       partners,
		users:          users,
		online:         online,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes under /api/v1.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/v1")
	api.Use(h.authMiddleware.RequireAuth(), EnsureUser(h.users))
	{
		messages := api.Group("/messages")
		{
			messages.POST("/:receiver_id", h.SendMessage)
			messages.GET("/:user_id", h.GetConversation)
			messages.DELETE("/id/:message_id", h.DeleteMessage)
		}

		api.GET("/chats", h.GetChatPartners)

		users := api.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.PUT("/me", h.UpdateMe)
			users.GET("/:user_id", h.GetUser)
		}

		api.GET("/presence/online", h.GetOnlineUsers)
	}
}

// EnsureUser records the authenticated identity before the request is
// handled, so that others can address it.
func EnsureUser(users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if err := users.EnsureUser(c.Request.Context(), userID, middleware.GetUsername(c)); err != nil {
			respondError(c, err, "resolve caller")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SendMessage handles POST /messages/:receiver_id.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	senderID := middleware.GetUserID(c)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid send message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.messages.SendMessage(ctx, senderID, c.Param("receiver_id"), domain.MessageContent{
		Text:          req.Text,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		respondError(c, err, "send message")
		return
	}

	response.Created(c, msg)
}

// GetConversation handles GET /messages/:user_id?limit=&before=.
func (h *Handler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit := service.ParseLimit(c.Query("limit"))

	page, err := h.messages.GetConversation(c.Request.Context(), userID, c.Param("user_id"), limit, c.Query("before"))
	if err != nil {
		respondError(c, err, "get conversation")
		return
	}

	response.Success(c, page)
}

// DeleteMessage handles DELETE /messages/id/:message_id.
func (h *Handler) DeleteMessage(c *gin.Context) {
	msg, err := h.messages.DeleteMessage(c.Request.Context(), middleware.GetUserID(c), c.Param("message_id"))
	if err != nil {
		respondError(c, err, "delete message")
		return
	}

	response.Success(c, msg)
}

// GetChatPartners handles GET /chats.
func (h *Handler) GetChatPartners(c *gin.Context) {
	partners, err := h.partners.GetChatPartners(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "get chat partners")
		return
	}
	if partners == nil {
		partners = []*domain.ChatPartnerSummary{}
	}

	response.Success(c, partners)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "list users")
		return
	}
	if users == nil {
		users = []domain.Profile{}
	}

	response.Success(c, users)
}

// GetUser handles GET /users/:user_id.
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err, "get user")
		return
	}

	response.Success(c, profile)
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update profile request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.UpsertProfile(ctx, middleware.GetUserID(c), middleware.GetUsername(c), &req)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}

	response.Success(c, user.Profile())
}

// GetOnlineUsers handles GET /presence/online.
func (h *Handler) GetOnlineUsers(c *gin.Context) {
	ids := h.online.OnlineUserIDs()
	if ids == nil {
		ids = []string{}
	}
	response.Success(c, gin.H{"user_ids": ids})
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
