package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dm/internal/service"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/middleware"
	"github.com/weiawesome/wes-io-dm/pkg/response"
)

const (
	attachmentFormField = "file"
	multipartOverhead   = 64 << 10
)

// AttachmentHandler accepts uploads and serves stored attachments.
type AttachmentHandler struct {
	attachments service.AttachmentService
	maxBytes    int64
}

func NewAttachmentHandler(attachments service.AttachmentService, maxBytes int64) *AttachmentHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &AttachmentHandler{
		attachments: attachments,
		maxBytes:    maxBytes,
	}
}

// RegisterRoutes mounts the attachment routes on /api/v1/attachments
// behind the given middleware.
func (h *AttachmentHandler) RegisterRoutes(r gin.IRouter, mw ...gin.HandlerFunc) {
	attachments := r.Group("/api/v1/attachments", mw...)
	{
		attachments.POST("", h.Upload)
		attachments.GET("/files/*key", h.Download)
	}
}

// Upload handles POST /attachments with one multipart file.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	header, err := c.FormFile(attachmentFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "attachment is too large")
			return
		}
		l.Warn().Err(err).Msg("invalid upload request")
		response.BadRequest(c, "multipart field \"file\" is required")
		return
	}
	if header.Size > h.maxBytes {
		response.PayloadTooLarge(c, "attachment is too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		l.Error().Err(err).Msg("failed to open upload")
		response.InternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	att, err := h.attachments.Upload(ctx, userID, header.Filename, file)
	if err != nil {
		respondError(c, err, "upload attachment")
		return
	}

	response.Created(c, att)
}

// Download handles GET /attachments/files/*key.
func (h *AttachmentHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	ref := strings.TrimPrefix(c.Param("key"), "/")

	rc, contentType, err := h.attachments.Open(ctx, ref)
	if err != nil {
		respondError(c, err, "open attachment")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		l.Warn().Err(err).Str("ref", ref).Msg("attachment stream interrupted")
	}
}
