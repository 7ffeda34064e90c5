package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/response"
)

// respondError writes the envelope matching err. what names the failed
// operation in the 500 message and the log entry.
func respondError(c *gin.Context, err error, what string) {
	l := log.Ctx(c.Request.Context())

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(c, verr.Error())
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrLivenessTimeout):
		l.Warn().Err(err).Msg(what + " timed out")
		response.GatewayTimeout(c, what+" timed out")
	default:
		l.Error().Err(err).Msg(what + " failed")
		response.InternalError(c, "failed to "+what)
	}
}
