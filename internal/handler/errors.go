package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/backend"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/session"
)

// failUpstream maps a backend failure onto the response envelope. Auth and
// not-found statuses pass through; everything else becomes a 502 with code.
func failUpstream(c *gin.Context, log zerolog.Logger, err error, code response.ErrCode) {
	var be *backend.Error
	if errors.As(err, &be) {
		switch be.StatusCode {
		case http.StatusUnauthorized:
			response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		case http.StatusForbidden:
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
			return
		case http.StatusNotFound:
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
	}

	log.Error().Err(err).Str("code", string(code)).Msg("Backend call failed")
	response.FailWithDetail(c, http.StatusBadGateway, code, err.Error(), nil)
}

// failOpen maps a failure to open an attempt onto the response envelope.
func failOpen(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidQuiz):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrQuizUnavailable)
	case errors.Is(err, session.ErrStoreUnavailable):
		log.Error().Err(err).Msg("Progress store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		failUpstream(c, log, err, response.ErrBackendUnavailable)
	}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
