package handler

import (
	"errors"
	"net/http"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{service.ErrConflict, http.StatusConflict, "CONFLICT"},
	{service.ErrNoOpenSession, http.StatusConflict, "NO_OPEN_SESSION"},
	{service.ErrInvalidLocation, http.StatusBadRequest, "INVALID_LOCATION"},
	{service.ErrWeekLocked, http.StatusConflict, "WEEK_LOCKED"},
	{service.ErrAlreadyApproved, http.StatusConflict, "ALREADY_APPROVED"},
	{service.ErrNotApproved, http.StatusConflict, "NOT_APPROVED"},
	{service.ErrReasonRequired, http.StatusBadRequest, "REASON_REQUIRED"},
	{service.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{service.ErrInvalidWeek, http.StatusBadRequest, "INVALID_WEEK"},
	{service.ErrInvalidFilter, http.StatusBadRequest, "INVALID_FILTER"},
	{service.ErrActorRequired, http.StatusUnauthorized, "ACTOR_REQUIRED"},
	{service.ErrBadCredentials, http.StatusUnauthorized, "BAD_CREDENTIALS"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrStaffIneligible, http.StatusForbidden, "STAFF_INELIGIBLE"},
	{service.ErrStaffNotFound, http.StatusNotFound, "STAFF_NOT_FOUND"},
}

// writeError renders a service error. Unknown errors are store faults: the
// client is told to retry and the detail stays in the log.
func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"code": m.code, "error": err.Error()})
			return
		}
	}
	logger.Error("store.unavailable", "path", c.FullPath(), "err", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"code": "STORE_UNAVAILABLE", "error": "storage unavailable, try again", "retry": true})
}

// invalidRequest reports a body or query that could not be decoded at all.
func invalidRequest(c *gin.Context, err error) {
	badRequest(c, "INVALID_REQUEST", err.Error())
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": code, "error": msg})
}
