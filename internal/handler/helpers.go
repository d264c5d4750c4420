package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/middleware"
	"github.com/yourusername/talentpool-api/internal/repository"
	"github.com/yourusername/talentpool-api/internal/search"
	"github.com/yourusername/talentpool-api/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// getUserID extracts and parses the user UUID from context
func getUserID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(middleware.GetUserID(c))
}

// getActor returns the signed-in recruiter and their domain. It answers 401
// itself and returns false when the request has no resolved recruiter.
func getActor(c *gin.Context) (service.Actor, bool) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return service.Actor{}, false
	}
	domainID, err := uuid.Parse(middleware.GetDomainID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, DomainID: domainID}, true
}

// paramID parses a UUID path parameter, answering 400 when it is malformed
func paramID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and limit query parameters
func pagination(c *gin.Context) (page, limit int, ok bool) {
	page, limit = 1, defaultPageSize
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return 0, 0, false
		}
		page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

// writeError maps service errors onto status codes. Unrecognised errors are
// logged and answered with a generic 500 naming the failed action.
func writeError(c *gin.Context, err error, action string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCandidateInvalid),
		errors.Is(err, service.ErrPushInvalid),
		errors.Is(err, service.ErrNoDevices),
		errors.Is(err, service.ErrImportFormat),
		errors.Is(err, service.ErrUnknownNetwork),
		errors.Is(err, service.ErrNotConnected),
		errors.Is(err, search.ErrInvalidParams):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNetworkAuth):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, service.ErrCandidateNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrNoBillingAccount),
		errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Failed to " + action)
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
