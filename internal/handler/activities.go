package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
	"github.com/yourusername/talentpool-api/internal/service"
)

type ActivityHandler struct {
	activities *service.ActivityService
}

func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// filter reads page, limit, userId and types (comma separated ids)
func (h *ActivityHandler) filter(c *gin.Context) (repository.ActivityFilter, bool) {
	page, limit, ok := pagination(c)
	if !ok {
		return repository.ActivityFilter{}, false
	}
	f := repository.ActivityFilter{Limit: limit, Offset: (page - 1) * limit}

	if v := c.Query("userId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return repository.ActivityFilter{}, false
		}
		f.UserID = &id
	}
	if v := c.Query("types"); v != "" {
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "types must be a comma separated list of activity type ids"})
				return repository.ActivityFilter{}, false
			}
			f.Types = append(f.Types, n)
		}
	}
	return f, true
}

// List handles GET /activities
func (h *ActivityHandler) List(c *gin.Context) {
	h.list(c, false)
}

// Aggregate handles GET /activities/aggregate
func (h *ActivityHandler) Aggregate(c *gin.Context) {
	h.list(c, true)
}

func (h *ActivityHandler) list(c *gin.Context, aggregate bool) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	var (
		activities []model.Activity
		err        error
	)
	if aggregate {
		activities, err = h.activities.ListAggregated(c.Request.Context(), actor.DomainID, filter)
	} else {
		activities, err = h.activities.List(c.Request.Context(), actor.DomainID, filter)
	}
	if err != nil {
		writeError(c, err, "list activities")
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

// Types handles GET /activities/types
func (h *ActivityHandler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": service.ActivityTypes()})
}
