package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/service"
)

type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// Connect handles POST /networks/:network
// Stores the recruiter's access token after checking it with the network
func (h *EventHandler) Connect(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req struct {
		AccessToken string `json:"accessToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}

	cred, err := h.events.Connect(c.Request.Context(), actor, c.Param("network"), req.AccessToken)
	if err != nil {
		writeError(c, err, "connect network")
		return
	}

	log.Info().
		Str("userId", actor.UserID.String()).
		Str("network", cred.Network).
		Msg("Social network connected")
	c.JSON(http.StatusOK, cred)
}

// Connections handles GET /networks
func (h *EventHandler) Connections(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	creds, err := h.events.Connections(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "list networks")
		return
	}
	if creds == nil {
		creds = []model.SocialNetworkCredential{}
	}

	c.JSON(http.StatusOK, creds)
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	events, err := h.events.List(c.Request.Context(), actor, page, limit)
	if err != nil {
		writeError(c, err, "list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "page": page, "limit": limit})
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "event")
	if !ok {
		return
	}

	event, err := h.events.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// Delete handles DELETE /events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "event")
	if !ok {
		return
	}

	if err := h.events.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err, "delete event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Sync handles POST /events/sync
func (h *EventHandler) Sync(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	result, err := h.events.SyncUser(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "sync events")
		return
	}

	c.JSON(http.StatusOK, result)
}
