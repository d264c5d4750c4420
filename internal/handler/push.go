package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/service"
)

type PushHandler struct {
	push *service.PushService
}

func NewPushHandler(push *service.PushService) *PushHandler {
	return &PushHandler{push: push}
}

// RegisterDevice handles POST /candidates/:id/devices
func (h *PushHandler) RegisterDevice(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	var req struct {
		OneSignalID string `json:"oneSignalId" binding:"required"`
		Platform    string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "oneSignalId is required"})
		return
	}

	device, err := h.push.RegisterDevice(c.Request.Context(), actor, id, req.OneSignalID, req.Platform)
	if err != nil {
		writeError(c, err, "register device")
		return
	}

	c.JSON(http.StatusCreated, device)
}

// ListDevices handles GET /candidates/:id/devices
func (h *PushHandler) ListDevices(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	devices, err := h.push.ListDevices(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "list devices")
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}

	c.JSON(http.StatusOK, devices)
}

// DeleteDevice handles DELETE /candidates/:id/devices/:deviceId
func (h *PushHandler) DeleteDevice(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}
	deviceID, ok := paramID(c, "deviceId", "device")
	if !ok {
		return
	}

	if err := h.push.DeleteDevice(c.Request.Context(), actor, id, deviceID); err != nil {
		writeError(c, err, "delete device")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Send handles POST /candidates/:id/push
func (h *PushHandler) Send(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}
	if !h.push.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
		return
	}

	var req service.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	push, err := h.push.Send(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, err, "send push notification")
		return
	}

	c.JSON(http.StatusCreated, push)
}

// ListSent handles GET /candidates/:id/push
func (h *PushHandler) ListSent(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "candidate")
	if !ok {
		return
	}

	pushes, err := h.push.ListSent(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "list push notifications")
		return
	}
	if pushes == nil {
		pushes = []model.PushNotification{}
	}

	c.JSON(http.StatusOK, pushes)
}
