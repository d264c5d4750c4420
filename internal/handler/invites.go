package handler

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
)

type inviteStore interface {
	Create(ctx context.Context, domainID, invitedBy uuid.UUID, email string) (*model.Invite, error)
	ListPending(ctx context.Context, domainID uuid.UUID) ([]model.Invite, error)
	Revoke(ctx context.Context, domainID, id uuid.UUID) error
}

// InviteHandler lets domain admins invite recruiters by email
type InviteHandler struct {
	users   userStore
	invites inviteStore
}

func NewInviteHandler(users userStore, invites inviteStore) *InviteHandler {
	return &InviteHandler{users: users, invites: invites}
}

// requireAdmin answers 403 unless the signed-in recruiter administers their domain
func (h *InviteHandler) requireAdmin(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := getActor(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	user, err := h.users.FindByID(c.Request.Context(), actor.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return uuid.Nil, uuid.Nil, false
	}
	if user == nil || user.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only domain admins can manage invites"})
		return uuid.Nil, uuid.Nil, false
	}
	return actor.UserID, actor.DomainID, true
}

// List handles GET /domain/invites
func (h *InviteHandler) List(c *gin.Context) {
	_, domainID, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	invites, err := h.invites.ListPending(c.Request.Context(), domainID)
	if err != nil {
		writeError(c, err, "list invites")
		return
	}
	if invites == nil {
		invites = []model.Invite{}
	}
	c.JSON(http.StatusOK, invites)
}

// Create handles POST /domain/invites
func (h *InviteHandler) Create(c *gin.Context) {
	userID, domainID, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil || addr.Name != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	invite, err := h.invites.Create(c.Request.Context(), domainID, userID, addr.Address)
	if err != nil {
		writeError(c, err, "create invite")
		return
	}

	log.Info().Str("domainId", domainID.String()).Str("invitedBy", userID.String()).Msg("Invite created")
	c.JSON(http.StatusCreated, invite)
}

// Revoke handles DELETE /domain/invites/:inviteId
func (h *InviteHandler) Revoke(c *gin.Context) {
	_, domainID, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "inviteId", "invite")
	if !ok {
		return
	}

	if err := h.invites.Revoke(c.Request.Context(), domainID, id); err != nil {
		writeError(c, err, "revoke invite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite revoked"})
}
