package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/middleware"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

type userStore interface {
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, firebaseUID, email, name, domainName string) (*model.User, error)
	JoinByInvite(ctx context.Context, firebaseUID, email, name string, domainID uuid.UUID) (*model.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error)
}

type domainStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Domain, error)
}

type AuthHandler struct {
	users userStore
}

func NewAuthHandler(users userStore) *AuthHandler {
	return &AuthHandler{users: users}
}

// GoogleSignIn handles POST /auth/google
// Returns the recruiter for the Firebase token, creating them on first sign-in.
// A new recruiter joins domainId only through a pending invite for their verified
// email, otherwise they get a domain of their own.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	firebaseUID := middleware.GetFirebaseUID(c)
	if firebaseUID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.users.FindByFirebaseUID(c.Request.Context(), firebaseUID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	if user != nil {
		c.JSON(http.StatusOK, user)
		return
	}

	var req struct {
		Name     string `json:"name"`
		DomainID string `json:"domainId"`
	}
	// The body is optional on sign-in
	_ = c.ShouldBindJSON(&req)

	email := middleware.GetEmail(c)
	name := strings.TrimSpace(req.Name)

	if req.DomainID == "" {
		user, err = h.users.Create(c.Request.Context(), firebaseUID, email, name, domainNameFor(email))
		if err != nil {
			log.Error().Err(err).Msg("Failed to create user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}
		log.Info().Str("uid", firebaseUID).Str("domainId", user.DomainID.String()).Msg("New user created with a new domain")
		c.JSON(http.StatusCreated, user)
		return
	}

	domainID, err := uuid.Parse(req.DomainID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid domain ID"})
		return
	}
	if email == "" || !middleware.EmailVerified(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "A verified email is required to join a domain"})
		return
	}

	user, err = h.users.JoinByInvite(c.Request.Context(), firebaseUID, email, name, domainID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn().Str("uid", firebaseUID).Str("domainId", domainID.String()).Msg("Sign-in to a domain without an invite")
		c.JSON(http.StatusForbidden, gin.H{"error": "No pending invite for this email"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	log.Info().Str("uid", firebaseUID).Str("domainId", domainID.String()).Msg("New user joined domain by invite")
	c.JSON(http.StatusCreated, user)
}

// domainNameFor names a new domain after the email host
func domainNameFor(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
		return strings.ToLower(email[at+1:])
	}
	return "My Team"
}

// ProfileHandler handles the signed-in recruiter's profile
type ProfileHandler struct {
	users   userStore
	domains domainStore
}

func NewProfileHandler(users userStore, domains domainStore) *ProfileHandler {
	return &ProfileHandler{users: users, domains: domains}
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get profile"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	domain, err := h.domains.FindByID(c.Request.Context(), user.DomainID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get domain")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "domain": domain})
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	updated, err := h.users.UpdateName(c.Request.Context(), userID, strings.TrimSpace(req.Name))
	if err != nil {
		log.Error().Err(err).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
