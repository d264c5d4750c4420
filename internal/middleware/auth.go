package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
	"google.golang.org/api/option"
)

const (
	// ContextKeyFirebaseUID is the key for the Firebase UID in the Gin context
	ContextKeyFirebaseUID = "firebase_uid"
	// ContextKeyEmail is the verified email claim of the token
	ContextKeyEmail = "email"
	// ContextKeyEmailVerified is set when the token's email claim is verified
	ContextKeyEmailVerified = "email_verified"
	// ContextKeyUserID is the key for the recruiter's UUID in the Gin context
	ContextKeyUserID = "user_id"
	// ContextKeyDomainID is the key for the recruiter's domain UUID
	ContextKeyDomainID = "domain_id"
)

// TokenVerifier checks Firebase ID tokens
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware validates Firebase ID tokens and injects the UID into context
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a Firebase-backed auth middleware
func NewAuthMiddleware(projectID string) (*AuthMiddleware, error) {
	ctx := context.Background()

	var app *firebase.App
	var err error

	if projectID != "" {
		app, err = firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	} else {
		// Falls back to GOOGLE_APPLICATION_CREDENTIALS or default credentials
		app, err = firebase.NewApp(ctx, nil, option.WithoutAuthentication())
	}
	if err != nil {
		return nil, err
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithVerifier(client), nil
}

func NewAuthMiddlewareWithVerifier(v TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: v}
}

// Authenticate is the Gin middleware handler
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing Authorization header",
			})
			return
		}

		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format",
			})
			return
		}

		token, err := am.verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			log.Warn().Err(err).Msg("Failed to verify Firebase token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyFirebaseUID, token.UID)
		if email, ok := token.Claims["email"].(string); ok {
			c.Set(ContextKeyEmail, email)
		}
		if verified, ok := token.Claims["email_verified"].(bool); ok && verified {
			c.Set(ContextKeyEmailVerified, true)
		}

		c.Next()
	}
}

// UserLookup finds the recruiter behind a Firebase UID
type UserLookup interface {
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*model.User, error)
}

// ResolveUser maps the Firebase UID to the recruiter and their domain. A UID
// with no recruiter yet passes through unresolved so sign-up can run.
func ResolveUser(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		firebaseUID := GetFirebaseUID(c)
		if firebaseUID == "" {
			c.Next()
			return
		}

		user, err := users.FindByFirebaseUID(c.Request.Context(), firebaseUID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to resolve user ID")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			return
		}
		if user != nil {
			c.Set(ContextKeyUserID, user.ID.String())
			c.Set(ContextKeyDomainID, user.DomainID.String())
		}

		c.Next()
	}
}

func getString(c *gin.Context, key string) string {
	v, _ := c.Get(key)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// GetFirebaseUID extracts the Firebase UID from the Gin context
func GetFirebaseUID(c *gin.Context) string {
	return getString(c, ContextKeyFirebaseUID)
}

// GetEmail returns the token's email claim, if any
func GetEmail(c *gin.Context) string {
	return getString(c, ContextKeyEmail)
}

// EmailVerified reports whether the token's email claim is verified
func EmailVerified(c *gin.Context) bool {
	return c.GetBool(ContextKeyEmailVerified)
}

// GetUserID extracts the recruiter UUID from the Gin context
func GetUserID(c *gin.Context) string {
	return getString(c, ContextKeyUserID)
}

// GetDomainID extracts the recruiter's domain UUID from the Gin context
func GetDomainID(c *gin.Context) string {
	return getString(c, ContextKeyDomainID)
}

// domainID parses the resolved domain, returning uuid.Nil when absent
func domainID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(GetDomainID(c))
	if err != nil {
		return uuid.Nil
	}
	return id
}
