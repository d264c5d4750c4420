package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
)

// PlanResolver returns the plan a domain currently has
type PlanResolver interface {
	PlanForDomain(ctx context.Context, domainID uuid.UUID) (string, error)
}

// RequirePlan returns middleware that checks whether the recruiter's domain
// subscription meets the minimum plan level. Returns 402 if it does not.
//
// Plan hierarchy: free (0) < pro (1) < pro_plus (2)
func RequirePlan(minPlan string, plans PlanResolver) gin.HandlerFunc {
	minLevel := model.PlanLevel(minPlan)

	return func(c *gin.Context) {
		domain := domainID(c)
		if domain == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		plan, err := plans.PlanForDomain(c.Request.Context(), domain)
		if err != nil {
			log.Error().Err(err).Str("domainId", domain.String()).Msg("Failed to check subscription")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
			return
		}

		if model.PlanLevel(plan) < minLevel {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":        "upgrade_required",
				"requiredPlan": minPlan,
				"currentPlan":  plan,
			})
			return
		}

		c.Next()
	}
}
