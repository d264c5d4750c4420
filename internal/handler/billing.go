package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/service"
)

type BillingHandler struct {
	billing *service.BillingService
}

func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// GetSubscription handles GET /billing/subscription
// Returns the domain's subscription, or the free plan when it has none
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	sub, plan, err := h.billing.Subscription(c.Request.Context(), actor.DomainID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subscription"})
		return
	}

	if sub == nil {
		c.JSON(http.StatusOK, gin.H{
			"plan":          model.PlanFree,
			"status":        model.SubStatusActive,
			"effectivePlan": model.PlanFree,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription":  sub,
		"plan":          sub.Plan,
		"status":        sub.Status,
		"effectivePlan": plan,
	})
}

// CreateCheckout handles POST /billing/checkout
// Accepts {plan, interval} and returns {url} for Stripe Checkout redirect
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	var req struct {
		Plan     string `json:"plan" binding:"required"`
		Interval string `json:"interval" binding:"required"` // "month" or "year"
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan and interval are required"})
		return
	}
	if req.Plan != model.PlanPro && req.Plan != model.PlanProPlus {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan. Must be 'pro' or 'pro_plus'"})
		return
	}
	if req.Interval != "month" && req.Interval != "year" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval. Must be 'month' or 'year'"})
		return
	}

	url, err := h.billing.CreateCheckoutSession(c.Request.Context(), actor, req.Plan, req.Interval)
	if err != nil {
		log.Error().Err(err).Str("plan", req.Plan).Msg("Failed to create checkout session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreatePortal handles POST /billing/portal
// Returns {url} for Stripe Billing Portal redirect
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		return
	}

	url, err := h.billing.CreatePortalSession(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err, "create portal session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// HandleWebhook handles POST /billing/webhook
// Unauthenticated; uses Stripe signature verification instead
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	event, err := h.billing.VerifyWebhook(c.Request.Body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("Invalid webhook signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if err := h.billing.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		log.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to process webhook event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
