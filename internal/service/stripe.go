package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v81"
	billingportalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	stripecustomer "github.com/stripe/stripe-go/v81/customer"
	stripesub "github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/yourusername/talentpool-api/internal/config"
	"github.com/yourusername/talentpool-api/internal/model"
)

// stripeDomainKey tags Stripe objects with the owning domain
const stripeDomainKey = "talentpool_domain_id"

var ErrNoBillingAccount = errors.New("domain has no billing account")

type billingStore interface {
	CustomerByDomain(ctx context.Context, domainID uuid.UUID) (*model.StripeCustomer, error)
	CustomerByStripeID(ctx context.Context, stripeCustomerID string) (*model.StripeCustomer, error)
	UpsertCustomer(ctx context.Context, domainID uuid.UUID, stripeCustomerID, email string) (*model.StripeCustomer, error)
	SubscriptionByDomain(ctx context.Context, domainID uuid.UUID) (*model.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, stripeSubID, status string, cancelAtPeriodEnd bool) error
}

type domainFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Domain, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// BillingService bills each domain through one Stripe customer; the
// subscription it holds sets the plan of every recruiter in the domain
type BillingService struct {
	cfg     *config.Config
	store   billingStore
	domains domainFinder
	users   userFinder
}

func NewBillingService(cfg *config.Config, store billingStore, domains domainFinder, users userFinder) *BillingService {
	stripe.Key = cfg.StripeSecretKey
	return &BillingService{
		cfg:     cfg,
		store:   store,
		domains: domains,
		users:   users,
	}
}

// Subscription returns the domain's subscription and the plan it grants now
func (s *BillingService) Subscription(ctx context.Context, domainID uuid.UUID) (*model.Subscription, string, error) {
	sub, err := s.store.SubscriptionByDomain(ctx, domainID)
	if err != nil {
		return nil, "", err
	}
	return sub, model.EffectivePlan(sub), nil
}

// customerFor returns the domain's Stripe customer, creating it with the
// acting recruiter's email as the billing contact
func (s *BillingService) customerFor(ctx context.Context, actor Actor) (*model.StripeCustomer, error) {
	existing, err := s.store.CustomerByDomain(ctx, actor.DomainID)
	if err != nil {
		return nil, fmt.Errorf("looking up stripe customer: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("finding billing contact: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("billing contact %s not found", actor.UserID)
	}
	domain, err := s.domains.FindByID(ctx, actor.DomainID)
	if err != nil {
		return nil, fmt.Errorf("finding domain: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
	}
	if domain != nil {
		params.Name = stripe.String(domain.Name)
	}
	params.AddMetadata(stripeDomainKey, actor.DomainID.String())

	cust, err := stripecustomer.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating stripe customer: %w", err)
	}

	sc, err := s.store.UpsertCustomer(ctx, actor.DomainID, cust.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("saving stripe customer: %w", err)
	}

	log.Info().Str("domainId", actor.DomainID.String()).Str("stripeId", cust.ID).Msg("Stripe customer created")
	return sc, nil
}

// ResolvePriceID maps plan + interval to a Stripe Price ID from config
func (s *BillingService) ResolvePriceID(plan, interval string) (string, error) {
	var priceID string
	switch {
	case plan == model.PlanPro && interval == "month":
		priceID = s.cfg.StripePriceProMo
	case plan == model.PlanPro && interval == "year":
		priceID = s.cfg.StripePriceProAn
	case plan == model.PlanProPlus && interval == "month":
		priceID = s.cfg.StripePriceProPlusMo
	case plan == model.PlanProPlus && interval == "year":
		priceID = s.cfg.StripePriceProPlusAn
	default:
		return "", fmt.Errorf("unknown plan/interval: %s/%s", plan, interval)
	}
	if priceID == "" {
		return "", fmt.Errorf("stripe price not configured for %s/%s", plan, interval)
	}
	return priceID, nil
}

// CreateCheckoutSession starts a subscription checkout for the domain and returns its URL
func (s *BillingService) CreateCheckoutSession(ctx context.Context, actor Actor, plan, interval string) (string, error) {
	priceID, err := s.ResolvePriceID(plan, interval)
	if err != nil {
		return "", err
	}

	sc, err := s.customerFor(ctx, actor)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(sc.StripeCustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.FrontendURL + "/settings/billing?checkout=success"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "/settings/billing?checkout=cancel"),
	}
	params.AddMetadata(stripeDomainKey, actor.DomainID.String())
	params.AddMetadata("plan", plan)
	params.AddMetadata("interval", interval)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	log.Info().
		Str("domainId", actor.DomainID.String()).
		Str("userId", actor.UserID.String()).
		Str("plan", plan).
		Str("interval", interval).
		Msg("Checkout session created")

	return sess.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for the domain
func (s *BillingService) CreatePortalSession(ctx context.Context, actor Actor) (string, error) {
	sc, err := s.store.CustomerByDomain(ctx, actor.DomainID)
	if err != nil {
		return "", fmt.Errorf("looking up stripe customer: %w", err)
	}
	if sc == nil {
		return "", ErrNoBillingAccount
	}

	sess, err := billingportalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sc.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.FrontendURL + "/settings/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return sess.URL, nil
}

// VerifyWebhook checks the Stripe signature and returns the event. Development
// builds accept unsigned payloads so the Stripe CLI is not required locally.
func (s *BillingService) VerifyWebhook(body io.Reader, signature string) (*stripe.Event, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading webhook body: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.StripeWebhookSecret)
	if err == nil {
		return &event, nil
	}
	if s.cfg.Env != "development" {
		return nil, fmt.Errorf("verifying webhook signature: %w", err)
	}

	log.Warn().Err(err).Int("payloadLen", len(payload)).Msg("Webhook signature failed, parsing unsigned payload (development)")
	var unsigned stripe.Event
	if jsonErr := json.Unmarshal(payload, &unsigned); jsonErr != nil {
		return nil, fmt.Errorf("verifying webhook signature: %w (raw parse also failed: %v)", err, jsonErr)
	}
	return &unsigned, nil
}

// HandleWebhookEvent applies a Stripe event to the stored subscription
func (s *BillingService) HandleWebhookEvent(ctx context.Context, event *stripe.Event) error {
	log.Info().
		Str("type", string(event.Type)).
		Str("id", event.ID).
		Msg("Processing Stripe webhook")

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("unmarshaling subscription event: %w", err)
		}
		return s.storeSubscription(ctx, &sub)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		log.Debug().Str("type", string(event.Type)).Msg("Ignoring unhandled webhook type")
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session struct {
		Subscription string `json:"subscription"`
		Mode         string `json:"mode"`
	}
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("unmarshaling checkout session: %w", err)
	}
	if session.Mode != "subscription" || session.Subscription == "" {
		log.Debug().Str("mode", session.Mode).Msg("Ignoring non-subscription checkout")
		return nil
	}

	// The session only carries the id; the subscription itself has the price and period
	sub, err := stripesub.Get(session.Subscription, nil)
	if err != nil {
		return fmt.Errorf("fetching subscription from Stripe: %w", err)
	}
	return s.storeSubscription(ctx, sub)
}

func (s *BillingService) storeSubscription(ctx context.Context, sub *stripe.Subscription) error {
	if sub.Customer == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription %s has no customer or price", sub.ID)
	}

	cust, err := s.store.CustomerByStripeID(ctx, sub.Customer.ID)
	if err != nil {
		return fmt.Errorf("looking up customer: %w", err)
	}
	if cust == nil {
		log.Warn().Str("stripeCustomer", sub.Customer.ID).Msg("Webhook for unknown customer")
		return nil
	}

	priceID := sub.Items.Data[0].Price.ID
	plan := s.planFromPriceID(priceID)

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd != 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	_, err = s.store.UpsertSubscription(ctx, &model.Subscription{
		DomainID:          cust.DomainID,
		StripeSubID:       sub.ID,
		StripePriceID:     priceID,
		Plan:              plan,
		Status:            string(sub.Status),
		CurrentPeriodEnd:  periodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("domainId", cust.DomainID.String()).
		Str("plan", plan).
		Str("status", string(sub.Status)).
		Msg("Subscription stored")
	return nil
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshaling subscription deleted event: %w", err)
	}

	if err := s.store.UpdateSubscriptionStatus(ctx, sub.ID, model.SubStatusCanceled, false); err != nil {
		return fmt.Errorf("canceling subscription: %w", err)
	}

	log.Info().Str("stripeSubId", sub.ID).Msg("Subscription canceled via webhook")
	return nil
}

func (s *BillingService) handlePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var invoice struct {
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshaling invoice event: %w", err)
	}
	if invoice.Subscription == "" {
		return nil // one-time payment
	}

	if err := s.store.UpdateSubscriptionStatus(ctx, invoice.Subscription, model.SubStatusPastDue, false); err != nil {
		return fmt.Errorf("marking subscription past due: %w", err)
	}

	log.Warn().Str("stripeSubId", invoice.Subscription).Msg("Payment failed, subscription marked past_due")
	return nil
}

// planFromPriceID maps a Stripe Price ID back to a plan name
func (s *BillingService) planFromPriceID(priceID string) string {
	switch priceID {
	case "":
		return model.PlanFree
	case s.cfg.StripePriceProMo, s.cfg.StripePriceProAn:
		return model.PlanPro
	case s.cfg.StripePriceProPlusMo, s.cfg.StripePriceProPlusAn:
		return model.PlanProPlus
	default:
		return model.PlanFree
	}
}
