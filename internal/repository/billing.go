package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

// BillingRepo stores the Stripe customer and subscription of each domain
type BillingRepo struct {
	pool *pgxpool.Pool
}

func NewBillingRepo(pool *pgxpool.Pool) *BillingRepo {
	return &BillingRepo{pool: pool}
}

const stripeCustomerColumns = `id, domain_id, stripe_customer_id, email, created_at, updated_at`

func scanStripeCustomer(row pgx.Row) (*model.StripeCustomer, error) {
	var sc model.StripeCustomer
	if err := row.Scan(&sc.ID, &sc.DomainID, &sc.StripeCustomerID, &sc.Email, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	return &sc, nil
}

const subscriptionColumns = `id, domain_id, stripe_sub_id, stripe_price_id, plan, status,
	current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID, &s.DomainID, &s.StripeSubID, &s.StripePriceID, &s.Plan, &s.Status,
		&s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CustomerByDomain returns the Stripe customer of a domain, or nil
func (r *BillingRepo) CustomerByDomain(ctx context.Context, domainID uuid.UUID) (*model.StripeCustomer, error) {
	sc, err := scanStripeCustomer(r.pool.QueryRow(ctx, `
		SELECT `+stripeCustomerColumns+` FROM stripe_customers WHERE domain_id = $1
	`, domainID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding stripe customer by domain: %w", err)
	}
	return sc, nil
}

// CustomerByStripeID resolves a webhook's customer to a domain
func (r *BillingRepo) CustomerByStripeID(ctx context.Context, stripeCustomerID string) (*model.StripeCustomer, error) {
	sc, err := scanStripeCustomer(r.pool.QueryRow(ctx, `
		SELECT `+stripeCustomerColumns+` FROM stripe_customers WHERE stripe_customer_id = $1
	`, stripeCustomerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding stripe customer by stripe id: %w", err)
	}
	return sc, nil
}

func (r *BillingRepo) UpsertCustomer(ctx context.Context, domainID uuid.UUID, stripeCustomerID, email string) (*model.StripeCustomer, error) {
	sc, err := scanStripeCustomer(r.pool.QueryRow(ctx, `
		INSERT INTO stripe_customers (domain_id, stripe_customer_id, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain_id) DO UPDATE
		SET stripe_customer_id = $2, email = $3, updated_at = now()
		RETURNING `+stripeCustomerColumns,
		domainID, stripeCustomerID, email))
	if err != nil {
		return nil, fmt.Errorf("upserting stripe customer: %w", err)
	}
	return sc, nil
}

// SubscriptionByDomain returns the domain's subscription, or nil when it never subscribed
func (r *BillingRepo) SubscriptionByDomain(ctx context.Context, domainID uuid.UUID) (*model.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE domain_id = $1
	`, domainID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding subscription by domain: %w", err)
	}
	return s, nil
}

// UpsertSubscription creates or replaces the domain's subscription
func (r *BillingRepo) UpsertSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (domain_id, stripe_sub_id, stripe_price_id, plan, status, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (domain_id) DO UPDATE
		SET stripe_sub_id = $2, stripe_price_id = $3, plan = $4, status = $5,
		    current_period_end = $6, cancel_at_period_end = $7, updated_at = now()
		RETURNING `+subscriptionColumns,
		sub.DomainID, sub.StripeSubID, sub.StripePriceID, sub.Plan, sub.Status,
		sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting subscription: %w", err)
	}
	return s, nil
}

// UpdateSubscriptionStatus changes status fields by Stripe subscription id
func (r *BillingRepo) UpdateSubscriptionStatus(ctx context.Context, stripeSubID, status string, cancelAtPeriodEnd bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $2, cancel_at_period_end = $3, updated_at = now()
		WHERE stripe_sub_id = $1
	`, stripeSubID, status, cancelAtPeriodEnd)
	if err != nil {
		return fmt.Errorf("updating subscription status: %w", err)
	}
	return nil
}

// PlanForDomain returns the effective plan; lapsed subscriptions fall back to free
func (r *BillingRepo) PlanForDomain(ctx context.Context, domainID uuid.UUID) (string, error) {
	sub, err := r.SubscriptionByDomain(ctx, domainID)
	if err != nil {
		return "", err
	}
	return model.EffectivePlan(sub), nil
}
