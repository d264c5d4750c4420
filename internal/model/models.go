package model

import (
	"time"

	"github.com/google/uuid"
)

// ── Recruiters & domains ───────────────────────────────

// Domain is a recruiting organisation; every candidate belongs to exactly one
type Domain struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a recruiter signed in through Firebase
type User struct {
	ID          uuid.UUID `json:"id"`
	FirebaseUID string    `json:"-"`
	DomainID    uuid.UUID `json:"domainId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	RoleAdmin     = "admin"
	RoleRecruiter = "recruiter"
)

// Invite lets an email address join a domain on first sign-in
type Invite struct {
	ID         uuid.UUID  `json:"id"`
	DomainID   uuid.UUID  `json:"domainId"`
	Email      string     `json:"email"`
	InvitedBy  uuid.UUID  `json:"invitedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// ── Candidate section types ────────────────────────────

type CandidateEmail struct {
	Label     string `json:"label"`
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

type CandidatePhone struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	IsDefault bool   `json:"isDefault"`
}

type CandidateAddress struct {
	Line1     string   `json:"line1,omitempty"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	ZipCode   string   `json:"zipCode"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	IsDefault bool     `json:"isDefault"`
}

// Candidate is a person in a domain's talent pool
type Candidate struct {
	ID              uuid.UUID          `json:"id"`
	DomainID        uuid.UUID          `json:"domainId"`
	OwnerID         uuid.UUID          `json:"ownerId"`
	FirstName       string             `json:"firstName"`
	MiddleName      string             `json:"middleName"`
	LastName        string             `json:"lastName"`
	FormattedName   string             `json:"formattedName"`
	Emails          []CandidateEmail   `json:"emails"`
	Phones          []CandidatePhone   `json:"phones"`
	Addresses       []CandidateAddress `json:"addresses"`
	Skills          []string           `json:"skills"`
	AreasOfInterest []string           `json:"areasOfInterest"`
	Tags            []string           `json:"tags"`
	SourceID        *int               `json:"sourceId,omitempty"`
	Status          string             `json:"status"`
	Objective       string             `json:"objective"`
	Summary         string             `json:"summary"`
	ResumeText      string             `json:"resumeText,omitempty"`
	YearsExperience int                `json:"yearsExperience"`
	AddedAt         time.Time          `json:"addedAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// DefaultEmail returns the default email address, or the first one
func (c *Candidate) DefaultEmail() string {
	for _, e := range c.Emails {
		if e.IsDefault {
			return e.Address
		}
	}
	if len(c.Emails) > 0 {
		return c.Emails[0].Address
	}
	return ""
}

// DefaultAddress returns the default address, or nil when there are none
func (c *Candidate) DefaultAddress() *CandidateAddress {
	for i := range c.Addresses {
		if c.Addresses[i].IsDefault {
			return &c.Addresses[i]
		}
	}
	if len(c.Addresses) > 0 {
		return &c.Addresses[0]
	}
	return nil
}

// Candidate pipeline statuses
const (
	CandidateStatusNew          = "new"
	CandidateStatusContacted    = "contacted"
	CandidateStatusQualified    = "qualified"
	CandidateStatusInterviewing = "interviewing"
	CandidateStatusHired        = "hired"
	CandidateStatusRejected     = "rejected"
	CandidateStatusArchived     = "archived"
)

// CandidateStatuses lists every status in pipeline order
var CandidateStatuses = []string{
	CandidateStatusNew, CandidateStatusContacted, CandidateStatusQualified,
	CandidateStatusInterviewing, CandidateStatusHired, CandidateStatusRejected,
	CandidateStatusArchived,
}

func ValidCandidateStatus(s string) bool {
	switch s {
	case CandidateStatusNew, CandidateStatusContacted, CandidateStatusQualified,
		CandidateStatusInterviewing, CandidateStatusHired, CandidateStatusRejected,
		CandidateStatusArchived:
		return true
	}
	return false
}

// StatusHistory tracks candidate pipeline changes
type StatusHistory struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	UserID      uuid.UUID `json:"userId"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	ChangedAt   time.Time `json:"changedAt"`
	Note        string    `json:"note,omitempty"`
}

// Note is a free-text recruiter note on a candidate
type Note struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	UserID      uuid.UUID `json:"userId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ── Activity feed ──────────────────────────────────────

// Activity is one entry in a domain's activity feed
type Activity struct {
	ID          uuid.UUID      `json:"id"`
	DomainID    uuid.UUID      `json:"domainId"`
	UserID      uuid.UUID      `json:"userId"`
	Type        int            `json:"type"`
	SourceTable string         `json:"sourceTable"`
	SourceID    string         `json:"sourceId"`
	Params      map[string]any `json:"params"`
	CreatedAt   time.Time      `json:"createdAt"`

	// Joined / rendered (populated by service layer)
	UserName string `json:"userName,omitempty"`
	Message  string `json:"message,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// ── Push notifications ─────────────────────────────────

// Device is a OneSignal player registered to a candidate
type Device struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	OneSignalID string    `json:"oneSignalId"`
	Platform    string    `json:"platform"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// PushNotification records a push sent to a candidate
type PushNotification struct {
	ID          uuid.UUID `json:"id"`
	DomainID    uuid.UUID `json:"domainId"`
	CandidateID uuid.UUID `json:"candidateId"`
	UserID      uuid.UUID `json:"userId"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	URL         string    `json:"url"`
	Recipients  int       `json:"recipients"`
	ProviderID  string    `json:"providerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ── Social network events ──────────────────────────────

const NetworkEventbrite = "eventbrite"

// SocialNetworkCredential links a recruiter to a social network account
type SocialNetworkCredential struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	DomainID    uuid.UUID  `json:"domainId"`
	Network     string     `json:"network"`
	AccessToken string     `json:"-"`
	MemberID    string     `json:"memberId"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Event is a recruiting event imported from a social network
type Event struct {
	ID             uuid.UUID  `json:"id"`
	DomainID       uuid.UUID  `json:"domainId"`
	UserID         uuid.UUID  `json:"userId"`
	Network        string     `json:"network"`
	NetworkEventID string     `json:"networkEventId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	URL            string     `json:"url"`
	VenueName      string     `json:"venueName"`
	City           string     `json:"city"`
	StartAt        *time.Time `json:"startAt,omitempty"`
	EndAt          *time.Time `json:"endAt,omitempty"`
	Status         string     `json:"status"`
	Capacity       int        `json:"capacity"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ── Stripe / Billing ────────────────────────────────────

// StripeCustomer links a domain to its Stripe customer record
type StripeCustomer struct {
	ID               uuid.UUID `json:"id"`
	DomainID         uuid.UUID `json:"domainId"`
	StripeCustomerID string    `json:"stripeCustomerId"`
	Email            string    `json:"email"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Subscription tracks a domain's Stripe subscription; every recruiter in the domain shares its plan
type Subscription struct {
	ID                uuid.UUID  `json:"id"`
	DomainID          uuid.UUID  `json:"domainId"`
	StripeSubID       string     `json:"stripeSubId,omitempty"`
	StripePriceID     string     `json:"stripePriceId,omitempty"`
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Subscription plan constants
const (
	PlanFree    = "free"
	PlanPro     = "pro"
	PlanProPlus = "pro_plus"
)

// Subscription status constants
const (
	SubStatusActive   = "active"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"
	SubStatusTrialing = "trialing"
)

// PlanLevel returns a numeric level for plan comparison (higher = more features)
func PlanLevel(plan string) int {
	switch plan {
	case PlanPro:
		return 1
	case PlanProPlus:
		return 2
	default:
		return 0
	}
}

// EffectivePlan is the plan a subscription grants right now; nil, lapsed or
// canceled subscriptions grant the free plan
func EffectivePlan(sub *Subscription) string {
	if sub == nil {
		return PlanFree
	}
	if sub.Status == SubStatusActive || sub.Status == SubStatusTrialing {
		return sub.Plan
	}
	return PlanFree
}
