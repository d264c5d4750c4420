package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
)

// MaxBatchSize caps candidates per batch create
const MaxBatchSize = 100

var (
	ErrCandidateInvalid  = errors.New("invalid candidate")
	ErrDuplicateEmail    = errors.New("email already belongs to another candidate")
	ErrCandidateNotFound = errors.New("candidate not found")
)

// Actor is the authenticated recruiter performing an operation
type Actor struct {
	UserID   uuid.UUID
	DomainID uuid.UUID
}

type candidateStore interface {
	Create(ctx context.Context, c *model.Candidate) (*model.Candidate, error)
	CreateBatch(ctx context.Context, candidates []*model.Candidate) ([]*model.Candidate, error)
	FindByID(ctx context.Context, domainID, id uuid.UUID) (*model.Candidate, error)
	List(ctx context.Context, domainID uuid.UUID, limit, offset int) ([]model.Candidate, int, error)
	Update(ctx context.Context, c *model.Candidate) (*model.Candidate, error)
	UpdateResume(ctx context.Context, domainID, id uuid.UUID, text string) (*model.Candidate, error)
	Delete(ctx context.Context, domainID, id uuid.UUID) error
	ExistingEmails(ctx context.Context, domainID uuid.UUID, emails []string, excludeID uuid.UUID) ([]string, error)
	UpdateStatus(ctx context.Context, domainID, id, userID uuid.UUID, newStatus, note string) (*model.Candidate, string, error)
	GetHistory(ctx context.Context, candidateID uuid.UUID) ([]model.StatusHistory, error)
	CountByStatus(ctx context.Context, domainID uuid.UUID) (map[string]int, error)
}

type noteStore interface {
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]model.Note, error)
	Create(ctx context.Context, candidateID, userID uuid.UUID, content string) (*model.Note, error)
	Delete(ctx context.Context, candidateID, id, userID uuid.UUID) error
}

type ownerLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// CandidateIndexer keeps the search index in sync
type CandidateIndexer interface {
	Index(ctx context.Context, candidates ...*model.Candidate) error
	Remove(ctx context.Context, ids ...uuid.UUID) error
}

type activityRecorder interface {
	Record(ctx context.Context, domainID, userID uuid.UUID, typ int, sourceTable, sourceID string, params map[string]any)
}

// CandidateService owns candidate validation and the side effects of every
// mutation (search indexing and activity logging)
type CandidateService struct {
	store      candidateStore
	notes      noteStore
	owners     ownerLookup
	indexer    CandidateIndexer
	activities activityRecorder
}

// NewCandidateService wires the service; indexer may be nil when search is disabled
func NewCandidateService(store candidateStore, notes noteStore, owners ownerLookup, indexer CandidateIndexer, activities activityRecorder) *CandidateService {
	return &CandidateService{store: store, notes: notes, owners: owners, indexer: indexer, activities: activities}
}

// CandidatePatch carries the fields of a partial update. Nil fields are left
// unchanged; provided collections replace the stored ones.
type CandidatePatch struct {
	OwnerID         *uuid.UUID                `json:"ownerId"`
	FirstName       *string                   `json:"firstName"`
	MiddleName      *string                   `json:"middleName"`
	LastName        *string                   `json:"lastName"`
	Emails          *[]model.CandidateEmail   `json:"emails"`
	Phones          *[]model.CandidatePhone   `json:"phones"`
	Addresses       *[]model.CandidateAddress `json:"addresses"`
	Skills          *[]string                 `json:"skills"`
	AreasOfInterest *[]string                 `json:"areasOfInterest"`
	Tags            *[]string                 `json:"tags"`
	SourceID        *int                      `json:"sourceId"`
	Objective       *string                   `json:"objective"`
	Summary         *string                   `json:"summary"`
	YearsExperience *int                      `json:"yearsExperience"`
}

// Apply copies the provided fields onto c
func (p *CandidatePatch) Apply(c *model.Candidate) {
	if p.OwnerID != nil {
		c.OwnerID = *p.OwnerID
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.MiddleName != nil {
		c.MiddleName = *p.MiddleName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Emails != nil {
		c.Emails = *p.Emails
	}
	if p.Phones != nil {
		c.Phones = *p.Phones
	}
	if p.Addresses != nil {
		c.Addresses = *p.Addresses
	}
	if p.Skills != nil {
		c.Skills = *p.Skills
	}
	if p.AreasOfInterest != nil {
		c.AreasOfInterest = *p.AreasOfInterest
	}
	if p.Tags != nil {
		c.Tags = *p.Tags
	}
	if p.SourceID != nil {
		c.SourceID = p.SourceID
	}
	if p.Objective != nil {
		c.Objective = *p.Objective
	}
	if p.Summary != nil {
		c.Summary = *p.Summary
	}
	if p.YearsExperience != nil {
		c.YearsExperience = *p.YearsExperience
	}
}

// NormalizeCandidate trims and validates a candidate in place: derives the
// formatted name, lowercases and dedups emails, and makes sure each of
// emails, phones and addresses has exactly one default entry
func NormalizeCandidate(c *model.Candidate) error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.MiddleName = strings.TrimSpace(c.MiddleName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.FormattedName = strings.Join(strings.Fields(c.FirstName+" "+c.MiddleName+" "+c.LastName), " ")
	c.Objective = strings.TrimSpace(c.Objective)
	c.Summary = strings.TrimSpace(c.Summary)

	if c.Status == "" {
		c.Status = model.CandidateStatusNew
	}
	if !model.ValidCandidateStatus(c.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrCandidateInvalid, c.Status)
	}

	emails := make([]model.CandidateEmail, 0, len(c.Emails))
	seen := make(map[string]bool)
	for _, e := range c.Emails {
		addr := strings.ToLower(strings.TrimSpace(e.Address))
		if addr == "" {
			continue
		}
		parsed, err := mail.ParseAddress(addr)
		if err != nil || parsed.Address != addr {
			return fmt.Errorf("%w: %q is not a valid email address", ErrCandidateInvalid, e.Address)
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		e.Address = addr
		e.Label = strings.TrimSpace(e.Label)
		emails = append(emails, e)
	}
	c.Emails = emails

	if c.FirstName == "" && c.LastName == "" && len(c.Emails) == 0 {
		return fmt.Errorf("%w: a first name, last name or email is required", ErrCandidateInvalid)
	}

	phones := make([]model.CandidatePhone, 0, len(c.Phones))
	for _, p := range c.Phones {
		p.Value = strings.TrimSpace(p.Value)
		if p.Value == "" {
			continue
		}
		p.Label = strings.TrimSpace(p.Label)
		phones = append(phones, p)
	}
	c.Phones = phones

	for i := range c.Addresses {
		a := &c.Addresses[i]
		a.City = strings.TrimSpace(a.City)
		a.State = strings.TrimSpace(a.State)
		a.ZipCode = strings.TrimSpace(a.ZipCode)
		a.Country = strings.TrimSpace(a.Country)
		if (a.Latitude == nil) != (a.Longitude == nil) {
			return fmt.Errorf("%w: address latitude and longitude must be given together", ErrCandidateInvalid)
		}
		if a.Latitude != nil && (*a.Latitude < -90 || *a.Latitude > 90 || *a.Longitude < -180 || *a.Longitude > 180) {
			return fmt.Errorf("%w: address coordinates out of range", ErrCandidateInvalid)
		}
	}
	if c.Addresses == nil {
		c.Addresses = []model.CandidateAddress{}
	}

	markDefault(len(c.Emails), func(i int) *bool { return &c.Emails[i].IsDefault })
	markDefault(len(c.Phones), func(i int) *bool { return &c.Phones[i].IsDefault })
	markDefault(len(c.Addresses), func(i int) *bool { return &c.Addresses[i].IsDefault })

	c.Skills = cleanList(c.Skills)
	c.AreasOfInterest = cleanList(c.AreasOfInterest)
	c.Tags = cleanList(c.Tags)

	if c.YearsExperience < 0 {
		return fmt.Errorf("%w: yearsExperience must not be negative", ErrCandidateInvalid)
	}
	if c.SourceID != nil && *c.SourceID <= 0 {
		return fmt.Errorf("%w: sourceId must be positive", ErrCandidateInvalid)
	}
	return nil
}

// markDefault keeps the first flagged entry as the only default, or flags the first entry
func markDefault(n int, flag func(i int) *bool) {
	found := false
	for i := 0; i < n; i++ {
		f := flag(i)
		if *f && !found {
			found = true
			continue
		}
		*f = false
	}
	if !found && n > 0 {
		*flag(0) = true
	}
}

// cleanList trims entries and drops blanks and case-insensitive duplicates
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool)
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func emailAddresses(c *model.Candidate) []string {
	out := make([]string, len(c.Emails))
	for i, e := range c.Emails {
		out[i] = e.Address
	}
	return out
}

func (s *CandidateService) checkEmails(ctx context.Context, domainID uuid.UUID, c *model.Candidate) error {
	taken, err := s.store.ExistingEmails(ctx, domainID, emailAddresses(c), c.ID)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, strings.Join(taken, ", "))
	}
	return nil
}

// checkOwner rejects an owner who is not a recruiter in the actor's domain
func (s *CandidateService) checkOwner(ctx context.Context, actor Actor, ownerID uuid.UUID) error {
	if ownerID == actor.UserID {
		return nil
	}
	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil || owner.DomainID != actor.DomainID {
		return fmt.Errorf("%w: owner %s is not a recruiter in this domain", ErrCandidateInvalid, ownerID)
	}
	return nil
}

// Create validates and stores one candidate
func (s *CandidateService) Create(ctx context.Context, actor Actor, c *model.Candidate) (*model.Candidate, error) {
	c.ID = uuid.Nil
	c.DomainID = actor.DomainID
	if c.OwnerID == uuid.Nil {
		c.OwnerID = actor.UserID
	}
	if err := NormalizeCandidate(c); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, actor, c.OwnerID); err != nil {
		return nil, err
	}
	if err := s.checkEmails(ctx, actor.DomainID, c); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	s.index(ctx, created)
	s.recordCandidate(ctx, actor, ActivityCandidateCreate, created, nil)
	return created, nil
}

// CreateBatch validates every candidate before storing any of them
func (s *CandidateService) CreateBatch(ctx context.Context, actor Actor, candidates []*model.Candidate) ([]*model.Candidate, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates given", ErrCandidateInvalid)
	}
	if len(candidates) > MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d candidates per batch", ErrCandidateInvalid, MaxBatchSize)
	}

	inBatch := make(map[string]bool)
	owners := make(map[uuid.UUID]bool)
	for i, c := range candidates {
		c.ID = uuid.Nil
		c.DomainID = actor.DomainID
		if c.OwnerID == uuid.Nil {
			c.OwnerID = actor.UserID
		}
		if err := NormalizeCandidate(c); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i+1, err)
		}
		if !owners[c.OwnerID] {
			if err := s.checkOwner(ctx, actor, c.OwnerID); err != nil {
				return nil, fmt.Errorf("candidate %d: %w", i+1, err)
			}
			owners[c.OwnerID] = true
		}
		for _, e := range emailAddresses(c) {
			if inBatch[e] {
				return nil, fmt.Errorf("candidate %d: %w: %s appears twice in the batch", i+1, ErrDuplicateEmail, e)
			}
			inBatch[e] = true
		}
		if err := s.checkEmails(ctx, actor.DomainID, c); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i+1, err)
		}
	}

	created, err := s.store.CreateBatch(ctx, candidates)
	if err != nil {
		return nil, err
	}

	s.index(ctx, created...)
	for _, c := range created {
		s.recordCandidate(ctx, actor, ActivityCandidateCreate, c, nil)
	}
	return created, nil
}

// Get returns a candidate of the actor's domain
func (s *CandidateService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Candidate, error) {
	c, err := s.store.FindByID(ctx, actor.DomainID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCandidateNotFound
	}
	return c, nil
}

// List returns a page of candidates, newest first
func (s *CandidateService) List(ctx context.Context, actor Actor, page, limit int) ([]model.Candidate, int, error) {
	return s.store.List(ctx, actor.DomainID, limit, (page-1)*limit)
}

// Update applies a partial update
func (s *CandidateService) Update(ctx context.Context, actor Actor, id uuid.UUID, patch *CandidatePatch) (*model.Candidate, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(c)
	if err := NormalizeCandidate(c); err != nil {
		return nil, err
	}
	if patch.OwnerID != nil {
		if err := s.checkOwner(ctx, actor, c.OwnerID); err != nil {
			return nil, err
		}
	}
	if patch.Emails != nil {
		if err := s.checkEmails(ctx, actor.DomainID, c); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrCandidateNotFound
	}

	s.index(ctx, updated)
	s.recordCandidate(ctx, actor, ActivityCandidateUpdate, updated, nil)
	return updated, nil
}

// Delete removes a candidate and its search document
func (s *CandidateService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, actor.DomainID, id); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			log.Warn().Err(err).Str("candidateId", id.String()).Msg("Failed to remove candidate from search index")
		}
	}
	s.recordCandidate(ctx, actor, ActivityCandidateDelete, c, nil)
	return nil
}

// ChangeStatus moves a candidate through the pipeline and records history
func (s *CandidateService) ChangeStatus(ctx context.Context, actor Actor, id uuid.UUID, status, note string) (*model.Candidate, error) {
	if !model.ValidCandidateStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrCandidateInvalid, status)
	}

	updated, from, err := s.store.UpdateStatus(ctx, actor.DomainID, id, actor.UserID, status, strings.TrimSpace(note))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrCandidateNotFound
	}

	s.index(ctx, updated)
	s.recordCandidate(ctx, actor, ActivityCandidateStatus, updated, map[string]any{
		"fromStatus": from,
		"toStatus":   status,
	})
	return updated, nil
}

// History returns a candidate's status changes
func (s *CandidateService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]model.StatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.GetHistory(ctx, id)
}

// Pipeline counts the domain's candidates per status; every status is present
func (s *CandidateService) Pipeline(ctx context.Context, actor Actor) (map[string]int, error) {
	counts, err := s.store.CountByStatus(ctx, actor.DomainID)
	if err != nil {
		return nil, err
	}
	for _, status := range model.CandidateStatuses {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

// AttachResume stores extracted resume text and reindexes
func (s *CandidateService) AttachResume(ctx context.Context, actor Actor, id uuid.UUID, text string) (*model.Candidate, error) {
	updated, err := s.store.UpdateResume(ctx, actor.DomainID, id, text)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrCandidateNotFound
	}

	s.index(ctx, updated)
	s.recordCandidate(ctx, actor, ActivityResumeUpload, updated, nil)
	return updated, nil
}

// ---- Notes ----

func (s *CandidateService) ListNotes(ctx context.Context, actor Actor, id uuid.UUID) ([]model.Note, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.notes.ListByCandidate(ctx, id)
}

func (s *CandidateService) AddNote(ctx context.Context, actor Actor, id uuid.UUID, content string) (*model.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrCandidateInvalid)
	}
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	note, err := s.notes.Create(ctx, id, actor.UserID, content)
	if err != nil {
		return nil, err
	}
	s.recordCandidate(ctx, actor, ActivityCandidateNote, c, nil)
	return note, nil
}

func (s *CandidateService) DeleteNote(ctx context.Context, actor Actor, candidateID, noteID uuid.UUID) error {
	if _, err := s.Get(ctx, actor, candidateID); err != nil {
		return err
	}
	return s.notes.Delete(ctx, candidateID, noteID, actor.UserID)
}

// ---- Import ----

// ImportResult summarises a bulk import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// maxImportErrors bounds the per-row messages returned to the caller
const maxImportErrors = 20

// Import stores parsed rows in batches. Rows that failed to parse or validate
// are counted as failed; rows whose email already exists (in the domain or
// earlier in the file) are skipped.
func (s *CandidateService) Import(ctx context.Context, actor Actor, rows []ImportRow) (*ImportResult, error) {
	res := &ImportResult{}
	seen := make(map[string]bool)

	fail := func(line int, err error) {
		res.Failed++
		if len(res.Errors) < maxImportErrors {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
		}
	}

	var pending []*model.Candidate
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		created, err := s.store.CreateBatch(ctx, pending)
		if err != nil {
			return err
		}
		res.Imported += len(created)
		s.index(ctx, created...)
		pending = nil
		return nil
	}

	for _, row := range rows {
		if row.Err != nil {
			fail(row.Line, row.Err)
			continue
		}
		c := row.Candidate
		c.DomainID = actor.DomainID
		if c.OwnerID == uuid.Nil {
			c.OwnerID = actor.UserID
		}
		if err := NormalizeCandidate(c); err != nil {
			fail(row.Line, err)
			continue
		}

		emails := emailAddresses(c)
		dup := false
		for _, e := range emails {
			if seen[e] {
				dup = true
			}
		}
		if !dup {
			taken, err := s.store.ExistingEmails(ctx, actor.DomainID, emails, uuid.Nil)
			if err != nil {
				return nil, err
			}
			dup = len(taken) > 0
		}
		if dup {
			res.Skipped++
			continue
		}
		for _, e := range emails {
			seen[e] = true
		}

		pending = append(pending, c)
		if len(pending) == MaxBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor.DomainID, actor.UserID, ActivityCandidateImport, "candidates", "", map[string]any{
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
	})

	log.Info().
		Str("domainId", actor.DomainID.String()).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Candidate import complete")

	return res, nil
}

func (s *CandidateService) index(ctx context.Context, candidates ...*model.Candidate) {
	if s.indexer == nil || len(candidates) == 0 {
		return
	}
	if err := s.indexer.Index(ctx, candidates...); err != nil {
		log.Warn().Err(err).Int("candidates", len(candidates)).Msg("Failed to index candidates")
	}
}

func (s *CandidateService) recordCandidate(ctx context.Context, actor Actor, typ int, c *model.Candidate, extra map[string]any) {
	params := map[string]any{"formattedName": displayName(c)}
	for k, v := range extra {
		params[k] = v
	}
	s.activities.Record(ctx, actor.DomainID, actor.UserID, typ, "candidates", c.ID.String(), params)
}

// displayName falls back to the default email for candidates without a name
func displayName(c *model.Candidate) string {
	if c.FormattedName != "" {
		return c.FormattedName
	}
	return c.DefaultEmail()
}
