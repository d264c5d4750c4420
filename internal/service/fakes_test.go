package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

// recordedActivity is one call to fakeRecorder.Record
type recordedActivity struct {
	DomainID uuid.UUID
	UserID   uuid.UUID
	Type     int
	SourceID string
	Params   map[string]any
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedActivity
}

func (f *fakeRecorder) Record(_ context.Context, domainID, userID uuid.UUID, typ int, _, sourceID string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedActivity{DomainID: domainID, UserID: userID, Type: typ, SourceID: sourceID, Params: params})
}

func (f *fakeRecorder) types() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Type
	}
	return out
}

// fakeCandidateStore keeps candidates in memory, keyed by id
type fakeCandidateStore struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]*model.Candidate
	history    []model.StatusHistory
	batches    int
	createErr  error
}

func newFakeCandidateStore() *fakeCandidateStore {
	return &fakeCandidateStore{candidates: make(map[uuid.UUID]*model.Candidate)}
}

func (f *fakeCandidateStore) put(c *model.Candidate) *model.Candidate {
	cp := *c
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.AddedAt.IsZero() {
		cp.AddedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	f.candidates[cp.ID] = &cp
	out := cp
	return &out
}

func (f *fakeCandidateStore) Create(_ context.Context, c *model.Candidate) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.put(c), nil
}

func (f *fakeCandidateStore) CreateBatch(_ context.Context, cs []*model.Candidate) ([]*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.batches++
	out := make([]*model.Candidate, len(cs))
	for i, c := range cs {
		out[i] = f.put(c)
	}
	return out, nil
}

func (f *fakeCandidateStore) FindByID(_ context.Context, domainID, id uuid.UUID) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.DomainID != domainID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCandidateStore) List(_ context.Context, domainID uuid.UUID, limit, offset int) ([]model.Candidate, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Candidate
	for _, c := range f.candidates {
		if c.DomainID == domainID {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AddedAt.After(all[j].AddedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeCandidateStore) Update(_ context.Context, c *model.Candidate) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.candidates[c.ID]; !ok {
		return nil, nil
	}
	return f.put(c), nil
}

func (f *fakeCandidateStore) UpdateResume(_ context.Context, domainID, id uuid.UUID, text string) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.DomainID != domainID {
		return nil, nil
	}
	c.ResumeText = text
	cp := *c
	return &cp, nil
}

func (f *fakeCandidateStore) Delete(_ context.Context, domainID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.DomainID != domainID {
		return repository.ErrNotFound
	}
	delete(f.candidates, id)
	return nil
}

func (f *fakeCandidateStore) ExistingEmails(_ context.Context, domainID uuid.UUID, emails []string, excludeID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool)
	for _, e := range emails {
		want[strings.ToLower(e)] = true
	}
	var taken []string
	for _, c := range f.candidates {
		if c.DomainID != domainID || c.ID == excludeID {
			continue
		}
		for _, e := range c.Emails {
			if want[strings.ToLower(e.Address)] {
				taken = append(taken, e.Address)
			}
		}
	}
	return taken, nil
}

func (f *fakeCandidateStore) UpdateStatus(_ context.Context, domainID, id, userID uuid.UUID, newStatus, note string) (*model.Candidate, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok || c.DomainID != domainID {
		return nil, "", nil
	}
	from := c.Status
	c.Status = newStatus
	f.history = append(f.history, model.StatusHistory{
		ID: uuid.New(), CandidateID: id, UserID: userID, FromStatus: from, ToStatus: newStatus, Note: note, ChangedAt: time.Now(),
	})
	cp := *c
	return &cp, from, nil
}

func (f *fakeCandidateStore) GetHistory(_ context.Context, candidateID uuid.UUID) ([]model.StatusHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.StatusHistory
	for _, h := range f.history {
		if h.CandidateID == candidateID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeCandidateStore) CountByStatus(_ context.Context, domainID uuid.UUID) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, c := range f.candidates {
		if c.DomainID == domainID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

type fakeNoteStore struct {
	notes []model.Note
}

func (f *fakeNoteStore) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]model.Note, error) {
	var out []model.Note
	for _, n := range f.notes {
		if n.CandidateID == candidateID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNoteStore) Create(_ context.Context, candidateID, userID uuid.UUID, content string) (*model.Note, error) {
	n := model.Note{ID: uuid.New(), CandidateID: candidateID, UserID: userID, Content: content, CreatedAt: time.Now()}
	f.notes = append(f.notes, n)
	return &n, nil
}

func (f *fakeNoteStore) Delete(_ context.Context, candidateID, id, userID uuid.UUID) error {
	for i, n := range f.notes {
		if n.ID == id && n.CandidateID == candidateID && n.UserID == userID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	removed []uuid.UUID
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, candidates ...*model.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range candidates {
		f.indexed = append(f.indexed, c.ID)
	}
	return f.err
}

func (f *fakeIndexer) Remove(_ context.Context, ids ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ids...)
	return f.err
}

// fakeOwners resolves recruiters by id
type fakeOwners struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeOwners) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return f.users[id], nil
}

func newActor() Actor {
	return Actor{UserID: uuid.New(), DomainID: uuid.New()}
}
