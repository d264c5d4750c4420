package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/talentpool-api/internal/middleware"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

// fakeUsers keeps recruiters by Firebase UID; invites maps domain → pending emails
type fakeUsers struct {
	byUID   map[string]*model.User
	invites map[uuid.UUID]map[string]bool
	domains map[uuid.UUID]string
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byUID:   make(map[string]*model.User),
		invites: make(map[uuid.UUID]map[string]bool),
		domains: make(map[uuid.UUID]string),
	}
}

func (f *fakeUsers) FindByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUID[uid], nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byUID {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(_ context.Context, uid, email, name, domainName string) (*model.User, error) {
	domainID := uuid.New()
	f.domains[domainID] = domainName
	u := &model.User{ID: uuid.New(), FirebaseUID: uid, DomainID: domainID, Email: email, Name: name, Role: model.RoleAdmin}
	f.byUID[uid] = u
	return u, nil
}

func (f *fakeUsers) JoinByInvite(_ context.Context, uid, email, name string, domainID uuid.UUID) (*model.User, error) {
	pending := f.invites[domainID]
	if !pending[strings.ToLower(email)] {
		return nil, repository.ErrNotFound
	}
	delete(pending, strings.ToLower(email))
	u := &model.User{ID: uuid.New(), FirebaseUID: uid, DomainID: domainID, Email: email, Name: name, Role: model.RoleRecruiter}
	f.byUID[uid] = u
	return u, nil
}

func (f *fakeUsers) UpdateName(_ context.Context, id uuid.UUID, name string) (*model.User, error) {
	u, _ := f.FindByID(context.Background(), id)
	if u != nil {
		u.Name = name
	}
	return u, nil
}

// withToken sets the context keys Authenticate would set
func withToken(uid, email string, verified bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyFirebaseUID, uid)
		if email != "" {
			c.Set(middleware.ContextKeyEmail, email)
		}
		if verified {
			c.Set(middleware.ContextKeyEmailVerified, true)
		}
		c.Next()
	}
}

func signIn(users *fakeUsers, uid, email string, verified bool, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/auth/google", withToken(uid, email, verified), NewAuthHandler(users).GoogleSignIn)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestGoogleSignIn(t *testing.T) {
	victimDomain := uuid.New()

	tests := []struct {
		name     string
		uid      string
		email    string
		verified bool
		body     string
		invited  string
		status   int
		check    func(t *testing.T, users *fakeUsers, body map[string]any)
	}{
		{
			name: "first sign-in creates a domain named after the email host",
			uid: "uid-new", email: "Ada@Acme.IO", verified: true,
			body:   `{"name":"  Ada  "}`,
			status: http.StatusCreated,
			check: func(t *testing.T, users *fakeUsers, body map[string]any) {
				u := users.byUID["uid-new"]
				require.NotNil(t, u)
				assert.Equal(t, "acme.io", users.domains[u.DomainID])
				assert.Equal(t, "Ada", u.Name)
				assert.Equal(t, model.RoleAdmin, body["role"])
			},
		},
		{
			name: "empty body still signs up",
			uid: "uid-bare", email: "",
			status: http.StatusCreated,
			check: func(t *testing.T, users *fakeUsers, _ map[string]any) {
				u := users.byUID["uid-bare"]
				require.NotNil(t, u)
				assert.Equal(t, "My Team", users.domains[u.DomainID])
			},
		},
		{
			name: "joining without an invite is refused",
			uid: "uid-mallory", email: "mallory@evil.example", verified: true,
			body:   `{"domainId":"` + victimDomain.String() + `"}`,
			status: http.StatusForbidden,
			check: func(t *testing.T, users *fakeUsers, _ map[string]any) {
				assert.Nil(t, users.byUID["uid-mallory"])
			},
		},
		{
			name: "unverified email cannot claim an invite",
			uid: "uid-grace", email: "grace@acme.io", verified: false,
			body:    `{"domainId":"` + victimDomain.String() + `"}`,
			invited: "grace@acme.io",
			status:  http.StatusForbidden,
			check: func(t *testing.T, users *fakeUsers, _ map[string]any) {
				assert.Nil(t, users.byUID["uid-grace"])
				assert.True(t, users.invites[victimDomain]["grace@acme.io"], "invite stays pending")
			},
		},
		{
			name: "pending invite joins the domain",
			uid: "uid-grace", email: "Grace@Acme.io", verified: true,
			body:    `{"domainId":"` + victimDomain.String() + `"}`,
			invited: "grace@acme.io",
			status:  http.StatusCreated,
			check: func(t *testing.T, users *fakeUsers, body map[string]any) {
				u := users.byUID["uid-grace"]
				require.NotNil(t, u)
				assert.Equal(t, victimDomain, u.DomainID)
				assert.Equal(t, model.RoleRecruiter, body["role"])
				assert.Empty(t, users.invites[victimDomain], "invite is consumed")
			},
		},
		{
			name: "malformed domain id",
			uid: "uid-x", email: "x@acme.io", verified: true,
			body:   `{"domainId":"not-a-uuid"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUsers()
			if tt.invited != "" {
				users.invites[victimDomain] = map[string]bool{tt.invited: true}
			}

			w := signIn(users, tt.uid, tt.email, tt.verified, tt.body)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, users, decode(t, w))
			}
		})
	}
}

func TestGoogleSignInReturnsExistingUser(t *testing.T) {
	users := newFakeUsers()
	existing := &model.User{ID: uuid.New(), FirebaseUID: "uid-1", DomainID: uuid.New(), Role: model.RoleRecruiter}
	users.byUID["uid-1"] = existing

	w := signIn(users, "uid-1", "rec@acme.io", true, `{"domainId":"`+uuid.New().String()+`"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, existing.ID.String(), decode(t, w)["id"])
	assert.Len(t, users.byUID, 1)
}

func TestGoogleSignInErrors(t *testing.T) {
	users := newFakeUsers()
	w := signIn(users, "", "", false, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	users.err = errors.New("connection refused")
	w = signIn(users, "uid-1", "a@b.io", true, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal error", decode(t, w)["error"])
}

func TestDomainNameFor(t *testing.T) {
	assert.Equal(t, "acme.io", domainNameFor("ada@ACME.io"))
	assert.Equal(t, "My Team", domainNameFor("no-at-sign"))
	assert.Equal(t, "My Team", domainNameFor("trailing@"))
	assert.Equal(t, "My Team", domainNameFor(""))
}

type fakeInvites struct {
	invites []model.Invite
}

func (f *fakeInvites) Create(_ context.Context, domainID, invitedBy uuid.UUID, email string) (*model.Invite, error) {
	i := model.Invite{ID: uuid.New(), DomainID: domainID, Email: strings.ToLower(email), InvitedBy: invitedBy, CreatedAt: time.Now()}
	f.invites = append(f.invites, i)
	return &i, nil
}

func (f *fakeInvites) ListPending(_ context.Context, domainID uuid.UUID) ([]model.Invite, error) {
	var out []model.Invite
	for _, i := range f.invites {
		if i.DomainID == domainID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeInvites) Revoke(_ context.Context, domainID, id uuid.UUID) error {
	for n, i := range f.invites {
		if i.ID == id && i.DomainID == domainID {
			f.invites = append(f.invites[:n], f.invites[n+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func TestInviteHandler(t *testing.T) {
	users := newFakeUsers()
	admin := &model.User{ID: uuid.New(), DomainID: uuid.New(), Role: model.RoleAdmin}
	member := &model.User{ID: uuid.New(), DomainID: admin.DomainID, Role: model.RoleRecruiter}
	users.byUID["uid-admin"] = admin
	users.byUID["uid-member"] = member
	invites := &fakeInvites{}
	h := NewInviteHandler(users, invites)

	do := func(u *model.User, method, path, body string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(withActor(u.ID, u.DomainID))
		r.GET("/domain/invites", h.List)
		r.POST("/domain/invites", h.Create)
		r.DELETE("/domain/invites/:inviteId", h.Revoke)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := do(member, http.MethodPost, "/domain/invites", `{"email":"grace@acme.io"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, invites.invites)

	w = do(admin, http.MethodPost, "/domain/invites", `{"email":"Grace <grace@acme.io>"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(admin, http.MethodPost, "/domain/invites", `{"email":"Grace@Acme.io"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, invites.invites, 1)
	assert.Equal(t, admin.DomainID, invites.invites[0].DomainID)
	assert.Equal(t, admin.ID, invites.invites[0].InvitedBy)

	w = do(admin, http.MethodGet, "/domain/invites", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grace@acme.io")

	w = do(admin, http.MethodDelete, "/domain/invites/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(admin, http.MethodDelete, "/domain/invites/"+invites.invites[0].ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, invites.invites)
}
