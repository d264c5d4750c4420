package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/talentpool-api/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if t, ok := f.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("token expired")
}

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) FindByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	return f.users[uid], f.err
}

type fakePlans struct {
	plan string
	err  error
}

func (f *fakePlans) PlanForDomain(context.Context, uuid.UUID) (string, error) {
	return f.plan, f.err
}

func perform(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*auth.Token{
		"good":     {UID: "uid-1", Claims: map[string]interface{}{"email": "rec@acme.io"}},
		"verified": {UID: "uid-2", Claims: map[string]interface{}{"email": "ada@acme.io", "email_verified": true}},
	}}

	r := gin.New()
	r.GET("/", NewAuthMiddlewareWithVerifier(verifier).Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": GetFirebaseUID(c), "email": GetEmail(c), "verified": EmailVerified(c)})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := perform(r, "Bearer good")
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "uid-1", body["uid"])
	assert.Equal(t, "rec@acme.io", body["email"])
	assert.Equal(t, false, body["verified"])

	w = perform(r, "Bearer verified")
	body = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "uid-2", body["uid"])
	assert.Equal(t, true, body["verified"])
}

func TestResolveUser(t *testing.T) {
	user := &model.User{ID: uuid.New(), DomainID: uuid.New()}
	users := &fakeUsers{users: map[string]*model.User{"uid-1": user}}

	newRouter := func(uid string, lookup UserLookup) *gin.Engine {
		r := gin.New()
		r.GET("/", func(c *gin.Context) {
			if uid != "" {
				c.Set(ContextKeyFirebaseUID, uid)
			}
		}, ResolveUser(lookup), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user": GetUserID(c), "domain": GetDomainID(c)})
		})
		return r
	}

	t.Run("known user", func(t *testing.T) {
		w := perform(newRouter("uid-1", users), "")
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, user.ID.String(), body["user"])
		assert.Equal(t, user.DomainID.String(), body["domain"])
	})

	t.Run("unknown user passes through", func(t *testing.T) {
		w := perform(newRouter("uid-2", users), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":"","domain":""}`, w.Body.String())
	})

	t.Run("lookup failure", func(t *testing.T) {
		w := perform(newRouter("uid-1", &fakeUsers{err: errors.New("db down")}), "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRequirePlan(t *testing.T) {
	domain := uuid.New()

	newRouter := func(withDomain bool, plans PlanResolver) *gin.Engine {
		r := gin.New()
		r.GET("/", func(c *gin.Context) {
			if withDomain {
				c.Set(ContextKeyDomainID, domain.String())
			}
		}, RequirePlan(model.PlanPro, plans), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	tests := []struct {
		name       string
		withDomain bool
		plans      *fakePlans
		status     int
	}{
		{"no domain", false, &fakePlans{plan: model.PlanPro}, http.StatusUnauthorized},
		{"free plan", true, &fakePlans{plan: model.PlanFree}, http.StatusPaymentRequired},
		{"pro plan", true, &fakePlans{plan: model.PlanPro}, http.StatusNoContent},
		{"pro plus plan", true, &fakePlans{plan: model.PlanProPlus}, http.StatusNoContent},
		{"lookup failure", true, &fakePlans{err: errors.New("db down")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(newRouter(tt.withDomain, tt.plans), "")
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := perform(newRouter(true, &fakePlans{plan: model.PlanFree}), "")
	assert.JSONEq(t, `{"error":"upgrade_required","requiredPlan":"pro","currentPlan":"free"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1) // burst of 2
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set(ContextKeyFirebaseUID, c.GetHeader("X-Test-User"))
	}, rl.Limit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Test-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	// Buckets are per user
	assert.Equal(t, http.StatusOK, call("b"))
}

func TestRateLimiterEvict(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 5)
	rl.getLimiter("idle")
	rl.getLimiter("busy")
	rl.visitors["idle"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)

	rl.evict(time.Now())

	assert.NotContains(t, rl.visitors, "idle")
	assert.Contains(t, rl.visitors, "busy")
}
