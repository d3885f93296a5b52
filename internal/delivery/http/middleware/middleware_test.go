package middleware

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/auth"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: map[string]domain.Profile{}}
}

func (m *memProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProfiles) Set(_ context.Context, id string, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = p
	return nil
}

func (m *memProfiles) Update(context.Context, string, domain.ProfileUpdate) error { return nil }
func (m *memProfiles) Remove(context.Context, string) error                       { return nil }

// tokenVerifier accepts "token-<id>" for every id it knows.
type tokenVerifier map[string]auth.Claims

func (v tokenVerifier) Verify(token string) (*auth.Claims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &claims, nil
}

type fixture struct {
	profiles *memProfiles
	verifier tokenVerifier
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	profiles := newMemProfiles()
	return &fixture{
		profiles: profiles,
		verifier: tokenVerifier{},
		sessions: session.NewManager(session.NewMemoryKV(time.Hour), profiles, time.Hour),
	}
}

func (f *fixture) addUser(id string, role domain.Role, complete, approved bool) string {
	f.profiles.profiles[id] = domain.Profile{
		Name:            "User " + id,
		Email:           id + "@campus.edu",
		Role:            role,
		Campus:          "North Campus",
		ProfileComplete: complete,
		Approved:        approved,
	}
	token := "token-" + id
	f.verifier[token] = auth.Claims{Subject: id, Email: id + "@campus.edu", EmailVerified: true}
	return token
}

func (f *fixture) engine(guards ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(), SessionMiddleware(f.sessions, f.verifier, SessionConfig{CookieMaxAge: time.Hour}))
	handlers := append(guards, func(c *gin.Context) {
		response.Success(c, http.StatusOK, "ok", gin.H{
			"userId": c.GetString(string(domain.KeyUserID)),
			"role":   c.GetString(string(domain.KeyUserRole)),
			"token":  AccessToken(c),
			"sid":    SessionFrom(c).ID(),
		})
	})
	r.GET("/guarded", handlers...)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (response.Response, map[string]interface{}) {
	t.Helper()
	var body struct {
		response.Response
		Data  map[string]interface{} `json:"data"`
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	if body.Error != nil {
		return body.Response, body.Error
	}
	return body.Response, body.Data
}

func get(r http.Handler, path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("RequestID")) })

	w := get(r, "/")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	id := uuid.NewString()
	w = get(r, "/", func(req *http.Request) { req.Header.Set(RequestIDHeader, id) })
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	w = get(r, "/", func(req *http.Request) { req.Header.Set(RequestIDHeader, "<script>") })
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("mints a session cookie for new clients", func(t *testing.T) {
		f := newFixture(t)
		w := get(f.engine(), "/guarded")
		require.Equal(t, http.StatusOK, w.Code)

		var sid string
		for _, c := range w.Result().Cookies() {
			if c.Name == SessionCookieName {
				sid = c.Value
				assert.True(t, c.HttpOnly)
			}
		}
		assert.True(t, session.ValidID(sid))

		_, data := decode(t, w)
		assert.Equal(t, sid, data["sid"])
		assert.Empty(t, data["userId"])
	})

	t.Run("reuses the session named by the cookie", func(t *testing.T) {
		f := newFixture(t)
		sid := session.NewID()
		cookie := func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sid}) }

		r := f.engine()
		for i := 0; i < 2; i++ {
			_, data := decode(t, get(r, "/guarded", cookie))
			assert.Equal(t, sid, data["sid"])
		}
		assert.Equal(t, 1, f.sessions.Len())
	})

	t.Run("bearer token signs the user in", func(t *testing.T) {
		f := newFixture(t)
		token := f.addUser("u1", domain.RoleBuyer, true, true)

		w := get(f.engine(), "/guarded", bearer(token))
		_, data := decode(t, w)
		assert.Equal(t, "u1", data["userId"])
		assert.Equal(t, "buyer", data["role"])
		assert.Equal(t, token, data["token"])
	})

	t.Run("auth cookie works like the header", func(t *testing.T) {
		f := newFixture(t)
		token := f.addUser("u2", domain.RoleSeller, true, true)

		w := get(f.engine(), "/guarded", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
		})
		_, data := decode(t, w)
		assert.Equal(t, "u2", data["userId"])
	})

	t.Run("invalid token leaves the request signed out", func(t *testing.T) {
		f := newFixture(t)
		w := get(f.engine(), "/guarded", bearer("forged"))
		_, data := decode(t, w)
		assert.Empty(t, data["userId"])
		assert.Empty(t, data["token"])
	})
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	buyerToken := f.addUser("buyer", domain.RoleBuyer, true, true)
	sellerToken := f.addUser("seller", domain.RoleSeller, true, true)
	pendingToken := f.addUser("pending", domain.RoleSeller, true, false)
	incompleteToken := f.addUser("incomplete", domain.RoleBuyer, false, true)

	buyers := f.engine(RequireRole(domain.RoleBuyer, "/checkout", nil))
	sellers := f.engine(RequireRole(domain.RoleSeller, "/seller-dashboard", nil))

	t.Run("signed out", func(t *testing.T) {
		w := get(buyers, "/guarded")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		_, detail := decode(t, w)
		assert.Equal(t, apperror.KindNotAuthenticated, detail["kind"])
		assert.Equal(t, "redirect_login", detail["decision"])
		assert.Equal(t, session.PathLogin, detail["redirect"])
	})

	t.Run("role mismatch", func(t *testing.T) {
		w := get(buyers, "/guarded", bearer(sellerToken))
		assert.Equal(t, http.StatusForbidden, w.Code)
		_, detail := decode(t, w)
		assert.Equal(t, "redirect_home", detail["decision"])
	})

	t.Run("incomplete profile", func(t *testing.T) {
		w := get(buyers, "/guarded", bearer(incompleteToken))
		assert.Equal(t, http.StatusForbidden, w.Code)
		_, detail := decode(t, w)
		assert.Equal(t, session.PathCompleteProfile, detail["redirect"])
	})

	t.Run("unapproved seller", func(t *testing.T) {
		w := get(sellers, "/guarded", bearer(pendingToken))
		assert.Equal(t, http.StatusForbidden, w.Code)
		_, detail := decode(t, w)
		assert.Equal(t, session.PathWaitingApproval, detail["redirect"])
	})

	t.Run("allowed", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(buyers, "/guarded", bearer(buyerToken)).Code)
		assert.Equal(t, http.StatusOK, get(sellers, "/guarded", bearer(sellerToken)).Code)
	})

	t.Run("signed-in guard tolerates an incomplete profile", func(t *testing.T) {
		r := f.engine(RequireSignedIn())
		assert.Equal(t, http.StatusOK, get(r, "/guarded", bearer(incompleteToken)).Code)
	})
}

func TestRequireIdentity(t *testing.T) {
	f := newFixture(t)
	buyerToken := f.addUser("buyer", domain.RoleBuyer, true, true)
	// Verified identity with no profile yet
	f.verifier["token-newcomer"] = auth.Claims{Subject: "newcomer", Email: "newcomer@campus.edu", EmailVerified: true}

	identities := f.engine(RequireIdentity())
	members := f.engine(RequireSignedIn())

	t.Run("signed out", func(t *testing.T) {
		w := get(identities, "/guarded")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		_, detail := decode(t, w)
		assert.Equal(t, apperror.KindNotAuthenticated, detail["kind"])
		assert.Equal(t, session.PathLogin, detail["redirect"])
	})

	t.Run("identity without a profile", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(identities, "/guarded", bearer("token-newcomer")).Code)
		assert.Equal(t, http.StatusUnauthorized, get(members, "/guarded", bearer("token-newcomer")).Code)
	})

	t.Run("existing user", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(identities, "/guarded", bearer(buyerToken)).Code)
	})
}

func TestCSRFMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CSRFMiddleware(false, nil))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/v1/cart", ok)
	r.POST("/v1/cart/items", ok)
	r.POST("/v1/auth/login", ok)

	w := get(r, "/v1/cart")
	require.Equal(t, http.StatusNoContent, w.Code)
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == CSRFTokenCookieName {
			token = c.Value
			assert.False(t, c.HttpOnly)
		}
	}
	require.Len(t, token, CSRFTokenLength*2)

	post := func(path string, mutate func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.AddCookie(&http.Cookie{Name: CSRFTokenCookieName, Value: token})
		if mutate != nil {
			mutate(req)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, post("/v1/cart/items", nil))
	assert.Equal(t, http.StatusForbidden, post("/v1/cart/items", func(req *http.Request) {
		req.Header.Set(CSRFTokenHeaderName, "nope")
	}))
	assert.Equal(t, http.StatusNoContent, post("/v1/cart/items", func(req *http.Request) {
		req.Header.Set(CSRFTokenHeaderName, token)
	}))
	assert.Equal(t, http.StatusNoContent, post("/v1/cart/items", bearer("anything")))
	assert.Equal(t, http.StatusNoContent, post("/v1/auth/login", nil))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) { c.Error(apperror.Conflict("Item p1 is no longer available")) })
	r.GET("/identity", func(c *gin.Context) {
		c.Error(apperror.Identity(http.StatusUnauthorized, apperror.KindInvalidCredentials, "Invalid email or password", nil))
	})
	r.GET("/boom", func(c *gin.Context) { c.Error(errors.New("pq: relation missing")) })

	w := get(r, "/conflict")
	assert.Equal(t, http.StatusConflict, w.Code)
	resp, _ := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Item p1 is no longer available", resp.Message)
	assert.NotEmpty(t, resp.RequestID)

	w = get(r, "/identity")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, detail := decode(t, w)
	assert.Equal(t, apperror.KindInvalidCredentials, detail["kind"])

	w = get(r, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation missing")
}
