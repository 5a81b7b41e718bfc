package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"lifeadmin-backend/internal/store"
	"lifeadmin-backend/internal/types"
)

// fakeGoogle serves the token and userinfo endpoints used during sign-in.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "good-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":          email,
			"email_verified": verified,
			"name":           "Robin",
		})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newOAuthEnv(t *testing.T, google *httptest.Server) *testEnv {
	t.Helper()
	env := newTestEnv(t, func(d *Deps) {
		d.Config.GoogleClientID = "client-id"
		d.Config.GoogleClientSecret = "client-secret"
		d.Config.OAuthRedirectURL = "http://api.test/api/auth/callback"
		d.Config.OAuthScopes = []string{"openid", "email"}
	})
	env.srv.oauthCfg.Endpoint = oauth2.Endpoint{
		AuthURL:   google.URL + "/auth",
		TokenURL:  google.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	env.srv.userInfoURL = google.URL + "/userinfo"
	return env
}

func loginState(t *testing.T, env *testEnv) string {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/auth/login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	u, err := url.Parse(resp.URL)
	require.NoError(t, err)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestLoginNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/auth/callback?state=x&code=y", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthSignIn(t *testing.T) {
	google := fakeGoogle(t, "robin@example.com", true)
	env := newOAuthEnv(t, google)
	state := loginState(t, env)

	rec := env.do(t, http.MethodGet, "/api/auth/callback?code=good-code&state="+state, "", nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "http://frontend.test?auth=success", rec.Header().Get("Location"))

	var session string
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			session = c.Value
			assert.True(t, c.HttpOnly)
			assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)
		}
	}
	require.NotEmpty(t, session)

	rec = env.do(t, http.MethodGet, "/api/auth/me", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "robin@example.com", me.Email)
	assert.Equal(t, "Robin", me.Name)

	// states are single use
	rec = env.do(t, http.MethodGet, "/api/auth/callback?code=good-code&state="+state, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackRejects(t *testing.T) {
	google := fakeGoogle(t, "robin@example.com", false)
	env := newOAuthEnv(t, google)

	rec := env.do(t, http.MethodGet, "/api/auth/callback?code=good-code", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/callback?code=good-code&state=forged", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/callback?error=access_denied", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.test?auth=denied", rec.Header().Get("Location"))

	// unverified Google email
	state := loginState(t, env)
	rec = env.do(t, http.MethodGet, "/api/auth/callback?code=good-code&state="+state, "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestStateCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newStateCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Put("a")
	c.Put("b")
	assert.True(t, c.Take("a"))
	assert.False(t, c.Take("a"))

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Take("b"))

	c.Put("c")
	assert.Len(t, c.entries, 1)
}

func TestSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, sessionToken(req))

	req.Header.Set("X-Session-Id", "from-header")
	assert.Equal(t, "from-header", sessionToken(req))

	req.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-bearer", sessionToken(req))

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", sessionToken(req))
}
