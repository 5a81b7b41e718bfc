package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"lifeadmin-backend/internal/logging"
	"lifeadmin-backend/internal/store"
	"lifeadmin-backend/internal/types"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	oauthStateTTL     = 10 * time.Minute
)

var errUnauthenticated = errors.New("not authenticated")

type userKey struct{}

// userFrom returns the user resolved by authenticate.
func userFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey{}).(*store.User)
	return u
}

// authenticate resolves the caller and rejects the request with 401 when nobody is signed in.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.resolveUser(r)
		if errors.Is(err, errUnauthenticated) {
			s.writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, u)
		ctx = logging.WithUserID(ctx, u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveUser(r *http.Request) (*store.User, error) {
	ctx := r.Context()
	if tok := sessionToken(r); tok != "" {
		sess, err := s.store.GetSession(ctx, tok)
		switch {
		case err == nil:
			u, err := s.store.GetUser(ctx, sess.UserID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, errUnauthenticated
			}
			return u, err
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	if s.cfg.DevUserEmail != "" {
		return s.devUser(ctx)
	}
	return nil, errUnauthenticated
}

// devUser returns the DEV_USER_EMAIL account, creating it on first use.
func (s *Server) devUser(ctx context.Context) (*store.User, error) {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	if s.dev != nil {
		u := *s.dev
		return &u, nil
	}
	u, err := s.store.UpsertUser(ctx, s.cfg.DevUserEmail, "Developer")
	if err != nil {
		return nil, err
	}
	s.dev = u
	out := *u
	return &out, nil
}

// stateCache remembers issued OAuth states until they are used or expire.
type stateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

func newStateCache(ttl time.Duration) *stateCache {
	return &stateCache{ttl: ttl, now: time.Now, entries: make(map[string]time.Time)}
}

func (c *stateCache) Put(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, k)
		}
	}
	c.entries[state] = now.Add(c.ttl)
}

// Take consumes state, reporting whether it was issued and is still fresh.
func (c *stateCache) Take(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[state]
	if !ok {
		return false
	}
	delete(c.entries, state)
	return c.now().Before(exp)
}

func randomState() string {
	var b [24]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// GET /api/auth/login
// Starts Google sign-in and returns { url } for the browser to open
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OAuthEnabled() {
		s.writeError(w, http.StatusBadRequest, "google oauth not configured")
		return
	}
	state := randomState()
	s.states.Put(state)
	s.writeJSON(w, http.StatusOK, types.LoginResponse{URL: s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline)})
}

// GET /api/auth/callback?code=...&state=...
// Exchanges the code, signs the Google account in and redirects to the frontend
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OAuthEnabled() {
		s.writeError(w, http.StatusBadRequest, "google oauth not configured")
		return
	}
	q := r.URL.Query()
	if q.Get("error") != "" {
		http.Redirect(w, r, s.cfg.FrontendURL+"?auth=denied", http.StatusFound)
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		s.writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	if !s.states.Take(state) {
		s.writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	log := logging.For(ctx, s.log)

	tok, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		log.Warn("oauth token exchange failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	info, err := s.fetchGoogleUser(ctx, tok)
	if err != nil {
		log.Warn("google userinfo failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "failed to fetch Google profile")
		return
	}

	u, err := s.store.UpsertUser(ctx, info.Email, info.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.store.CreateSession(ctx, u.ID, s.cfg.SessionTTL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	log.Info("user signed in", zap.String("user.id", u.ID))

	SetSessionCookie(w, sess.ID, s.cfg.SessionTTL, s.cfg.SecureCookies)
	http.Redirect(w, r, s.cfg.FrontendURL+"?auth=success", http.StatusFound)
}

type googleUser struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (s *Server) fetchGoogleUser(ctx context.Context, tok *oauth2.Token) (*googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.oauthCfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}
	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	info.Email = strings.TrimSpace(info.Email)
	if info.Email == "" || !info.EmailVerified {
		return nil, errors.New("google account has no verified email")
	}
	return &info, nil
}

// POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok := sessionToken(r); tok != "" {
		if err := s.store.DeleteSession(r.Context(), tok); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.fail(w, r, err)
			return
		}
	}
	ClearSessionCookie(w, s.cfg.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
