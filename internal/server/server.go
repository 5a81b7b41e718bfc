package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"lifeadmin-backend/internal/actions"
	"lifeadmin-backend/internal/assistant"
	"lifeadmin-backend/internal/config"
	"lifeadmin-backend/internal/logging"
	"lifeadmin-backend/internal/notify"
	"lifeadmin-backend/internal/store"
	"lifeadmin-backend/internal/types"
)

const maxBodyBytes = 1 << 20

// Deps are the components the HTTP layer is built on.
type Deps struct {
	Config    config.Config
	Log       *zap.Logger
	Store     store.Backend
	Actions   *actions.Service
	Assistant *assistant.Service
	// Events feeds GET /api/notifications/stream; nil disables the stream.
	Events notify.Subscriber
	// Storage names the backend reported by the health check.
	Storage string
	// Health is optional; when set its failure turns the health check into 503.
	Health func(context.Context) error
}

type Server struct {
	router    *chi.Mux
	cfg       config.Config
	log       *zap.Logger
	store     store.Backend
	actions   *actions.Service
	assistant *assistant.Service
	events    notify.Subscriber
	storage   string
	health    func(context.Context) error

	oauthCfg    *oauth2.Config
	userInfoURL string
	states      *stateCache
	limiter     *userLimiter

	devMu sync.Mutex
	dev   *store.User
}

func NewServer(d Deps) (*Server, error) {
	if d.Store == nil || d.Actions == nil || d.Assistant == nil {
		return nil, errors.New("server: store, actions and assistant are required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Storage == "" {
		d.Storage = "memory"
	}
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true, // Enable credentials for cookies
		MaxAge:           300,
	}))

	s := &Server{
		router:    r,
		cfg:       d.Config,
		log:       d.Log.Named("http"),
		store:     d.Store,
		actions:   d.Actions,
		assistant: d.Assistant,
		events:    d.Events,
		storage:   d.Storage,
		health:    d.Health,
		// OAuth2 config (may be empty if env not set; handlers check OAuthEnabled)
		oauthCfg: &oauth2.Config{
			ClientID:     d.Config.GoogleClientID,
			ClientSecret: d.Config.GoogleClientSecret,
			RedirectURL:  d.Config.OAuthRedirectURL,
			Scopes:       d.Config.OAuthScopes,
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		states:      newStateCache(oauthStateTTL),
		limiter:     newUserLimiter(d.Config.ChatRatePerMinute),
	}

	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Google sign-in
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Post("/logout", s.handleLogout)
		r.With(s.authenticate).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Patch("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Post("/{id}/complete", s.handleCompleteTask)
		})
		r.Route("/api/bills", func(r chi.Router) {
			r.Get("/", s.handleListBills)
			r.Post("/", s.handleCreateBill)
			r.Get("/{id}", s.handleGetBill)
			r.Patch("/{id}", s.handleUpdateBill)
			r.Delete("/{id}", s.handleDeleteBill)
			r.Post("/{id}/pay", s.handlePayBill)
		})
		r.Route("/api/habits", func(r chi.Router) {
			r.Get("/", s.handleListHabits)
			r.Post("/", s.handleCreateHabit)
			r.Patch("/{id}", s.handleUpdateHabit)
			r.Delete("/{id}", s.handleDeleteHabit)
			r.Post("/{id}/complete", s.handleCompleteHabit)
			r.Get("/{id}/logs", s.handleHabitLogs)
		})
		r.Route("/api/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleCreateDocument)
			r.Get("/{id}", s.handleGetDocument)
			r.Patch("/{id}", s.handleUpdateDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/stream", s.handleNotificationStream)
			r.Post("/read-all", s.handleReadAllNotifications)
			r.Post("/{id}/read", s.handleReadNotification)
			r.Delete("/{id}", s.handleDeleteNotification)
		})

		// Assistant
		r.With(s.limitChat).Post("/api/chat", s.handleChat)
		r.Get("/api/conversations", s.handleListConversations)
		r.Get("/api/conversations/{id}/messages", s.handleConversationMessages)
		r.Delete("/api/conversations/{id}", s.handleDeleteConversation)
		r.Get("/api/ai-actions", s.handleAIActions)
		r.Get("/api/dashboard", s.handleDashboard)
	})
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok", Storage: s.storage, Provider: s.assistant.ProviderName()}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			logging.For(ctx, s.log).Warn("health check failed", zap.Error(err))
			resp.Status = "degraded"
			s.writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// fail maps a service error onto a status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *actions.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		logging.For(r.Context(), s.log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v, answering 400 itself when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// list never encodes a nil slice as null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
