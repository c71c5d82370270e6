package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/config"
	"github.com/Keyring-Network/keyring-notes/internal/events"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
	"github.com/Keyring-Network/keyring-notes/internal/store"
)

const ownerHeader = "X-Owner-ID"

type Server struct {
	store     store.Store
	broker    Broker
	assistant Assistant
	planner   Planner
	cfg       config.Config
	logger    *zap.Logger
	now       func() time.Time
}

type Broker interface {
	Subscribe(ctx context.Context, ownerID string) <-chan events.AssistantEvent
}

type Assistant interface {
	AnswerQuestion(ctx context.Context, ownerID string, input assistant.AskInput) (assistant.Answer, error)
}

// Planner runs planning turns either in-process or through the workflow service.
type Planner interface {
	PlanningTurn(ctx context.Context, ownerID string, input assistant.PlanInput) (assistant.PlanningResult, error)
	ConfirmTags(ctx context.Context, ownerID string, input assistant.ConfirmInput) (assistant.PlanningResult, error)
}

func NewServer(store store.Store, broker Broker, assistant Assistant, planner Planner, cfg config.Config, logger *zap.Logger) *Server {
	return &Server{
		store:     store,
		broker:    broker,
		assistant: assistant,
		planner:   planner,
		cfg:       cfg,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if s.cfg.RequestLog {
		r.Use(quietRequestLogger)
	}
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(requireOwner)
		r.Post("/assistant/ask", s.ask)
		r.Post("/assistant/plan", s.plan)
		r.Post("/assistant/plan/confirm", s.confirm)
		r.Get("/assistant/events", s.streamEvents)
		r.Post("/fragments", s.ingestFragments)
		r.Post("/resources", s.createResource)
		r.Get("/tags", s.listTags)
		r.Post("/tags", s.createTag)
		r.Get("/calendar.ics", s.calendarFeed)
	})
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if method == http.MethodGet && strings.HasSuffix(cleanPath, "/events") {
		return true
	}
	if method == http.MethodGet && (cleanPath == "/health" || cleanPath == "/ready") {
		return true
	}
	return method == http.MethodOptions
}

type ownerKey struct{}

func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(ownerHeader))
		if ownerID == "" {
			http.Error(w, "missing "+ownerHeader+" header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, ownerID)))
	})
}

func ownerFrom(ctx context.Context) string {
	ownerID, _ := ctx.Value(ownerKey{}).(string)
	return ownerID
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		subsystems["store"] = subsystemStatus{Status: "error", Error: err.Error()}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["store"] = subsystemStatus{Status: "ok"}
	}
	if s.planner == nil {
		subsystems["planner"] = subsystemStatus{Status: "skipped"}
	} else {
		subsystems["planner"] = subsystemStatus{Status: "ok"}
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

func writeJSON(w http.ResponseWriter, value any) {
	writeJSONStatus(w, value, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID, "+ownerHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server.ListenAndServe()
}
