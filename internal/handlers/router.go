package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/middleware"
	"github.com/keisuke70/tasklazy/internal/queue"
	"github.com/keisuke70/tasklazy/internal/scheduling"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
	"github.com/keisuke70/tasklazy/internal/services/oidc"
)

// ServiceName names the API in traces
const ServiceName = "tasklazy-api"

// RouterConfig carries everything the API router needs
type RouterConfig struct {
	Logger   *zap.Logger
	Version  string
	Tasks    database.TaskRepositoryInterface
	Users    database.UserRepositoryInterface
	Queue    queue.JobQueue
	Calendar calendar.FixedEventSource
	Verifier oidc.TokenVerifier
	Schedule scheduling.Options
	Health   map[string]Checker

	FrontendURL    string
	EnableHSTS     bool
	EnableTracing  bool
	RequestTimeout time.Duration
	// RateLimit wraps authenticated routes; nil disables limiting
	RateLimit func(http.Handler) http.Handler
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) *mux.Router {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, first registered outermost
	if cfg.EnableTracing {
		r.Use(otelmux.Middleware(ServiceName))
	}
	r.Use(middleware.Logging(log))
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	health := NewHealthChecker(cfg.Health)
	r.HandleFunc("/healthz", health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", VersionHandler(cfg.Version)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(cfg.Verifier, cfg.Users, log))
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}

	me := NewMeHandler(cfg.Users, log)
	api.HandleFunc("/me", me.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/me", me.UpdateMe).Methods(http.MethodPatch)

	// registered before /tasks/{id} so "parse" is not taken as an id
	parse := NewParseHandler(cfg.Queue, log)
	api.HandleFunc("/tasks/parse", parse.ParseTask).Methods(http.MethodPost)

	NewTaskHandler(cfg.Tasks, log).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	NewScheduleHandler(cfg.Tasks, cfg.Calendar, cfg.Schedule, log).RegisterRoutes(api.PathPrefix("/schedule").Subrouter())

	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
