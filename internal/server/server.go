package server

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/chrono24"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/ebay"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

//go:embed web
var WebFS embed.FS

const maxRequestBodyBytes = 8 << 20

// Config wires the server to its collaborators. DB and EBay are optional;
// routes that need a missing collaborator answer 503.
type Config struct {
	DB       *storage.DB
	Chrono24 *chrono24.Source
	EBay     *ebay.Client
	EBayAuth marketplace.AuthConfig
	Username string
	Password string
	Log      logrus.FieldLogger
	Registry *prometheus.Registry
}

type Server struct {
	db       *storage.DB
	chrono24 *chrono24.Source
	ebay     *ebay.Client
	ebayAuth marketplace.AuthConfig
	username string
	password string
	log      logrus.FieldLogger
	metrics  *metrics
	router   *chi.Mux
}

func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		db:       cfg.DB,
		chrono24: cfg.Chrono24,
		ebay:     cfg.EBay,
		ebayAuth: cfg.EBayAuth,
		username: cfg.Username,
		password: cfg.Password,
		log:      log,
		metrics:  newMetrics(reg),
		router:   chi.NewRouter(),
	}
	if s.chrono24 == nil {
		s.chrono24 = chrono24.New(nil)
	}
	s.chrono24.OnReport = s.metrics.observeExtraction
	s.routes(reg)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler(reg))

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)

		r.Post("/api/price/chrono24", s.handleChrono24Price)
		r.Post("/api/price/ebay", s.handleEBayPrice)
		r.Post("/api/decision", s.handleDecision)
		r.Post("/api/evaluate", s.handleEvaluate)

		r.Get("/api/watches", s.handleListWatches)
		r.Post("/api/watches", s.handleUpsertWatch)
		r.Get("/api/watches/{id}", s.handleGetWatch)
		r.Delete("/api/watches/{id}", s.handleDeleteWatch)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/debug/seed", s.handleSeed)
		r.Post("/api/debug/seed", s.handleSeed)

		webRoot, err := fs.Sub(WebFS, "web")
		if err != nil {
			panic(err)
		}
		r.Handle("/*", http.FileServer(http.FS(webRoot)))
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start(addr string) error {
	s.log.Infof("Starting server on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.username == "" && s.password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.username || pass != s.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records request metrics under the matched route pattern and
// logs each request at debug level.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.observeRequest(route, r.Method, status, elapsed)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   status,
			"duration": elapsed.String(),
		}).Debug("request")
	})
}
