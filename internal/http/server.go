package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"

	"studio/internal/auth"
	"studio/internal/cache"
	"studio/internal/clinic"
	"studio/internal/core"
	"studio/internal/document"
	"studio/internal/forms"
	"studio/internal/log"
	"studio/internal/metrics"
	"studio/internal/middleware/ratelimit"
	"studio/internal/middleware/security"
	"studio/internal/middleware/trace"
)

const (
	pdfCacheSize = 50
	pdfCacheTTL  = 5 * time.Minute
)

// Deps are the collaborators the handlers need. Repo, Forms and Auth are
// required.
type Deps struct {
	Repo    *clinic.Repository
	Forms   *forms.Service
	Auth    *auth.Authenticator
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; the route is not mounted when nil.
	Gatherer prometheus.Gatherer
	Studio   document.Studio

	// CSRFKey enables gorilla/csrf when set (32 bytes).
	CSRFKey      []byte
	CookieSecure bool
	// TrustedProxies extend the private ranges whose forwarding headers are
	// believed when resolving the client IP.
	TrustedProxies []string

	RequestsPerMinute int
}

type Server struct {
	http.Server

	repo     *clinic.Repository
	forms    *forms.Service
	auth     *auth.Authenticator
	logger   *log.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	studio   document.Studio
	csrf     bool
	started  time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	pdfCache    *cache.LRU[renderedPDF]
	caches      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Repo == nil || deps.Forms == nil || deps.Auth == nil {
		return nil, errors.New("repository, forms and auth are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	studio := deps.Studio
	if studio.Name == "" {
		studio = document.DefaultStudio()
	}
	limits := ratelimit.DefaultConfig()
	if deps.RequestsPerMinute > 0 {
		limits.RequestsPerMinute = deps.RequestsPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		repo:        deps.Repo,
		forms:       deps.Forms,
		auth:        deps.Auth,
		logger:      logger,
		metrics:     deps.Metrics,
		gatherer:    deps.Gatherer,
		studio:      studio,
		started:     time.Now(),
		detector:    security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		rateLimiter: ratelimit.NewLimiter(limits),
		pdfCache:    cache.NewLRU[renderedPDF](pdfCacheSize, pdfCacheTTL),
		caches:      cache.NewManager(logger),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}
	s.metrics.TrackSuspicious(s.detector.SuspiciousCount)
	s.caches.Register(s.pdfCache)
	s.caches.Start(pdfCacheTTL)

	var handler http.Handler = s.routes()
	if len(deps.CSRFKey) > 0 {
		s.csrf = true
		handler = csrf.Protect(deps.CSRFKey,
			csrf.Secure(deps.CookieSecure),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(http.StatusForbidden, "Token CSRF non valido").Write(w)
			})),
		)(handler)
	}
	s.Handler = handler
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(s.logger, s.detector.ClientIP, s.metrics.ObserveHTTP)
	r.Use(tracer.Middleware)
	r.Use(log.Middleware(s.logger, func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldPath, r.URL.Path)
		TooManyRequestsError("Troppe richieste, riprova tra poco").Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Risorsa non trovata").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Metodo non consentito").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(log.ComponentMiddleware(log.ComponentAuth))
		r.Use(security.NoStore)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/session", s.handleSession)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Use(security.NoStore)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/revenue", s.handleRevenue)
		r.Get("/forms/{kind}", s.handleFormDefaults)

		r.Route("/patients", func(r chi.Router) {
			crud(r, entity[core.Patient]{"patient", s.repo.Patients}, s.handleListPatients, s.forms.SavePatient)
		})
		r.Route("/appointments", func(r chi.Router) {
			crud(r, entity[core.Appointment]{"appointment", s.repo.Appointments}, s.handleListAppointments, s.forms.SaveAppointment)
			r.Patch("/{id}", s.handleQuickEditAppointment)
			r.Put("/{id}/status", s.handleAppointmentStatus)
		})
		r.Route("/quotes", func(r chi.Router) {
			crud(r, entity[core.Quote]{"quote", s.repo.Quotes}, s.handleListQuotes, s.forms.SaveQuote)
			r.Put("/{id}/status", s.handleQuoteStatus)
			r.Get("/{id}/pdf", s.handleQuotePDF)
		})
		r.Route("/payments", func(r chi.Router) {
			crud(r, entity[core.Payment]{"payment", s.repo.Payments}, s.handleListPayments, s.forms.SavePayment)
		})
		r.Route("/treatment-prices", func(r chi.Router) {
			crud(r, entity[core.TreatmentPrice]{"treatment-price", s.repo.Prices}, nil, s.forms.SavePrice)
			r.Get("/{id}/item", s.handlePriceItem)
		})
		r.Route("/documents", func(r chi.Router) {
			crud(r, entity[core.Document]{"document", s.repo.Documents}, nil, s.forms.SaveDocument)
		})
		r.Route("/treatments", func(r chi.Router) {
			crud(r, entity[core.Treatment]{"treatment", s.repo.Treatments}, nil, s.forms.SaveTreatment)
		})

		r.Get("/calendar", s.handleCalendarMonth)
		r.Get("/calendar/day/{date}", s.handleCalendarDay)

		r.Get("/backup", s.handleBackup)
		r.Post("/backup", s.handleRestore)
		r.Get("/reports/payments.xlsx", s.handlePaymentsReport)
	})

	return r
}

// Shutdown gracefully shuts down the server and the cleanup goroutines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
