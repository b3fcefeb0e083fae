package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/i18n"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/usecase"
)

// PaymentWatcher is the background tracking the customer payment page reads.
type PaymentWatcher interface {
	Start(ctx context.Context, sess *model.Session, requestID, planID int64) (*model.PaymentWatch, error)
	Get(ctx context.Context, sess *model.Session, requestID int64) (*model.PaymentWatch, error)
	Stop(ctx context.Context, sess *model.Session, requestID int64) error
}

type Deps struct {
	Sessions usecase.SessionUseCase
	Portal   usecase.PortalUseCase
	Vouchers usecase.VoucherUseCase
	Payments usecase.PaymentUseCase
	Watcher  PaymentWatcher
	Batches  usecase.BatchUseCase
	Activity usecase.ActivityUseCase
}

type Options struct {
	RequestTimeout time.Duration
	// PollInterval paces the pending payment page's refresh.
	PollInterval time.Duration
	// SuccessDelay is how long the success state shows before the dashboard.
	SuccessDelay  time.Duration
	LoginPath     string
	DashboardPath string
}

type Server struct {
	deps  Deps
	auth  *AuthManager
	tr    *i18n.Translator
	opts  Options
	pages map[string]*template.Template
	log   *zerolog.Logger
}

func NewServer(deps Deps, auth *AuthManager, tr *i18n.Translator, opts Options, logger *zerolog.Logger) (*Server, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = 3 * time.Second
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.DashboardPath == "" {
		opts.DashboardPath = "/dashboard"
	}
	s := &Server{deps: deps, auth: auth, tr: tr, opts: opts, log: logger}
	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	return s, nil
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.RequestTimeout),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Session(s.auth, s.deps.Sessions, s.log))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/portal?"+r.URL.RawQuery, http.StatusFound)
		})
		r.Route("/portal", func(r chi.Router) {
			r.Get("/", s.handlePortal)
			r.Post("/redeem", s.handleRedeem)
			r.Post("/buy", s.handleBuy)
			r.Post("/recheck", s.handleRecheck)
		})

		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Route("/pay", func(r chi.Router) {
			r.Get("/", s.handlePayForm)
			r.Post("/", s.handlePay)
			r.Get("/{id}", s.handlePaymentState)
			r.Post("/{id}/reset", s.handlePaymentReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Get("/dashboard", s.handleDashboard)
			r.Route("/admin", func(r chi.Router) {
				r.Get("/batches", s.handleBatches)
				r.Post("/batches", s.handleGenerate)
				r.Get("/batches/{id}", s.handleBatch)
				r.Get("/batches/{id}/export.{format}", s.handleExport)
				r.Get("/activity", s.handleActivity)
			})
		})
	})
	return r
}

// requireLogin sends anonymous sessions to the login page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r.Context()).IsAuthenticated() {
			s.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := s.opts.LoginPath
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// teardownIfUnauthorized drops the session's credentials and redirects to
// the login page when err says the backend rejected the bearer token. It
// reports whether it handled the response.
func (s *Server) teardownIfUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	sess := sessionFrom(r.Context())
	if terr := s.deps.Sessions.Teardown(r.Context(), sess); terr != nil {
		logging.With(r.Context(), s.log).Warn().Err(terr).Msg("session teardown failed")
	}
	if wantsJSON(r) {
		writeJSONError(w, http.StatusUnauthorized, s.tr.T("payment.session_expired"))
		return true
	}
	s.redirectToLogin(w, r)
	return true
}

// errorMessage picks what the user sees for err: backend text verbatim when
// the backend supplied it, otherwise fallbackKey translated.
func (s *Server) errorMessage(err error, fallbackKey string) string {
	if msg := domain.ServerMessage(err); msg != "" && errors.Is(err, domain.ErrRejected) {
		return msg
	}
	return s.tr.T(fallbackKey)
}

func (s *Server) saveSession(r *http.Request, sess *model.Session) {
	if err := s.deps.Sessions.Save(r.Context(), sess); err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("session save failed")
	}
}
