package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/captcha"
	"gatehouse.io/internal/obs"
	"gatehouse.io/internal/ratelimit"
)

const serviceName = "gatehouse"

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Limits configures the request limiters mounted by the router.
type Limits struct {
	PublicWindow     time.Duration
	PublicMax        int
	SubmissionWindow time.Duration
	SubmissionMax    int
	LoginBurst       int
	LoginPerSecond   int
}

// Options wires the API to its services.
type Options struct {
	Version        string
	Ready          readinessChecker
	Auth           *auth.Service
	RBAC           *auth.RBACService
	Captcha        captcha.Manager
	Limits         Limits
	CORSOrigins    []string
	TrustedProxies []string
	MaxBodyBytes   int64
}

// API is the HTTP layer.
type API struct {
	router      chi.Router
	public      chi.Router
	submissions chi.Router

	version  string
	ready    readinessChecker
	auth     *auth.Service
	rbac     *auth.RBACService
	captcha  captcha.Manager
	ips      ipResolver
	validate *requestValidator

	publicLimiter     *ratelimit.Window
	submissionLimiter *ratelimit.Window
}

func New(opts Options) (*API, error) {
	if opts.Auth == nil || opts.RBAC == nil || opts.Captcha == nil {
		return nil, errors.New("httpapi: auth, rbac and captcha services are required")
	}
	ips, err := newIPResolver(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	publicLimiter, err := ratelimit.NewWindow(opts.Limits.PublicWindow, opts.Limits.PublicMax)
	if err != nil {
		return nil, err
	}
	submissionLimiter, err := ratelimit.NewWindow(opts.Limits.SubmissionWindow, opts.Limits.SubmissionMax)
	if err != nil {
		return nil, err
	}
	ready := opts.Ready
	if ready == nil {
		ready = ReadyProbe{}
	}
	a := &API{
		version:           opts.Version,
		ready:             ready,
		auth:              opts.Auth,
		rbac:              opts.RBAC,
		captcha:           opts.Captcha,
		ips:               ips,
		validate:          newRequestValidator(),
		publicLimiter:     publicLimiter,
		submissionLimiter: submissionLimiter,
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	burst, perSecond := opts.Limits.LoginBurst, opts.Limits.LoginPerSecond
	if burst <= 0 {
		burst = 10
	}
	if perSecond <= 0 {
		perSecond = 2
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestContext)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(obs.Instrument)
	r.Use(SecurityHeaders)
	r.Use(CORS(opts.CORSOrigins))
	r.Use(MaxBodyBytes(maxBody))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Get("/api/info", a.Info)
	r.Handle("/metrics", obs.Handler())

	publicLimit := ratelimit.Middleware("public", publicLimiter, a.ips.clientIP)
	submissionLimit := ratelimit.Middleware("submission", submissionLimiter, a.ips.clientIP)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(publicLimit)
			r.Get("/auth/captcha", a.handleCaptcha)
			r.Get("/auth/password-requirements", a.handlePasswordRequirements)
			a.public = r
		})
		r.Group(func(r chi.Router) {
			r.Use(submissionLimit)
			a.submissions = r
		})
		r.With(RateLimit(burst, perSecond, a.ips.clientIP)).Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.Get("/auth/me", a.handleMe)
			r.With(a.requirePrivileges(auth.PrivCaptchaTokensIssue)).Post("/auth/captcha/tokens", a.handleIssueCaptchaToken)
			a.mountPrivileges(r)
			a.mountRoles(r)
			a.mountUsers(r)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})
	a.router = r
	return a, nil
}

// Handler returns the root http.Handler.
func (a *API) Handler() http.Handler {
	return a.router
}

// MountPublic serves h under /api/pattern behind the public read limiter.
// Call before the handler starts serving.
func (a *API) MountPublic(pattern string, h http.Handler) {
	a.public.Handle(pattern, h)
}

// MountSubmissions serves h under /api/pattern behind the submission limiter.
func (a *API) MountSubmissions(pattern string, h http.Handler) {
	a.submissions.Handle(pattern, h)
}

// ResetLimiters clears every sliding-window counter.
func (a *API) ResetLimiters() {
	a.publicLimiter.Reset()
	a.submissionLimiter.Reset()
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		obs.Logger().WithError(err).Warn("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	b := obs.Build()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      serviceName,
		"time":      time.Now().UTC().Format(time.RFC3339),
		"version":   a.version,
		"commit":    b.Commit,
		"goVersion": b.GoVersion,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
