package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalyses "github.com/bryanwahyu/newsgate/internal/application/analyses"
	"github.com/bryanwahyu/newsgate/internal/application/auth"
	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
	"github.com/bryanwahyu/newsgate/internal/domain/users"
	"github.com/bryanwahyu/newsgate/internal/middleware"
)

const defaultMaxBody = 1 << 20

type AnalysisService interface {
	Submit(ctx context.Context, callerID string, cmd appanalyses.SubmitCommand) (*domain.Record, error)
	History(ctx context.Context, callerID string) ([]*domain.Record, error)
	Get(ctx context.Context, callerID string, id domain.ID) (*domain.Record, error)
	Delete(ctx context.Context, callerID string, id domain.ID) error
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*users.User, error)
	Login(ctx context.Context, email, password string) (auth.Token, error)
	VerifyToken(raw string) (string, error)
}

// Deps are the collaborators of the router. Everything past Log is optional.
// Ready gates /readyz; Health reports on /health. IPLimiter runs before
// authentication on the private routes, Limiter after it.
type Deps struct {
	Analyses       AnalysisService
	Auth           AuthService
	Log            *zap.Logger
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	IPLimiter      *middleware.RateLimiter
	Health         map[string]middleware.HealthChecker
	Ready          map[string]middleware.HealthChecker
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type Router struct {
	analyses AnalysisService
	auth     AuthService
	log      *zap.Logger
	maxBody  int64
}

func NewRouter(d Deps) http.Handler {
	r := &Router{analyses: d.Analyses, auth: d.Auth, log: d.Log, maxBody: d.MaxBodyBytes}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.maxBody <= 0 {
		r.maxBody = defaultMaxBody
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Logging(r.log))
	mux.Use(chimw.Recoverer)
	if d.Metrics != nil {
		mux.Use(d.Metrics.Middleware)
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(d.Ready))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	mux.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			if d.Limiter != nil {
				pub.Use(d.Limiter.Middleware)
			}
			pub.Post("/auth/register", r.wrap(r.handleRegister))
			pub.Post("/auth/login", r.wrap(r.handleLogin))
		})

		api.Group(func(priv chi.Router) {
			if d.IPLimiter != nil {
				priv.Use(d.IPLimiter.ByIP)
			}
			priv.Use(middleware.JWTAuth(d.Auth))
			if d.Limiter != nil {
				priv.Use(d.Limiter.Middleware)
			}
			priv.Post("/check", r.wrap(r.handleCheck))
			priv.Get("/history", r.wrap(r.handleHistory))
			priv.Get("/history/{id}", r.wrap(r.handleGet))
			priv.Delete("/history/{id}", r.wrap(r.handleDelete))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps error kinds to a status and a stable code. Internal kinds never leak
// their cause to the client.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			r.log.Error("request failed",
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.String("path", req.URL.Path),
				zap.Stringer("kind", faults.KindOf(err)),
				zap.Error(err))
		}
		middleware.WriteError(w, status, code, msg)
	}
}

func classify(err error) (status int, code, msg string) {
	switch faults.KindOf(err) {
	case faults.KindValidation:
		return http.StatusBadRequest, middleware.CodeValidation, faults.MessageOf(err)
	case faults.KindServiceUnavailable:
		return http.StatusServiceUnavailable, middleware.CodeServiceUnavailable, faults.MessageOf(err)
	case faults.KindInvalidUpstream:
		return http.StatusBadGateway, middleware.CodeInvalidUpstream, "analysis service returned an invalid response"
	case faults.KindPersistence:
		return http.StatusInternalServerError, middleware.CodePersistence, "failed to save analysis"
	case faults.KindNotFound:
		return http.StatusNotFound, middleware.CodeNotFound, faults.MessageOf(err)
	case faults.KindDuplicateIdentity:
		return http.StatusConflict, middleware.CodeDuplicateIdentity, faults.MessageOf(err)
	case faults.KindUnauthorized:
		return http.StatusUnauthorized, middleware.CodeAuth, faults.MessageOf(err)
	case faults.KindRateLimited:
		return http.StatusTooManyRequests, middleware.CodeRateLimited, faults.MessageOf(err)
	default:
		return http.StatusInternalServerError, middleware.CodeInternal, "internal server error"
	}
}

// decode reads a JSON body capped at maxBody. Unknown fields are ignored.
func (r *Router) decode(w http.ResponseWriter, req *http.Request, op string, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxBody)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return faults.Validation(op, "request body too large")
		case errors.Is(err, io.EOF):
			return faults.Validation(op, "request body is required")
		default:
			return faults.Validation(op, "malformed JSON body")
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body credentials
	if err := r.decode(w, req, "http.Register", &body); err != nil {
		return err
	}
	u, err := r.auth.Register(req.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}{u.ID, u.Email, u.CreatedAt})
}

// POST /api/auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body credentials
	if err := r.decode(w, req, "http.Login", &body); err != nil {
		return err
	}
	tok, err := r.auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, tok)
}

// POST /api/check
// Body: {"text": "...", "url": "...", "sourcePlatform": "..."}
func (r *Router) handleCheck(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text           string `json:"text"`
		URL            string `json:"url"`
		SourcePlatform string `json:"sourcePlatform"`
	}
	if err := r.decode(w, req, "http.Check", &body); err != nil {
		return err
	}
	rec, err := r.analyses.Submit(req.Context(), middleware.CallerID(req.Context()), appanalyses.SubmitCommand{
		Text:           middleware.SanitizeText(body.Text),
		URL:            body.URL,
		SourcePlatform: middleware.SanitizeString(body.SourcePlatform),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// GET /api/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.analyses.History(req.Context(), middleware.CallerID(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req, "http.GetHistory")
	if err != nil {
		return err
	}
	rec, err := r.analyses.Get(req.Context(), middleware.CallerID(req.Context()), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// DELETE /api/history/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req, "http.DeleteHistory")
	if err != nil {
		return err
	}
	if err := r.analyses.Delete(req.Context(), middleware.CallerID(req.Context()), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// recordID rejects ids no record could have with the same NotFound the store gives.
func recordID(req *http.Request, op string) (domain.ID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return "", faults.NotFound(op, "record not found with id: "+id)
	}
	return domain.ID(id), nil
}
