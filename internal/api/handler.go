package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"
	"cv-processor/internal/matching"
	"cv-processor/internal/service"

	"go.uber.org/zap"
)

const secretKeyHeader = "X-Secret-Key"

// Options are the transport settings of the API.
type Options struct {
	AppName        string
	AppVersion     string
	SecretKey      string
	MaxUploadBytes int64
}

type API struct {
	opts     Options
	cvs      *service.CVService
	jobs     *service.JobService
	contacts *service.ContactService
	ranker   *matching.Ranker
	logger   *zap.Logger
}

func NewAPI(opts Options, cvs *service.CVService, jobs *service.JobService, contacts *service.ContactService, ranker *matching.Ranker, log *zap.Logger) *API {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &API{
		opts:     opts,
		cvs:      cvs,
		jobs:     jobs,
		contacts: contacts,
		ranker:   ranker,
		logger:   logger.OrNop(log),
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthHandler reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Security SecretKey
// @Success 200 {object} HealthResponse
// @Failure 401 {object} ErrorResponse
// @Router /health [get]
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: a.opts.AppName,
		Version: a.opts.AppVersion,
	})
}

// requireSecretKey guards every route except the API docs.
func (a *API) requireSecretKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			next.ServeHTTP(w, r)
			return
		}
		if a.opts.SecretKey == "" {
			writeDetail(w, http.StatusInternalServerError, "SECRET_KEY not configured on server")
			return
		}
		provided := r.Header.Get(secretKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(a.opts.SecretKey)) != 1 {
			writeDetail(w, http.StatusUnauthorized, "Invalid SECRET_KEY")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		a.logger.Info("[HTTP] request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// writeError maps err onto a status and a {"detail": ...} body. Unexpected
// failures are logged and reported without internals.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, apperr.ErrNotificationFailed) {
		a.logger.Error("[HTTP] request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		detail = "Internal server error"
	}
	writeDetail(w, status, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
