// Package api exposes the HTTP interface for the verifier service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mailsift/bulk-verifier/internal/extract"
	"github.com/mailsift/bulk-verifier/internal/gateway"
	"github.com/mailsift/bulk-verifier/internal/metrics"
	"github.com/mailsift/bulk-verifier/internal/validation"
)

const (
	// maxUploadBytes bounds multipart uploads at 16MB.
	maxUploadBytes = 16 << 20
	requestTimeout = 60 * time.Second
)

// Server wires HTTP handlers to the gateway service.
type Server struct {
	router  chi.Router
	service *gateway.Service
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service *gateway.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Post("/validate", s.submit)
		r.Get("/limits", s.limits)
		r.Get("/progress/{session_id}", s.progress)
		r.Get("/download/{session_id}/{file_type}", s.download)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, validation.ErrNoInput.Error())
		return
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(content) > maxUploadBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds 16MB limit")
		return
	}

	receipt, err := s.service.Submit(r.Context(), header.Filename, content)
	if err != nil {
		s.writeClientError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) limits(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Limits())
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	snap, err := s.service.Progress(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, validation.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("progress read failed", zap.String("session_id", sessionID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	kind := chi.URLParam(r, "file_type")

	data, err := s.service.Download(r.Context(), sessionID, kind)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidKind):
			s.writeError(w, http.StatusBadRequest, "invalid file type")
		case errors.Is(err, validation.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "file not found")
		default:
			s.logger.Error("download failed", zap.String("session_id", sessionID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to load results")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_emails.csv", kind))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("download write failed", zap.Error(err))
	}
}

// writeClientError maps gateway errors onto HTTP statuses. All submission
// problems are client input errors.
func (s *Server) writeClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrNoInput),
		errors.Is(err, validation.ErrEmptyResult),
		errors.Is(err, validation.ErrTooManyEmails),
		errors.Is(err, extract.ErrUnsupportedFormat):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("submit failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
