// Package server exposes the upload pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/sales-insights/internal/dataset"
	"github.com/sells-group/sales-insights/internal/pipeline"
	"github.com/sells-group/sales-insights/internal/store"
)

// Processor runs one upload through the pipeline.
type Processor interface {
	Run(ctx context.Context, u pipeline.Upload) (*pipeline.Response, error)
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server routes upload and history requests.
type Server struct {
	proc  Processor
	store store.Store
	opts  Options
}

// New creates a Server. st may be nil, in which case history endpoints
// report 503.
func New(proc Processor, st store.Store, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Server{proc: proc, store: st, opts: opts}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Post("/upload", s.handleUpload)
		r.Get("/uploads", s.handleListUploads)
		r.Get("/uploads/{id}", s.handleGetUpload)
	})
	return r
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Файл завеликий")
			return
		}
		writeError(w, http.StatusBadRequest, "Файл не знайдено")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Файл не знайдено")
		return
	}
	defer file.Close() //nolint:errcheck

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "Файл не обрано")
		return
	}
	if _, err := dataset.DetectFormat(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, "Невірний тип файлу. Потрібен .csv або .xlsx")
		return
	}

	resp, err := s.proc.Run(r.Context(), pipeline.Upload{Filename: header.Filename, Data: file})
	if err != nil {
		zap.L().Error("server: upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Помилка обробки файлу: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Історія завантажень недоступна")
		return
	}

	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "Невірний параметр limit")
			return
		}
		limit = n
	}

	uploads, err := s.store.ListUploads(r.Context(), limit)
	if err != nil {
		zap.L().Error("server: list uploads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Не вдалося отримати історію завантажень")
		return
	}
	if uploads == nil {
		uploads = []store.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Історія завантажень недоступна")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Невірний ідентифікатор завантаження")
		return
	}

	u, err := s.store.GetUpload(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Завантаження не знайдено")
	case err != nil:
		zap.L().Error("server: get upload", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Не вдалося отримати завантаження")
	default:
		writeJSON(w, http.StatusOK, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
