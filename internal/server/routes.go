package server

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-stamppdf/docs"
	"go-stamppdf/internal/handlers"
	"go-stamppdf/internal/logger"
)

// Only allow requests from localhost
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info(ctx, "http request", logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	h := handlers.NewAPIHandler(s.SessionManager, s.Signing, s.UploadDir, s.OutputDir)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)
	if s.objects != nil {
		files := http.StripPrefix("/objects/", http.FileServer(http.Dir(s.objects.Root())))
		r.With(localhostOnly).Get("/objects/*", files.ServeHTTP)
	}

	r.Route("/api/sessions", func(api chi.Router) {
		api.Post("/", h.CreateSession)
		api.Post("/{sessionID}/files", h.UploadFile)
		api.Post("/{sessionID}/signature", h.UploadSignature)
		api.Put("/{sessionID}/order", h.UpdateOrder)
		api.Post("/{sessionID}/actions/merge", h.MergeFiles)
		api.Post("/{sessionID}/sign", h.SignPDF)
		api.Get("/{sessionID}/files/{filename}", h.DownloadFile)
	})
	r.Route("/api/documents/{barcode}/attachments/{index}", func(api chi.Router) {
		api.Post("/sign", h.SignAttachment)
		api.Post("/stamp", h.StampAttachment)
		api.Post("/preview", h.PreviewAttachment)
	})

	return r
}
