// Package server provides the HTTP server setup for go-stamppdf.
//
// New builds every dependency of the API from a config.Config: object
// storage, the document store, the stamp renderer, the upload verifier, the
// signing service and the session manager.
//
// Expected outputs:
// - Server listens on the configured port (default 8080)
// - Sessions and their files expire after the configured TTL
//
// Usage:
//
//	srv, err := server.New(ctx, cfg)
//	httpServer := srv.HTTPServer()
//	httpServer.ListenAndServe()
//	srv.Close()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-stamppdf/internal/config"
	"go-stamppdf/internal/documents"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/metrics"
	"go-stamppdf/internal/session"
	"go-stamppdf/internal/signing"
	"go-stamppdf/internal/stamp"
	"go-stamppdf/internal/storage"
)

type Server struct {
	port           int
	SessionManager *session.SessionManager
	Signing        *signing.Service
	Registry       *prometheus.Registry
	UploadDir      string
	OutputDir      string

	// objects is served under /objects/ when the filesystem backend is used.
	objects *storage.FilesystemBackend
	closers []io.Closer
}

// New wires the server from cfg. Call Close when done.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	srv := &Server{
		port:           cfg.Port,
		SessionManager: session.NewSessionManager(cfg.SessionCapacity, cfg.SessionTTL),
		Registry:       prometheus.NewRegistry(),
		UploadDir:      cfg.UploadDir,
		OutputDir:      cfg.OutputDir,
	}
	srv.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	storageObserver, err := metrics.NewStorageObserver(srv.Registry)
	if err != nil {
		return nil, err
	}
	pipelineObserver, err := metrics.NewPipelineObserver(srv.Registry)
	if err != nil {
		return nil, err
	}

	backend, chain, err := srv.openStorage(ctx, cfg)
	if err != nil {
		srv.Close()
		return nil, err
	}

	docs, err := srv.openDocuments(ctx, cfg)
	if err != nil {
		srv.Close()
		return nil, err
	}

	renderer, err := stamp.NewRenderer(cfg.ResolveFontPath())
	if err != nil {
		logger.Warn(ctx, "stamping disabled", logger.Fields{"error": err.Error()})
		renderer = nil
	}

	verifier := storage.NewVerifier(backend,
		storage.WithObserver(storageObserver),
		storage.WithRetryDelay(cfg.VerifyDelay),
		storage.WithURLTTL(cfg.SignedURLTTL),
	)
	srv.Signing = signing.NewService(docs, chain, verifier, renderer, pipelineObserver, signing.Config{
		Bucket:       cfg.StorageBucket,
		DefaultWidth: cfg.DefaultStampWidth,
		Verify:       cfg.VerifyUploads,
		MaxAttempts:  cfg.VerifyMaxAttempts,
	})

	logger.Info(ctx, "server configured", logger.Fields{
		"port":           cfg.Port,
		"storage":        backend.Name(),
		"bucket":         cfg.StorageBucket,
		"verify_uploads": cfg.VerifyUploads,
		"postgres":       cfg.DatabaseURL != "",
	})
	return srv, nil
}

// openStorage builds the object backend uploads go to and the chain attachments
// are fetched through: the backend, the local object directory when the
// backend is remote, then plain HTTP.
func (s *Server) openStorage(ctx context.Context, cfg config.Config) (storage.Backend, storage.Chain, error) {
	local, err := storage.NewFilesystemBackend(cfg.StorageDir, cfg.StorageBucket, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	httpSource := storage.NewHTTPSource(cfg.FetchTimeout)

	if cfg.StorageBackend != config.BackendGCS {
		s.objects = local
		chain := storage.Chain{
			storage.BackendSource{Backend: local, Bucket: cfg.StorageBucket},
			httpSource,
		}
		return local, chain, nil
	}

	gcs, err := storage.NewGCSBackend(ctx, storage.GCSConfig{
		Bucket:            cfg.StorageBucket,
		CredentialsFile:   cfg.GCSCredentialsFile,
		SigningEmail:      cfg.GCSSigningEmail,
		SigningPrivateKey: cfg.GCSSigningPrivateKey,
	})
	if err != nil {
		return nil, nil, err
	}
	s.closers = append(s.closers, gcs)
	chain := storage.Chain{
		storage.BackendSource{Backend: gcs, Bucket: cfg.StorageBucket},
		storage.BackendSource{Backend: local, Bucket: cfg.StorageBucket},
		httpSource,
	}
	return gcs, chain, nil
}

func (s *Server) openDocuments(ctx context.Context, cfg config.Config) (documents.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn(ctx, "DATABASE_URL not set, using in-memory document store")
		return documents.NewMemoryStore(), nil
	}
	store, err := documents.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store)
	return store, nil
}

// HTTPServer returns the http.Server serving the API on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Close drops every session with its files and releases storage and
// database clients.
func (s *Server) Close() error {
	if s.SessionManager != nil {
		s.SessionManager.Purge()
	}
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
