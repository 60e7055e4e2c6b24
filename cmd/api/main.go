// Package main API.
//
// go-stamppdf provides a REST API for signing and stamping PDF files.
//
//	Schemes: http
//	BasePath: /
//	Version: 1.0.0
//	Host: localhost:8080
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- application/pdf
//
// swagger:meta
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-stamppdf/internal/config"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/server"
)

const serviceName = "stamppdf"

func gracefulShutdown(apiServer *http.Server, done chan bool, cleanupFunc func()) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info(context.Background(), "shutting down gracefully, press Ctrl+C again to force")

	// The server has 5 seconds to finish the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "server forced to shutdown", err)
	}

	if cleanupFunc != nil {
		logger.Info(context.Background(), "cleaning directories")
		cleanupFunc()
	}

	logger.Info(context.Background(), "server exiting")

	done <- true
}

func cleanupDirs(dirs ...string) func() {
	return func() {
		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					_ = os.Remove(filepath.Join(dir, entry.Name()))
				}
			}
		}
	}
}

// listen runs apiServer until it is shut down. If it cannot start, release is
// called since the shutdown goroutine will never run it.
func listen(apiServer *http.Server, release func()) error {
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		release()
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cleanup := cleanupDirs(cfg.UploadDir, cfg.OutputDir)
	// Uploads and outputs do not survive a restart
	cleanup()

	ctx := cmd.Context()
	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	apiServer := srv.HTTPServer()

	release := func() {
		if err := srv.Close(); err != nil {
			logger.Error(context.Background(), "failed to release resources", err)
		}
		cleanup()
	}

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, done, release)

	logger.Info(ctx, "starting server", logger.Fields{"addr": apiServer.Addr})
	if err := listen(apiServer, release); err != nil {
		return err
	}

	<-done
	logger.Info(ctx, "graceful shutdown complete")
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Sign and stamp PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(newRenderStampCmd())
	return root
}

func main() {
	logger.Init(serviceName)
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Error(context.Background(), "command failed", err)
		os.Exit(1)
	}
}
