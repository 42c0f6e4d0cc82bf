package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filterlang/filterlang/internal/admin"
	"github.com/filterlang/filterlang/internal/config"
	"github.com/filterlang/filterlang/internal/server"
	"github.com/filterlang/filterlang/internal/store"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	schemesPath := flag.String("schemes", "", "optional YAML file of schemes to preload")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	s := store.NewMemoryStore()

	if *schemesPath != "" {
		file, err := config.Load(*schemesPath)
		if err != nil {
			logger.Error("failed to load schemes file", "path", *schemesPath, "error", err)
			os.Exit(1)
		}
		for _, scheme := range file.Schemes {
			if _, err := s.CreateScheme(context.Background(), scheme.Name, scheme.StoreFields()); err != nil {
				logger.Error("failed to preload scheme", "scheme", scheme.Name, "error", err)
				os.Exit(1)
			}
			logger.Info("scheme preloaded", "scheme", scheme.Name, "fields", len(scheme.Fields))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", server.NewHandler(s, logger))
	mux.Handle("/admin/", admin.NewHandler(s))

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{Addr: addr, Handler: mux}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("filterd started",
		"port", *port,
		"api", fmt.Sprintf("http://localhost:%d/v1/", *port),
		"admin", fmt.Sprintf("http://localhost:%d/admin/", *port),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
