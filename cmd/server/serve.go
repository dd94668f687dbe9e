package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/api"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/auth"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/config"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/wolfram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func newFileStore(ctx context.Context, cfg *config.Config) (files.Store, error) {
	if cfg.StorageBackend == config.StorageS3 {
		return files.NewS3Store(ctx, cfg)
	}
	return files.NewDiskStore(cfg.UploadDir)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg := config.LoadConfig()
	if cfg.Debug() {
		log.Println("Service starting in DEBUG mode")
	}
	ctx := cmd.Context()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbStore.Close()

	// Initialize LLM provider
	provider, err := llm.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s provider: %w", cfg.LLMProvider, err)
	}
	defer provider.Close()
	log.Printf("Using LLM provider %s", provider.Name())

	fileStore, err := newFileStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s file storage: %w", cfg.StorageBackend, err)
	}
	fileService := files.NewService(fileStore)

	solver := wolfram.NewClient(cfg.WolframAppID)
	if !solver.Enabled() {
		log.Println("WOLFRAM_APP_ID not set; math tool calling disabled")
	}

	ragService := core.NewRAGService(dbStore, files.NewExtractor(fileService))
	apiHandler := api.NewAPIHandler(api.Deps{
		DB:         dbStore,
		Chat:       core.NewChatService(dbStore, ragService, provider, solver, cfg.Debug()),
		Generation: core.NewGenerationService(dbStore, ragService, provider),
		Learning:   core.NewLearningService(dbStore),
		Files:      fileService,
		Solver:     solver,
		Tokens:     auth.NewTokenIssuer(cfg.JWTSecret),
		Demo:       auth.Credentials{Email: cfg.DemoEmail, Password: cfg.DemoPassword},
	})
	router := api.NewRouter(apiHandler, api.RouterOptions{
		CORSOrigins:  cfg.CORSOrigins,
		AuthRequired: cfg.AuthRequired,
	})

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // streamed replies and uploads
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// provider.Close() and dbStore.Close() will be called by their defers.
	log.Println("Server exiting gracefully")
	return nil
}
