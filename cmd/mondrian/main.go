// Mondrian — a photography critique service: job engine, strategy
// dispatcher, and retrieval subsystem fronted by an HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mondrian-project/mondrian/pkg/adaptercache"
	"github.com/mondrian-project/mondrian/pkg/api"
	"github.com/mondrian-project/mondrian/pkg/config"
	"github.com/mondrian-project/mondrian/pkg/embedclient"
	"github.com/mondrian-project/mondrian/pkg/events"
	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
	"github.com/mondrian-project/mondrian/pkg/queue"
	"github.com/mondrian-project/mondrian/pkg/retrieval"
	"github.com/mondrian-project/mondrian/pkg/store"
	"github.com/mondrian-project/mondrian/pkg/strategy"
	"github.com/mondrian-project/mondrian/pkg/supervisor"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	st, err := store.Open(ctx, store.Config{DSN: getEnv("DATABASE_URL", "")})
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := syncAdvisors(ctx, st, cfg.AdvisorRegistry); err != nil {
		log.Fatalf("failed to sync advisor configuration: %v", err)
	}

	recovered, err := st.RecoverInterruptedJobs(ctx)
	if err != nil {
		log.Fatalf("failed to recover interrupted jobs: %v", err)
	}
	if recovered > 0 {
		slog.Warn("recovered jobs left in-flight by a previous process", "count", recovered)
	}

	modelClient, err := modelclient.NewClient(cfg.Model.ServiceAddr)
	if err != nil {
		log.Fatalf("failed to connect to model service: %v", err)
	}
	defer modelClient.Close()

	var embedder strategy.Embedder
	if cfg.Model.EmbedServiceAddr != "" {
		embedder = embedclient.New(cfg.Model.EmbedServiceAddr)
	}

	dimensional := retrieval.NewDimensionalEngine(st, cfg.Retrieval)
	visual := retrieval.NewVisualEngine(st, cfg.Retrieval)
	adapters := adaptercache.New(func(handle string) (string, error) {
		// Adapter loading itself is out of scope (spec.md §1 "the
		// machine-learning training loop that produces adapters"); the
		// handle is opaque and resolved by the model service, so the
		// cache's job here is only to avoid re-"loading" it per call.
		return handle, nil
	})

	dispatcher := strategy.NewDispatcher(
		modelClient.Call,
		&modelclient.HandleMutex{},
		st,
		dimensional,
		visual,
		adapters,
		embedder,
		cfg.Model.BaseModelHandle,
	)

	bus := events.NewBus()
	workerPool := queue.NewWorkerPool(st, cfg.Queue, dispatcher, cfg.AdvisorRegistry, bus)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	sup, err := supervisor.New(cfg.Supervisor, st, bus)
	if err != nil {
		log.Fatalf("failed to build supervisor: %v", err)
	}
	if err := sup.Start(ctx); err != nil {
		log.Fatalf("failed to start supervisor: %v", err)
	}
	defer sup.Stop()

	server := api.NewServer(cfg, st, workerPool, dispatcher, bus, cfg.AdvisorRegistry)
	server.SetSupervisor(sup)

	addr := getEnv("HTTP_ADDR", cfg.Server.Addr)
	go func() {
		slog.Info("mondrian listening", "addr", addr)
		if err := server.Start(addr); err != nil {
			slog.Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Supervisor.DrainTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}

func syncAdvisors(ctx context.Context, st *store.Store, registry *config.AdvisorRegistry) error {
	advisors := make([]*models.Advisor, 0, len(registry.GetAll()))
	for _, id := range registry.Order() {
		cfg, err := registry.Get(id)
		if err != nil {
			return err
		}
		advisors = append(advisors, &models.Advisor{
			ID:            id,
			DisplayName:   cfg.DisplayName,
			Biography:     cfg.Biography,
			PromptBody:    cfg.PromptBody,
			FocusAreas:    cfg.FocusAreas,
			AdapterHandle: cfg.AdapterHandle,
			Category:      cfg.Category,
		})
	}
	return st.SyncAdvisors(ctx, advisors)
}
