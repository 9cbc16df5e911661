package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/JustinTDCT/StageVault/internal/api"
	"github.com/JustinTDCT/StageVault/internal/config"
	"github.com/JustinTDCT/StageVault/internal/db"
	"github.com/JustinTDCT/StageVault/internal/identifier"
	"github.com/JustinTDCT/StageVault/internal/importer"
	"github.com/JustinTDCT/StageVault/internal/jobs"
	"github.com/JustinTDCT/StageVault/internal/repository"
	"github.com/JustinTDCT/StageVault/internal/sweep"
	"github.com/JustinTDCT/StageVault/internal/version"
)

// logProcessor is the default downstream consumer: it logs the parsed
// identity of each item. Real deployments replace it with the metadata
// pipeline behind the staging area.
type logProcessor struct{}

func (logProcessor) Process(_ context.Context, item jobs.StagedItemPayload) error {
	key := ""
	switch {
	case item.Info.Title == "":
	case item.Info.IsMovie():
		key = identifier.MovieKey(item.Info.Title, item.Info.Year)
	case len(item.Info.Episodes) > 0:
		key = identifier.EpisodeKey(item.Info.Title, item.Info.Year, item.Info.Season, item.Info.Episodes[0])
	default:
		key = identifier.SeasonKey(item.Info.Title, item.Info.Year, item.Info.Season)
	}
	log.Printf("Process: %s %q role=%s status=%s key=%s", item.Kind, item.Name, item.Role, item.Status, key)
	return nil
}

func main() {
	ver := version.Load()
	log.Printf("StageVault %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(&cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	libRepo := repository.NewLibraryRepository(database.DB)
	stageRepo := repository.NewStageRepository(database.DB)

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.QueueConcurrency)
	defer queue.Stop()

	hub := api.NewWSHub()
	coordinator := importer.NewCoordinator(libRepo, stageRepo, queue, hub)
	srv := api.NewServer(cfg, coordinator, libRepo, hub)

	jobs.RegisterHandlers(queue, stageRepo, logProcessor{}, hub)
	if err := queue.Start(ctx); err != nil {
		log.Fatalf("queue start failed: %v", err)
	}

	sweeper := sweep.New(stageRepo, queue, cfg.MissingAfter, cfg.RequeueAfter, cfg.RequeueBatch)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		log.Fatalf("sweep schedule failed: %v", err)
	}
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
