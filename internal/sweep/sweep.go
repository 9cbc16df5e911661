package sweep

import (
	"context"
	"log"
	"path"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/JustinTDCT/StageVault/internal/jobs"
	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/parser"
	"github.com/JustinTDCT/StageVault/internal/repository"
	"github.com/JustinTDCT/StageVault/internal/staging"
)

// Store is the slice of the stage repository the sweep needs.
type Store interface {
	MarkMissingBefore(ctx context.Context, cutoff time.Time) (dirs, files int64, err error)
	StaleChangedDirectories(ctx context.Context, cutoff time.Time, limit int) ([]models.StageDirectory, error)
	StaleChangedFiles(ctx context.Context, cutoff time.Time, limit int) ([]repository.StaleFile, error)
}

type Enqueuer interface {
	EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error)
}

// Sweeper runs the out-of-band maintenance passes: marking records absent
// from recent scans as missing, and re-enqueueing changed items the queue
// rejected at import time.
type Sweeper struct {
	store  Store
	queue  Enqueuer
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	missingAfter time.Duration
	requeueAfter time.Duration
	requeueBatch int
}

func New(store Store, queue Enqueuer, missingAfter, requeueAfter time.Duration, requeueBatch int) *Sweeper {
	if requeueBatch <= 0 {
		requeueBatch = 500
	}
	return &Sweeper{
		store:        store,
		queue:        queue,
		missingAfter: missingAfter,
		requeueAfter: requeueAfter,
		requeueBatch: requeueBatch,
	}
}

// Start schedules Run on the given cron expression. In-flight passes are
// cancelled by Stop.
func (s *Sweeper) Start(schedule string) error {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Run(s.ctx); err != nil {
			log.Printf("[sweep] pass failed: %v", err)
		}
	})
	if err != nil {
		s.cancel()
		return err
	}
	s.cron.Start()
	log.Printf("[sweep] scheduled (%s)", schedule)
	return nil
}

// Stop halts the schedule and cancels any in-flight pass.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Run executes one full sweep pass.
func (s *Sweeper) Run(ctx context.Context) error {
	now := time.Now().UTC()

	dirs, files, err := s.store.MarkMissingBefore(ctx, now.Add(-s.missingAfter))
	if err != nil {
		return err
	}
	if dirs > 0 || files > 0 {
		log.Printf("[sweep] marked missing: %d directories, %d files", dirs, files)
	}

	requeued, err := s.requeueStale(ctx, now.Add(-s.requeueAfter))
	if err != nil {
		return err
	}
	if requeued > 0 {
		log.Printf("[sweep] re-enqueued %d stale items", requeued)
	}
	return nil
}

func (s *Sweeper) requeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	requeued := 0

	stale, err := s.store.StaleChangedDirectories(ctx, cutoff, s.requeueBatch)
	if err != nil {
		return requeued, err
	}
	for _, dir := range stale {
		if err := ctx.Err(); err != nil {
			return requeued, err
		}
		name := path.Base(dir.Path)
		parentName := ""
		if parent := staging.ParentPath(dir.Path); parent != "" {
			parentName = path.Base(parent)
		}
		payload := jobs.StagedItemPayload{
			ID:        dir.ID.String(),
			LibraryID: dir.LibraryID.String(),
			Kind:      string(models.KindDirectory),
			Status:    string(dir.Status),
			Path:      dir.Path,
			Name:      name,
			Info:      parser.Parse(name, parentName, true),
		}
		if _, err := s.queue.EnqueueUnique(jobs.TaskProcessStagedItem, payload, "stage:"+payload.ID); err != nil {
			log.Printf("[sweep] requeue directory %s failed: %v", dir.Path, err)
			continue
		}
		requeued++
	}

	staleFiles, err := s.store.StaleChangedFiles(ctx, cutoff, s.requeueBatch)
	if err != nil {
		return requeued, err
	}
	for _, sf := range staleFiles {
		if err := ctx.Err(); err != nil {
			return requeued, err
		}
		payload := jobs.StagedItemPayload{
			ID:        sf.File.ID.String(),
			LibraryID: sf.LibraryID.String(),
			Kind:      string(models.KindFile),
			Role:      string(sf.File.Role),
			Status:    string(sf.File.Status),
			Path:      sf.DirPath,
			Name:      sf.File.Name,
			Info:      parser.Parse(sf.File.Name, path.Base(sf.DirPath), false),
		}
		if _, err := s.queue.EnqueueUnique(jobs.TaskProcessStagedItem, payload, "stage:"+payload.ID); err != nil {
			log.Printf("[sweep] requeue file %s/%s failed: %v", sf.DirPath, sf.File.Name, err)
			continue
		}
		requeued++
	}
	return requeued, nil
}
