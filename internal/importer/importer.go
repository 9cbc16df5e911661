package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/StageVault/internal/jobs"
	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/parser"
	"github.com/JustinTDCT/StageVault/internal/staging"
)

// ErrInvalidRequest marks scan submissions missing required identity fields.
var ErrInvalidRequest = errors.New("invalid import request")

// LibraryResolver resolves a scan submission to its Library record.
type LibraryResolver interface {
	GetOrCreate(ctx context.Context, client, playerPath, baseDir string, scannedAt time.Time) (*models.Library, error)
}

// Enqueuer pushes changed staged items onto the work queue.
type Enqueuer interface {
	EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error)
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// Coordinator drives one scan submission end to end: library resolution,
// transactional reconciliation, and enqueueing of every changed item.
type Coordinator struct {
	libraries  LibraryResolver
	store      staging.Store
	reconciler *staging.Reconciler
	queue      Enqueuer
	notifier   EventNotifier
	locks      keyLock
	now        func() time.Time
}

func NewCoordinator(libraries LibraryResolver, store staging.Store, queue Enqueuer, notifier EventNotifier) *Coordinator {
	return &Coordinator{
		libraries:  libraries,
		store:      store,
		reconciler: staging.NewReconciler(),
		queue:      queue,
		notifier:   notifier,
		now:        time.Now,
	}
}

// ImportScan ingests one directory snapshot. The call succeeds or fails as a
// whole; per-file skips and enqueue rejections surface only in logs and the
// result counters. Concurrent submissions for the same (library, path) are
// serialized; distinct directories proceed in parallel.
func (c *Coordinator) ImportScan(ctx context.Context, req models.ImportRequest) (*models.ImportResult, error) {
	if req.Client == "" {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidRequest)
	}
	if req.BaseDirectory == "" {
		return nil, fmt.Errorf("%w: base directory is required", ErrInvalidRequest)
	}
	if req.Directory.Path == "" {
		return nil, fmt.Errorf("%w: directory path is required", ErrInvalidRequest)
	}

	now := c.now().UTC()
	snap := clampFuture(req.Directory, now)
	baseDir := staging.NormalizePath(req.BaseDirectory)
	dirPath := staging.NormalizePath(snap.Path)

	lib, err := c.libraries.GetOrCreate(ctx, req.Client, req.PlayerPath, baseDir, now)
	if err != nil {
		return nil, fmt.Errorf("resolve library: %w", err)
	}

	mu := c.locks.lock(lib.ID.String() + "\x00" + dirPath)
	defer mu.Unlock()

	var rec *staging.Result
	err = c.store.Transact(ctx, func(repo staging.Repository) error {
		var txErr error
		rec, txErr = c.reconciler.Reconcile(ctx, repo, lib, snap, now)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", dirPath, err)
	}

	result := &models.ImportResult{
		LibraryID:       lib.ID,
		DirectoryID:     rec.Directory.ID,
		DirectoryStatus: rec.Directory.Status,
		FilesReported:   len(snap.Files),
		FilesChanged:    len(rec.ChangedFiles),
		FilesSkipped:    rec.FilesSkipped,
	}
	result.Enqueued = c.enqueueChanged(lib, rec)

	if c.notifier != nil {
		c.notifier.Broadcast("import:done", map[string]interface{}{
			"library_id": lib.ID.String(),
			"path":       rec.Directory.Path,
			"status":     rec.Directory.Status,
			"changed":    result.FilesChanged,
			"enqueued":   result.Enqueued,
		})
	}
	return result, nil
}

// enqueueChanged pushes the changed directory and files onto the queue. An
// enqueue failure is logged and the item keeps its new/updated status; the
// sweep's stale pass picks it up later. Producers never block on the queue.
func (c *Coordinator) enqueueChanged(lib *models.Library, rec *staging.Result) int {
	enqueued := 0
	dirName := path.Base(rec.Directory.Path)
	parentName := ""
	if parent := staging.ParentPath(rec.Directory.Path); parent != "" {
		parentName = path.Base(parent)
	}

	if rec.DirectoryChanged {
		payload := jobs.StagedItemPayload{
			ID:        rec.Directory.ID.String(),
			LibraryID: lib.ID.String(),
			Kind:      string(models.KindDirectory),
			Status:    string(rec.Directory.Status),
			Path:      rec.Directory.Path,
			Name:      dirName,
			Info:      parser.Parse(dirName, parentName, true),
		}
		if _, err := c.queue.EnqueueUnique(jobs.TaskProcessStagedItem, payload, "stage:"+payload.ID); err != nil {
			log.Printf("Import: enqueue directory %s failed, leaving for sweep: %v", rec.Directory.Path, err)
		} else {
			enqueued++
		}
	}

	for _, file := range rec.ChangedFiles {
		payload := jobs.StagedItemPayload{
			ID:        file.ID.String(),
			LibraryID: lib.ID.String(),
			Kind:      string(models.KindFile),
			Role:      string(file.Role),
			Status:    string(file.Status),
			Path:      rec.Directory.Path,
			Name:      file.Name,
			Info:      parser.Parse(file.Name, dirName, false),
		}
		if _, err := c.queue.EnqueueUnique(jobs.TaskProcessStagedItem, payload, "stage:"+payload.ID); err != nil {
			log.Printf("Import: enqueue file %s/%s failed, leaving for sweep: %v", rec.Directory.Path, file.Name, err)
			continue
		}
		enqueued++
	}
	return enqueued
}

// clampFuture caps any reported timestamp at now. Scanner clocks drift;
// future timestamps would otherwise mark every later honest scan an update.
func clampFuture(snap models.DirectorySnapshot, now time.Time) models.DirectorySnapshot {
	nowMs := now.UnixMilli()
	if snap.TimestampMillis > nowMs {
		log.Printf("Import: directory %s reports future timestamp %d, clamping to now", snap.Path, snap.TimestampMillis)
		snap.TimestampMillis = nowMs
	}
	files := make([]models.FileSnapshot, len(snap.Files))
	copy(files, snap.Files)
	for i := range files {
		if files[i].TimestampMillis > nowMs {
			log.Printf("Import: file %s reports future timestamp %d, clamping to now", files[i].FileName, files[i].TimestampMillis)
			files[i].TimestampMillis = nowMs
		}
	}
	snap.Files = files
	return snap
}
