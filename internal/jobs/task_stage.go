package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/StageVault/internal/models"
)

// StatusStore is the slice of the staging store the worker needs: load the
// record and move its status.
type StatusStore interface {
	FileByID(ctx context.Context, id uuid.UUID) (*models.StageFile, error)
	UpdateFileStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error
	DirectoryByID(ctx context.Context, id uuid.UUID) (*models.StageDirectory, error)
	UpdateDirectoryStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error
}

// ItemProcessor is the downstream consumer of staged items (metadata
// pipeline, indexer, whatever sits behind the staging area). Injected so the
// worker pool stays agnostic of what processing means.
type ItemProcessor interface {
	Process(ctx context.Context, item StagedItemPayload) error
}

type StagedItemHandler struct {
	store     StatusStore
	processor ItemProcessor
	notifier  EventNotifier
}

func NewStagedItemHandler(store StatusStore, processor ItemProcessor, notifier EventNotifier) *StagedItemHandler {
	return &StagedItemHandler{store: store, processor: processor, notifier: notifier}
}

func (h *StagedItemHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p StagedItemPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("parse item id %q: %w", p.ID, err)
	}

	status, found, err := h.currentStatus(ctx, p.Kind, id)
	if err != nil {
		return fmt.Errorf("load staged item: %w", err)
	}
	if !found {
		log.Printf("Job: staged %s %s gone, dropping task", p.Kind, p.ID)
		return nil
	}

	// Only new/updated records are eligible. A done/missing/error record
	// means a newer sighting or sweep already resolved this task's claim.
	switch status {
	case models.StatusNew, models.StatusUpdated:
	case models.StatusPending:
		// A crashed worker can leave pending behind; reclaim it.
	default:
		log.Printf("Job: staged %s %s status=%s, skipping", p.Kind, p.ID, status)
		return nil
	}

	if err := h.setStatus(ctx, p.Kind, id, models.StatusPending); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	h.broadcast("item:processing", p)

	if err := h.processor.Process(ctx, p); err != nil {
		log.Printf("Job: processing %s/%s failed: %v", p.Path, p.Name, err)
		if stErr := h.setStatus(ctx, p.Kind, id, models.StatusError); stErr != nil {
			log.Printf("Job: mark error for %s failed: %v", p.ID, stErr)
		}
		h.broadcast("item:error", p)
		// Terminal until a future scan reports the item changed again.
		return fmt.Errorf("process staged item: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.setStatus(ctx, p.Kind, id, models.StatusDone); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	h.broadcast("item:done", p)
	return nil
}

func (h *StagedItemHandler) currentStatus(ctx context.Context, kind string, id uuid.UUID) (models.StageStatus, bool, error) {
	if kind == string(models.KindDirectory) {
		dir, err := h.store.DirectoryByID(ctx, id)
		if err != nil || dir == nil {
			return "", false, err
		}
		return dir.Status, true, nil
	}
	file, err := h.store.FileByID(ctx, id)
	if err != nil || file == nil {
		return "", false, err
	}
	return file.Status, true, nil
}

func (h *StagedItemHandler) setStatus(ctx context.Context, kind string, id uuid.UUID, status models.StageStatus) error {
	if kind == string(models.KindDirectory) {
		return h.store.UpdateDirectoryStatus(ctx, id, status)
	}
	return h.store.UpdateFileStatus(ctx, id, status)
}

func (h *StagedItemHandler) broadcast(event string, p StagedItemPayload) {
	if h.notifier == nil {
		return
	}
	h.notifier.Broadcast(event, map[string]interface{}{
		"id":   p.ID,
		"kind": p.Kind,
		"path": p.Path,
		"name": p.Name,
		"role": p.Role,
	})
}
