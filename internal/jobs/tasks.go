package jobs

import (
	"github.com/JustinTDCT/StageVault/internal/parser"
)

// ──────── Payloads ────────

// StagedItemPayload carries everything a worker needs to process one staged
// record without re-querying the scan report.
type StagedItemPayload struct {
	ID        string              `json:"id"`
	LibraryID string              `json:"library_id"`
	Kind      string              `json:"kind"`
	Role      string              `json:"role,omitempty"`
	Status    string              `json:"status"`
	Path      string              `json:"path"`
	Name      string              `json:"name"`
	Info      parser.FilenameInfo `json:"info"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, store StatusStore, processor ItemProcessor, notifier EventNotifier) {
	q.RegisterHandler(TaskProcessStagedItem, NewStagedItemHandler(store, processor, notifier))
}
