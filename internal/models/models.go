package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Errors ────────────────────

// ErrConflict is returned by repositories when an insert collides with an
// existing record on a natural key. Callers re-read and treat it as an update.
var ErrConflict = errors.New("record already exists")

// ──────────────────── Enums ────────────────────

// StageStatus tracks the reconciliation and downstream-processing lifecycle of
// a staged directory or file.
type StageStatus string

const (
	StatusNew     StageStatus = "new"
	StatusUpdated StageStatus = "updated"
	StatusPending StageStatus = "pending"
	StatusDone    StageStatus = "done"
	StatusError   StageStatus = "error"
	StatusMissing StageStatus = "missing"
)

// FileRole classifies what a staged file is for.
type FileRole string

const (
	RoleVideo      FileRole = "video"
	RoleTrailer    FileRole = "trailer"
	RoleSubtitle   FileRole = "subtitle"
	RoleNFO        FileRole = "nfo"
	RolePoster     FileRole = "poster"
	RoleFanart     FileRole = "fanart"
	RoleVideoImage FileRole = "videoimage"
	RoleUnknown    FileRole = "unknown"
)

// ItemKind distinguishes queue items for directories from those for files.
type ItemKind string

const (
	KindDirectory ItemKind = "directory"
	KindFile      ItemKind = "file"
)

// ──────────────────── Library ────────────────────

// Library is one scanned root, identified by (client, player path, base dir).
type Library struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Client        string    `json:"client" db:"client"`
	PlayerPath    string    `json:"player_path" db:"player_path"`
	BaseDir       string    `json:"base_dir" db:"base_dir"`
	LastScannedAt time.Time `json:"last_scanned_at" db:"last_scanned_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Stage entities ────────────────────

// StageDirectory is a directory observed inside a library tree. Path is
// normalized and unique per library. ParentID is set only when the parent
// directory is itself already staged.
type StageDirectory struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	LibraryID  uuid.UUID   `json:"library_id" db:"library_id"`
	Path       string      `json:"path" db:"path"`
	ParentID   *uuid.UUID  `json:"parent_id,omitempty" db:"parent_id"`
	DirModTime time.Time   `json:"dir_mod_time" db:"dir_mod_time"`
	Status     StageStatus `json:"status" db:"status"`
	LastSeenAt time.Time   `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// StageFile is a file observed inside a StageDirectory. Name is unique per
// directory.
type StageFile struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	DirectoryID uuid.UUID   `json:"directory_id" db:"directory_id"`
	Name        string      `json:"name" db:"name"`
	Size        int64       `json:"size" db:"size"`
	FileModTime time.Time   `json:"file_mod_time" db:"file_mod_time"`
	Role        FileRole    `json:"role" db:"role"`
	Status      StageStatus `json:"status" db:"status"`
	LastSeenAt  time.Time   `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Import wire DTOs ────────────────────

// ImportRequest is one scan submission: a single directory plus its immediate
// files. Full-tree traversal is the scanning client's job, not ours.
type ImportRequest struct {
	Client        string            `json:"client"`
	PlayerPath    string            `json:"player_path"`
	BaseDirectory string            `json:"base_directory"`
	Directory     DirectorySnapshot `json:"directory"`
}

type DirectorySnapshot struct {
	Path            string         `json:"path"`
	TimestampMillis int64          `json:"timestamp_millis"`
	Files           []FileSnapshot `json:"files"`
}

type FileSnapshot struct {
	FileName        string `json:"file_name"`
	SizeBytes       int64  `json:"size_bytes"`
	TimestampMillis int64  `json:"timestamp_millis"`
}

// ImportResult summarizes one ImportScan call.
type ImportResult struct {
	LibraryID       uuid.UUID   `json:"library_id"`
	DirectoryID     uuid.UUID   `json:"directory_id"`
	DirectoryStatus StageStatus `json:"directory_status"`
	FilesReported   int         `json:"files_reported"`
	FilesChanged    int         `json:"files_changed"`
	FilesSkipped    int         `json:"files_skipped"`
	Enqueued        int         `json:"enqueued"`
}
