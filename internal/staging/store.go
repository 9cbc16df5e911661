package staging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/StageVault/internal/models"
)

// Repository is the persistence boundary the reconciler works against.
// Lookups return (nil, nil) when no record exists. Creates return
// models.ErrConflict when the natural key is already taken, so callers can
// re-read and continue as an update. Touch methods record a sighting without
// mutating reconciliation state; the missing sweep relies on them.
type Repository interface {
	DirectoryByPath(ctx context.Context, libraryID uuid.UUID, path string) (*models.StageDirectory, error)
	CreateDirectory(ctx context.Context, dir *models.StageDirectory) error
	UpdateDirectory(ctx context.Context, dir *models.StageDirectory) error
	TouchDirectory(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	UpdateDirectoryStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error

	FileByName(ctx context.Context, directoryID uuid.UUID, name string) (*models.StageFile, error)
	CreateFile(ctx context.Context, file *models.StageFile) error
	UpdateFile(ctx context.Context, file *models.StageFile) error
	TouchFile(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	UpdateFileStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error
}

// Store adds transaction scoping: all mutations inside one Transact call
// commit or roll back as a unit.
type Store interface {
	Repository
	Transact(ctx context.Context, fn func(Repository) error) error
}
