package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/StageVault/internal/models"
)

// MemoryStore is an in-process Store for tests and single-node ephemeral
// deployments. Transact serializes callers instead of providing rollback;
// durable atomicity comes from the database-backed store.
type MemoryStore struct {
	mu    sync.Mutex
	dirs  map[uuid.UUID]*models.StageDirectory
	files map[uuid.UUID]*models.StageFile

	dirByPath  map[string]uuid.UUID // libraryID|path
	fileByName map[string]uuid.UUID // directoryID|name
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dirs:       make(map[uuid.UUID]*models.StageDirectory),
		files:      make(map[uuid.UUID]*models.StageFile),
		dirByPath:  make(map[string]uuid.UUID),
		fileByName: make(map[string]uuid.UUID),
	}
}

var _ Store = (*MemoryStore)(nil)

func dirKey(libraryID uuid.UUID, path string) string {
	return libraryID.String() + "|" + path
}

func fileKey(directoryID uuid.UUID, name string) string {
	return directoryID.String() + "|" + name
}

func (s *MemoryStore) Transact(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(unlockedRepo{s})
}

// unlockedRepo exposes the store's repository methods without re-locking,
// for use inside Transact.
type unlockedRepo struct{ s *MemoryStore }

func (s *MemoryStore) DirectoryByPath(ctx context.Context, libraryID uuid.UUID, path string) (*models.StageDirectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.DirectoryByPath(ctx, libraryID, path)
}

func (r unlockedRepo) DirectoryByPath(_ context.Context, libraryID uuid.UUID, path string) (*models.StageDirectory, error) {
	id, ok := r.s.dirByPath[dirKey(libraryID, path)]
	if !ok {
		return nil, nil
	}
	cp := *r.s.dirs[id]
	return &cp, nil
}

func (s *MemoryStore) CreateDirectory(ctx context.Context, dir *models.StageDirectory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.CreateDirectory(ctx, dir)
}

func (r unlockedRepo) CreateDirectory(_ context.Context, dir *models.StageDirectory) error {
	key := dirKey(dir.LibraryID, dir.Path)
	if _, ok := r.s.dirByPath[key]; ok {
		return fmt.Errorf("directory %s: %w", dir.Path, models.ErrConflict)
	}
	dir.CreatedAt = time.Now().UTC()
	dir.UpdatedAt = dir.CreatedAt
	cp := *dir
	r.s.dirs[dir.ID] = &cp
	r.s.dirByPath[key] = dir.ID
	return nil
}

func (s *MemoryStore) UpdateDirectory(ctx context.Context, dir *models.StageDirectory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.UpdateDirectory(ctx, dir)
}

func (r unlockedRepo) UpdateDirectory(_ context.Context, dir *models.StageDirectory) error {
	stored, ok := r.s.dirs[dir.ID]
	if !ok {
		return fmt.Errorf("directory %s not found", dir.ID)
	}
	dir.UpdatedAt = time.Now().UTC()
	cp := *dir
	cp.CreatedAt = stored.CreatedAt
	r.s.dirs[dir.ID] = &cp
	return nil
}

func (s *MemoryStore) TouchDirectory(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.TouchDirectory(ctx, id, seenAt)
}

func (r unlockedRepo) TouchDirectory(_ context.Context, id uuid.UUID, seenAt time.Time) error {
	dir, ok := r.s.dirs[id]
	if !ok {
		return fmt.Errorf("directory %s not found", id)
	}
	dir.LastSeenAt = seenAt
	return nil
}

func (s *MemoryStore) UpdateDirectoryStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.UpdateDirectoryStatus(ctx, id, status)
}

func (r unlockedRepo) UpdateDirectoryStatus(_ context.Context, id uuid.UUID, status models.StageStatus) error {
	dir, ok := r.s.dirs[id]
	if !ok {
		return fmt.Errorf("directory %s not found", id)
	}
	dir.Status = status
	dir.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) FileByName(ctx context.Context, directoryID uuid.UUID, name string) (*models.StageFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.FileByName(ctx, directoryID, name)
}

func (r unlockedRepo) FileByName(_ context.Context, directoryID uuid.UUID, name string) (*models.StageFile, error) {
	id, ok := r.s.fileByName[fileKey(directoryID, name)]
	if !ok {
		return nil, nil
	}
	cp := *r.s.files[id]
	return &cp, nil
}

func (s *MemoryStore) CreateFile(ctx context.Context, file *models.StageFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.CreateFile(ctx, file)
}

func (r unlockedRepo) CreateFile(_ context.Context, file *models.StageFile) error {
	key := fileKey(file.DirectoryID, file.Name)
	if _, ok := r.s.fileByName[key]; ok {
		return fmt.Errorf("file %s: %w", file.Name, models.ErrConflict)
	}
	file.CreatedAt = time.Now().UTC()
	file.UpdatedAt = file.CreatedAt
	cp := *file
	r.s.files[file.ID] = &cp
	r.s.fileByName[key] = file.ID
	return nil
}

func (s *MemoryStore) UpdateFile(ctx context.Context, file *models.StageFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.UpdateFile(ctx, file)
}

func (r unlockedRepo) UpdateFile(_ context.Context, file *models.StageFile) error {
	stored, ok := r.s.files[file.ID]
	if !ok {
		return fmt.Errorf("file %s not found", file.ID)
	}
	file.UpdatedAt = time.Now().UTC()
	cp := *file
	cp.CreatedAt = stored.CreatedAt
	r.s.files[file.ID] = &cp
	return nil
}

func (s *MemoryStore) TouchFile(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.TouchFile(ctx, id, seenAt)
}

func (r unlockedRepo) TouchFile(_ context.Context, id uuid.UUID, seenAt time.Time) error {
	file, ok := r.s.files[id]
	if !ok {
		return fmt.Errorf("file %s not found", id)
	}
	file.LastSeenAt = seenAt
	return nil
}

func (s *MemoryStore) UpdateFileStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlockedRepo{s}.UpdateFileStatus(ctx, id, status)
}

func (r unlockedRepo) UpdateFileStatus(_ context.Context, id uuid.UUID, status models.StageStatus) error {
	file, ok := r.s.files[id]
	if !ok {
		return fmt.Errorf("file %s not found", id)
	}
	file.Status = status
	file.UpdatedAt = time.Now().UTC()
	return nil
}

// FileByID returns a copy of a staged file, or nil when absent. Used by the
// worker handler and tests.
func (s *MemoryStore) FileByID(_ context.Context, id uuid.UUID) (*models.StageFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok {
		return nil, nil
	}
	cp := *file
	return &cp, nil
}

// DirectoryByID returns a copy of a staged directory, or nil when absent.
func (s *MemoryStore) DirectoryByID(_ context.Context, id uuid.UUID) (*models.StageDirectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok := s.dirs[id]
	if !ok {
		return nil, nil
	}
	cp := *dir
	return &cp, nil
}
