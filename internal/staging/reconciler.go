// Package staging reconciles submitted directory snapshots against the
// persisted catalog. Reconciliation is an idempotent diff: repeated identical
// submissions cause no status churn, and deletions are never performed here
// (a separate sweep handles records that stop being seen).
package staging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/StageVault/internal/filetype"
	"github.com/JustinTDCT/StageVault/internal/models"
)

// Result is the outcome of one reconcile call: the directory record and the
// files whose status became new or updated. Unchanged files are excluded.
type Result struct {
	Directory        *models.StageDirectory
	DirectoryChanged bool
	ChangedFiles     []*models.StageFile
	FilesSkipped     int
}

// Reconciler maps one reported directory snapshot onto persisted state.
// It is stateless; callers provide the repository (normally a transaction
// handle) per call.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile applies the snapshot for lib to the repository. A failure on one
// file is logged and skipped; sibling files and the directory record still
// process. Directory-level failures abort the call.
func (r *Reconciler) Reconcile(ctx context.Context, repo Repository, lib *models.Library, snap models.DirectorySnapshot, now time.Time) (*Result, error) {
	dirPath := NormalizePath(snap.Path)
	if dirPath == "" {
		return nil, fmt.Errorf("reconcile: empty directory path")
	}

	dir, dirChanged, err := r.reconcileDirectory(ctx, repo, lib, dirPath, snap.TimestampMillis, now)
	if err != nil {
		return nil, err
	}

	result := &Result{Directory: dir, DirectoryChanged: dirChanged}
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", dirPath, err)
		}
		file, changed, err := r.reconcileFile(ctx, repo, dir, f, now)
		if err != nil {
			log.Printf("Reconcile: skipping file %q in %s: %v", f.FileName, dirPath, err)
			result.FilesSkipped++
			continue
		}
		if changed {
			result.ChangedFiles = append(result.ChangedFiles, file)
		}
	}
	return result, nil
}

func (r *Reconciler) reconcileDirectory(ctx context.Context, repo Repository, lib *models.Library, dirPath string, tsMillis int64, now time.Time) (*models.StageDirectory, bool, error) {
	modTime := time.UnixMilli(tsMillis).UTC()

	dir, err := repo.DirectoryByPath(ctx, lib.ID, dirPath)
	if err != nil {
		return nil, false, fmt.Errorf("lookup directory %s: %w", dirPath, err)
	}

	if dir == nil {
		dir = &models.StageDirectory{
			ID:         uuid.New(),
			LibraryID:  lib.ID,
			Path:       dirPath,
			ParentID:   r.resolveParent(ctx, repo, lib.ID, dirPath),
			DirModTime: modTime,
			Status:     models.StatusNew,
			LastSeenAt: now,
		}
		err = repo.CreateDirectory(ctx, dir)
		if err == nil {
			return dir, true, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, false, fmt.Errorf("create directory %s: %w", dirPath, err)
		}
		// Lost a creation race; re-read and continue as an update.
		dir, err = repo.DirectoryByPath(ctx, lib.ID, dirPath)
		if err != nil || dir == nil {
			return nil, false, fmt.Errorf("re-read directory %s after conflict: %w", dirPath, err)
		}
	}

	changed := false
	// A missing directory that is sighted again comes back as updated even
	// when its timestamp is unchanged.
	if !dir.DirModTime.Equal(modTime) || dir.Status == models.StatusMissing {
		dir.DirModTime = modTime
		dir.Status = models.StatusUpdated
		dir.LastSeenAt = now
		changed = true
	}
	if dir.ParentID == nil {
		// A parent submitted after its child links up on the child's next sighting.
		if parentID := r.resolveParent(ctx, repo, lib.ID, dirPath); parentID != nil {
			dir.ParentID = parentID
			dir.LastSeenAt = now
			if err := repo.UpdateDirectory(ctx, dir); err != nil {
				return nil, false, fmt.Errorf("link parent of %s: %w", dirPath, err)
			}
			return dir, changed, nil
		}
	}

	if changed {
		if err := repo.UpdateDirectory(ctx, dir); err != nil {
			return nil, false, fmt.Errorf("update directory %s: %w", dirPath, err)
		}
		return dir, true, nil
	}

	if err := repo.TouchDirectory(ctx, dir.ID, now); err != nil {
		log.Printf("Reconcile: touch directory %s: %v", dirPath, err)
	}
	return dir, false, nil
}

func (r *Reconciler) resolveParent(ctx context.Context, repo Repository, libraryID uuid.UUID, dirPath string) *uuid.UUID {
	parentPath := ParentPath(dirPath)
	if parentPath == "" {
		return nil
	}
	parent, err := repo.DirectoryByPath(ctx, libraryID, parentPath)
	if err != nil || parent == nil {
		// An absent parent record is not an error; the link stays unset.
		return nil
	}
	return &parent.ID
}

func (r *Reconciler) reconcileFile(ctx context.Context, repo Repository, dir *models.StageDirectory, snap models.FileSnapshot, now time.Time) (*models.StageFile, bool, error) {
	name := strings.TrimSpace(snap.FileName)
	if name == "" {
		return nil, false, fmt.Errorf("empty file name")
	}
	modTime := time.UnixMilli(snap.TimestampMillis).UTC()

	existing, err := repo.FileByName(ctx, dir.ID, name)
	if err != nil {
		return nil, false, fmt.Errorf("lookup: %w", err)
	}

	if existing == nil {
		file := &models.StageFile{
			ID:          uuid.New(),
			DirectoryID: dir.ID,
			Name:        name,
			Size:        snap.SizeBytes,
			FileModTime: modTime,
			Role:        filetype.Classify(name),
			Status:      models.StatusNew,
			LastSeenAt:  now,
		}
		err = repo.CreateFile(ctx, file)
		if err == nil {
			return file, true, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, false, fmt.Errorf("create: %w", err)
		}
		existing, err = repo.FileByName(ctx, dir.ID, name)
		if err != nil || existing == nil {
			return nil, false, fmt.Errorf("re-read after conflict: %w", err)
		}
	}

	// A missing file that is sighted again comes back as updated even when
	// its size and timestamp are unchanged.
	if existing.Size != snap.SizeBytes || !existing.FileModTime.Equal(modTime) || existing.Status == models.StatusMissing {
		existing.Size = snap.SizeBytes
		existing.FileModTime = modTime
		existing.Status = models.StatusUpdated
		existing.LastSeenAt = now
		if err := repo.UpdateFile(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("update: %w", err)
		}
		return existing, true, nil
	}

	if err := repo.TouchFile(ctx, existing.ID, now); err != nil {
		log.Printf("Reconcile: touch file %q: %v", name, err)
	}
	return existing, false, nil
}
