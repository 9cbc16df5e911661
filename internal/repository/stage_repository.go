package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/staging"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so repository methods run
// identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// StageRepository is the Postgres implementation of staging.Store.
type StageRepository struct {
	db *sql.DB
	q  querier
}

func NewStageRepository(db *sql.DB) *StageRepository {
	return &StageRepository{db: db, q: db}
}

var _ staging.Store = (*StageRepository)(nil)

// Transact runs fn against a transaction-bound repository. All mutations in
// one reconcile call commit or roll back together.
func (r *StageRepository) Transact(ctx context.Context, fn func(staging.Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&StageRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// wrapConflict translates a Postgres unique violation into models.ErrConflict.
func wrapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%v: %w", pqErr.Constraint, models.ErrConflict)
	}
	return err
}

// ──────────────────── Directories ────────────────────

const dirColumns = `id, library_id, path, parent_id, dir_mod_time, status, last_seen_at, created_at, updated_at`

func scanDirectory(row *sql.Row) (*models.StageDirectory, error) {
	dir := &models.StageDirectory{}
	err := row.Scan(&dir.ID, &dir.LibraryID, &dir.Path, &dir.ParentID, &dir.DirModTime,
		&dir.Status, &dir.LastSeenAt, &dir.CreatedAt, &dir.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func (r *StageRepository) DirectoryByPath(ctx context.Context, libraryID uuid.UUID, path string) (*models.StageDirectory, error) {
	return scanDirectory(r.q.QueryRowContext(ctx, `
		SELECT `+dirColumns+` FROM stage_directories
		WHERE library_id=$1 AND path=$2`, libraryID, path))
}

func (r *StageRepository) DirectoryByID(ctx context.Context, id uuid.UUID) (*models.StageDirectory, error) {
	return scanDirectory(r.q.QueryRowContext(ctx, `
		SELECT `+dirColumns+` FROM stage_directories WHERE id=$1`, id))
}

func (r *StageRepository) CreateDirectory(ctx context.Context, dir *models.StageDirectory) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO stage_directories (id, library_id, path, parent_id, dir_mod_time, status, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		dir.ID, dir.LibraryID, dir.Path, dir.ParentID, dir.DirModTime, dir.Status, dir.LastSeenAt,
	).Scan(&dir.CreatedAt, &dir.UpdatedAt)
	if err != nil {
		return wrapConflict(err)
	}
	return nil
}

func (r *StageRepository) UpdateDirectory(ctx context.Context, dir *models.StageDirectory) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE stage_directories
		SET parent_id=$2, dir_mod_time=$3, status=$4, last_seen_at=$5, updated_at=NOW()
		WHERE id=$1`,
		dir.ID, dir.ParentID, dir.DirModTime, dir.Status, dir.LastSeenAt)
	return err
}

func (r *StageRepository) TouchDirectory(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE stage_directories SET last_seen_at=$2 WHERE id=$1`, id, seenAt)
	return err
}

func (r *StageRepository) UpdateDirectoryStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE stage_directories SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

// ──────────────────── Files ────────────────────

const fileColumns = `id, directory_id, name, size, file_mod_time, role, status, last_seen_at, created_at, updated_at`

func scanFile(row *sql.Row) (*models.StageFile, error) {
	f := &models.StageFile{}
	err := row.Scan(&f.ID, &f.DirectoryID, &f.Name, &f.Size, &f.FileModTime,
		&f.Role, &f.Status, &f.LastSeenAt, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *StageRepository) FileByName(ctx context.Context, directoryID uuid.UUID, name string) (*models.StageFile, error) {
	return scanFile(r.q.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM stage_files
		WHERE directory_id=$1 AND name=$2`, directoryID, name))
}

func (r *StageRepository) FileByID(ctx context.Context, id uuid.UUID) (*models.StageFile, error) {
	return scanFile(r.q.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM stage_files WHERE id=$1`, id))
}

func (r *StageRepository) CreateFile(ctx context.Context, file *models.StageFile) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO stage_files (id, directory_id, name, size, file_mod_time, role, status, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		file.ID, file.DirectoryID, file.Name, file.Size, file.FileModTime,
		file.Role, file.Status, file.LastSeenAt,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return wrapConflict(err)
	}
	return nil
}

func (r *StageRepository) UpdateFile(ctx context.Context, file *models.StageFile) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE stage_files
		SET size=$2, file_mod_time=$3, role=$4, status=$5, last_seen_at=$6, updated_at=NOW()
		WHERE id=$1`,
		file.ID, file.Size, file.FileModTime, file.Role, file.Status, file.LastSeenAt)
	return err
}

func (r *StageRepository) TouchFile(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE stage_files SET last_seen_at=$2 WHERE id=$1`, id, seenAt)
	return err
}

func (r *StageRepository) UpdateFileStatus(ctx context.Context, id uuid.UUID, status models.StageStatus) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE stage_files SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

// ──────────────────── Sweep queries ────────────────────

// MarkMissingBefore flags directories and files whose last sighting predates
// the cutoff. Terminal missing records are left alone so repeated sweeps are
// idempotent.
func (r *StageRepository) MarkMissingBefore(ctx context.Context, cutoff time.Time) (dirs, files int64, err error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE stage_files SET status=$1, updated_at=NOW()
		WHERE last_seen_at < $2 AND status <> $1`,
		models.StatusMissing, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("mark files missing: %w", err)
	}
	files, _ = res.RowsAffected()

	res, err = r.q.ExecContext(ctx, `
		UPDATE stage_directories SET status=$1, updated_at=NOW()
		WHERE last_seen_at < $2 AND status <> $1`,
		models.StatusMissing, cutoff)
	if err != nil {
		return 0, files, fmt.Errorf("mark directories missing: %w", err)
	}
	dirs, _ = res.RowsAffected()
	return dirs, files, nil
}

// StaleChangedDirectories lists directories stuck in new/updated since before
// the cutoff, oldest first.
func (r *StageRepository) StaleChangedDirectories(ctx context.Context, cutoff time.Time, limit int) ([]models.StageDirectory, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+dirColumns+` FROM stage_directories
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at
		LIMIT $4`,
		models.StatusNew, models.StatusUpdated, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StageDirectory
	for rows.Next() {
		var dir models.StageDirectory
		if err := rows.Scan(&dir.ID, &dir.LibraryID, &dir.Path, &dir.ParentID, &dir.DirModTime,
			&dir.Status, &dir.LastSeenAt, &dir.CreatedAt, &dir.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, dir)
	}
	return out, rows.Err()
}

// StaleFile is a changed file that never reached a worker, joined with the
// context needed to rebuild its queue payload.
type StaleFile struct {
	File      models.StageFile
	DirPath   string
	LibraryID uuid.UUID
}

// StaleChangedFiles lists files stuck in new/updated since before the cutoff,
// oldest first. Used by the sweep to re-enqueue items lost to queue rejects.
func (r *StageRepository) StaleChangedFiles(ctx context.Context, cutoff time.Time, limit int) ([]StaleFile, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT f.id, f.directory_id, f.name, f.size, f.file_mod_time, f.role, f.status,
		       f.last_seen_at, f.created_at, f.updated_at, d.path, d.library_id
		FROM stage_files f
		JOIN stage_directories d ON d.id = f.directory_id
		WHERE f.status IN ($1, $2) AND f.updated_at < $3
		ORDER BY f.updated_at
		LIMIT $4`,
		models.StatusNew, models.StatusUpdated, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleFile
	for rows.Next() {
		var sf StaleFile
		if err := rows.Scan(&sf.File.ID, &sf.File.DirectoryID, &sf.File.Name, &sf.File.Size,
			&sf.File.FileModTime, &sf.File.Role, &sf.File.Status, &sf.File.LastSeenAt,
			&sf.File.CreatedAt, &sf.File.UpdatedAt, &sf.DirPath, &sf.LibraryID); err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}
