package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/StageVault/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// GetOrCreate resolves the library for (client, playerPath, baseDir), creating
// it on first sight. The last-scanned timestamp advances on every call.
func (r *LibraryRepository) GetOrCreate(ctx context.Context, client, playerPath, baseDir string, scannedAt time.Time) (*models.Library, error) {
	lib := &models.Library{Client: client, PlayerPath: playerPath, BaseDir: baseDir}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO libraries (id, client, player_path, base_dir, last_scanned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client, player_path, base_dir)
		DO UPDATE SET last_scanned_at = EXCLUDED.last_scanned_at
		RETURNING id, last_scanned_at, created_at`,
		uuid.New(), client, playerPath, baseDir, scannedAt,
	).Scan(&lib.ID, &lib.LastScannedAt, &lib.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create library: %w", err)
	}
	return lib, nil
}

func (r *LibraryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Library, error) {
	lib := &models.Library{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client, player_path, base_dir, last_scanned_at, created_at
		FROM libraries WHERE id=$1`, id,
	).Scan(&lib.ID, &lib.Client, &lib.PlayerPath, &lib.BaseDir, &lib.LastScannedAt, &lib.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *LibraryRepository) List(ctx context.Context) ([]models.Library, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client, player_path, base_dir, last_scanned_at, created_at
		FROM libraries ORDER BY client, base_dir`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Library
	for rows.Next() {
		var lib models.Library
		if err := rows.Scan(&lib.ID, &lib.Client, &lib.PlayerPath, &lib.BaseDir,
			&lib.LastScannedAt, &lib.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lib)
	}
	return out, rows.Err()
}
