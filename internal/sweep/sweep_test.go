package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/StageVault/internal/jobs"
	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/repository"
)

type fakeStore struct {
	missingCutoff time.Time
	staleDirs     []models.StageDirectory
	staleFiles    []repository.StaleFile
	markErr       error
}

func (f *fakeStore) MarkMissingBefore(_ context.Context, cutoff time.Time) (int64, int64, error) {
	f.missingCutoff = cutoff
	return 1, 2, f.markErr
}

func (f *fakeStore) StaleChangedDirectories(_ context.Context, _ time.Time, _ int) ([]models.StageDirectory, error) {
	return f.staleDirs, nil
}

func (f *fakeStore) StaleChangedFiles(_ context.Context, _ time.Time, _ int) ([]repository.StaleFile, error) {
	return f.staleFiles, nil
}

type fakeQueue struct {
	payloads []jobs.StagedItemPayload
	failIDs  map[string]bool
}

func (f *fakeQueue) EnqueueUnique(_ string, payload interface{}, uniqueID string, _ ...asynq.Option) (string, error) {
	if f.failIDs[uniqueID] {
		return "", errors.New("queue full")
	}
	f.payloads = append(f.payloads, payload.(jobs.StagedItemPayload))
	return uniqueID, nil
}

func TestRunRequeuesStaleItems(t *testing.T) {
	dirID := uuid.New()
	fileID := uuid.New()
	libID := uuid.New()

	store := &fakeStore{
		staleDirs: []models.StageDirectory{{
			ID:        dirID,
			LibraryID: libID,
			Path:      "/srv/media/tv/Game of Thrones (2011)",
			Status:    models.StatusNew,
		}},
		staleFiles: []repository.StaleFile{{
			File: models.StageFile{
				ID:     fileID,
				Name:   "Game of Thrones.S03E03E04.avi",
				Role:   models.RoleVideo,
				Status: models.StatusUpdated,
			},
			DirPath:   "/srv/media/tv/Game of Thrones (2011)",
			LibraryID: libID,
		}},
	}
	queue := &fakeQueue{}
	s := New(store, queue, 48*time.Hour, 30*time.Minute, 100)

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, queue.payloads, 2)

	dir := queue.payloads[0]
	assert.Equal(t, dirID.String(), dir.ID)
	assert.Equal(t, string(models.KindDirectory), dir.Kind)
	assert.Equal(t, "Game of Thrones", dir.Info.Title)
	assert.Equal(t, 2011, dir.Info.Year)

	file := queue.payloads[1]
	assert.Equal(t, fileID.String(), file.ID)
	assert.Equal(t, string(models.KindFile), file.Kind)
	assert.Equal(t, string(models.RoleVideo), file.Role)
	assert.Equal(t, 3, file.Info.Season)
	assert.Equal(t, []int{3, 4}, file.Info.Episodes)
}

func TestRunUsesConfiguredCutoffs(t *testing.T) {
	store := &fakeStore{}
	s := New(store, &fakeQueue{}, 48*time.Hour, 30*time.Minute, 100)

	before := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.Run(context.Background()))
	after := time.Now().UTC().Add(-48 * time.Hour)

	assert.False(t, store.missingCutoff.Before(before))
	assert.False(t, store.missingCutoff.After(after))
}

func TestRunContinuesPastEnqueueFailure(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()
	store := &fakeStore{
		staleFiles: []repository.StaleFile{
			{File: models.StageFile{ID: id1, Name: "a.mkv", Role: models.RoleVideo, Status: models.StatusNew}, DirPath: "/srv/x", LibraryID: uuid.New()},
			{File: models.StageFile{ID: id2, Name: "b.mkv", Role: models.RoleVideo, Status: models.StatusNew}, DirPath: "/srv/x", LibraryID: uuid.New()},
		},
	}
	queue := &fakeQueue{failIDs: map[string]bool{"stage:" + id1.String(): true}}
	s := New(store, queue, time.Hour, time.Minute, 10)

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, queue.payloads, 1)
	assert.Equal(t, id2.String(), queue.payloads[0].ID)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store := &fakeStore{
		staleDirs: []models.StageDirectory{{
			ID:        uuid.New(),
			LibraryID: uuid.New(),
			Path:      "/srv/media/tv/Show",
			Status:    models.StatusNew,
		}},
	}
	queue := &fakeQueue{}
	s := New(store, queue, time.Hour, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Empty(t, queue.payloads)
}

func TestStopCancelsScheduledPasses(t *testing.T) {
	s := New(&fakeStore{}, &fakeQueue{}, time.Hour, time.Minute, 10)
	require.NoError(t, s.Start("@every 1h"))

	s.Stop()
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}

func TestRunPropagatesStoreError(t *testing.T) {
	store := &fakeStore{markErr: errors.New("db down")}
	s := New(store, &fakeQueue{}, time.Hour, time.Minute, 10)
	assert.Error(t, s.Run(context.Background()))
}
