package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/StageVault/internal/jobs"
	"github.com/JustinTDCT/StageVault/internal/models"
	"github.com/JustinTDCT/StageVault/internal/staging"
)

type fakeLibraries struct {
	mu   sync.Mutex
	libs map[string]*models.Library
}

func newFakeLibraries() *fakeLibraries {
	return &fakeLibraries{libs: make(map[string]*models.Library)}
}

func (f *fakeLibraries) GetOrCreate(_ context.Context, client, playerPath, baseDir string, scannedAt time.Time) (*models.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := client + "|" + playerPath + "|" + baseDir
	if lib, ok := f.libs[key]; ok {
		lib.LastScannedAt = scannedAt
		cp := *lib
		return &cp, nil
	}
	lib := &models.Library{
		ID:            uuid.New(),
		Client:        client,
		PlayerPath:    playerPath,
		BaseDir:       baseDir,
		LastScannedAt: scannedAt,
		CreatedAt:     scannedAt,
	}
	f.libs[key] = lib
	cp := *lib
	return &cp, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	payloads []jobs.StagedItemPayload
	fail     bool
}

func (f *fakeQueue) EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("queue full")
	}
	f.payloads = append(f.payloads, payload.(jobs.StagedItemPayload))
	return uniqueID, nil
}

func testRequest(now time.Time) models.ImportRequest {
	return models.ImportRequest{
		Client:        "kodi",
		PlayerPath:    "/media/movies",
		BaseDirectory: "/srv/media/movies",
		Directory: models.DirectorySnapshot{
			Path:            "/srv/media/movies/Avatar (2009)",
			TimestampMillis: now.Add(-time.Hour).UnixMilli(),
			Files: []models.FileSnapshot{
				{FileName: "Avatar (2009).mkv", SizeBytes: 4096, TimestampMillis: now.Add(-time.Hour).UnixMilli()},
				{FileName: "Avatar (2009).trailer.mkv", SizeBytes: 128, TimestampMillis: now.Add(-time.Hour).UnixMilli()},
				{FileName: "poster.jpg", SizeBytes: 16, TimestampMillis: now.Add(-time.Hour).UnixMilli()},
			},
		},
	}
}

func newTestCoordinator(queue Enqueuer) (*Coordinator, *staging.MemoryStore) {
	store := staging.NewMemoryStore()
	c := NewCoordinator(newFakeLibraries(), store, queue, nil)
	return c, store
}

func TestImportScanStagesAndEnqueues(t *testing.T) {
	queue := &fakeQueue{}
	c, store := newTestCoordinator(queue)
	now := time.Now().UTC()

	res, err := c.ImportScan(context.Background(), testRequest(now))
	require.NoError(t, err)

	assert.Equal(t, models.StatusNew, res.DirectoryStatus)
	assert.Equal(t, 3, res.FilesReported)
	assert.Equal(t, 3, res.FilesChanged)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 4, res.Enqueued) // directory + 3 files

	require.Len(t, queue.payloads, 4)
	dir := queue.payloads[0]
	assert.Equal(t, string(models.KindDirectory), dir.Kind)
	assert.Equal(t, "Avatar", dir.Info.Title)
	assert.Equal(t, 2009, dir.Info.Year)
	assert.Equal(t, "Avatar_2009", dir.Info.MovieKey())

	roles := map[string]string{}
	for _, p := range queue.payloads[1:] {
		assert.Equal(t, string(models.KindFile), p.Kind)
		roles[p.Name] = p.Role
	}
	assert.Equal(t, string(models.RoleVideo), roles["Avatar (2009).mkv"])
	assert.Equal(t, string(models.RoleTrailer), roles["Avatar (2009).trailer.mkv"])
	assert.Equal(t, string(models.RolePoster), roles["poster.jpg"])

	got, err := store.DirectoryByPath(context.Background(), res.LibraryID, "/srv/media/movies/Avatar (2009)")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusNew, got.Status)
}

func TestImportScanSecondCallIsNoOp(t *testing.T) {
	queue := &fakeQueue{}
	c, _ := newTestCoordinator(queue)
	now := time.Now().UTC()
	req := testRequest(now)

	_, err := c.ImportScan(context.Background(), req)
	require.NoError(t, err)

	res, err := c.ImportScan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesChanged)
	assert.Equal(t, 0, res.Enqueued)
	assert.Len(t, queue.payloads, 4)
}

func TestImportScanClampsFutureTimestamps(t *testing.T) {
	queue := &fakeQueue{}
	c, store := newTestCoordinator(queue)
	now := time.Now().UTC()
	c.now = func() time.Time { return now }

	req := testRequest(now)
	req.Directory.TimestampMillis = now.Add(time.Hour).UnixMilli()
	req.Directory.Files[0].TimestampMillis = now.Add(2 * time.Hour).UnixMilli()

	res, err := c.ImportScan(context.Background(), req)
	require.NoError(t, err)

	dir, err := store.DirectoryByPath(context.Background(), res.LibraryID, "/srv/media/movies/Avatar (2009)")
	require.NoError(t, err)
	require.NotNil(t, dir)
	assert.False(t, dir.DirModTime.After(now))

	file, err := store.FileByName(context.Background(), dir.ID, "Avatar (2009).mkv")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.False(t, file.FileModTime.After(now))

	// A follow-up honest scan at the same clamped instant changes nothing.
	res2, err := c.ImportScan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.FilesChanged)
}

func TestImportScanValidation(t *testing.T) {
	c, _ := newTestCoordinator(&fakeQueue{})
	now := time.Now().UTC()

	for name, mutate := range map[string]func(*models.ImportRequest){
		"empty client":   func(r *models.ImportRequest) { r.Client = "" },
		"empty base dir": func(r *models.ImportRequest) { r.BaseDirectory = "" },
		"empty path":     func(r *models.ImportRequest) { r.Directory.Path = "" },
	} {
		t.Run(name, func(t *testing.T) {
			req := testRequest(now)
			mutate(&req)
			_, err := c.ImportScan(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestImportScanSurvivesEnqueueFailure(t *testing.T) {
	queue := &fakeQueue{fail: true}
	c, store := newTestCoordinator(queue)
	now := time.Now().UTC()

	res, err := c.ImportScan(context.Background(), testRequest(now))
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesChanged)
	assert.Equal(t, 0, res.Enqueued)

	// Items keep their changed status so the sweep can requeue them.
	dir, err := store.DirectoryByPath(context.Background(), res.LibraryID, "/srv/media/movies/Avatar (2009)")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, dir.Status)
}

func TestImportScanConcurrentSameDirectory(t *testing.T) {
	queue := &fakeQueue{}
	c, store := newTestCoordinator(queue)
	now := time.Now().UTC()
	req := testRequest(now)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ImportScan(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Exactly one directory record exists despite the race.
	lib, err := c.libraries.GetOrCreate(context.Background(), req.Client, req.PlayerPath, "/srv/media/movies", now)
	require.NoError(t, err)
	dir, err := store.DirectoryByPath(context.Background(), lib.ID, "/srv/media/movies/Avatar (2009)")
	require.NoError(t, err)
	require.NotNil(t, dir)
}
