package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/StageVault/internal/auth"
	"github.com/JustinTDCT/StageVault/internal/config"
	"github.com/JustinTDCT/StageVault/internal/importer"
	"github.com/JustinTDCT/StageVault/internal/models"
)

type fakeImporter struct {
	lastReq models.ImportRequest
	result  *models.ImportResult
	err     error
}

func (f *fakeImporter) ImportScan(_ context.Context, req models.ImportRequest) (*models.ImportResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLibraries struct {
	libs []models.Library
	err  error
}

func (f *fakeLibraries) List(context.Context) ([]models.Library, error) {
	return f.libs, f.err
}

func newTestServer(t *testing.T, imp Importer, libs LibraryLister) (*Server, string) {
	t.Helper()
	hash, err := auth.HashSecret("scanner-secret")
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: "test-signing-key", ScannerSecretHash: hash}
	s := NewServer(cfg, imp, libs, nil)

	token, _, err := s.authSvc.Authenticate("kodi", "scanner-secret")
	require.NoError(t, err)
	return s, token
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &fakeImporter{}, &fakeLibraries{})
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestTokenEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeImporter{}, &fakeLibraries{})

	rec := doJSON(t, s, http.MethodPost, "/api/auth/token", "", map[string]string{
		"client": "kodi", "secret": "scanner-secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = doJSON(t, s, http.MethodPost, "/api/auth/token", "", map[string]string{
		"client": "kodi", "secret": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportScanRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, &fakeImporter{}, &fakeLibraries{})
	rec := doJSON(t, s, http.MethodPost, "/api/scan/import", "", models.ImportRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportScan(t *testing.T) {
	libID := uuid.New()
	imp := &fakeImporter{result: &models.ImportResult{
		LibraryID:       libID,
		DirectoryStatus: models.StatusNew,
		FilesReported:   2,
		FilesChanged:    2,
		Enqueued:        3,
	}}
	s, token := newTestServer(t, imp, &fakeLibraries{})

	req := models.ImportRequest{
		PlayerPath:    "/media/movies",
		BaseDirectory: "/srv/media/movies",
		Directory: models.DirectorySnapshot{
			Path: "/srv/media/movies/Avatar (2009)",
			Files: []models.FileSnapshot{
				{FileName: "Avatar (2009).mkv", SizeBytes: 4096},
				{FileName: "poster.jpg", SizeBytes: 16},
			},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/scan/import", token, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Client identity is filled in from the token when the body omits it.
	assert.Equal(t, "kodi", imp.lastReq.Client)
	assert.Contains(t, rec.Body.String(), libID.String())
}

func TestImportScanClientMismatch(t *testing.T) {
	s, token := newTestServer(t, &fakeImporter{result: &models.ImportResult{}}, &fakeLibraries{})
	req := models.ImportRequest{Client: "plex", BaseDirectory: "/srv", Directory: models.DirectorySnapshot{Path: "/srv/x"}}
	rec := doJSON(t, s, http.MethodPost, "/api/scan/import", token, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestImportScanStatusMapping(t *testing.T) {
	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"validation": {fmt.Errorf("%w: client is required", importer.ErrInvalidRequest), http.StatusBadRequest},
		"storage":    {errors.New("db down"), http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			s, token := newTestServer(t, &fakeImporter{err: tc.err}, &fakeLibraries{})
			rec := doJSON(t, s, http.MethodPost, "/api/scan/import", token,
				models.ImportRequest{BaseDirectory: "/srv", Directory: models.DirectorySnapshot{Path: "/srv/x"}})
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestListLibraries(t *testing.T) {
	libs := &fakeLibraries{libs: []models.Library{{ID: uuid.New(), Client: "kodi", BaseDir: "/srv/media/movies"}}}
	s, token := newTestServer(t, &fakeImporter{}, libs)

	rec := doJSON(t, s, http.MethodGet, "/api/libraries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/srv/media/movies")

	rec = doJSON(t, s, http.MethodGet, "/api/libraries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
