package export_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"domain-manager/core/orchestrator"
	"domain-manager/core/server"
	"domain-manager/core/storage"
	"domain-manager/core/storage/mocks"
	"domain-manager/feature/export"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type source struct{ snap orchestrator.Snapshot }

func (s source) Snapshot() orchestrator.Snapshot { return s.snap }

func setupApp(t *testing.T, client *mocks.Client, snap orchestrator.Snapshot) *fiber.App {
	t.Helper()
	f := export.NewFeature(client, storage.Config{Bucket: "snapshots"}, source{snap}, zap.NewNop())
	assert.Equal(t, "export", f.Name())
	assert.True(t, f.IsEnabled())
	app := server.NewApp()
	require.NoError(t, f.Load(app))
	return app
}

func TestHandleExport(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "snapshots").Return(true, nil)
	client.On("PutObject", mock.Anything, "snapshots", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	app := setupApp(t, client, orchestrator.Snapshot{Account: "0xa", Version: 2})

	resp, err := app.Test(httptest.NewRequest("POST", "/export", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"key":"0xa/`)
	client.AssertNumberOfCalls(t, "PutObject", 2)
}

func TestHandleExport_NoAccount(t *testing.T) {
	app := setupApp(t, new(mocks.Client), orchestrator.Snapshot{})

	resp, err := app.Test(httptest.NewRequest("POST", "/export", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleLatest_NotFound(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "snapshots", "0xa/latest.json", mock.Anything).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."})
	app := setupApp(t, client, orchestrator.Snapshot{})

	resp, err := app.Test(httptest.NewRequest("GET", "/export/0xa/latest", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleList_Empty(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "snapshots", mock.Anything).Return(nil)
	app := setupApp(t, client, orchestrator.Snapshot{})

	resp, err := app.Test(httptest.NewRequest("GET", "/export/0xa", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestHandlePrune_BadKeep(t *testing.T) {
	app := setupApp(t, new(mocks.Client), orchestrator.Snapshot{})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/export/0xa?keep=many", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePrune_StorageFailure(t *testing.T) {
	client := new(mocks.Client)
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("unreachable")}
	close(ch)
	client.On("ListObjects", mock.Anything, "snapshots", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))
	app := setupApp(t, client, orchestrator.Snapshot{})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/export/0xa?keep=1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
