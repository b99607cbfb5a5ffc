package checks

import (
	"context"
	"errors"
	"testing"

	"domain-manager/core/database"
	"domain-manager/core/ledger/memory"
	"domain-manager/core/ledger/sqlstore"
	"domain-manager/core/names"
	"domain-manager/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckStorage(t *testing.T) {
	t.Run("counts objects", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "snapshots").Return(true, nil)
		ch := make(chan minio.ObjectInfo, 2)
		ch <- minio.ObjectInfo{Key: "0xa/latest.json"}
		ch <- minio.ObjectInfo{Key: "0xa/1-v1.json"}
		close(ch)
		client.On("ListObjects", mock.Anything, "snapshots", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

		report, err := CheckStorage(context.Background(), client, "snapshots")
		require.NoError(t, err)
		assert.Equal(t, "ok", report.Status)
		assert.True(t, report.Exists)
		assert.Equal(t, 2, report.Objects)
	})

	t.Run("missing bucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "snapshots").Return(false, nil)

		report, err := CheckStorage(context.Background(), client, "snapshots")
		require.NoError(t, err)
		assert.Equal(t, "error", report.Status)
		assert.False(t, report.Exists)
		client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreachable", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "snapshots").Return(false, errors.New("connection refused"))

		_, err := CheckStorage(context.Background(), client, "snapshots")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestFixStorage(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "snapshots").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "snapshots", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	require.NoError(t, FixStorage(context.Background(), client, "snapshots", "eu-west-1"))
	client.AssertExpectations(t)
}

func TestCheckLedger(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    string
		reachable bool
	}{
		{"healthy", nil, "ok", true},
		{"rejected", names.NewError(names.KindRemoteRejected, "countOwned", "denied", nil), "warning", true},
		{"down", names.NewError(names.KindNetworkFailure, "countOwned", "", errors.New("dial tcp")), "error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := memory.New()
			l.Fail(memory.OpCountOwned, tt.err)

			report := CheckLedger(context.Background(), l)
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.reachable, report.Reachable)
			if tt.err != nil {
				assert.Equal(t, names.KindOf(tt.err), report.Kind)
			}
		})
	}
}

type brokenSchema struct{}

func (brokenSchema) Verify() (map[string]sqlstore.TableReport, error) {
	return map[string]sqlstore.TableReport{
		"domains": {Status: "error", MissingColumns: []string{"resolver"}},
	}, errors.New("ledger schema mismatch in [domains]")
}

func TestCheckSchema(t *testing.T) {
	t.Run("skipped without sql ledger", func(t *testing.T) {
		report := CheckSchema(nil)
		assert.Equal(t, "skipped", report.Status)
		assert.True(t, report.Matched)
	})

	t.Run("migrated sqlite mirror", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)
		store := sqlstore.New(db)
		require.NoError(t, store.Migrate())

		report := CheckSchema(store)
		assert.Equal(t, "ok", report.Status)
		assert.True(t, report.Matched)
		assert.Contains(t, report.Tables, "domains")
	})

	t.Run("missing columns", func(t *testing.T) {
		report := CheckSchema(brokenSchema{})
		assert.Equal(t, "error", report.Status)
		assert.False(t, report.Matched)
		assert.Equal(t, []string{"resolver"}, report.Tables["domains"].MissingColumns)
	})
}
