package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"domain-manager/core/database"
	"domain-manager/core/ledger"
	"domain-manager/core/ledger/sqlstore"
	"domain-manager/core/names"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	s := sqlstore.New(db)
	require.NoError(t, s.Migrate())
	return s
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestOwnershipListing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for _, id := range []names.EntityID{"c", "a", "b"} {
		require.NoError(t, s.PutDomain(ctx, names.Domain{ID: id, Name: string(id) + ".eth", Owner: "0xA"}))
	}
	require.NoError(t, s.PutDomain(ctx, names.Domain{ID: "z", Owner: "0xb"}))

	n, err := s.CountOwned(ctx, "0xa")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := s.ListOwned(ctx, "0xa", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []names.EntityID{"c", "a"}, page)

	page, err = s.ListOwned(ctx, "0xa", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []names.EntityID{"b"}, page)

	page, err = s.ListOwned(ctx, "0xa", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestRecords_SetDeleteAndBatch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutDomain(ctx, names.Domain{ID: "alice", Owner: "0xa"}))

	require.NoError(t, s.SetRecord(ctx, "alice", names.KeyAvatar, ledger.Value("a.png")))
	require.NoError(t, s.SetRecord(ctx, "alice", names.KeyAvatar, ledger.Value("b.png")))
	require.NoError(t, s.SetRecords(ctx, "alice", []ledger.Write{
		{Key: names.KeyEmail, Value: ledger.Value("")},
		{Key: names.KeyEVM, Value: ledger.Value("0xa")},
	}))

	records, err := s.GetRecords(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []names.Record{
		{Key: names.KeyEVM, Value: "0xa"},
		{Key: names.KeyAvatar, Value: "b.png"},
		{Key: names.KeyEmail, Value: ""},
	}, records)

	require.NoError(t, s.SetRecord(ctx, "alice", names.KeyAvatar, nil))
	records, err = s.GetRecords(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSetRecords_UnknownNameRejected(t *testing.T) {
	s := setupStore(t)

	err := s.SetRecords(context.Background(), "ghost", []ledger.Write{{Key: names.KeyAvatar, Value: ledger.Value("x")}})
	assert.ErrorIs(t, err, names.ErrRemoteRejected)
}

func TestReverseLookupAndDomain(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutDomain(ctx, names.Domain{ID: "alice", Name: "alice.eth", Owner: "0xA", Resolver: "0xres"}))
	require.NoError(t, s.PutReverse(ctx, "0xA", "alice"))

	name, found, err := s.ReverseLookup(ctx, "0xa")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, names.EntityID("alice"), name)

	_, found, err = s.ReverseLookup(ctx, "0xb")
	require.NoError(t, err)
	assert.False(t, found)

	d, err := s.GetDomain(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, names.Domain{ID: "alice", Name: "alice.eth", Owner: "0xa", Resolver: "0xres"}, d)

	_, err = s.GetDomain(ctx, "ghost")
	assert.ErrorIs(t, err, names.ErrRemoteRejected)
}

func TestVerify(t *testing.T) {
	s := setupStore(t)
	report, err := s.Verify()
	require.NoError(t, err)
	assert.Equal(t, "ok", report["domains"].Status)

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE domains (id TEXT, owner TEXT)").Error)

	report, err = sqlstore.New(db).Verify()
	assert.Error(t, err)
	assert.Equal(t, "error", report["domains"].Status)
	assert.Equal(t, []string{"name", "resolver", "position"}, report["domains"].MissingColumns)
	assert.Equal(t, "error", report["reverse_records"].Status)
}

func TestQueryFailureIsNetworkFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `domains`").WillReturnError(errors.New("connection refused"))

	_, err := sqlstore.New(db).CountOwned(context.Background(), "0xa")
	assert.ErrorIs(t, err, names.ErrNetworkFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_MySQLShowColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	cols := []string{"Field", "Type", "Null", "Key", "Default", "Extra"}

	mock.ExpectQuery("SHOW COLUMNS FROM `domain_records`").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("domain_id", "varchar(128)", "NO", "PRI", nil, "").
		AddRow("record_key", "varchar(64)", "NO", "PRI", nil, "").
		AddRow("value", "text", "YES", "", nil, ""))
	mock.ExpectQuery("SHOW COLUMNS FROM `domains`").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("id", "varchar(128)", "NO", "PRI", nil, "").
		AddRow("name", "varchar(255)", "YES", "", nil, "").
		AddRow("owner", "varchar(128)", "YES", "MUL", nil, "").
		AddRow("resolver", "varchar(128)", "YES", "", nil, "").
		AddRow("position", "bigint", "YES", "MUL", nil, ""))
	mock.ExpectQuery("SHOW COLUMNS FROM `reverse_records`").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("address", "varchar(128)", "NO", "PRI", nil, ""))

	report, err := sqlstore.New(db).Verify()
	assert.Error(t, err)
	assert.Equal(t, "ok", report["domains"].Status)
	assert.Equal(t, "ok", report["domain_records"].Status)
	assert.Equal(t, []string{"name"}, report["reverse_records"].MissingColumns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
