package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadou-sy/catalog-crawler/internal/catalog"
)

func newMockStore(t *testing.T) (*ProductStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewProductStoreWithPool(mock, "products_raw", "products_clean", zaptest.NewLogger(t))
	require.NoError(t, err)
	return store, mock
}

func TestNewProductStoreWithPoolValidatesTableNames(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewProductStoreWithPool(mock, "products; drop", "clean", zaptest.NewLogger(t))
	require.Error(t, err)

	_, err = NewProductStoreWithPool(nil, "", "", zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestAppendRawCopiesRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products_raw").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"products_raw"}, rawColumns).
		WillReturnResult(2)

	products := []catalog.RawProduct{
		{Brand: "Kiprun", Name: "Trail Shoe", Price: "29,99 €"},
		{Brand: "Quechua", Name: "Fleece", Price: "15,00 €"},
	}
	err := store.AppendRaw(context.Background(), uuid.New(), products)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRawNoRowsIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	require.NoError(t, store.AppendRaw(context.Background(), uuid.New(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshCleanDropsRecreatesAndInserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS products_clean").
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec("CREATE TABLE products_clean").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"products_clean"}, cleanColumns).
		WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	products := []catalog.CanonicalProduct{
		{Brand: "kiprun", Name: "trail shoe", Link: "l", Price: 29.99, RatingCount: "0", Shipping: "unspecified"},
	}
	err := store.RefreshClean(context.Background(), products)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshCleanRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS products_clean").
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec("CREATE TABLE products_clean").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"products_clean"}, cleanColumns).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.RefreshClean(context.Background(), []catalog.CanonicalProduct{{Name: "x"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert clean rows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshCleanMismatchedCopyCount(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS products_clean").
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec("CREATE TABLE products_clean").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"products_clean"}, cleanColumns).
		WillReturnResult(0)
	mock.ExpectRollback()

	err := store.RefreshClean(context.Background(), []catalog.CanonicalProduct{{Name: "x"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
