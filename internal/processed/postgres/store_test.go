package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewStoreWithPool(mock, "indexing_processed")
	require.NoError(t, err)
	return store, mock
}

func TestNewStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil, "processed")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithPool(mock, "processed; DROP TABLE x")
	require.Error(t, err)

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "indexing_processed", store.table)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS indexing_processed").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessed(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT url FROM indexing_processed").
		WillReturnRows(mock.NewRows([]string{"url"}).
			AddRow("https://example.com/a").
			AddRow("https://example.com/b"))

	seen, err := store.Processed(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"https://example.com/a": {}, "https://example.com/b": {}}, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedQueryError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT url FROM indexing_processed").WillReturnError(errors.New("connection reset"))

	_, err := store.Processed(context.Background())
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessedIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO indexing_processed \(url\) VALUES \(\$1\) ON CONFLICT \(url\) DO NOTHING`).
		WithArgs("https://example.com/a").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, store.MarkProcessed(context.Background(), "https://example.com/a"))
	require.NoError(t, mock.ExpectationsWereMet())
}
