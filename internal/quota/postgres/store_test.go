package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

func TestNewStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil, "quota")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithPool(mock, "quota; DROP TABLE x")
	require.Error(t, err)

	store, err := NewStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "indexing_quota", store.table)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "indexing_quota")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS indexing_quota").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLatestRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "indexing_quota")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT date, requests_used FROM indexing_quota").
		WillReturnRows(mock.NewRows([]string{"date", "requests_used"}).AddRow("2026-10-17", 37))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, indexing.QuotaState{Date: "2026-10-17", RequestsUsed: 37}, state)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEmptyTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "indexing_quota")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT date, requests_used FROM indexing_quota").
		WillReturnRows(mock.NewRows([]string{"date", "requests_used"}))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, indexing.QuotaState{}, state)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpsertsByDate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "indexing_quota")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO indexing_quota").
		WithArgs("2026-10-17", 12).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), indexing.QuotaState{Date: "2026-10-17", RequestsUsed: 12}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock, "indexing_quota")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO indexing_quota").
		WithArgs("2026-10-17", 1).
		WillReturnError(errors.New("connection refused"))

	require.Error(t, store.Save(context.Background(), indexing.QuotaState{Date: "2026-10-17", RequestsUsed: 1}))
	require.NoError(t, mock.ExpectationsWereMet())
}
