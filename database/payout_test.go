package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

type memoryCache struct {
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = b
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string, data interface{}) error {
	b, ok := m.items[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(b, data)
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.items, key)
	return nil
}

var batchColumns = []string{"id", "status", "total_amount", "created_at", "paid_at"}

func TestCreatePayoutBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	batch := &model.PayoutBatch{ID: "batch_1", CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO pgi.payout_batches").
		WithArgs("batch_1", "open", "0", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, ds.CreatePayoutBatch(context.Background(), batch))
	assert.Equal(t, model.BatchOpen, batch.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePayoutBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectExec("UPDATE pgi.payout_batches SET total_amount = \\$2, status = 'closed' WHERE id = \\$1 AND status = 'open'").
		WithArgs("batch_1", "15.25").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, ds.ClosePayoutBatch(context.Background(), "batch_1", decimal.RequireFromString("15.25")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePayoutBatch_NotOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectExec("UPDATE pgi.payout_batches").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ds.ClosePayoutBatch(context.Background(), "batch_1", decimal.Zero)
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
}

func TestMarkPayoutBatchPaid_Updated(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	paidAt := time.Now()
	mock.ExpectQuery("UPDATE pgi.payout_batches SET status = 'paid', paid_at = \\$2 WHERE id = \\$1 AND status <> 'paid' RETURNING total_amount").
		WithArgs("batch_1", paidAt).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount"}).AddRow("42.50"))

	total, updated, err := ds.MarkPayoutBatchPaid(context.Background(), "batch_1", paidAt)
	assert.NoError(t, err)
	assert.True(t, updated)
	assert.True(t, total.Equal(decimal.RequireFromString("42.50")))
}

func TestMarkPayoutBatchPaid_AlreadyPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("UPDATE pgi.payout_batches").
		WillReturnRows(sqlmock.NewRows([]string{"total_amount"}))

	total, updated, err := ds.MarkPayoutBatchPaid(context.Background(), "batch_1", time.Now())
	assert.NoError(t, err)
	assert.False(t, updated)
	assert.True(t, total.IsZero())
}

func TestGetPayoutBatch_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("FROM pgi.payout_batches WHERE id").
		WithArgs("batch_missing").
		WillReturnRows(sqlmock.NewRows(batchColumns))

	_, err = ds.GetPayoutBatch(context.Background(), "batch_missing")
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
}

func TestGetPayoutBatch_CachesPaidBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db, Cache: newMemoryCache()}
	paidAt := time.Now().UTC().Truncate(time.Second)

	// only one query is expected; the second read must come from the cache
	mock.ExpectQuery("FROM pgi.payout_batches WHERE id").
		WithArgs("batch_1").
		WillReturnRows(sqlmock.NewRows(batchColumns).AddRow("batch_1", "paid", "42.50", paidAt, paidAt))

	first, err := ds.GetPayoutBatch(context.Background(), "batch_1")
	assert.NoError(t, err)
	assert.Equal(t, model.BatchPaid, first.Status)
	assert.NotNil(t, first.PaidAt)

	second, err := ds.GetPayoutBatch(context.Background(), "batch_1")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPayoutBatch_DoesNotCacheOpenBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	cache := newMemoryCache()
	ds := Datasource{Conn: db, Cache: cache}

	mock.ExpectQuery("FROM pgi.payout_batches WHERE id").
		WithArgs("batch_1").
		WillReturnRows(sqlmock.NewRows(batchColumns).AddRow("batch_1", "closed", "10", time.Now(), nil))

	batch, err := ds.GetPayoutBatch(context.Background(), "batch_1")
	assert.NoError(t, err)
	assert.Nil(t, batch.PaidAt)
	assert.Empty(t, cache.items)
}

func TestGetAllPayoutBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()
	mock.ExpectQuery("FROM pgi.payout_batches ORDER BY created_at DESC LIMIT \\$1 OFFSET \\$2").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(batchColumns).
			AddRow("batch_2", "closed", "5", now, nil).
			AddRow("batch_1", "paid", "10", now.Add(-time.Hour), now))

	batches, err := ds.GetAllPayoutBatches(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, batches, 2)
	assert.Nil(t, batches[0].PaidAt)
	assert.NotNil(t, batches[1].PaidAt)
}
