/*
Copyright 2024 Boreal Insurance PGI Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

const payoutBatchCacheKey = "payout_batch:%s"

func (d Datasource) CreatePayoutBatch(ctx context.Context, batch *model.PayoutBatch) error {
	if batch.Status == "" {
		batch.Status = model.BatchOpen
	}
	_, err := d.db().ExecContext(ctx, `
		INSERT INTO pgi.payout_batches (id, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, batch.ID, batch.Status, batch.TotalAmount, batch.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create payout batch", err)
	}
	return nil
}

// ClosePayoutBatch stores the aggregated total of an open batch and closes it.
func (d Datasource) ClosePayoutBatch(ctx context.Context, id string, total decimal.Decimal) error {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.payout_batches
		SET total_amount = $2, status = 'closed'
		WHERE id = $1 AND status = 'open'
	`, id, total)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to close payout batch", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payout batch '%s' is not open", id), nil)
	}
	return nil
}

// MarkPayoutBatchPaid settles a batch that is not yet paid and returns its total.
// The boolean is false when no row changed, either because the batch does not exist
// or because it was already paid; the caller tells the two apart.
func (d Datasource) MarkPayoutBatchPaid(ctx context.Context, id string, paidAt time.Time) (decimal.Decimal, bool, error) {
	var total decimal.Decimal
	err := d.db().QueryRowContext(ctx, `
		UPDATE pgi.payout_batches
		SET status = 'paid', paid_at = $2
		WHERE id = $1 AND status <> 'paid'
		RETURNING total_amount
	`, id, paidAt).Scan(&total)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark payout batch paid", err)
	}
	return total, true, nil
}

// GetPayoutBatch retrieves a batch. Paid batches never change again and are served
// from the cache when one is configured.
func (d Datasource) GetPayoutBatch(ctx context.Context, id string) (*model.PayoutBatch, error) {
	key := fmt.Sprintf(payoutBatchCacheKey, id)
	if d.Cache != nil && !d.InTx() {
		cached := model.PayoutBatch{}
		if err := d.Cache.Get(ctx, key, &cached); err != nil {
			logrus.Warnf("payout batch cache read failed: %v", err)
		} else if cached.ID != "" {
			return &cached, nil
		}
	}

	batch := &model.PayoutBatch{}
	var paidAt sql.NullTime
	err := d.db().QueryRowContext(ctx, `
		SELECT id, status, total_amount, created_at, paid_at
		FROM pgi.payout_batches
		WHERE id = $1
	`, id).Scan(&batch.ID, &batch.Status, &batch.TotalAmount, &batch.CreatedAt, &paidAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payout batch with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payout batch", err)
	}
	if paidAt.Valid {
		t := paidAt.Time
		batch.PaidAt = &t
	}

	if d.Cache != nil && !d.InTx() && batch.Status == model.BatchPaid {
		if err := d.Cache.Set(ctx, key, batch, 24*time.Hour); err != nil {
			logrus.Warnf("payout batch cache write failed: %v", err)
		}
	}

	return batch, nil
}

func (d Datasource) GetAllPayoutBatches(ctx context.Context, limit, offset int) ([]model.PayoutBatch, error) {
	rows, err := d.db().QueryContext(ctx, `
		SELECT id, status, total_amount, created_at, paid_at
		FROM pgi.payout_batches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payout batches", err)
	}
	defer rows.Close()

	batches := []model.PayoutBatch{}
	for rows.Next() {
		var (
			b      model.PayoutBatch
			paidAt sql.NullTime
		)
		if err = rows.Scan(&b.ID, &b.Status, &b.TotalAmount, &b.CreatedAt, &paidAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payout batch", err)
		}
		if paidAt.Valid {
			t := paidAt.Time
			b.PaidAt = &t
		}
		batches = append(batches, b)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payout batches", err)
	}
	return batches, nil
}
