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

package pgi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/model"
)

const defaultPageSize = 20

// CreatePayoutBatch claims every earned payable into a new batch and closes it with
// their total. A batch with nothing to claim is still created and totals zero.
func (p *PGI) CreatePayoutBatch(ctx context.Context) (*model.PayoutBatch, error) {
	ctx, span := tracer.Start(ctx, "CreatePayoutBatch")
	defer span.End()

	batch := &model.PayoutBatch{
		ID:          model.GenerateUUIDWithSuffix(model.PrefixBatch),
		Status:      model.BatchOpen,
		TotalAmount: decimal.Zero,
		CreatedAt:   p.clock.Now(),
	}

	var claimed int
	err := p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		if err := ds.CreatePayoutBatch(ctx, batch); err != nil {
			return err
		}

		amounts, err := ds.BatchEarnedPayables(ctx, batch.ID)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, amount := range amounts {
			total = total.Add(amount)
		}

		if err := ds.ClosePayoutBatch(ctx, batch.ID, total); err != nil {
			return err
		}
		batch.TotalAmount = total
		claimed = len(amounts)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := batch.Transition(model.BatchClosed); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"batch_id": batch.ID, "payables": claimed, "total": batch.TotalAmount.String()}).Info("payout batch created")
	return batch, nil
}

// MarkBatchPaid settles a batch: its payables become paid and the total moves from
// Commission Payable to Cash. Settling an already paid batch changes nothing and
// returns the batch as it is.
func (p *PGI) MarkBatchPaid(ctx context.Context, id string) (*model.PayoutBatch, error) {
	ctx, span := tracer.Start(ctx, "MarkBatchPaid")
	defer span.End()

	var settled bool
	err := p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		now := p.clock.Now()
		total, updated, err := ds.MarkPayoutBatchPaid(ctx, id, now)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}
		settled = true

		if _, err := ds.MarkBatchPayablesPaid(ctx, id); err != nil {
			return err
		}
		if !total.IsPositive() {
			return nil
		}

		settlement := model.NewLedgerPair(
			model.AccountCommissionPayable,
			model.AccountCash,
			total,
			fmt.Sprintf("Commission payout batch %s", id),
			id,
		).At(now)
		return ds.RecordLedgerTransaction(ctx, settlement)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// A batch that did not change is either missing or already paid; the lookup
	// reports NOT_FOUND for the former.
	batch, err := p.datasource.GetPayoutBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if settled {
		logrus.WithFields(logrus.Fields{"batch_id": id, "total": batch.TotalAmount.String()}).Info("payout batch settled")
	}
	return batch, nil
}

// GetPayoutBatch returns a batch together with its payables.
func (p *PGI) GetPayoutBatch(ctx context.Context, id string) (*model.PayoutBatch, error) {
	batch, err := p.datasource.GetPayoutBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	payables, err := p.datasource.GetPayables(ctx, model.PayableFilter{BatchID: id})
	if err != nil {
		return nil, err
	}
	result := *batch
	result.Payables = payables
	return &result, nil
}

func (p *PGI) ListPayoutBatches(ctx context.Context, limit, offset int) ([]model.PayoutBatch, error) {
	limit, offset = page(limit, offset)
	return p.datasource.GetAllPayoutBatches(ctx, limit, offset)
}

// GetPayables lists commission payables. An unknown status is rejected.
func (p *PGI) GetPayables(ctx context.Context, filter model.PayableFilter) ([]model.CommissionPayable, error) {
	if filter.Status != "" {
		if _, err := model.ParsePayableStatus(string(filter.Status)); err != nil {
			return nil, invalidInput(err)
		}
	}
	filter.Limit, filter.Offset = page(filter.Limit, filter.Offset)
	return p.datasource.GetPayables(ctx, filter)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
