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
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// CreatePayable inserts an earned payable. premium_schedule_id is unique, so a second
// payable for the same schedule line is a conflict.
func (d Datasource) CreatePayable(ctx context.Context, p *model.CommissionPayable) error {
	if p.Status == "" {
		p.Status = model.PayableEarned
	}
	if p.Status != model.PayableEarned {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("New payables must be %s, got %s", model.PayableEarned, p.Status), nil)
	}

	_, err := d.db().ExecContext(ctx, `
		INSERT INTO pgi.commission_payables (id, policy_id, premium_schedule_id, referrer_id, gross_premium, commission_rate, commission_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.PolicyID, p.PremiumScheduleID, nullString(p.ReferrerID), p.GrossPremium, p.CommissionRate, p.CommissionAmount, p.Status, p.CreatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Payable for schedule line '%s' already exists", p.PremiumScheduleID), err)
			case "foreign_key_violation":
				return apierror.NewAPIError(apierror.ErrNotFound, "Schedule line or policy not found", err)
			}
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create commission payable", err)
	}
	return nil
}

// BatchEarnedPayables claims every earned payable for batchID in one statement and
// returns their commission amounts. Concurrent callers can never claim the same row.
func (d Datasource) BatchEarnedPayables(ctx context.Context, batchID string) ([]decimal.Decimal, error) {
	rows, err := d.db().QueryContext(ctx, `
		UPDATE pgi.commission_payables
		SET status = 'batched', payout_batch_id = $1
		WHERE status = 'earned'
		RETURNING commission_amount
	`, batchID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to batch earned payables", err)
	}
	defer rows.Close()

	amounts := []decimal.Decimal{}
	for rows.Next() {
		var amount decimal.Decimal
		if err = rows.Scan(&amount); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan commission amount", err)
		}
		amounts = append(amounts, amount)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while batching payables", err)
	}
	return amounts, nil
}

func (d Datasource) MarkBatchPayablesPaid(ctx context.Context, batchID string) (int64, error) {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.commission_payables
		SET status = 'paid'
		WHERE payout_batch_id = $1 AND status = 'batched'
	`, batchID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to settle batch payables", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return n, nil
}

func (d Datasource) GetPayables(ctx context.Context, filter model.PayableFilter) ([]model.CommissionPayable, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("payout_batch_id = $%d", len(args)))
	}

	query := `
		SELECT id, policy_id, premium_schedule_id, referrer_id, gross_premium, commission_rate, commission_amount, status, payout_batch_id, created_at
		FROM pgi.commission_payables`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := d.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payables", err)
	}
	defer rows.Close()

	payables := []model.CommissionPayable{}
	for rows.Next() {
		var (
			p          model.CommissionPayable
			referrerID sql.NullString
			batchID    sql.NullString
		)
		err = rows.Scan(&p.ID, &p.PolicyID, &p.PremiumScheduleID, &referrerID, &p.GrossPremium, &p.CommissionRate, &p.CommissionAmount, &p.Status, &batchID, &p.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payable", err)
		}
		p.ReferrerID = stringPtr(referrerID)
		p.PayoutBatchID = stringPtr(batchID)
		payables = append(payables, p)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over payables", err)
	}
	return payables, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
