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

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// GetDueScheduleLines returns every unpaid line due on or before asOf, in primary key order.
// The policy -> application -> lead -> referrer chain is resolved with left joins so a
// line without a referrer still comes back with a zero commission rate.
func (d Datasource) GetDueScheduleLines(ctx context.Context, asOf time.Time) ([]model.DueScheduleLine, error) {
	ctx, span := otel.Tracer("pgi.database").Start(ctx, "GetDueScheduleLines")
	defer span.End()

	rows, err := d.db().QueryContext(ctx, `
		SELECT s.id, s.policy_id, s.due_date, s.premium_amount, s.paid, s.created_at,
		       r.id, COALESCE(r.commission_rate, 0)
		FROM pgi.premium_schedule s
		JOIN pgi.policies p ON p.id = s.policy_id
		LEFT JOIN pgi.applications a ON a.id = p.application_id
		LEFT JOIN pgi.leads l ON l.id = a.lead_id
		LEFT JOIN pgi.referrers r ON r.id = l.referrer_id
		WHERE s.due_date <= $1 AND s.paid = false
		ORDER BY s.id
	`, asOf)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve due schedule lines", err)
	}
	defer rows.Close()

	var lines []model.DueScheduleLine
	for rows.Next() {
		var line model.DueScheduleLine
		var referrerID sql.NullString
		err = rows.Scan(
			&line.ID,
			&line.PolicyID,
			&line.DueDate,
			&line.PremiumAmount,
			&line.Paid,
			&line.CreatedAt,
			&referrerID,
			&line.CommissionRate,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan schedule line", err)
		}
		if referrerID.Valid {
			id := referrerID.String
			line.ReferrerID = &id
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over schedule lines", err)
	}

	return lines, nil
}

// MarkScheduleLinePaid flips a line from unpaid to paid. A line that is already paid
// (or missing) is a conflict: each line is paid exactly once.
func (d Datasource) MarkScheduleLinePaid(ctx context.Context, id string) error {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.premium_schedule
		SET paid = true
		WHERE id = $1 AND paid = false
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark schedule line paid", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Schedule line '%s' is already paid or does not exist", id), nil)
	}
	return nil
}

func (d Datasource) CreateScheduleLines(ctx context.Context, lines []model.PremiumScheduleLine) error {
	for _, line := range lines {
		_, err := d.db().ExecContext(ctx, `
			INSERT INTO pgi.premium_schedule (id, policy_id, due_date, premium_amount, paid, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, line.ID, line.PolicyID, line.DueDate, line.PremiumAmount, line.Paid, line.CreatedAt)
		if err != nil {
			pqErr, ok := err.(*pq.Error)
			if ok && pqErr.Code.Name() == "foreign_key_violation" {
				return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Policy with ID '%s' not found", line.PolicyID), err)
			}
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create schedule line", err)
		}
	}
	return nil
}

func (d Datasource) GetScheduleLinesByPolicy(ctx context.Context, policyID string) ([]model.PremiumScheduleLine, error) {
	rows, err := d.db().QueryContext(ctx, `
		SELECT id, policy_id, due_date, premium_amount, paid, created_at
		FROM pgi.premium_schedule
		WHERE policy_id = $1
		ORDER BY due_date, id
	`, policyID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve schedule lines", err)
	}
	defer rows.Close()

	var lines []model.PremiumScheduleLine
	for rows.Next() {
		var line model.PremiumScheduleLine
		if err = rows.Scan(&line.ID, &line.PolicyID, &line.DueDate, &line.PremiumAmount, &line.Paid, &line.CreatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan schedule line", err)
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over schedule lines", err)
	}
	return lines, nil
}
