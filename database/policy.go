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
	"github.com/shopspring/decimal"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

func (d Datasource) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	app := &model.Application{}
	var leadID sql.NullString
	err := d.db().QueryRowContext(ctx, `
		SELECT id, lead_id, status, created_at
		FROM pgi.applications
		WHERE id = $1
	`, id).Scan(&app.ID, &leadID, &app.Status, &app.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Application with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve application", err)
	}
	app.LeadID = stringPtr(leadID)
	return app, nil
}

func (d Datasource) UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error {
	if !status.Valid() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Invalid application status '%s'", status), nil)
	}
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.applications
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update application status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Application with ID '%s' not found", id), nil)
	}
	return nil
}

// CreatePolicy inserts p. An application can only ever be issued one policy.
func (d Datasource) CreatePolicy(ctx context.Context, p *model.Policy) error {
	if p.Status == "" {
		p.Status = model.PolicyActive
	}
	_, err := d.db().ExecContext(ctx, `
		INSERT INTO pgi.policies (id, application_id, policy_number, premium_amount, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.ApplicationID, p.PolicyNumber, p.PremiumAmount, p.StartDate, p.EndDate, p.Status, p.CreatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("A policy already exists for application '%s'", p.ApplicationID), err)
			case "foreign_key_violation":
				return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Application with ID '%s' not found", p.ApplicationID), err)
			}
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create policy", err)
	}
	return nil
}

func (d Datasource) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	return d.getPolicy(ctx, "id", id)
}

func (d Datasource) GetPolicyByApplicationID(ctx context.Context, applicationID string) (*model.Policy, error) {
	return d.getPolicy(ctx, "application_id", applicationID)
}

func (d Datasource) getPolicy(ctx context.Context, column, value string) (*model.Policy, error) {
	p := &model.Policy{}
	var cancelledAt sql.NullTime
	err := d.db().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, application_id, policy_number, premium_amount, start_date, end_date, status, cancelled_at, created_at
		FROM pgi.policies
		WHERE %s = $1
	`, column), value).Scan(&p.ID, &p.ApplicationID, &p.PolicyNumber, &p.PremiumAmount, &p.StartDate, &p.EndDate, &p.Status, &cancelledAt, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Policy with %s '%s' not found", column, value), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve policy", err)
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		p.CancelledAt = &t
	}
	return p, nil
}

// ExtendPolicy records a renewal of an active policy.
func (d Datasource) ExtendPolicy(ctx context.Context, id string, premium decimal.Decimal, endDate time.Time) error {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.policies
		SET premium_amount = $2, end_date = $3
		WHERE id = $1 AND status = 'active'
	`, id, premium, endDate)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to renew policy", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Policy '%s' is not active", id), nil)
	}
	return nil
}

// CancelPolicy cancels an active policy and reports whether a row changed.
func (d Datasource) CancelPolicy(ctx context.Context, id string, cancelledAt time.Time) (bool, error) {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.policies
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'active'
	`, id, cancelledAt)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to cancel policy", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return n > 0, nil
}
