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
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

// ActivatePolicyRequest issues a policy for an application.
// Installments defaults to 12 and StartDate to today.
type ActivatePolicyRequest struct {
	IdempotencyKey string
	ApplicationID  string
	AnnualPremium  decimal.Decimal
	Installments   int
	StartDate      time.Time
}

// RenewPolicyRequest extends an active policy by one term.
// A zero AnnualPremium keeps the current premium.
type RenewPolicyRequest struct {
	IdempotencyKey string
	PolicyID       string
	AnnualPremium  decimal.Decimal
	Installments   int
}

// ActivatePolicy issues a one year policy for an application and generates its
// premium schedule. Replaying the idempotency key returns the policy already issued.
func (p *PGI) ActivatePolicy(ctx context.Context, req ActivatePolicyRequest) (*model.Policy, error) {
	ctx, span := tracer.Start(ctx, "ActivatePolicy")
	defer span.End()

	if req.ApplicationID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "application_id is required", nil)
	}

	now := p.clock.Now()
	start := req.StartDate
	if start.IsZero() {
		start = dateOf(now)
	}

	policy := &model.Policy{
		ID:            model.GenerateUUIDWithSuffix(model.PrefixPolicy),
		ApplicationID: req.ApplicationID,
		PolicyNumber:  model.PolicyNumber(now),
		PremiumAmount: req.AnnualPremium,
		StartDate:     start,
		EndDate:       model.AddMonths(start, 12),
		Status:        model.PolicyActive,
		CreatedAt:     now,
	}
	lines, err := model.BuildSchedule(policy.ID, req.AnnualPremium, installmentsOrDefault(req.Installments), start)
	if err != nil {
		return nil, invalidInput(err)
	}
	stamp(lines, now)

	err = p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		allowed, err := checkIdempotency(ctx, ds, req.IdempotencyKey, EndpointActivatePolicy)
		if err != nil {
			return err
		}
		if !allowed {
			return errDuplicateRequest
		}

		app, err := ds.GetApplication(ctx, req.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status == model.ApplicationDeclined || app.Status == model.ApplicationCancelled {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Application '%s' is %s and cannot be activated", app.ID, app.Status), nil)
		}

		if err := ds.CreatePolicy(ctx, policy); err != nil {
			return err
		}
		if err := ds.CreateScheduleLines(ctx, lines); err != nil {
			return err
		}
		return ds.UpdateApplicationStatus(ctx, req.ApplicationID, model.ApplicationActive)
	})
	if errors.Is(err, errDuplicateRequest) {
		return p.replayActivation(ctx, req)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	policy.Schedule = lines
	logrus.WithFields(logrus.Fields{"policy_id": policy.ID, "application_id": policy.ApplicationID, "installments": len(lines)}).Info("policy activated")
	return policy, nil
}

func (p *PGI) replayActivation(ctx context.Context, req ActivatePolicyRequest) (*model.Policy, error) {
	existing, err := p.datasource.GetPolicyByApplicationID(ctx, req.ApplicationID)
	if apierror.HasCode(err, apierror.ErrNotFound) {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Idempotency key '%s' was already used for another request", req.IdempotencyKey), nil)
	}
	if err != nil {
		return nil, err
	}
	return p.withSchedule(ctx, existing, true)
}

// RenewPolicy starts a new term at the current end date of an active policy.
func (p *PGI) RenewPolicy(ctx context.Context, req RenewPolicyRequest) (*model.Policy, error) {
	ctx, span := tracer.Start(ctx, "RenewPolicy")
	defer span.End()

	if req.PolicyID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "policy_id is required", nil)
	}
	installments := installmentsOrDefault(req.Installments)
	now := p.clock.Now()

	err := p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		allowed, err := checkIdempotency(ctx, ds, req.IdempotencyKey, EndpointRenewPolicy)
		if err != nil {
			return err
		}
		if !allowed {
			return errDuplicateRequest
		}

		current, err := ds.GetPolicy(ctx, req.PolicyID)
		if err != nil {
			return err
		}
		if current.Status != model.PolicyActive {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Policy '%s' is %s and cannot be renewed", current.ID, current.Status), nil)
		}

		premium := req.AnnualPremium
		if premium.IsZero() {
			premium = current.PremiumAmount
		}
		start := current.EndDate
		lines, err := model.BuildSchedule(current.ID, premium, installments, start)
		if err != nil {
			return invalidInput(err)
		}
		stamp(lines, now)

		if err := ds.ExtendPolicy(ctx, current.ID, premium, model.AddMonths(start, 12)); err != nil {
			return err
		}
		return ds.CreateScheduleLines(ctx, lines)
	})

	replayed := errors.Is(err, errDuplicateRequest)
	if err != nil && !replayed {
		span.RecordError(err)
		return nil, err
	}

	renewed, err := p.datasource.GetPolicy(ctx, req.PolicyID)
	if err != nil {
		return nil, err
	}
	if !replayed {
		logrus.WithFields(logrus.Fields{"policy_id": renewed.ID, "end_date": renewed.EndDate}).Info("policy renewed")
	}
	return p.withSchedule(ctx, renewed, replayed)
}

// CancelPolicy cancels an active policy. Cancelling twice returns the cancelled
// policy. Its schedule lines are left for the accrual engine.
func (p *PGI) CancelPolicy(ctx context.Context, id string) (*model.Policy, error) {
	ctx, span := tracer.Start(ctx, "CancelPolicy")
	defer span.End()

	var policy *model.Policy
	err := p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		changed, err := ds.CancelPolicy(ctx, id, p.clock.Now())
		if err != nil {
			return err
		}
		policy, err = ds.GetPolicy(ctx, id)
		if err != nil {
			return err
		}
		if !changed && policy.Status != model.PolicyCancelled {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Policy '%s' is %s and cannot be cancelled", id, policy.Status), nil)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return policy, nil
}

// GetPolicy returns a policy with its premium schedule.
func (p *PGI) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	policy, err := p.datasource.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.withSchedule(ctx, policy, false)
}

func (p *PGI) withSchedule(ctx context.Context, policy *model.Policy, replayed bool) (*model.Policy, error) {
	lines, err := p.datasource.GetScheduleLinesByPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}
	policy.Schedule = lines
	policy.Replayed = replayed
	return policy, nil
}

func installmentsOrDefault(n int) int {
	if n == 0 {
		return model.DefaultInstallments
	}
	return n
}

func stamp(lines []model.PremiumScheduleLine, at time.Time) {
	for i := range lines {
		lines[i].CreatedAt = at
	}
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
