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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/model"
)

const dateFormat = "2006-01-02"

type ActivatePolicy struct {
	ApplicationID string          `json:"application_id"`
	AnnualPremium decimal.Decimal `json:"annual_premium"`
	Installments  int             `json:"installments"`
	StartDate     string          `json:"start_date"`
}

type RenewPolicy struct {
	AnnualPremium decimal.Decimal `json:"annual_premium"`
	Installments  int             `json:"installments"`
}

type ApplicationWebhook struct {
	EventID    string `json:"event_id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func nonNegativeAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func validateDateFormat(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateFormat, s); err != nil {
		return errors.New("please format the date as 'YYYY-MM-DD' (e.g., 2025-03-01)")
	}
	return nil
}

func validateApplicationStatus(value interface{}) error {
	s, _ := value.(string)
	_, err := model.ParseApplicationStatus(s)
	return err
}

func (a *ActivatePolicy) ValidateActivatePolicy() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.ApplicationID, validation.Required),
		validation.Field(&a.AnnualPremium, validation.By(positiveAmount)),
		validation.Field(&a.Installments, validation.Min(0), validation.Max(model.MaxInstallments)),
		validation.Field(&a.StartDate, validation.By(validateDateFormat)),
	)
}

// ToActivatePolicyRequest converts a validated payload. An empty start date is
// left zero so activation defaults it to today.
func (a *ActivatePolicy) ToActivatePolicyRequest(idempotencyKey string) pgi.ActivatePolicyRequest {
	req := pgi.ActivatePolicyRequest{
		IdempotencyKey: idempotencyKey,
		ApplicationID:  a.ApplicationID,
		AnnualPremium:  a.AnnualPremium,
		Installments:   a.Installments,
	}
	if start, err := time.Parse(dateFormat, a.StartDate); err == nil {
		req.StartDate = start
	}
	return req
}

func (r *RenewPolicy) ValidateRenewPolicy() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AnnualPremium, validation.By(nonNegativeAmount)),
		validation.Field(&r.Installments, validation.Min(0), validation.Max(model.MaxInstallments)),
	)
}

func (r *RenewPolicy) ToRenewPolicyRequest(idempotencyKey, policyID string) pgi.RenewPolicyRequest {
	return pgi.RenewPolicyRequest{
		IdempotencyKey: idempotencyKey,
		PolicyID:       policyID,
		AnnualPremium:  r.AnnualPremium,
		Installments:   r.Installments,
	}
}

func (w *ApplicationWebhook) ValidateApplicationWebhook() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.EventID, validation.Required),
		validation.Field(&w.ExternalID, validation.Required),
		validation.Field(&w.Status, validation.Required, validation.By(validateApplicationStatus)),
	)
}

func (w *ApplicationWebhook) ToApplicationWebhook() pgi.ApplicationWebhook {
	return pgi.ApplicationWebhook{EventID: w.EventID, ExternalID: w.ExternalID, Status: w.Status}
}
