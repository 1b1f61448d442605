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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultInstallments = 12
	MaxInstallments     = 12
)

type Application struct {
	ID        string            `json:"id"`
	LeadID    *string           `json:"lead_id"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

type Policy struct {
	ID            string                `json:"id"`
	ApplicationID string                `json:"application_id"`
	PolicyNumber  string                `json:"policy_number"`
	PremiumAmount decimal.Decimal       `json:"premium_amount"`
	StartDate     time.Time             `json:"start_date"`
	EndDate       time.Time             `json:"end_date"`
	Status        PolicyStatus          `json:"status"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Schedule      []PremiumScheduleLine `json:"schedule,omitempty"`
	Replayed      bool                  `json:"replayed,omitempty"`
}

// PolicyNumber formats the customer-facing policy number for an issue time.
func PolicyNumber(issuedAt time.Time) string {
	return fmt.Sprintf("BI-%d", issuedAt.UnixMilli())
}

// AddMonths moves t forward n calendar months. A day past the end of the
// target month is clamped to its last day, so Jan 31 + 1 is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

// BuildSchedule splits annualPremium into installments lines due monthly from start.
// Each line is rounded to two places; the last line absorbs the rounding remainder.
func BuildSchedule(policyID string, annualPremium decimal.Decimal, installments int, start time.Time) ([]PremiumScheduleLine, error) {
	if installments <= 0 || installments > MaxInstallments {
		return nil, fmt.Errorf("installments must be between 1 and %d", MaxInstallments)
	}
	if !annualPremium.IsPositive() {
		return nil, errors.New("annual premium must be greater than zero")
	}

	n := decimal.NewFromInt(int64(installments))
	each := annualPremium.Div(n).Round(AmountScale)
	if !each.IsPositive() {
		return nil, errors.New("annual premium too small for the number of installments")
	}

	lines := make([]PremiumScheduleLine, 0, installments)
	allocated := decimal.Zero
	for i := 0; i < installments; i++ {
		amount := each
		if i == installments-1 {
			amount = annualPremium.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		lines = append(lines, PremiumScheduleLine{
			ID:            GenerateUUIDWithSuffix(PrefixSchedule),
			PolicyID:      policyID,
			DueDate:       AddMonths(start, i),
			PremiumAmount: amount,
		})
	}
	if !lines[len(lines)-1].PremiumAmount.IsPositive() {
		return nil, errors.New("annual premium too small for the number of installments")
	}
	return lines, nil
}
