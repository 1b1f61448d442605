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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PremiumScheduleLine is an amount owed on a due date for a policy.
type PremiumScheduleLine struct {
	ID            string          `json:"id"`
	PolicyID      string          `json:"policy_id"`
	DueDate       time.Time       `json:"due_date"`
	PremiumAmount decimal.Decimal `json:"premium_amount"`
	Paid          bool            `json:"paid"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DueScheduleLine is a schedule line joined with the referrer that sourced the policy.
// ReferrerID is nil when the lead had no referrer; CommissionRate is then zero.
type DueScheduleLine struct {
	PremiumScheduleLine
	ReferrerID     *string         `json:"referrer_id"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// CommissionPayable is the commission owed to a referrer for one schedule line.
type CommissionPayable struct {
	ID                string          `json:"id"`
	PolicyID          string          `json:"policy_id"`
	PremiumScheduleID string          `json:"premium_schedule_id"`
	ReferrerID        *string         `json:"referrer_id"`
	GrossPremium      decimal.Decimal `json:"gross_premium"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	CommissionAmount  decimal.Decimal `json:"commission_amount"`
	Status            PayableStatus   `json:"status"`
	PayoutBatchID     *string         `json:"payout_batch_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewCommissionPayable builds the earned payable for a due line.
func NewCommissionPayable(line DueScheduleLine, createdAt time.Time) CommissionPayable {
	return CommissionPayable{
		ID:                GenerateUUIDWithSuffix(PrefixPayable),
		PolicyID:          line.PolicyID,
		PremiumScheduleID: line.ID,
		ReferrerID:        line.ReferrerID,
		GrossPremium:      line.PremiumAmount,
		CommissionRate:    line.CommissionRate,
		CommissionAmount:  ComputeCommission(line.PremiumAmount, line.CommissionRate),
		Status:            PayableEarned,
		CreatedAt:         createdAt,
	}
}

// PayableFilter narrows payable listings. Zero values mean no filter.
type PayableFilter struct {
	Status  PayableStatus
	BatchID string
	Limit   int
	Offset  int
}

// PayoutBatch groups payables for one settlement.
type PayoutBatch struct {
	ID          string              `json:"id"`
	Status      BatchStatus         `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	PaidAt      *time.Time          `json:"paid_at"`
	Payables    []CommissionPayable `json:"payables,omitempty"`
}

// Transition moves the batch to next when the lifecycle allows it.
func (b *PayoutBatch) Transition(next BatchStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("payout batch %s cannot move from %s to %s", b.ID, b.Status, next)
	}
	b.Status = next
	return nil
}
