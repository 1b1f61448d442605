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
	"database/sql/driver"
	"fmt"
)

// PayableStatus is the lifecycle state of a commission payable.
type PayableStatus string

const (
	PayableEarned  PayableStatus = "earned"
	PayableBatched PayableStatus = "batched"
	PayablePaid    PayableStatus = "paid"
)

// ParsePayableStatus converts s into a PayableStatus, rejecting unknown values.
func ParsePayableStatus(s string) (PayableStatus, error) {
	switch PayableStatus(s) {
	case PayableEarned, PayableBatched, PayablePaid:
		return PayableStatus(s), nil
	}
	return "", fmt.Errorf("invalid payable status %q", s)
}

func (s PayableStatus) Valid() bool {
	_, err := ParsePayableStatus(string(s))
	return err == nil
}

func (s PayableStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid payable status %q", string(s))
	}
	return string(s), nil
}

func (s *PayableStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParsePayableStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *PayableStatus) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParsePayableStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// BatchStatus is the lifecycle state of a payout batch.
type BatchStatus string

const (
	BatchOpen   BatchStatus = "open"
	BatchClosed BatchStatus = "closed"
	BatchPaid   BatchStatus = "paid"
)

func ParseBatchStatus(s string) (BatchStatus, error) {
	switch BatchStatus(s) {
	case BatchOpen, BatchClosed, BatchPaid:
		return BatchStatus(s), nil
	}
	return "", fmt.Errorf("invalid batch status %q", s)
}

func (s BatchStatus) Valid() bool {
	_, err := ParseBatchStatus(string(s))
	return err == nil
}

// CanTransitionTo reports whether a batch in state s may move to next.
// A batch becomes paid exactly once.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	switch s {
	case BatchOpen:
		return next == BatchClosed || next == BatchPaid
	case BatchClosed:
		return next == BatchPaid
	}
	return false
}

func (s BatchStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid batch status %q", string(s))
	}
	return string(s), nil
}

func (s *BatchStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseBatchStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *BatchStatus) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParseBatchStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// JobStatus is the state of a single job run. It only moves forward.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobPending, JobRunning, JobCompleted, JobFailed:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("invalid job status %q", s)
}

func (s JobStatus) Valid() bool {
	_, err := ParseJobStatus(string(s))
	return err == nil
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobRunning
	case JobRunning:
		return next == JobCompleted || next == JobFailed
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

func (s JobStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid job status %q", string(s))
	}
	return string(s), nil
}

func (s *JobStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseJobStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *JobStatus) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParseJobStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// LedgerAccount names one of the chart-of-accounts lines the core posts to.
type LedgerAccount string

const (
	AccountPremiumReceivable LedgerAccount = "Premium Receivable"
	AccountPremiumRevenue    LedgerAccount = "Premium Revenue"
	AccountCommissionExpense LedgerAccount = "Commission Expense"
	AccountCommissionPayable LedgerAccount = "Commission Payable"
	AccountCash              LedgerAccount = "Cash"
)

// LedgerAccounts lists every account in chart order.
var LedgerAccounts = []LedgerAccount{
	AccountPremiumReceivable,
	AccountPremiumRevenue,
	AccountCommissionExpense,
	AccountCommissionPayable,
	AccountCash,
}

func ParseLedgerAccount(s string) (LedgerAccount, error) {
	for _, a := range LedgerAccounts {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid ledger account %q", s)
}

func (a LedgerAccount) Valid() bool {
	_, err := ParseLedgerAccount(string(a))
	return err == nil
}

func (a LedgerAccount) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid ledger account %q", string(a))
	}
	return string(a), nil
}

func (a *LedgerAccount) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseLedgerAccount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a *LedgerAccount) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParseLedgerAccount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// PolicyStatus is the state of an issued policy.
type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyCancelled PolicyStatus = "cancelled"
	PolicyExpired   PolicyStatus = "expired"
	PolicyClaim     PolicyStatus = "claim"
)

func ParsePolicyStatus(s string) (PolicyStatus, error) {
	switch PolicyStatus(s) {
	case PolicyActive, PolicyCancelled, PolicyExpired, PolicyClaim:
		return PolicyStatus(s), nil
	}
	return "", fmt.Errorf("invalid policy status %q", s)
}

func (s PolicyStatus) Valid() bool {
	_, err := ParsePolicyStatus(string(s))
	return err == nil
}

func (s PolicyStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid policy status %q", string(s))
	}
	return string(s), nil
}

func (s *PolicyStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParsePolicyStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *PolicyStatus) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParsePolicyStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ApplicationStatus is the underwriting state of an application.
type ApplicationStatus string

const (
	ApplicationQuoteStarted ApplicationStatus = "quote_started"
	ApplicationSubmitted    ApplicationStatus = "submitted"
	ApplicationReferred     ApplicationStatus = "referred"
	ApplicationUnderReview  ApplicationStatus = "under_review"
	ApplicationApproved     ApplicationStatus = "approved"
	ApplicationActive       ApplicationStatus = "active"
	ApplicationDeclined     ApplicationStatus = "declined"
	ApplicationCancelled    ApplicationStatus = "cancelled"
	ApplicationClaim        ApplicationStatus = "claim"
)

var applicationStatuses = []ApplicationStatus{
	ApplicationQuoteStarted,
	ApplicationSubmitted,
	ApplicationReferred,
	ApplicationUnderReview,
	ApplicationApproved,
	ApplicationActive,
	ApplicationDeclined,
	ApplicationCancelled,
	ApplicationClaim,
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	for _, st := range applicationStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid application status %q", s)
}

func (s ApplicationStatus) Valid() bool {
	_, err := ParseApplicationStatus(string(s))
	return err == nil
}

func (s ApplicationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid application status %q", string(s))
	}
	return string(s), nil
}

func (s *ApplicationStatus) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseApplicationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalString(data)
	if err != nil {
		return err
	}
	parsed, err := ParseApplicationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
