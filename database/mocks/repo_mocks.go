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
package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/model"
)

// MockDataSource is a mock implementation of the IDataSource interface.
// WithTx runs the callback against the mock itself, so expectations set on the
// mock apply inside and outside transactions alike.
type MockDataSource struct {
	mock.Mock
}

var _ database.IDataSource = (*MockDataSource)(nil)

// Transaction methods

func (m *MockDataSource) WithTx(ctx context.Context, fn func(database.IDataSource) error) error {
	return fn(m)
}

func (m *MockDataSource) InTx() bool {
	return false
}

// Schedule methods

func (m *MockDataSource) GetDueScheduleLines(ctx context.Context, asOf time.Time) ([]model.DueScheduleLine, error) {
	args := m.Called(ctx, asOf)
	lines, _ := args.Get(0).([]model.DueScheduleLine)
	return lines, args.Error(1)
}

func (m *MockDataSource) MarkScheduleLinePaid(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) CreateScheduleLines(ctx context.Context, lines []model.PremiumScheduleLine) error {
	args := m.Called(ctx, lines)
	return args.Error(0)
}

func (m *MockDataSource) GetScheduleLinesByPolicy(ctx context.Context, policyID string) ([]model.PremiumScheduleLine, error) {
	args := m.Called(ctx, policyID)
	lines, _ := args.Get(0).([]model.PremiumScheduleLine)
	return lines, args.Error(1)
}

// Ledger methods

func (m *MockDataSource) RecordLedgerTransaction(ctx context.Context, txn model.LedgerTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockDataSource) GetLedgerEntriesByTxID(ctx context.Context, txID string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, txID)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

func (m *MockDataSource) GetLedgerEntriesByReference(ctx context.Context, referenceID string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, referenceID)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

func (m *MockDataSource) GetUnbalancedTransactions(ctx context.Context) ([]model.LedgerImbalance, error) {
	args := m.Called(ctx)
	imbalances, _ := args.Get(0).([]model.LedgerImbalance)
	return imbalances, args.Error(1)
}

func (m *MockDataSource) GetAccountBalances(ctx context.Context) ([]model.AccountBalance, error) {
	args := m.Called(ctx)
	balances, _ := args.Get(0).([]model.AccountBalance)
	return balances, args.Error(1)
}

// Payable methods

func (m *MockDataSource) CreatePayable(ctx context.Context, p *model.CommissionPayable) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockDataSource) BatchEarnedPayables(ctx context.Context, batchID string) ([]decimal.Decimal, error) {
	args := m.Called(ctx, batchID)
	amounts, _ := args.Get(0).([]decimal.Decimal)
	return amounts, args.Error(1)
}

func (m *MockDataSource) MarkBatchPayablesPaid(ctx context.Context, batchID string) (int64, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetPayables(ctx context.Context, filter model.PayableFilter) ([]model.CommissionPayable, error) {
	args := m.Called(ctx, filter)
	payables, _ := args.Get(0).([]model.CommissionPayable)
	return payables, args.Error(1)
}

// Payout methods

func (m *MockDataSource) CreatePayoutBatch(ctx context.Context, batch *model.PayoutBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockDataSource) ClosePayoutBatch(ctx context.Context, id string, total decimal.Decimal) error {
	args := m.Called(ctx, id, total)
	return args.Error(0)
}

func (m *MockDataSource) MarkPayoutBatchPaid(ctx context.Context, id string, paidAt time.Time) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, id, paidAt)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockDataSource) GetPayoutBatch(ctx context.Context, id string) (*model.PayoutBatch, error) {
	args := m.Called(ctx, id)
	batch, _ := args.Get(0).(*model.PayoutBatch)
	return batch, args.Error(1)
}

func (m *MockDataSource) GetAllPayoutBatches(ctx context.Context, limit, offset int) ([]model.PayoutBatch, error) {
	args := m.Called(ctx, limit, offset)
	batches, _ := args.Get(0).([]model.PayoutBatch)
	return batches, args.Error(1)
}

// Job run methods

func (m *MockDataSource) CreateJobRun(ctx context.Context, run *model.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) CompleteJobRun(ctx context.Context, id string, completedAt time.Time, linesProcessed int) error {
	args := m.Called(ctx, id, completedAt, linesProcessed)
	return args.Error(0)
}

func (m *MockDataSource) FailJobRun(ctx context.Context, run *model.JobRun, completedAt time.Time, reason string) error {
	args := m.Called(ctx, run, completedAt, reason)
	return args.Error(0)
}

func (m *MockDataSource) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*model.JobRun)
	return run, args.Error(1)
}

func (m *MockDataSource) GetJobRuns(ctx context.Context, jobType string, limit, offset int) ([]model.JobRun, error) {
	args := m.Called(ctx, jobType, limit, offset)
	runs, _ := args.Get(0).([]model.JobRun)
	return runs, args.Error(1)
}

// Job lock methods

func (m *MockDataSource) AcquireJobLock(ctx context.Context, jobName, owner string, staleAfter time.Duration) (bool, error) {
	args := m.Called(ctx, jobName, owner, staleAfter)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) ReleaseJobLock(ctx context.Context, jobName, owner string) error {
	args := m.Called(ctx, jobName, owner)
	return args.Error(0)
}

// Idempotency methods

func (m *MockDataSource) InsertIdempotencyKey(ctx context.Context, key, endpoint string) (bool, error) {
	args := m.Called(ctx, key, endpoint)
	return args.Bool(0), args.Error(1)
}

// Policy methods

func (m *MockDataSource) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*model.Application)
	return app, args.Error(1)
}

func (m *MockDataSource) UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) CreatePolicy(ctx context.Context, p *model.Policy) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockDataSource) GetPolicy(ctx context.Context, id string) (*model.Policy, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*model.Policy)
	return p, args.Error(1)
}

func (m *MockDataSource) GetPolicyByApplicationID(ctx context.Context, applicationID string) (*model.Policy, error) {
	args := m.Called(ctx, applicationID)
	p, _ := args.Get(0).(*model.Policy)
	return p, args.Error(1)
}

func (m *MockDataSource) ExtendPolicy(ctx context.Context, id string, premium decimal.Decimal, endDate time.Time) error {
	args := m.Called(ctx, id, premium, endDate)
	return args.Error(0)
}

func (m *MockDataSource) CancelPolicy(ctx context.Context, id string, cancelledAt time.Time) (bool, error) {
	args := m.Called(ctx, id, cancelledAt)
	return args.Bool(0), args.Error(1)
}
