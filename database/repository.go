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
	"time"

	"github.com/shopspring/decimal"

	"github.com/borealinsurance/pgi/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	transactor  // Interface for transaction scoping
	schedule    // Interface for premium schedule operations
	ledger      // Interface for ledger operations
	payable     // Interface for commission payable operations
	payout      // Interface for payout batch operations
	jobRun      // Interface for job run records
	jobLock     // Interface for job locks
	idempotency // Interface for idempotency keys
	policy      // Interface for policy and application operations
}

type transactor interface {
	WithTx(ctx context.Context, fn func(IDataSource) error) error // Runs fn inside one database transaction
	InTx() bool                                                    // Reports whether the datasource is bound to a transaction
}

// schedule defines methods for the premium schedule.
type schedule interface {
	GetDueScheduleLines(ctx context.Context, asOf time.Time) ([]model.DueScheduleLine, error)            // Retrieves unpaid lines due on or before asOf with their referrer rate
	MarkScheduleLinePaid(ctx context.Context, id string) error                                          // Flips an unpaid line to paid
	CreateScheduleLines(ctx context.Context, lines []model.PremiumScheduleLine) error                   // Inserts schedule lines for a policy term
	GetScheduleLinesByPolicy(ctx context.Context, policyID string) ([]model.PremiumScheduleLine, error) // Retrieves all lines of a policy
}

// ledger defines methods for the append-only ledger. There is deliberately no update or delete.
type ledger interface {
	RecordLedgerTransaction(ctx context.Context, txn model.LedgerTransaction) error                       // Inserts a balanced set of entries
	GetLedgerEntriesByTxID(ctx context.Context, txID string) ([]model.LedgerEntry, error)                 // Retrieves the entries of one transaction
	GetLedgerEntriesByReference(ctx context.Context, referenceID string) ([]model.LedgerEntry, error)     // Retrieves entries posted for a reference
	GetUnbalancedTransactions(ctx context.Context) ([]model.LedgerImbalance, error)                       // Lists tx_ids whose debits and credits differ
	GetAccountBalances(ctx context.Context) ([]model.AccountBalance, error)                               // Sums debits and credits per account
}

// payable defines methods for commission payables.
type payable interface {
	CreatePayable(ctx context.Context, p *model.CommissionPayable) error                               // Inserts an earned payable
	BatchEarnedPayables(ctx context.Context, batchID string) ([]decimal.Decimal, error)                // Moves every earned payable into a batch
	MarkBatchPayablesPaid(ctx context.Context, batchID string) (int64, error)                          // Settles the batched payables of a batch
	GetPayables(ctx context.Context, filter model.PayableFilter) ([]model.CommissionPayable, error)    // Lists payables
}

// payout defines methods for payout batches.
type payout interface {
	CreatePayoutBatch(ctx context.Context, batch *model.PayoutBatch) error                                      // Inserts an open batch
	ClosePayoutBatch(ctx context.Context, id string, total decimal.Decimal) error                               // Stores the batch total and closes it
	MarkPayoutBatchPaid(ctx context.Context, id string, paidAt time.Time) (decimal.Decimal, bool, error)        // Settles a batch unless already paid
	GetPayoutBatch(ctx context.Context, id string) (*model.PayoutBatch, error)                                  // Retrieves a batch
	GetAllPayoutBatches(ctx context.Context, limit, offset int) ([]model.PayoutBatch, error)                    // Lists batches
}

// jobRun defines methods for job run records.
type jobRun interface {
	CreateJobRun(ctx context.Context, run *model.JobRun) error                                      // Inserts a running job
	CompleteJobRun(ctx context.Context, id string, completedAt time.Time, linesProcessed int) error  // Marks a running job completed
	FailJobRun(ctx context.Context, run *model.JobRun, completedAt time.Time, reason string) error  // Records a failed job, inserting it if needed
	GetJobRun(ctx context.Context, id string) (*model.JobRun, error)                                // Retrieves a job run
	GetJobRuns(ctx context.Context, jobType string, limit, offset int) ([]model.JobRun, error)       // Lists job runs newest first
}

// jobLock defines methods for the advisory job lock.
type jobLock interface {
	AcquireJobLock(ctx context.Context, jobName, owner string, staleAfter time.Duration) (bool, error) // Takes the lock, stealing it when stale
	ReleaseJobLock(ctx context.Context, jobName, owner string) error                                  // Releases the lock if owner still holds it
}

type idempotency interface {
	InsertIdempotencyKey(ctx context.Context, key, endpoint string) (bool, error) // Records a key, false when already seen
}

// policy defines methods for policies and the applications they are issued from.
type policy interface {
	GetApplication(ctx context.Context, id string) (*model.Application, error)                                     // Retrieves an application
	UpdateApplicationStatus(ctx context.Context, id string, status model.ApplicationStatus) error                  // Sets an application's status
	CreatePolicy(ctx context.Context, p *model.Policy) error                                                       // Inserts a policy
	GetPolicy(ctx context.Context, id string) (*model.Policy, error)                                               // Retrieves a policy
	GetPolicyByApplicationID(ctx context.Context, applicationID string) (*model.Policy, error)                      // Retrieves the policy issued for an application
	ExtendPolicy(ctx context.Context, id string, premium decimal.Decimal, endDate time.Time) error                  // Moves a policy's end date for a renewal
	CancelPolicy(ctx context.Context, id string, cancelledAt time.Time) (bool, error)                              // Cancels an active policy
}
