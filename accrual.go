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
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/notification"
	"github.com/borealinsurance/pgi/model"
)

// RunAccrual performs one accrual run for the scheduler. Failures are recorded on the
// job run and reported, never returned.
func (p *PGI) RunAccrual(ctx context.Context) {
	if _, err := p.RunAccrualJob(ctx); err != nil {
		logrus.WithError(err).Error("premium accrual run failed")
	}
}

// RunAccrualJob performs one accrual run and returns its record.
// It returns nil, nil when another run holds the job lock.
//
// Every due schedule line is paid, posted to the ledger and turned into a commission
// payable inside a single transaction. Any failure rolls the whole run back, after
// which the run is recorded as failed and the lock released.
func (p *PGI) RunAccrualJob(ctx context.Context) (*model.JobRun, error) {
	ctx, span := tracer.Start(ctx, "RunAccrual")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.runTimeout())
	defer cancel()

	jobName := p.accrualJobName()
	run := &model.JobRun{
		ID:        model.GenerateUUIDWithSuffix(model.PrefixJobRun),
		JobType:   model.JobPremiumAccrual,
		Status:    model.JobRunning,
		StartedAt: p.clock.Now(),
	}
	span.SetAttributes(attribute.String("job_run.id", run.ID))
	logger := logrus.WithFields(logrus.Fields{"job": jobName, "job_run_id": run.ID})

	acquired, err := p.datasource.AcquireJobLock(ctx, jobName, run.ID, p.lockTimeout())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job lock")
		p.failAccrual(ctx, run, errors.Wrap(err, "acquire job lock"), false)
		return run, err
	}
	if !acquired {
		logger.Debug("accrual skipped, job lock is held by another run")
		return nil, nil
	}

	var (
		processed   int
		completedAt time.Time
	)
	err = p.datasource.WithTx(ctx, func(ds database.IDataSource) error {
		if err := ds.CreateJobRun(ctx, run); err != nil {
			return err
		}

		due, err := ds.GetDueScheduleLines(ctx, p.clock.Now())
		if err != nil {
			return err
		}

		for _, line := range due {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "accrual run interrupted")
			}
			if err := p.accrueLine(ctx, ds, line); err != nil {
				return errors.Wrapf(err, "schedule line %s", line.ID)
			}
		}

		completedAt = p.clock.Now()
		if err := ds.CompleteJobRun(ctx, run.ID, completedAt, len(due)); err != nil {
			return err
		}
		processed = len(due)
		return ds.ReleaseJobLock(ctx, jobName, run.ID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "accrual failed")
		p.failAccrual(ctx, run, err, true)
		return run, err
	}

	if err := run.Finish(model.JobCompleted, completedAt); err != nil {
		return run, err
	}
	run.LinesProcessed = processed
	span.SetAttributes(attribute.Int("job_run.lines", processed))
	logger.WithFields(logrus.Fields{"lines": processed, "status": run.Status}).Info("premium accrual completed")
	return run, nil
}

// accrueLine settles one due line: the premium is recognised, the referrer's
// commission payable is always recorded, and commission is expensed when non-zero.
func (p *PGI) accrueLine(ctx context.Context, ds database.IDataSource, line model.DueScheduleLine) error {
	if err := ds.MarkScheduleLinePaid(ctx, line.ID); err != nil {
		return err
	}

	now := p.clock.Now()
	premium := model.NewLedgerPair(
		model.AccountPremiumReceivable,
		model.AccountPremiumRevenue,
		line.PremiumAmount,
		fmt.Sprintf("Premium accrued for policy %s", line.PolicyID),
		line.ID,
	).At(now)
	if err := ds.RecordLedgerTransaction(ctx, premium); err != nil {
		return err
	}

	payable := model.NewCommissionPayable(line, now)
	if err := ds.CreatePayable(ctx, &payable); err != nil {
		return err
	}
	if !payable.CommissionAmount.IsPositive() {
		return nil
	}

	commission := model.NewLedgerPair(
		model.AccountCommissionExpense,
		model.AccountCommissionPayable,
		payable.CommissionAmount,
		fmt.Sprintf("Commission earned on policy %s", line.PolicyID),
		line.ID,
	).At(now)
	return ds.RecordLedgerTransaction(ctx, commission)
}

// failAccrual runs outside the rolled back transaction and outside the run deadline,
// which may be the very thing that failed.
func (p *PGI) failAccrual(ctx context.Context, run *model.JobRun, cause error, releaseLock bool) {
	bg := context.WithoutCancel(ctx)
	logger := logrus.WithFields(logrus.Fields{"job_run_id": run.ID, "status": model.JobFailed})

	if err := p.datasource.FailJobRun(bg, run, p.clock.Now(), cause.Error()); err != nil {
		logger.WithError(err).Error("failed to record accrual failure")
	}
	if releaseLock {
		if err := p.datasource.ReleaseJobLock(bg, p.accrualJobName(), run.ID); err != nil {
			logger.WithError(err).Error("failed to release accrual job lock")
		}
	}
	notification.NotifyError(errors.Wrapf(cause, "premium accrual run %s", run.ID))
}
