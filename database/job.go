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
	"github.com/wacul/ptr"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

func (d Datasource) CreateJobRun(ctx context.Context, run *model.JobRun) error {
	if run.Status == "" {
		run.Status = model.JobRunning
	}
	_, err := d.db().ExecContext(ctx, `
		INSERT INTO pgi.job_runs (id, job_type, status, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.ID, run.JobType, run.Status, run.StartedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Job run '%s' already exists", run.ID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create job run", err)
	}
	return nil
}

// CompleteJobRun moves a running job to completed. Any other current status is a conflict.
func (d Datasource) CompleteJobRun(ctx context.Context, id string, completedAt time.Time, linesProcessed int) error {
	result, err := d.db().ExecContext(ctx, `
		UPDATE pgi.job_runs
		SET status = 'completed', completed_at = $2, lines_processed = $3
		WHERE id = $1 AND status = 'running'
	`, id, completedAt, linesProcessed)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to complete job run", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if n == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Job run '%s' is not running", id), nil)
	}
	return nil
}

// FailJobRun records run as failed. The run row is usually written inside a transaction
// that has just been rolled back, so the row is inserted when it does not exist.
// A run that already reached a terminal status is left untouched.
func (d Datasource) FailJobRun(ctx context.Context, run *model.JobRun, completedAt time.Time, reason string) error {
	if run.Status.Terminal() {
		return nil
	}
	_, err := d.db().ExecContext(ctx, `
		INSERT INTO pgi.job_runs (id, job_type, status, started_at, completed_at, error)
		VALUES ($1, $2, 'failed', $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET status = 'failed', completed_at = EXCLUDED.completed_at, error = EXCLUDED.error
		WHERE pgi.job_runs.status = 'running'
	`, run.ID, run.JobType, run.StartedAt, completedAt, reason)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record job failure", err)
	}
	if err := run.Finish(model.JobFailed, completedAt); err != nil {
		return apierror.NewAPIError(apierror.ErrConflict, err.Error(), err)
	}
	run.Error = ptr.String(reason)
	return nil
}

func (d Datasource) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	row := d.db().QueryRowContext(ctx, `
		SELECT id, job_type, status, started_at, completed_at, error, lines_processed
		FROM pgi.job_runs
		WHERE id = $1
	`, id)
	run, err := scanJobRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Job run with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job run", err)
	}
	return run, nil
}

// GetJobRuns lists runs newest first. An empty jobType lists every type.
func (d Datasource) GetJobRuns(ctx context.Context, jobType string, limit, offset int) ([]model.JobRun, error) {
	rows, err := d.db().QueryContext(ctx, `
		SELECT id, job_type, status, started_at, completed_at, error, lines_processed
		FROM pgi.job_runs
		WHERE ($1 = '' OR job_type = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, jobType, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve job runs", err)
	}
	defer rows.Close()

	runs := []model.JobRun{}
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan job run", err)
		}
		runs = append(runs, *run)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over job runs", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJobRun(s scanner) (*model.JobRun, error) {
	var (
		run         model.JobRun
		completedAt sql.NullTime
		errText     sql.NullString
	)
	if err := s.Scan(&run.ID, &run.JobType, &run.Status, &run.StartedAt, &completedAt, &errText, &run.LinesProcessed); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = stringPtr(errText)
	return &run, nil
}
