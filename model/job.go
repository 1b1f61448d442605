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
)

const JobPremiumAccrual = "premium_accrual"

type JobRun struct {
	ID             string     `json:"id"`
	JobType        string     `json:"job_type"`
	Status         JobStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Error          *string    `json:"error"`
	LinesProcessed int        `json:"lines_processed"`
}

// Finish moves the run into the terminal status next at the given time.
func (r *JobRun) Finish(next JobStatus, at time.Time) error {
	if !next.Terminal() || !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("job run %s cannot move from %s to %s", r.ID, r.Status, next)
	}
	r.Status = next
	r.CompletedAt = &at
	return nil
}

// JobLock marks a held lock for a job name.
type JobLock struct {
	JobName  string    `json:"job_name"`
	LockedAt time.Time `json:"locked_at"`
	Owner    string    `json:"owner"`
}

type IdempotencyRecord struct {
	Key       string    `json:"key"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
}
