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
	"time"

	"github.com/borealinsurance/pgi/internal/apierror"
)

// AcquireJobLock takes the lock row for jobName. A row older than staleAfter belongs to
// a holder that crashed and is taken over; a fresh row means the lock is held.
func (d Datasource) AcquireJobLock(ctx context.Context, jobName, owner string, staleAfter time.Duration) (bool, error) {
	var name string
	err := d.db().QueryRowContext(ctx, `
		INSERT INTO pgi.job_locks (job_name, locked_at, owner)
		VALUES ($1, NOW(), $2)
		ON CONFLICT (job_name) DO UPDATE
		SET locked_at = NOW(), owner = EXCLUDED.owner
		WHERE pgi.job_locks.locked_at < NOW() - make_interval(secs => $3)
		RETURNING job_name
	`, jobName, owner, staleAfter.Seconds()).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to acquire job lock", err)
	}
	return true, nil
}

// ReleaseJobLock deletes the lock only while owner still holds it, so a holder whose
// lock was taken over cannot release the new holder's lock.
func (d Datasource) ReleaseJobLock(ctx context.Context, jobName, owner string) error {
	_, err := d.db().ExecContext(ctx, `
		DELETE FROM pgi.job_locks
		WHERE job_name = $1 AND owner = $2
	`, jobName, owner)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to release job lock", err)
	}
	return nil
}
