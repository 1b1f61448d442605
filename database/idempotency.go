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

	"github.com/lib/pq"

	"github.com/borealinsurance/pgi/internal/apierror"
)

// InsertIdempotencyKey records key and reports whether it was new. A duplicate does not
// raise an error, which keeps an enclosing transaction usable.
func (d Datasource) InsertIdempotencyKey(ctx context.Context, key, endpoint string) (bool, error) {
	var stored string
	err := d.db().QueryRowContext(ctx, `
		INSERT INTO pgi.idempotency_keys (key, endpoint, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO NOTHING
		RETURNING key
	`, key, endpoint).Scan(&stored)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return false, nil
		}
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record idempotency key", err)
	}
	return true, nil
}
