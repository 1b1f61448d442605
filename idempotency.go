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
	"errors"
	"strings"

	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/apierror"
)

// Endpoints recorded alongside idempotency keys.
const (
	EndpointActivatePolicy     = "policy.activate"
	EndpointRenewPolicy        = "policy.renew"
	EndpointApplicationWebhook = "webhook.application"
)

// errDuplicateRequest aborts a transaction whose idempotency key was already used.
var errDuplicateRequest = errors.New("duplicate request")

// CheckIdempotency records key and reports whether the request may proceed.
// The first use of a key is allowed, every later one is not, whatever the endpoint.
func (p *PGI) CheckIdempotency(ctx context.Context, key, endpoint string) (bool, error) {
	return checkIdempotency(ctx, p.datasource, key, endpoint)
}

func checkIdempotency(ctx context.Context, ds database.IDataSource, key, endpoint string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, apierror.NewAPIError(apierror.ErrInvalidInput, "An idempotency key is required", nil)
	}
	return ds.InsertIdempotencyKey(ctx, key, endpoint)
}

func invalidInput(err error) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
}
