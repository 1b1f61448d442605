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

	"github.com/borealinsurance/pgi/model"
)

func (p *PGI) GetJobRun(ctx context.Context, id string) (*model.JobRun, error) {
	return p.datasource.GetJobRun(ctx, id)
}

// GetJobRuns lists job runs newest first. An empty jobType lists all of them.
func (p *PGI) GetJobRuns(ctx context.Context, jobType string, limit, offset int) ([]model.JobRun, error) {
	limit, offset = page(limit, offset)
	return p.datasource.GetJobRuns(ctx, jobType, limit, offset)
}
