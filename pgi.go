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
	"embed"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/clock"
)

var tracer = otel.Tracer("pgi")

//go:embed sql/*.sql
var SQLFiles embed.FS

// PGI holds the services behind the API, the CLI and the workers.
// Every dependency is injected; nothing here reaches for a global connection.
type PGI struct {
	datasource database.IDataSource
	queue      *Queue
	redis      redis.UniversalClient
	clock      clock.Clock
	config     *config.Configuration
}

// Option customises a PGI instance.
type Option func(*PGI)

// WithClock replaces the system clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(p *PGI) {
		p.clock = c
	}
}

// WithQueue enables asynchronous accrual runs.
func WithQueue(q *Queue) Option {
	return func(p *PGI) {
		p.queue = q
	}
}

func WithRedis(client redis.UniversalClient) Option {
	return func(p *PGI) {
		p.redis = client
	}
}

// NewPGI builds the service layer over db using the settings in cnf.
func NewPGI(db database.IDataSource, cnf *config.Configuration, opts ...Option) (*PGI, error) {
	if db == nil {
		return nil, errors.New("pgi: a datasource is required")
	}
	if cnf == nil {
		return nil, errors.New("pgi: a configuration is required")
	}

	p := &PGI{datasource: db, config: cnf, clock: clock.System()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Datasource exposes the injected datasource.
func (p *PGI) Datasource() database.IDataSource {
	return p.datasource
}

// Queue returns the task queue, nil when the instance runs without one.
func (p *PGI) Queue() *Queue {
	return p.queue
}

// Redis returns the redis client, nil when none was configured.
func (p *PGI) Redis() redis.UniversalClient {
	return p.redis
}

func (p *PGI) accrualJobName() string {
	if p.config.Accrual.JobName == "" {
		return config.DEFAULT_ACCRUAL_JOB
	}
	return p.config.Accrual.JobName
}

func (p *PGI) lockTimeout() time.Duration {
	if d := p.config.Accrual.LockTimeout(); d > 0 {
		return d
	}
	return config.DEFAULT_LOCK_TIMEOUT_SEC * time.Second
}

func (p *PGI) runTimeout() time.Duration {
	if d := p.config.Accrual.RunTimeout(); d > 0 {
		return d
	}
	return config.DEFAULT_RUN_TIMEOUT_SEC * time.Second
}
