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
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/internal/apierror"
	redlock "github.com/borealinsurance/pgi/internal/lock"
	redis_db "github.com/borealinsurance/pgi/internal/redis-db"
	"github.com/borealinsurance/pgi/model"
)

// TypeAccrualRun is the asynq task type that triggers one accrual run.
const TypeAccrualRun = "accrual:run"

// Queue wraps the asynq client used to hand accrual runs to the workers.
type Queue struct {
	Client  *asynq.Client
	accrual config.AccrualConfig
}

// RedisClientOpt converts the configured redis address into asynq connection options.
func RedisClientOpt(conf config.RedisConfig) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Dns, conf.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func NewQueue(conf *config.Configuration) (*Queue, error) {
	opt, err := RedisClientOpt(conf.Redis)
	if err != nil {
		return nil, err
	}
	return &Queue{Client: asynq.NewClient(opt), accrual: conf.Accrual}, nil
}

func (q *Queue) Close() error {
	return q.Client.Close()
}

// NewAccrualTask builds the accrual task. It carries no payload: a run only
// depends on the clock and the database.
func NewAccrualTask() *asynq.Task {
	return asynq.NewTask(TypeAccrualRun, nil)
}

// AccrualOptions are the enqueue options shared by on-demand and scheduled runs.
// Uniqueness keeps a second run from being queued while one is pending.
func (q *Queue) AccrualOptions() []asynq.Option {
	queue := q.accrual.Queue
	if queue == "" {
		queue = config.DEFAULT_ACCRUAL_QUEUE
	}
	ttl := q.accrual.RunTimeout()
	if ttl <= 0 {
		ttl = config.DEFAULT_RUN_TIMEOUT_SEC * time.Second
	}
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.Unique(ttl),
		asynq.MaxRetry(0),
		asynq.Timeout(ttl),
	}
}

// EnqueueAccrual schedules an accrual run on the workers.
func (q *Queue) EnqueueAccrual(ctx context.Context) (*asynq.TaskInfo, error) {
	info, err := q.Client.EnqueueContext(ctx, NewAccrualTask(), q.AccrualOptions()...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "an accrual run is already queued", err)
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"task_id": info.ID, "queue": info.Queue}).Info("accrual run enqueued")
	return info, nil
}

// EnqueueAccrual hands a run to the workers. It needs a queue.
func (p *PGI) EnqueueAccrual(ctx context.Context) (*asynq.TaskInfo, error) {
	if p.queue == nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "accrual queue is not configured", nil)
	}
	return p.queue.EnqueueAccrual(ctx)
}

// ProcessAccrualTask is the asynq handler for TypeAccrualRun. When redis is available
// a short-lived redis lock keeps two worker processes from starting the run at the
// same moment; the database job lock still decides which run proceeds.
func (p *PGI) ProcessAccrualTask(ctx context.Context, _ *asynq.Task) error {
	if p.redis == nil {
		p.RunAccrual(ctx)
		return nil
	}

	locker := redlock.NewLocker(p.redis, "lock:"+p.accrualJobName(), workerID())
	err := locker.Run(ctx, p.runTimeout(), func(ctx context.Context) error {
		p.RunAccrual(ctx)
		return nil
	})
	if errors.Is(err, redlock.ErrLockHeld) {
		logrus.Debug("accrual task skipped, another worker is running it")
		return nil
	}
	return err
}

func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), model.GenerateUUIDWithSuffix(model.PrefixJobRun))
}
