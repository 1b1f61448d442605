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

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/config"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func accrualQueue(conf *config.Configuration) string {
	if conf.Accrual.Queue == "" {
		return config.DEFAULT_ACCRUAL_QUEUE
	}
	return conf.Accrual.Queue
}

// initializeWorkerServer runs accrual tasks one at a time per process. The job lock
// serialises runs across processes.
func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	opt, err := pgi.RedisClientOpt(conf.Redis)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{accrualQueue(conf): 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logrus.WithError(err).WithField("task", task.Type()).Error("task failed")
		}),
	}), nil
}

// initializeScheduler registers the periodic accrual trigger.
func initializeScheduler(conf *config.Configuration, queue *pgi.Queue) (*asynq.Scheduler, error) {
	opt, err := pgi.RedisClientOpt(conf.Redis)
	if err != nil {
		return nil, err
	}
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	cronspec := conf.Accrual.Schedule
	if cronspec == "" {
		cronspec = config.DEFAULT_ACCRUAL_SCHEDULE
	}
	entryID, err := scheduler.Register(cronspec, pgi.NewAccrualTask(), queue.AccrualOptions()...)
	if err != nil {
		return nil, fmt.Errorf("error registering accrual schedule %q: %v", cronspec, err)
	}
	logrus.WithFields(logrus.Fields{"entry_id": entryID, "schedule": cronspec}).Info("accrual schedule registered")
	return scheduler, nil
}

func startMonitoring(conf *config.Configuration) {
	opt, err := pgi.RedisClientOpt(conf.Redis)
	if err != nil {
		logrus.WithError(err).Error("monitoring disabled")
		return
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: opt,
	})

	port := conf.Accrual.MonitoringPort
	if port == "" {
		port = config.DEFAULT_MONITORING_PORT
	}
	go func() {
		addr := ":" + port
		logrus.Infof("asynqmon listening on %s/monitoring", addr)
		if err := http.ListenAndServe(addr, h); err != nil {
			logrus.WithError(err).Error("could not start asynqmon server")
		}
	}()
}

// workerCommands starts the accrual worker and its scheduler. Workers need redis.
func workerCommands(app *pgiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start pgi accrual workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			conf := app.cnf
			if app.queue == nil {
				return fmt.Errorf("workers need redis: set redis.dns")
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					logrus.WithError(err).Error("tracing shutdown")
				}
			}()

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				return err
			}
			scheduler, err := initializeScheduler(conf, app.queue)
			if err != nil {
				return err
			}
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()

			startMonitoring(conf)

			mux := asynq.NewServeMux()
			mux.HandleFunc(pgi.TypeAccrualRun, app.pgi.ProcessAccrualTask)
			return srv.Run(mux)
		},
	}
	return cmd
}
