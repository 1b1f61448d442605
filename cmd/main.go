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
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/database"
	"github.com/borealinsurance/pgi/internal/cache"
	"github.com/borealinsurance/pgi/internal/notification"
	redis_db "github.com/borealinsurance/pgi/internal/redis-db"
)

// PGICLI wraps the root cobra command.
type PGICLI struct {
	cmd *cobra.Command
}

// pgiInstance holds what every subcommand needs once the config is loaded.
type pgiInstance struct {
	pgi   *pgi.PGI
	cnf   *config.Configuration
	db    *database.Datasource
	redis *redis_db.Redis
	queue *pgi.Queue
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration file and wires the datasource, redis and the
// task queue before any subcommand runs.
func preRun(app *pgiInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		if err := setupPGI(app, cnf); err != nil {
			notification.NotifyError(err)
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// setupPGI connects to postgres and, when configured, to redis. Without redis the
// service still works but accrual can only run inline.
func setupPGI(app *pgiInstance, cfg *config.Configuration) error {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return fmt.Errorf("error getting datasource: %v", err)
	}
	app.db = db

	var opts []pgi.Option
	if cfg.Redis.Dns != "" {
		r, err := redis_db.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %v", err)
		}
		app.redis = r
		db.Cache = cache.NewRedisCache(r.Client(), time.Duration(cfg.Redis.CacheTTLSec)*time.Second)

		queue, err := pgi.NewQueue(cfg)
		if err != nil {
			return fmt.Errorf("error creating queue: %v", err)
		}
		app.queue = queue
		opts = append(opts, pgi.WithRedis(r.Client()), pgi.WithQueue(queue))
	}

	app.pgi, err = pgi.NewPGI(db, cfg, opts...)
	if err != nil {
		return fmt.Errorf("error creating pgi: %v", err)
	}
	return nil
}

func (app *pgiInstance) close() {
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			logrus.WithError(err).Warn("closing queue")
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			logrus.WithError(err).Warn("closing redis")
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			logrus.WithError(err).Warn("closing database")
		}
	}
}

func NewCLI() *PGICLI {
	var configFile string
	app := &pgiInstance{}

	rootCmd := &cobra.Command{
		Use:   "pgi",
		Short: "Boreal premium accrual, commission and payout service",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./pgi.json", "Configuration file for pgi")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app.close()
	}

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(accrueCommands(app))
	rootCmd.AddCommand(ledgerCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &PGICLI{cmd: rootCmd}
}

func (c PGICLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
