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

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/internal/cache"
)

// DBTX is the subset of *sql.DB and *sql.Tx the datasource issues queries through.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Datasource is the Postgres-backed implementation of IDataSource.
// A Datasource created by WithTx routes every query through that transaction.
type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
	tx    *sql.Tx
}

// NewDataSource opens a connection pool for the configured database.
// The caller owns the returned datasource and must Close it.
func NewDataSource(configuration *config.Configuration) (*Datasource, error) {
	con, err := ConnectDB(configuration.DataSource)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con}, nil
}

// ConnectDB opens a pooled postgres connection and waits for it to answer a ping.
func ConnectDB(cfg config.DataSourceConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Dns)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(db.Ping, b, func(err error, next time.Duration) {
		logrus.Warnf("database not ready, retrying in %s: %v", next, err)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	logrus.Info("database connection established")
	return db, nil
}

func (d Datasource) db() DBTX {
	if d.tx != nil {
		return d.tx
	}
	return d.Conn
}

// InTx reports whether d is bound to a transaction.
func (d Datasource) InTx() bool {
	return d.tx != nil
}

// WithTx runs fn against a datasource bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Calling WithTx on an already bound datasource joins the outer transaction.
func (d Datasource) WithTx(ctx context.Context, fn func(IDataSource) error) (err error) {
	if d.tx != nil {
		return fn(d)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	bound := Datasource{Conn: d.Conn, Cache: d.Cache, tx: tx}
	if err = fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (d Datasource) Close() error {
	if d.Conn == nil {
		return nil
	}
	return d.Conn.Close()
}
