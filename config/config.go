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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT              = "5001"
	DEFAULT_ACCRUAL_JOB       = "premium_accrual"
	DEFAULT_ACCRUAL_SCHEDULE  = "@every 1h"
	DEFAULT_ACCRUAL_QUEUE     = "accrual"
	DEFAULT_LOCK_TIMEOUT_SEC  = 3600
	DEFAULT_RUN_TIMEOUT_SEC   = 600
	DEFAULT_MAX_OPEN_CONNS    = 25
	DEFAULT_MAX_IDLE_CONNS    = 10
	DEFAULT_MONITORING_PORT   = "5004"
	DEFAULT_CLEANUP_INTERVAL  = 10800
	DEFAULT_CACHE_TTL_SECONDS = 3600
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PGI_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PGI_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PGI_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PGI_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PGI_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PGI_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns          string `json:"dns" envconfig:"PGI_DATA_SOURCE_DNS"`
	MaxOpenConns int    `json:"max_open_conns" envconfig:"PGI_DATA_SOURCE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `json:"max_idle_conns" envconfig:"PGI_DATA_SOURCE_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"PGI_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"PGI_REDIS_SKIP_TLS_VERIFY"`
	CacheTTLSec   int    `json:"cache_ttl_seconds" envconfig:"PGI_REDIS_CACHE_TTL_SECONDS"`
}

// AccrualConfig drives the premium accrual job.
type AccrualConfig struct {
	JobName            string `json:"job_name" envconfig:"PGI_ACCRUAL_JOB_NAME"`
	Schedule           string `json:"schedule" envconfig:"PGI_ACCRUAL_SCHEDULE"`
	Queue              string `json:"queue" envconfig:"PGI_ACCRUAL_QUEUE"`
	LockTimeoutSeconds int    `json:"lock_timeout_seconds" envconfig:"PGI_ACCRUAL_LOCK_TIMEOUT_SECONDS"`
	RunTimeoutSeconds  int    `json:"run_timeout_seconds" envconfig:"PGI_ACCRUAL_RUN_TIMEOUT_SECONDS"`
	MonitoringPort     string `json:"monitoring_port" envconfig:"PGI_ACCRUAL_MONITORING_PORT"`
}

// LockTimeout is the age after which a held job lock is considered stale.
func (a AccrualConfig) LockTimeout() time.Duration {
	return time.Duration(a.LockTimeoutSeconds) * time.Second
}

func (a AccrualConfig) RunTimeout() time.Duration {
	return time.Duration(a.RunTimeoutSeconds) * time.Second
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PGI_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PGI_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PGI_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"PGI_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"PGI_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"PGI_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Accrual         AccrualConfig    `json:"accrual"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("pgi", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called pgi.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Boreal PGI"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		return errors.New("secret key is required when server.secure is enabled")
	}

	if cnf.DataSource.MaxOpenConns <= 0 {
		cnf.DataSource.MaxOpenConns = DEFAULT_MAX_OPEN_CONNS
	}
	if cnf.DataSource.MaxIdleConns <= 0 {
		cnf.DataSource.MaxIdleConns = DEFAULT_MAX_IDLE_CONNS
	}
	if cnf.Redis.CacheTTLSec <= 0 {
		cnf.Redis.CacheTTLSec = DEFAULT_CACHE_TTL_SECONDS
	}

	cnf.setAccrualDefaults()

	if cnf.Accrual.LockTimeoutSeconds < cnf.Accrual.RunTimeoutSeconds {
		return errors.New("accrual lock timeout must not be shorter than the run timeout")
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := DEFAULT_CLEANUP_INTERVAL
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (cnf *Configuration) setAccrualDefaults() {
	a := &cnf.Accrual
	a.JobName = strings.TrimSpace(a.JobName)
	if a.JobName == "" {
		a.JobName = DEFAULT_ACCRUAL_JOB
	}
	if a.Schedule == "" {
		a.Schedule = DEFAULT_ACCRUAL_SCHEDULE
	}
	if a.Queue == "" {
		a.Queue = DEFAULT_ACCRUAL_QUEUE
	}
	if a.RunTimeoutSeconds <= 0 {
		a.RunTimeoutSeconds = DEFAULT_RUN_TIMEOUT_SEC
	}
	if a.LockTimeoutSeconds <= 0 {
		a.LockTimeoutSeconds = DEFAULT_LOCK_TIMEOUT_SEC
	}
	if a.MonitoringPort == "" {
		a.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
