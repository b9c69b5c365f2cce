/*
Copyright 2025 Ledgerkeep Authors.

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
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"

	// Reconciliation tuning defaults. The matching weights and thresholds
	// are fixed constants of the engine; only the candidate window and the
	// upload bound are deployment-tunable.
	DefaultDateWindowDays  = 30
	DefaultMaxUploadSizeMB = 10
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port string `json:"port" envconfig:"LEDGERKEEP_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"LEDGERKEEP_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"LEDGERKEEP_REDIS_DNS"`
}

// ReconciliationConfig bounds the matcher's candidate search window and the
// statement upload size.
type ReconciliationConfig struct {
	DateWindowDays  int `json:"date_window_days" envconfig:"LEDGERKEEP_RECONCILIATION_DATE_WINDOW_DAYS"`
	MaxUploadSizeMB int `json:"max_upload_size_mb" envconfig:"LEDGERKEEP_RECONCILIATION_MAX_UPLOAD_SIZE_MB"`
}

type AuditWebhook struct {
	Url     string            `json:"url" envconfig:"LEDGERKEEP_AUDIT_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	AuditWebhook AuditWebhook `json:"audit_webhook"`
}

type Configuration struct {
	ProjectName    string               `json:"project_name" envconfig:"LEDGERKEEP_PROJECT_NAME"`
	Server         ServerConfig         `json:"server"`
	DataSource     DataSourceConfig     `json:"data_source"`
	Redis          RedisConfig          `json:"redis"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
	Notification   Notification         `json:"notification"`
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
	err = envconfig.Process("ledgerkeep", &cnf)
	if err != nil {
		return err
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		log.Println("config not loaded from file. Loading from env")
		if err := loadConfigFromFile(""); err != nil {
			return nil, err
		}
		c = ConfigStore.Load().(*Configuration)
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "ledgerkeep"
	}
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
	}
	if cnf.Reconciliation.DateWindowDays <= 0 {
		cnf.Reconciliation.DateWindowDays = DefaultDateWindowDays
	}
	if cnf.Reconciliation.MaxUploadSizeMB <= 0 {
		cnf.Reconciliation.MaxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return nil
}

// MaxUploadSizeBytes returns the configured statement upload bound in bytes.
func (cnf *Configuration) MaxUploadSizeBytes() int64 {
	return int64(cnf.Reconciliation.MaxUploadSizeMB) << 20
}

// MockConfig stores the given configuration for tests, applying defaults.
func MockConfig(cnf *Configuration) {
	_ = cnf.validateAndAddDefaults()
	ConfigStore.Store(cnf)
}

func logger() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(logger.Writer())
}
