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

package ledgerkeep

import (
	"github.com/ledgerkeep/ledgerkeep/cache"
	"github.com/ledgerkeep/ledgerkeep/config"
	"github.com/ledgerkeep/ledgerkeep/database"
	"github.com/ledgerkeep/ledgerkeep/internal/audit"
	"github.com/sirupsen/logrus"
)

// Ledgerkeep is the reconciliation engine service. It owns no ledger data:
// accounts and transactions are read through the datasource and only the
// reconciled flag is ever written back.
type Ledgerkeep struct {
	datasource database.IDataSource
	auditor    audit.Sink
	cache      cache.Cache
}

// NewLedgerkeep constructs the service from the loaded configuration. The
// report cache and the audit webhook are both optional: without Redis the
// cache is disabled, and without a webhook URL audit events are dropped.
func NewLedgerkeep(db database.IDataSource) (*Ledgerkeep, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	var auditor audit.Sink = audit.NoopSink{}
	if cnf.Notification.AuditWebhook.Url != "" {
		auditor = audit.NewWebhookSink(cnf.Notification.AuditWebhook.Url, cnf.Notification.AuditWebhook.Headers)
	}

	var reportCache cache.Cache
	if cnf.Redis.Dns != "" {
		reportCache, err = cache.NewCache()
		if err != nil {
			logrus.WithError(err).Warn("report cache disabled")
			reportCache = nil
		}
	}

	return &Ledgerkeep{
		datasource: db,
		auditor:    auditor,
		cache:      reportCache,
	}, nil
}
