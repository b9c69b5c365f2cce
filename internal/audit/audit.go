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

// Package audit delivers reconciliation lifecycle events to an external
// audit sink. Delivery is best-effort: a sink failure must never fail the
// operation that produced the event.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Actions emitted by the reconciliation engine.
const (
	ActionSessionCreated   = "reconciliation_session_created"
	ActionSessionCompleted = "reconciliation_session_completed"
)

// Event is one audit record. Counts reflect the session at the time the
// action happened.
type Event struct {
	Action         string    `json:"action"`
	SessionID      string    `json:"reconciliation_session_id"`
	CompanyID      string    `json:"company_id"`
	Actor          string    `json:"actor"`
	MatchedCount   int       `json:"matched_count"`
	UnmatchedCount int       `json:"unmatched_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// NoopSink discards every event. Used when no webhook is configured and in
// tests.
type NoopSink struct{}

func (NoopSink) Record(context.Context, Event) error { return nil }

const (
	deliveryTimeout = 10 * time.Second
	maxRetries      = 3
)

// WebhookSink POSTs events as JSON to a configured endpoint, retrying
// transient failures with exponential backoff.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewWebhookSink(url string, headers map[string]string) *WebhookSink {
	return &WebhookSink{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: deliveryTimeout},
	}
}

// Record delivers the event. Callers are expected to treat the returned
// error as advisory; the engine logs it and moves on.
func (w *WebhookSink) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range w.headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("audit webhook returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("audit webhook rejected event: %d", resp.StatusCode))
		}
		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	if err != nil {
		logrus.WithError(err).WithField("action", event.Action).Warn("failed to deliver audit event")
	}
	return err
}
