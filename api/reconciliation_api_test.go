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

package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep"
	"github.com/ledgerkeep/ledgerkeep/config"
	"github.com/ledgerkeep/ledgerkeep/database/mocks"
	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
)

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(&config.Configuration{})

	ds := new(mocks.MockDataSource)
	engine, err := ledgerkeep.NewLedgerkeep(ds)
	require.NoError(t, err)

	return NewAPI(engine).Router(), ds
}

func performJSON(t *testing.T, router *gin.Engine, method, route string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, route, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestGetReconciliationSessionNotFound(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetReconciliationSession", mock.Anything, "recon_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "reconciliation session recon_missing not found", nil))

	resp := performJSON(t, router, http.MethodGet, "/reconciliations/recon_missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetReconciliationSessionsRequiresCompany(t *testing.T) {
	router, _ := setupRouter(t)

	resp := performJSON(t, router, http.MethodGet, "/reconciliations", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetReconciliationSessions(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetReconciliationSessions", mock.Anything, "company_1", 50, 0).
		Return([]*model.ReconciliationSession{}, nil)

	resp := performJSON(t, router, http.MethodGet, "/reconciliations", nil,
		map[string]string{"X-Company-Id": "company_1"})
	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestRecordMatchesValidation(t *testing.T) {
	router, _ := setupRouter(t)

	resp := performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/matches",
		map[string]interface{}{"matches": []map[string]interface{}{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/matches",
		map[string]interface{}{"matches": []map[string]interface{}{
			{"bank_entry_id": "entry_1", "transaction_id": "txn_1", "confidence_score": 1.7},
		}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecordMatches(t *testing.T) {
	router, ds := setupRouter(t)

	session := &model.ReconciliationSession{SessionID: "recon_1", Status: model.StatusInProgress}
	ds.On("RecordSessionMatches", mock.Anything, "recon_1", mock.Anything).Return(1, nil)
	ds.On("GetReconciliationSession", mock.Anything, "recon_1").Return(session, nil)

	resp := performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/matches",
		map[string]interface{}{"matches": []map[string]interface{}{
			{"bank_entry_id": "entry_1", "transaction_id": "txn_1", "confidence_score": 0.42},
		}}, map[string]string{"X-Actor": "jordan"})
	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestCompleteSessionConflict(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("CompleteReconciliationSession", mock.Anything, "recon_1", "jordan", "").
		Return(nil, apierror.NewAPIError(apierror.ErrInvalidState, "reconciliation session recon_1 is already completed", nil))

	resp := performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/complete",
		map[string]interface{}{"completed_by": "jordan"}, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestCompleteSessionRequiresActor(t *testing.T) {
	router, _ := setupRouter(t)

	resp := performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/complete",
		map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUnmatchEntry(t *testing.T) {
	router, ds := setupRouter(t)

	session := &model.ReconciliationSession{SessionID: "recon_1", Status: model.StatusInProgress}
	ds.On("DeleteSessionMatch", mock.Anything, "recon_1", "entry_1").Return(true, nil)
	ds.On("GetReconciliationSession", mock.Anything, "recon_1").Return(session, nil)

	resp := performJSON(t, router, http.MethodPost, "/reconciliations/recon_1/unmatch",
		map[string]interface{}{"bank_entry_id": "entry_1"}, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestUploadStatement(t *testing.T) {
	router, ds := setupRouter(t)

	account := &model.Account{
		AccountID: "acc_1",
		CompanyID: "company_1",
		Name:      "Operating",
		Currency:  "USD",
		CreatedAt: time.Now(),
	}
	ds.On("GetAccount", mock.Anything, "acc_1").Return(account, nil)
	ds.On("GetUnreconciledTransactions", mock.Anything, "company_1", mock.Anything, mock.Anything).
		Return([]*model.Transaction{}, nil)
	ds.On("RecordReconciliationSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("account_id", "acc_1"))
	require.NoError(t, writer.WriteField("statement_date", "2025-10-31"))
	require.NoError(t, writer.WriteField("opening_balance", "5000.00"))
	require.NoError(t, writer.WriteField("closing_balance", "5709.50"))
	part, err := writer.CreateFormFile("file", "october.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Date,Description,Amount\n2025-10-02,Coffee,-4.50\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/reconciliations/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Company-Id", "company_1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)

	var result ledgerkeep.UploadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, model.StatusInProgress, result.Session.Status)
	assert.Len(t, result.Session.BankEntries, 1)
	ds.AssertExpectations(t)
}

func TestUploadStatementMissingFile(t *testing.T) {
	router, _ := setupRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("account_id", "acc_1"))
	require.NoError(t, writer.WriteField("statement_date", "2025-10-31"))
	require.NoError(t, writer.WriteField("opening_balance", "0"))
	require.NoError(t, writer.WriteField("closing_balance", "0"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/reconciliations/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Company-Id", "company_1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
