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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ledgerkeep/ledgerkeep"
	model2 "github.com/ledgerkeep/ledgerkeep/api/model"
	"github.com/ledgerkeep/ledgerkeep/config"
	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
)

// UploadStatement handles a multipart statement upload and opens a
// reconciliation session. The company is taken from the X-Company-Id
// header, which upstream authentication is expected to have verified.
func (a Api) UploadStatement(c *gin.Context) {
	companyID := c.GetHeader("X-Company-Id")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Company-Id header is required"})
		return
	}

	var req model2.UploadStatementRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateUploadStatement(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload failed"})
		return
	}
	defer file.Close()

	cnf, err := config.Fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load configuration"})
		return
	}
	if header.Size > cnf.MaxUploadSizeBytes() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("statement exceeds the %dMB upload limit", cnf.Reconciliation.MaxUploadSizeMB),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, cnf.MaxUploadSizeBytes()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	statementDate, _ := time.Parse("2006-01-02", req.StatementDate)
	openingBalance, err := decimal.NewFromString(req.OpeningBalance)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "opening_balance is not a valid amount"})
		return
	}
	closingBalance, err := decimal.NewFromString(req.ClosingBalance)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "closing_balance is not a valid amount"})
		return
	}

	result, err := a.ledgerkeep.UploadStatement(c.Request.Context(), ledgerkeep.UploadInput{
		CompanyID:      companyID,
		AccountID:      req.AccountID,
		Filename:       header.Filename,
		Data:           data,
		StatementDate:  statementDate,
		OpeningBalance: openingBalance,
		ClosingBalance: closingBalance,
		AutoMatch:      req.AutoMatch,
		UploadedBy:     actor(c),
	})
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetReconciliationSessions lists the calling company's sessions.
func (a Api) GetReconciliationSessions(c *gin.Context) {
	companyID := c.GetHeader("X-Company-Id")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Company-Id header is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := a.ledgerkeep.GetReconciliationSessions(c.Request.Context(), companyID, limit, offset)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetReconciliationSession fetches one session by ID.
func (a Api) GetReconciliationSession(c *gin.Context) {
	session, err := a.ledgerkeep.GetReconciliationSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// RecordMatches records a batch of manual matches against a session.
func (a Api) RecordMatches(c *gin.Context) {
	var req model2.RecordMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateRecordMatches(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := a.ledgerkeep.MatchEntries(c.Request.Context(), c.Param("id"), req.Matches, actor(c))
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// UnmatchEntry removes the match on one bank entry.
func (a Api) UnmatchEntry(c *gin.Context) {
	var req model2.UnmatchEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateUnmatchEntry(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := a.ledgerkeep.UnmatchEntry(c.Request.Context(), c.Param("id"), req.BankEntryID)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// CompleteSession moves a session to its terminal completed state.
func (a Api) CompleteSession(c *gin.Context) {
	var req model2.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateCompleteSession(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := a.ledgerkeep.CompleteReconciliationSession(c.Request.Context(), c.Param("id"), req.CompletedBy, req.Notes)
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession discards an in-progress session.
func (a Api) DeleteSession(c *gin.Context) {
	if err := a.ledgerkeep.DeleteReconciliationSession(c.Request.Context(), c.Param("id")); err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reconciliation session deleted"})
}

// GetReconciliationReport builds the summary report for a session.
func (a Api) GetReconciliationReport(c *gin.Context) {
	report, err := a.ledgerkeep.GenerateReconciliationReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		logrus.Error(err)
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func actor(c *gin.Context) string {
	if who := c.GetHeader("X-Actor"); who != "" {
		return who
	}
	return "system"
}
