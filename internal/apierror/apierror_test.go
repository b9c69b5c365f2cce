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

package apierror_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	details := "session sess_1 is already completed"
	apiErr := apierror.NewAPIError(apierror.ErrInvalidState, "invalid state transition", details)

	assert.Equal(t, apierror.ErrInvalidState, apiErr.Code)
	assert.Equal(t, "invalid state transition", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "INVALID_STATE: invalid state transition", apiErr.Error())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "NotFound Error",
			err:      apierror.NewAPIError(apierror.ErrNotFound, "session not found", nil),
			expected: http.StatusNotFound,
		},
		{
			name:     "Conflict Error",
			err:      apierror.NewAPIError(apierror.ErrConflict, "conflict occurred", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "InvalidState Error",
			err:      apierror.NewAPIError(apierror.ErrInvalidState, "session already completed", nil),
			expected: http.StatusConflict,
		},
		{
			name:     "InvalidInput Error",
			err:      apierror.NewAPIError(apierror.ErrInvalidInput, "invalid statement format", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "InternalServerError",
			err:      apierror.NewAPIError(apierror.ErrInternalServer, "internal server error", nil),
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Unknown Error",
			err:      errors.New("unknown error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode := apierror.MapErrorToHTTPStatus(tt.err)
			assert.Equal(t, tt.expected, statusCode)
		})
	}
}

func TestIs(t *testing.T) {
	err := apierror.NewAPIError(apierror.ErrNotFound, "account not found", nil)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.False(t, apierror.Is(err, apierror.ErrInvalidState))
	assert.False(t, apierror.Is(errors.New("plain"), apierror.ErrNotFound))
}
