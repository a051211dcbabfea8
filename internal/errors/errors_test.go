package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsErrCode(t *testing.T) {
	wrapped := fmt.Errorf("predict: %w", NewModelUnknownError())

	assert.True(t, IsErrCode(wrapped, ErrCodeModelUnknown))
	assert.False(t, IsErrCode(wrapped, ErrCodeInternal))
	assert.False(t, IsErrCode(nil, ErrCodeInternal))
	assert.False(t, IsErrCode(fmt.Errorf("plain"), ErrCodeInternal))
}

func TestErrorInfoJSON(t *testing.T) {
	raw, err := json.Marshal(NewMissingInputError())
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "No file or model name provided", payload["error"])
	assert.Equal(t, string(ErrCodeMissingInput), payload["code"])
	assert.NotContains(t, payload, "HttpStatus")
}

func TestStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  ErrorInfo
		want int
	}{
		{name: "missing input", err: NewMissingInputError(), want: http.StatusBadRequest},
		{name: "unknown model", err: NewModelUnknownError(), want: http.StatusBadRequest},
		{name: "invalid parameter", err: NewParameterInvalidError("bad"), want: http.StatusBadRequest},
		{name: "unavailable", err: NewUnavailableError(fmt.Errorf("busy")), want: http.StatusServiceUnavailable},
		{name: "internal", err: NewInternalError(fmt.Errorf("boom")), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HttpStatus)
		})
	}
}
