package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediadb/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "object", body: `{"series": [{"id": 1}]}`},
		{name: "array", body: `[1, 2]`},
		{name: "empty body", body: ``, wantErr: true},
		{name: "malformed", body: `{"series":`, wantErr: true},
		{name: "trailing data", body: `{} {}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dest interface{}
			err := ParseJSON(httptest.NewRecorder(), req, &dest)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseJSON_KeepsNumbers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id": 12345678901234567890}`))
	var dest map[string]interface{}

	require.NoError(t, ParseJSON(httptest.NewRecorder(), req, &dest))

	assert.Equal(t, json.Number("12345678901234567890"), dest["id"])
}

func TestParseJSON_TooLarge(t *testing.T) {
	body := `{"data":"` + strings.Repeat("a", int(config.MaxRequestBodyBytes)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest interface{}

	err := ParseJSON(httptest.NewRecorder(), req, &dest)

	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondErrorWithExtras(rec, http.StatusConflict, "stale", map[string]interface{}{
		"current_version": "7",
		"status":          "ignored",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stale", body["detail"])
	assert.Equal(t, "7", body["current_version"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, "Conflict", body["title"])
}

func TestContextHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsPrivileged(req))
	assert.Empty(t, GetRequestID(req))

	req = WithPrivileged(WithRequestID(req, "abc"), true)
	assert.True(t, IsPrivileged(req))
	assert.Equal(t, "abc", GetRequestID(req))
}
