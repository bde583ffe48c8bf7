package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillora/skillora/internal/domain"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "RFC 3339",
			input: "2024-02-15T10:30:00Z",
			want:  time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "bare date",
			input: "2024-02-15",
			want:  time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			input:   "15/02/2024",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Plan string `json:"plan"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid object", `{"plan": "pro"}`, false},
		{"unknown field", `{"plan": "pro", "extra": true}`, true},
		{"trailing garbage", `{"plan": "pro"}{"again": 1}`, true},
		{"not json", `plan=pro`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := decodeJSON(r, &dst)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pro", dst.Plan)
		})
	}
}
