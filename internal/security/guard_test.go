package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "attendash/internal/errors"
)

func TestEnsureNoBinaryData(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "plain csv text", text: "Week,Date\n1,2024-01-07", wantErr: false},
		{name: "crlf line endings", text: "Week,Date\r\n1,2024-01-07\r\n", wantErr: false},
		{name: "tab allowed", text: "a\tb", wantErr: false},
		{name: "nul byte", text: "Week,Date\n1,2024-01-07\x00", wantErr: true},
		{name: "bell character", text: "Week\x07", wantErr: true},
		{name: "vertical tab", text: "a\x0bb", wantErr: true},
		{name: "delete character", text: "a\x7fb", wantErr: true},
		{name: "empty input", text: "", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureNoBinaryData(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "control characters")
				assert.True(t, apperrors.IsFormat(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeTextValue(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr string
	}{
		{name: "trims whitespace", value: "  Central  ", want: "Central"},
		{name: "empty returns empty", value: "", want: ""},
		{name: "whitespace only returns empty", value: "   ", want: ""},
		{name: "formula equals", value: `=HYPERLINK("http://example.com")`, wantErr: "cannot start"},
		{name: "formula plus", value: "+1+1", wantErr: "cannot start"},
		{name: "formula minus", value: "-cmd", wantErr: "cannot start"},
		{name: "formula at", value: "@SUM(A1)", wantErr: "cannot start"},
		{name: "dde payload", value: "=cmd|' /C calc'!A0", wantErr: "cannot start"},
		{name: "bell control", value: "\x07Bell", wantErr: "control characters"},
		{name: "embedded newline", value: "a\nb", wantErr: "control characters"},
		{name: "too long", value: strings.Repeat("x", MaxFieldLength+1), wantErr: "maximum length"},
		{name: "exactly max length", value: strings.Repeat("x", MaxFieldLength), want: strings.Repeat("x", MaxFieldLength)},
		{name: "interior dash fine", value: "Kids Checked-in", want: "Kids Checked-in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeTextValue(tt.value, "Site")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeTextValue_FieldNameInMessage(t *testing.T) {
	_, err := SanitizeTextValue("=1+1", "Service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Service cannot start")
}

func TestCheckRowLimit(t *testing.T) {
	assert.NoError(t, CheckRowLimit(0))
	assert.NoError(t, CheckRowLimit(MaxCSVRows))

	err := CheckRowLimit(MaxCSVRows + 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum allowed")
	assert.True(t, apperrors.IsLimit(err))
}

func TestCheckFileSize(t *testing.T) {
	assert.NoError(t, CheckFileSize(0))
	assert.NoError(t, CheckFileSize(MaxFileBytes))

	err := CheckFileSize(MaxFileBytes + 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.0 MB")
	assert.True(t, apperrors.IsLimit(err))
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 bytes"},
		{512, "512 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{2 * 1024 * 1024, "2.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.size))
	}
}
