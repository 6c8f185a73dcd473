package common

import (
	"testing"

	"wevolve/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFormats = []string{"json", "text", "markdown"}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "json", format: "json", supportedFormats: allFormats},
		{name: "markdown", format: "markdown", supportedFormats: allFormats},
		{
			name:             "xml rejected",
			format:           "xml",
			supportedFormats: allFormats,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:             "case sensitive",
			format:           "JSON",
			supportedFormats: allFormats,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:             "empty format",
			format:           "",
			supportedFormats: allFormats,
			expectedError:    "unsupported output format ''. Supported formats: [json text markdown]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, errors.UserMessage(err))
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFormat))
		})
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		def     string
		want    string
		wantErr bool
	}{
		{name: "default used", flag: "", def: "json", want: "json"},
		{name: "flag wins", flag: "text", def: "json", want: "text"},
		{name: "flag normalized", flag: " Markdown ", def: "json", want: "markdown"},
		{name: "bad flag", flag: "yaml", def: "json", wantErr: true},
		{name: "bad default", flag: "", def: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFormat(tt.flag, tt.def, allFormats)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", allFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", allFormats)
		}
	})
}
