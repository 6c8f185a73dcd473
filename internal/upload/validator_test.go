package upload

import (
	"bytes"
	"testing"
	"time"

	"wevolve/internal/config"
	"wevolve/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUploadConfig() *config.UploadConfig {
	return &config.UploadConfig{
		MaxFileSize:       5 * 1024 * 1024,
		AllowedExtensions: []string{".pdf"},
		AllowedMIMETypes:  []string{"application/pdf"},
		ProgressInterval:  5 * time.Millisecond,
		ProgressStep:      10,
		ProgressCap:       90,
	}
}

func fakePDF() []byte {
	return []byte("%PDF-1.4\n% not inspected\n%%EOF\n")
}

func TestValidate(t *testing.T) {
	big := append(fakePDF(), bytes.Repeat([]byte("x"), 6*1024*1024)...)

	tests := []struct {
		name     string
		file     File
		wantCode string
		wantMsg  string
	}{
		{
			name: "valid pdf",
			file: NewFile("resume.pdf", "application/pdf", fakePDF()),
		},
		{
			name: "missing content type is sniffed",
			file: NewFile("resume.pdf", "", fakePDF()),
		},
		{
			name: "content type with parameters",
			file: NewFile("resume.PDF", "application/pdf; charset=binary", fakePDF()),
		},
		{
			name:     "too large",
			file:     NewFile("resume.pdf", "application/pdf", big),
			wantCode: errors.ErrCodeFileTooLarge,
			wantMsg:  "File too large (6.0 MB); maximum is 5.0 MB",
		},
		{
			name:     "empty",
			file:     NewFile("resume.pdf", "application/pdf", nil),
			wantCode: errors.ErrCodeEmptyFile,
		},
		{
			name:     "wrong extension",
			file:     NewFile("resume.docx", "application/pdf", fakePDF()),
			wantCode: errors.ErrCodeUnsupportedType,
		},
		{
			name:     "wrong media type",
			file:     NewFile("resume.pdf", "image/png", fakePDF()),
			wantCode: errors.ErrCodeUnsupportedType,
		},
		{
			name:     "missing magic",
			file:     NewFile("resume.pdf", "application/pdf", []byte("just some text")),
			wantCode: errors.ErrCodeCorruptPDF,
		},
	}

	v := NewValidator(testUploadConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.file)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, errors.UserMessage(err))
			}
		})
	}
}

func TestValidateWithInspector(t *testing.T) {
	cfg := testUploadConfig()
	cfg.InspectPDF = true
	v := NewValidator(cfg)

	assert.NoError(t, v.Validate(NewFile("cv.pdf", "application/pdf", minimalPDF("Jane Doe"))))

	err := v.Validate(NewFile("cv.pdf", "application/pdf", fakePDF()))
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorruptPDF))
}

func TestFileTooLargeUnknownSize(t *testing.T) {
	err := FileTooLarge(-1, 5*1024*1024)
	assert.Equal(t, "File too large; maximum is 5.0 MB", errors.UserMessage(err))
}

func TestAccepts(t *testing.T) {
	v := NewValidator(testUploadConfig())
	assert.Equal(t, []string{".pdf", "application/pdf"}, v.Accepts())
	assert.Equal(t, int64(5*1024*1024), v.MaxSize())
}
