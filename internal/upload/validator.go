package upload

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/utils"
)

var pdfMagic = []byte("%PDF-")

// Validator applies the intake rules before anything is sent to the backend.
type Validator struct {
	maxSize    int64
	extensions []string
	mimeTypes  []string
	inspector  *PDFInspector
}

// NewValidator builds a validator from the upload configuration. Structural
// inspection is enabled by cfg.InspectPDF.
func NewValidator(cfg *config.UploadConfig) *Validator {
	v := &Validator{
		maxSize:    cfg.MaxFileSize,
		extensions: cfg.AllowedExtensions,
		mimeTypes:  cfg.AllowedMIMETypes,
	}
	if cfg.InspectPDF {
		v.inspector = NewPDFInspector()
	}
	return v
}

// MaxSize is the configured upload limit in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Accepts lists the extensions and media types shown on the intake page.
func (v *Validator) Accepts() []string {
	return slices.Concat(v.extensions, v.mimeTypes)
}

// Validate checks size first so that oversized files are rejected without
// reading or sniffing their content.
func (v *Validator) Validate(f File) error {
	if f.Size > v.maxSize {
		return FileTooLarge(f.Size, v.maxSize)
	}
	if f.Size == 0 || len(f.Content) == 0 {
		return errors.NewValidationError(errors.ErrCodeEmptyFile, "File is empty", nil).
			WithContext("file_name", f.Name)
	}

	if !utils.HasAllowedExtension(f.Name, v.extensions) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedType,
			fmt.Sprintf("Unsupported file type %q; allowed: %s", utils.GetFileExtension(f.Name), strings.Join(v.extensions, ", ")), nil).
			WithContext("file_name", f.Name)
	}

	mediaType := utils.BaseMediaType(f.ContentType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = utils.BaseMediaType(http.DetectContentType(f.Content))
	}
	if len(v.mimeTypes) > 0 && !slices.Contains(v.mimeTypes, mediaType) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedType,
			fmt.Sprintf("Unsupported file type %q; allowed: %s", mediaType, strings.Join(v.mimeTypes, ", ")), nil).
			WithContext("file_name", f.Name)
	}

	if slices.Contains(v.mimeTypes, "application/pdf") || utils.HasAllowedExtension(f.Name, []string{".pdf"}) {
		if !bytes.HasPrefix(bytes.TrimLeft(f.Content, "\x00\t\r\n "), pdfMagic) {
			return errors.NewValidationError(errors.ErrCodeCorruptPDF,
				"File is not a valid PDF document", nil).WithContext("file_name", f.Name)
		}
		if v.inspector != nil {
			if _, err := v.inspector.Inspect(f.Content); err != nil {
				return errors.NewValidationError(errors.ErrCodeCorruptPDF,
					"File is not a valid PDF document", err).WithContext("file_name", f.Name)
			}
		}
	}

	return nil
}

// FileTooLarge builds the size-limit error. A negative size means the exact
// size is unknown.
func FileTooLarge(size, limit int64) error {
	msg := fmt.Sprintf("File too large; maximum is %s", utils.FormatFileSize(limit))
	if size >= 0 {
		msg = fmt.Sprintf("File too large (%s); maximum is %s", utils.FormatFileSize(size), utils.FormatFileSize(limit))
	}
	return errors.NewValidationError(errors.ErrCodeFileTooLarge, msg, nil).
		WithContext("size", size).
		WithContext("limit", limit)
}
