// Package upload drives a resume file through validation, submission to the
// parsing backend and normalization into the profile store.
package upload

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"wevolve/internal/errors"
	"wevolve/internal/utils"
)

// File is one candidate document as received from a form or the command line.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// NewFile builds a File from in-memory content.
func NewFile(name, contentType string, content []byte) File {
	return File{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        int64(len(content)),
		Content:     content,
	}
}

// ReadFile loads a local file, guessing the content type from its extension.
func ReadFile(path string) (File, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		code := errors.ErrCodeFileNotReadable
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			code = errors.ErrCodeFileNotFound
		}
		return File{}, errors.NewIOError(code, err.Error(), err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}

	return NewFile(path, mime.TypeByExtension(utils.GetFileExtension(path)), content), nil
}
