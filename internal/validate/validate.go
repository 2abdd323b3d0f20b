// Package validate checks uploaded lab orders before they reach the
// sanitizer: a file must be present, non-empty and named *.txt.
package validate

import (
	"errors"
	"path/filepath"
	"strings"
)

// Messages returned to clients; they match the transport's 400 bodies.
var (
	ErrMissingFile = errors.New("No file uploaded or file is empty.")
	ErrNotText     = errors.New("Only .txt files are allowed.")
)

// Upload is the part of an uploaded file validation looks at.
type Upload struct {
	Name string
	Size int64
}

// File validates one upload. An empty name counts as a missing file.
func File(u Upload) error {
	if u.Name == "" || u.Size <= 0 {
		return ErrMissingFile
	}
	if !IsText(u.Name) {
		return ErrNotText
	}
	return nil
}

// Files validates every upload and returns the first error. No uploads at
// all is ErrMissingFile.
func Files(us []Upload) error {
	if len(us) == 0 {
		return ErrMissingFile
	}
	for _, u := range us {
		if err := File(u); err != nil {
			return err
		}
	}
	return nil
}

// IsText reports whether name has a .txt extension, ignoring case.
func IsText(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}
