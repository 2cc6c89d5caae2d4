package engine

import (
	"errors"
	"fmt"
	"os"
)

// ReadDocument reads the whole bibliography at path.
// Every failure is an *InputError, including an empty path.
func ReadDocument(path string) (string, error) {
	if path == "" {
		return "", &InputError{Err: ErrNoInput}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &InputError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &InputError{Path: path, Err: errors.New("is a directory")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &InputError{Path: path, Err: err}
	}
	return string(data), nil
}

// WriteDocument writes doc to path, replacing any existing file.
func WriteDocument(path, doc string) error {
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
