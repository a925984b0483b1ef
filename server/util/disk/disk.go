// Package disk provides small filesystem helpers used by the on-disk cache:
// atomic (temp-file-then-rename) writes and existence checks, adapted from
// the write-then-rename pattern used for committed writes across the server.
package disk

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// EnsureDirectoryExists creates dir (and parents) if it does not already exist.
func EnsureDirectoryExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func randSuffix() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WriteFileAtomic writes data to fullPath by first writing to a sibling
// temp file and renaming it into place, so a reader never observes a
// partially-written file.
func WriteFileAtomic(fullPath string, data []byte) error {
	if err := EnsureDirectoryExists(filepath.Dir(fullPath)); err != nil {
		return err
	}
	suffix, err := randSuffix()
	if err != nil {
		return err
	}
	tmpPath := fmt.Sprintf("%s.%s.tmp", fullPath, suffix)
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, fullPath)
}

// ReadFile reads fullPath, returning a status CustomError
// when the file does not exist so callers can distinguish "no cache yet"
// from other I/O failures.
func ReadFile(fullPath string) ([]byte, error) {
	data, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return nil, status.CustomErrorf("file not found: %s", fullPath)
	}
	return data, err
}

// FileExists reports whether fullPath exists on disk.
func FileExists(fullPath string) bool {
	_, err := os.Stat(fullPath)
	return err == nil
}
