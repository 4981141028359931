// Package validation checks input workbooks before they enter the
// pipeline: the file must exist, look like an .xlsx archive, and stay
// under the configured size limit.
package validation

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// xlsx files are ZIP archives; the first four bytes are the local file
// header signature.
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// WorkbookValidator validates exchange record workbooks on disk.
type WorkbookValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewWorkbookValidator creates a validator. maxBytes <= 0 disables the
// size check.
func NewWorkbookValidator(maxBytes int64, logger *slog.Logger) *WorkbookValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookValidator{maxBytes: maxBytes, logger: logger}
}

// Validate checks that path points at a readable .xlsx workbook.
func (v *WorkbookValidator) Validate(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("workbook %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat workbook %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a workbook", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("workbook %s is empty", path)
	}
	if v.maxBytes > 0 && info.Size() > v.maxBytes {
		v.logger.Warn("workbook exceeds size limit",
			slog.String("path", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("workbook %s is %d bytes, limit is %d", path, info.Size(), v.maxBytes)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return fmt.Errorf("workbook %s has unsupported extension %q, expected .xlsx", path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(zipMagic))
	if _, err := f.Read(header); err != nil {
		return fmt.Errorf("failed to read workbook header %s: %w", path, err)
	}
	if !bytes.Equal(header, zipMagic) {
		return fmt.Errorf("workbook %s is not a valid xlsx file", path)
	}

	return nil
}
