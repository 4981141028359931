package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ArchiveDirName is the subdirectory processed workbooks move into.
const ArchiveDirName = "processed"

// Manager moves processed workbooks out of the drop directory so a
// rerun does not pick them up again.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a file manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Archive moves path into the processed subdirectory next to it and
// returns the new location. An existing archived file with the same
// name is overwritten; reprocessing supersedes the earlier run.
func (m *Manager) Archive(path string) (string, error) {
	dir := filepath.Dir(path)
	archiveDir := filepath.Join(dir, ArchiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	dest := filepath.Join(archiveDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		// Rename fails across filesystems; fall back to copy+remove.
		if copyErr := copyFile(path, dest); copyErr != nil {
			return "", fmt.Errorf("failed to archive %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("failed to remove %s after archiving: %w", path, err)
		}
	}

	m.logger.Info("workbook archived",
		slog.String("from", path),
		slog.String("to", dest))
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
