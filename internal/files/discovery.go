package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// WorkbookInfo describes a discovered input workbook.
type WorkbookInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds input workbooks under a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath. Relative
// directories passed to FindWorkbooks resolve against it.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindWorkbooks returns the .xlsx files in dir, oldest first so batch
// runs process uploads in arrival order. Excel lock files (~$ prefix)
// and subdirectories are skipped.
func (d *Discovery) FindWorkbooks(dir string) ([]WorkbookInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var workbooks []WorkbookInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		workbooks = append(workbooks, WorkbookInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(workbooks, func(i, j int) bool {
		if workbooks[i].ModTime.Equal(workbooks[j].ModTime) {
			return workbooks[i].Name < workbooks[j].Name
		}
		return workbooks[i].ModTime.Before(workbooks[j].ModTime)
	})

	return workbooks, nil
}
