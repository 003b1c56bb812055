package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// IndexEntry is one archived day listed on the index page
type IndexEntry struct {
	Date  string
	Path  string // HTML entry relative to the index file, slash separated
	Count int
}

// ScanArchive lists every YYYY-MM-DD directory under archiveDir holding a
// rendered HTML entry, newest first. Counts come from meta.json, 0 when absent.
func ScanArchive(archiveDir, indexPath string) ([]IndexEntry, error) {
	dirs, err := os.ReadDir(archiveDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory '%s' with %w", archiveDir, err)
	}

	var entries []IndexEntry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		date := d.Name()
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			continue
		}
		htmlPath := filepath.Join(archiveDir, date, "Daily_"+date+".html")
		if _, err := os.Stat(htmlPath); err != nil {
			continue
		}
		entries = append(entries, IndexEntry{
			Date:  date,
			Path:  relativeTo(indexPath, htmlPath),
			Count: readCount(filepath.Join(archiveDir, date, metaFile)),
		})
	}

	slices.SortFunc(entries, func(a, b IndexEntry) int {
		switch {
		case a.Date > b.Date:
			return -1
		case a.Date < b.Date:
			return 1
		}
		return 0
	})
	return entries, nil
}

func readCount(metaPath string) int {
	blob, err := os.ReadFile(metaPath)
	if err != nil {
		return 0
	}
	var meta Meta
	if err := json.Unmarshal(blob, &meta); err != nil {
		return 0
	}
	return meta.Count
}

// WriteIndex regenerates the index page from what is on disk
func WriteIndex(archiveDir, indexPath string) error {
	entries, err := ScanArchive(archiveDir, indexPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, entries); err != nil {
		return fmt.Errorf("failed to render index with %w", err)
	}
	if dir := filepath.Dir(indexPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create index directory with %w", err)
		}
	}
	if err := os.WriteFile(indexPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write index at '%s' with %w", indexPath, err)
	}
	return nil
}

// relativeTo returns target relative to the directory of base, slash separated
func relativeTo(base, target string) string {
	baseDir, err := filepath.Abs(filepath.Dir(base))
	if err != nil {
		return filepath.ToSlash(target)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(baseDir, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
