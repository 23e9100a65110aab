// Package printindex loads the per-period print number index. The index file
// is produced upstream from the parliament's bulk agenda exports and maps
// electoral period numbers to the print numbers known for them.
package printindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"TiskyPipeline/internal/ports"
)

// File serves the index from a JSON file shaped {"10": [1, 2, ...]}. The
// file's modification time gates re-reads, so an updated index is picked up
// without a restart.
type File struct {
	path string
	log  *slog.Logger

	mu      sync.Mutex
	loaded  bool
	modTime time.Time
	periods map[int][]int
}

var _ ports.PrintIndex = (*File)(nil)

// NewFile wires the index against a JSON file path.
func NewFile(path string, log *slog.Logger) *File {
	return &File{path: path, log: log}
}

// Periods returns the known electoral periods in ascending order.
func (f *File) Periods(ctx context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensure(); err != nil {
		return nil, err
	}

	periods := make([]int, 0, len(f.periods))
	for period := range f.periods {
		periods = append(periods, period)
	}
	sort.Ints(periods)
	return periods, nil
}

// Prints returns the print numbers for a period in ascending order. An
// unknown period yields an empty slice, not an error.
func (f *File) Prints(ctx context.Context, period int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensure(); err != nil {
		return nil, err
	}

	prints := f.periods[period]
	out := make([]int, len(prints))
	copy(out, prints)
	return out, nil
}

// Reload drops the cached index and re-reads the file.
func (f *File) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	return f.ensure()
}

// ensure loads the file when it was never read or its mtime moved.
// Callers hold f.mu.
func (f *File) ensure() error {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		if !f.loaded {
			f.log.Warn("print index file missing, starting empty", "path", f.path)
		}
		f.loaded = true
		f.modTime = time.Time{}
		f.periods = map[int][]int{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat index %s: %w", f.path, err)
	}
	if f.loaded && info.ModTime().Equal(f.modTime) {
		return nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read index %s: %w", f.path, err)
	}

	var decoded map[string][]int
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("parse index %s: %w", f.path, err)
	}

	periods := make(map[int][]int, len(decoded))
	for key, prints := range decoded {
		period, err := strconv.Atoi(key)
		if err != nil {
			f.log.Warn("skipping non-numeric period key", "path", f.path, "key", key)
			continue
		}
		sorted := make([]int, len(prints))
		copy(sorted, prints)
		sort.Ints(sorted)
		periods[period] = sorted
	}

	f.loaded = true
	f.modTime = info.ModTime()
	f.periods = periods
	f.log.Debug("print index loaded", "path", f.path, "periods", len(periods))
	return nil
}
