package external

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileWatchlist loads flagged claimant names from a directory of watchlist
// files. Plain .txt files carry one name per line; .json files carry either
// an array of names or an object with a "names" array. Entries are loaded
// once and cached for the life of the process.
type FileWatchlist struct {
	dir string

	mu      sync.Mutex
	entries []string
	loaded  bool
}

// NewFileWatchlist creates a watchlist backed by the given directory.
func NewFileWatchlist(dir string) *FileWatchlist {
	return &FileWatchlist{dir: dir}
}

// Entries returns the deduplicated, uppercased watchlist names.
func (w *FileWatchlist) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loaded {
		return w.entries, nil
	}

	entries, err := w.load()
	if err != nil {
		return nil, err
	}

	w.entries = entries
	w.loaded = true
	return entries, nil
}

func (w *FileWatchlist) load() ([]string, error) {
	files, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read watchlist directory: %w", err)
	}

	seen := make(map[string]bool)
	var entries []string
	add := func(name string) {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		entries = append(entries, name)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		path := filepath.Join(w.dir, file.Name())
		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read watchlist file %s: %w", file.Name(), err)
			}
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				add(line)
			}
		case ".json":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read watchlist file %s: %w", file.Name(), err)
			}
			names, err := parseJSONWatchlist(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse watchlist file %s: %w", file.Name(), err)
			}
			for _, name := range names {
				add(name)
			}
		}
	}

	return entries, nil
}

func parseJSONWatchlist(data []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names, nil
	}

	var wrapped struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Names, nil
}
