package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/internal/inputs"
)

// watchDebounce groups the events of one save into a single rescan.
const watchDebounce = 100 * time.Millisecond

// watchTargets decides which file events concern the watched paths.
type watchTargets struct {
	files  map[string]bool // named explicitly
	roots  []string        // directories walked recursively
	walker *inputs.Walker
}

func (t *watchTargets) match(name string) bool {
	name = filepath.Clean(name)
	if t.files[name] {
		return true
	}
	if !t.walker.Match(name) {
		return false
	}
	for _, root := range t.roots {
		rel, err := filepath.Rel(root, name)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Watch scans paths once and then rescans files as they are written, until
// ctx is done. Every batch of results, the first one included, is passed to
// report. Rules are not reloaded; c is used for every batch.
func Watch(
	ctx context.Context,
	logger *zap.Logger,
	c *Compiled,
	paths []string,
	opts ProcessOptions,
	report func([]Result),
) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	targets := &watchTargets{files: make(map[string]bool), walker: inputs.New(opts.Extensions...)}
	for _, path := range paths {
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			targets.files[path] = true
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return fmt.Errorf("error watching %s: %w", path, err)
			}
			continue
		}
		targets.roots = append(targets.roots, path)
		if err := addTree(watcher, path); err != nil {
			return err
		}
	}

	results, err := ProcessPaths(ctx, logger, c, paths, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	report(results)

	pending := make(map[string]bool)
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Error("Error watching directory", zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !targets.match(event.Name) {
				continue
			}
			pending[filepath.Clean(event.Name)] = true
			fire = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Error watching files", zap.Error(err))

		case <-fire:
			fire = nil
			changed := existingFiles(pending)
			pending = make(map[string]bool)
			if len(changed) == 0 {
				continue
			}

			logger.Debug("rescanning", zap.Strings("files", changed))
			batch, err := ProcessPaths(ctx, logger, c, changed, opts)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Error rescanning files", zap.Error(err))
				continue
			}
			report(batch)
		}
	}
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding directory to watcher: %w", err)
	}
	return nil
}

// existingFiles returns the pending names that are still regular files,
// sorted.
func existingFiles(pending map[string]bool) []string {
	var out []string
	for name := range pending {
		if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
