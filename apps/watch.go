package apps

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates the cached application list whenever a desktop entry is
// created, changed or removed under the directory's dirs. Dirs that do not
// exist yet are picked up once they are created. It blocks until ctx is done.
func (d *DesktopDirectory) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	pending := make(map[string]bool)
	for _, dir := range d.dirs {
		if !d.watchRoot(watcher, dir) {
			pending[dir] = true
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				for _, dir := range d.dirs {
					if !pending[dir] && contains(event.Name, dir) {
						d.log.Debug("application dir removed", zap.String("dir", dir))
						pending[dir] = !d.watchRoot(watcher, dir)
					}
				}
			}
			if event.Has(fsnotify.Create) {
				if isDir(event.Name) {
					changed := false
					for dir := range pending {
						if contains(event.Name, dir) && d.watchRoot(watcher, dir) {
							d.log.Debug("application dir appeared", zap.String("dir", dir))
							delete(pending, dir)
							changed = true
						}
					}
					if d.inRoot(event.Name) {
						d.addTree(watcher, event.Name)
						changed = true
					}
					if changed {
						d.Invalidate()
					}
					continue
				}
			}
			if strings.HasSuffix(event.Name, ".desktop") && d.inRoot(event.Name) {
				d.log.Debug("desktop entry changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				d.Invalidate()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("application watcher error", zap.Error(err))
		}
	}
}

// watchRoot watches root's tree and reports true, or, when root does not
// exist, watches its nearest existing ancestor and reports false.
func (d *DesktopDirectory) watchRoot(watcher *fsnotify.Watcher, root string) bool {
	for {
		if isDir(root) {
			d.addTree(watcher, root)
			return true
		}
		parent := existingAncestor(root)
		if parent == "" {
			return false
		}
		if err := watcher.Add(parent); err != nil {
			d.log.Warn("cannot watch directory", zap.String("dir", parent), zap.Error(err))
			return false
		}
		// Root or a deeper ancestor may have been created before the watch
		// was added.
		if !isDir(root) && existingAncestor(root) == parent {
			return false
		}
	}
}

func (d *DesktopDirectory) inRoot(path string) bool {
	for _, dir := range d.dirs {
		if contains(dir, path) {
			return true
		}
	}
	return false
}

// addTree watches root and every directory below it
func (d *DesktopDirectory) addTree(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			d.log.Warn("cannot watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

func existingAncestor(path string) string {
	for p := filepath.Dir(path); ; p = filepath.Dir(p) {
		if isDir(p) {
			return p
		}
		if filepath.Dir(p) == p {
			return ""
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// contains reports whether path is dir or lies below it
func contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
