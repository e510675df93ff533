package apps

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// desktopFile is a candidate entry found while walking the data dirs
type desktopFile struct {
	id   string
	path string
}

// DefaultDirs returns the XDG application directories in lookup order:
// $XDG_DATA_HOME/applications first, then each $XDG_DATA_DIRS entry.
func DefaultDirs() []string {
	xdg.Reload()

	dirs := []string{filepath.Join(xdg.DataHome, "applications")}
	for _, d := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(d, "applications"))
	}
	return dirs
}

// CurrentDesktops returns the desktop names listed in $XDG_CURRENT_DESKTOP
func CurrentDesktops() []string {
	var out []string
	for _, d := range strings.Split(os.Getenv("XDG_CURRENT_DESKTOP"), ":") {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// CurrentLocale returns the message locale from the environment
func CurrentLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// findDesktopFiles walks dirs in order. A desktop id found in an earlier dir
// shadows the same id in later ones.
func findDesktopFiles(dirs []string) ([]desktopFile, error) {
	seen := make(map[string]bool)
	var files []desktopFile

	for _, root := range dirs {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".desktop") {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			id := strings.ReplaceAll(filepath.ToSlash(rel), "/", "-")
			if seen[id] {
				return nil
			}
			seen[id] = true
			files = append(files, desktopFile{id: id, path: path})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// scanner parses desktop files concurrently on a bounded goroutine pool
type scanner struct {
	workers int
	locale  string
	log     *zap.Logger
}

// scan parses every desktop file under dirs. Unreadable or malformed files
// are skipped with a warning; the order of the result follows dirs.
func (s *scanner) scan(ctx context.Context, dirs []string) ([]Record, error) {
	files, err := findDesktopFiles(dirs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	parsed := make([]*Record, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		i, f := i, f
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			rec, err := ParseDesktopFile(f.path, f.id, s.locale)
			if err != nil {
				s.log.Warn("skipping desktop file", zap.String("path", f.path), zap.Error(err))
				return
			}
			parsed[i] = &rec
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(parsed))
	for _, rec := range parsed {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}
