// Package apps enumerates, searches and launches installed desktop
// applications described by XDG desktop entries.
package apps

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/machinefabric/unirun-apps/unirun"
)

// DefaultWorkers is the default size of the desktop-file parsing pool
const DefaultWorkers = 4

// DesktopDirectory is the application directory backed by desktop entries.
// The list of applications is scanned lazily and cached until Invalidate is
// called, either directly or by a running Watch.
type DesktopDirectory struct {
	dirs     []string
	desktops []string
	terminal []string
	scanner  scanner
	launcher Launcher
	log      *zap.Logger

	mu     sync.Mutex
	cache  []Record
	cached bool
}

// Option configures a DesktopDirectory
type Option func(*DesktopDirectory)

// WithDirs overrides the XDG application directories
func WithDirs(dirs ...string) Option {
	return func(d *DesktopDirectory) {
		if len(dirs) > 0 {
			d.dirs = dirs
		}
	}
}

// WithWorkers sets the parsing pool size
func WithWorkers(n int) Option {
	return func(d *DesktopDirectory) {
		if n > 0 {
			d.scanner.workers = n
		}
	}
}

// WithLocale sets the locale used to resolve translated names
func WithLocale(locale string) Option {
	return func(d *DesktopDirectory) {
		d.scanner.locale = locale
	}
}

// WithDesktops sets the desktop names used for OnlyShowIn/NotShowIn
func WithDesktops(desktops []string) Option {
	return func(d *DesktopDirectory) {
		d.desktops = desktops
	}
}

// WithTerminal sets the command prefix for Terminal=true entries
func WithTerminal(argv []string) Option {
	return func(d *DesktopDirectory) {
		d.terminal = argv
	}
}

// WithLauncher replaces the process launcher
func WithLauncher(l Launcher) Option {
	return func(d *DesktopDirectory) {
		d.launcher = l
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(d *DesktopDirectory) {
		d.log = log
	}
}

// NewDesktopDirectory creates a directory using the XDG environment unless
// overridden by options
func NewDesktopDirectory(opts ...Option) *DesktopDirectory {
	d := &DesktopDirectory{
		dirs:     DefaultDirs(),
		desktops: CurrentDesktops(),
		scanner: scanner{
			workers: DefaultWorkers,
			locale:  CurrentLocale(),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scanner.log = d.log
	if d.launcher == nil {
		d.launcher = ExecLauncher{Log: d.log}
	}
	return d
}

// Dirs returns the directories scanned, in lookup order
func (d *DesktopDirectory) Dirs() []string {
	return append([]string(nil), d.dirs...)
}

// Invalidate drops the cached application list
func (d *DesktopDirectory) Invalidate() {
	d.mu.Lock()
	d.cache = nil
	d.cached = false
	d.mu.Unlock()
}

// visible returns the cached list of shown applications, scanning if needed
func (d *DesktopDirectory) visible(ctx context.Context) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached {
		return d.cache, nil
	}

	all, err := d.scanner.scan(ctx, d.dirs)
	if err != nil {
		return nil, fmt.Errorf("scan applications: %w", err)
	}

	shown := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.ShouldShow(d.desktops) {
			shown = append(shown, rec)
		}
	}
	sort.SliceStable(shown, func(i, j int) bool {
		return strings.ToLower(shown[i].Name) < strings.ToLower(shown[j].Name)
	})

	d.log.Debug("scanned applications", zap.Int("found", len(all)), zap.Int("shown", len(shown)))
	d.cache = shown
	d.cached = true
	return shown, nil
}

// ListAll returns every application meant to be shown, sorted by name
func (d *DesktopDirectory) ListAll(ctx context.Context) ([]Record, error) {
	recs, err := d.visible(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Record(nil), recs...), nil
}

// Search returns the applications matching query, best match first
func (d *DesktopDirectory) Search(ctx context.Context, query string) ([]Record, error) {
	recs, err := d.visible(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(recs, query), nil
}

// Launch starts the application described by rec
func (d *DesktopDirectory) Launch(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	argv, err := commandLine(rec, d.terminal)
	if err != nil {
		return err
	}
	d.log.Info("launching application", zap.String("id", rec.ID), zap.Strings("argv", argv))
	return d.launcher.Start(argv, rec.WorkDir)
}

// DeriveHit builds the hit shown for rec. The desktop id is the hit id, so it
// stays stable for as long as the entry exists.
func (d *DesktopDirectory) DeriveHit(rec Record) unirun.Hit {
	desc := rec.Comment
	if desc == "" {
		desc = rec.GenericName
	}
	return unirun.Hit{
		ID:          rec.ID,
		Title:       rec.Name,
		Description: desc,
		Icon:        rec.Icon,
	}
}
