package apps

import "strings"

// Record describes one installed application, parsed from a desktop entry
type Record struct {
	ID          string // desktop file id, e.g. "org.gnome.Calculator.desktop"
	File        string // absolute path of the desktop file
	Type        string
	Name        string
	GenericName string
	Comment     string
	Icon        string
	Exec        string
	WorkDir     string // the entry's Path key
	Keywords    []string
	Categories  []string
	OnlyShowIn  []string
	NotShowIn   []string
	Terminal    bool
	NoDisplay   bool
	Hidden      bool
}

// ShouldShow reports whether the entry is a launchable application that is
// meant to be listed in the given desktop environments.
func (r Record) ShouldShow(desktops []string) bool {
	if r.Type != "Application" || r.Hidden || r.NoDisplay || r.Exec == "" {
		return false
	}
	if len(r.OnlyShowIn) > 0 && !intersects(r.OnlyShowIn, desktops) {
		return false
	}
	if len(r.NotShowIn) > 0 && intersects(r.NotShowIn, desktops) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}
