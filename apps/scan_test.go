package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDirsFollowsXDGEnvironment(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/home/tester/.data")
	t.Setenv("XDG_DATA_DIRS", "/opt/share:/usr/share")

	assert.Equal(t, []string{
		"/home/tester/.data/applications",
		"/opt/share/applications",
		"/usr/share/applications",
	}, DefaultDirs())
}

func TestCurrentDesktops(t *testing.T) {
	t.Setenv("XDG_CURRENT_DESKTOP", "ubuntu:GNOME:")
	assert.Equal(t, []string{"ubuntu", "GNOME"}, CurrentDesktops())
}
