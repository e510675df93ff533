package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExec(t *testing.T) {
	tests := []struct {
		exec string
		want []string
	}{
		{"firefox %u", []string{"firefox", "%u"}},
		{"  gimp   %U  ", []string{"gimp", "%U"}},
		{`"/opt/My App/bin/app" --flag`, []string{"/opt/My App/bin/app", "--flag"}},
		{`sh -c "echo \"hi\" \$HOME"`, []string{"sh", "-c", `echo "hi" $HOME`}},
		{`app ""`, []string{"app", ""}},
	}
	for _, tt := range tests {
		got, err := SplitExec(tt.exec)
		require.NoError(t, err, tt.exec)
		assert.Equal(t, tt.want, got, tt.exec)
	}
}

func TestSplitExecUnterminatedQuote(t *testing.T) {
	_, err := SplitExec(`app "broken`)
	assert.Error(t, err)
}

func TestExpandExecFieldCodes(t *testing.T) {
	rec := Record{
		Name: "Viewer",
		Icon: "viewer-icon",
		File: "/usr/share/applications/viewer.desktop",
		Exec: `viewer %F %i --title=%c --from %k 100%%`,
	}
	argv, err := ExpandExec(rec)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"viewer", "--icon", "viewer-icon", "--title=Viewer", "--from",
		"/usr/share/applications/viewer.desktop", "100%",
	}, argv)
}

func TestExpandExecIconWithoutIcon(t *testing.T) {
	argv, err := ExpandExec(Record{Exec: "app %i %u"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, argv)
}

func TestExpandExecEmpty(t *testing.T) {
	_, err := ExpandExec(Record{Exec: "%U"})
	assert.Error(t, err)
}

func TestCommandLineTerminal(t *testing.T) {
	rec := Record{ID: "htop.desktop", Exec: "htop", Terminal: true}

	argv, err := commandLine(rec, []string{"xterm", "-e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"xterm", "-e", "htop"}, argv)

	_, err = commandLine(rec, nil)
	assert.Error(t, err)
}
