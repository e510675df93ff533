package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/machinefabric/unirun-apps/apps"
	"github.com/machinefabric/unirun-apps/config"
	"github.com/machinefabric/unirun-apps/provider"
	"github.com/machinefabric/unirun-apps/unirun"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestAppCommands(t *testing.T) {
	app := newApp()

	t.Run("serve is the default action", func(t *testing.T) {
		assert.NotNil(t, app.Action)
		assert.NotNil(t, findCommand(t, app, "serve").Action)
	})

	t.Run("probe takes provider flags", func(t *testing.T) {
		cmd := findCommand(t, app, "probe")
		names := map[string]bool{}
		for _, f := range cmd.Flags {
			names[f.Names()[0]] = true
		}
		assert.True(t, names["provider"])
		assert.True(t, names["limit"])
		assert.True(t, names["activate"])
	})

	t.Run("invalid log level is rejected before anything starts", func(t *testing.T) {
		err := newApp().Run([]string{"unirun-apps", "--log-level", "verbose", "probe", "firefox"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})

	t.Run("missing config file is reported", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		err := newApp().Run([]string{"unirun-apps", "--config", missing, "probe", "firefox"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})
}

func TestApplyServeFlags(t *testing.T) {
	app := newApp()
	serve := findCommand(t, app, "serve")

	set := flag.NewFlagSet("serve", flag.ContinueOnError)
	for _, f := range serve.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--socket", "/tmp/unirun.sock", "--show-on-empty", "--max-frame", "999999999"}))

	cfg := config.Default()
	applyServeFlags(cli.NewContext(app, set, nil), &cfg)

	assert.Equal(t, "/tmp/unirun.sock", cfg.Transport.Socket)
	assert.True(t, cfg.ShowOnEmpty)
	assert.Equal(t, unirun.MaxFrameHardLimit, cfg.Limits.MaxFrame)
}

func TestApplyServeFlagsKeepsConfigWhenUnset(t *testing.T) {
	app := newApp()
	set := flag.NewFlagSet("serve", flag.ContinueOnError)
	for _, f := range findCommand(t, app, "serve").Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(nil))

	cfg := config.Default()
	cfg.ShowOnEmpty = true
	cfg.Transport.Socket = "/run/apps.sock"
	applyServeFlags(cli.NewContext(app, set, nil), &cfg)

	assert.True(t, cfg.ShowOnEmpty)
	assert.Equal(t, "/run/apps.sock", cfg.Transport.Socket)
	assert.Equal(t, unirun.DefaultMaxFrame, cfg.Limits.MaxFrame)
}

func TestRootAcceptsServeFlags(t *testing.T) {
	app := newApp()
	set := flag.NewFlagSet("unirun-apps", flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse([]string{"--show-on-empty", "--socket", "/tmp/host.sock", "--max-frame", "4096"}))

	cfg := config.Default()
	applyServeFlags(cli.NewContext(app, set, nil), &cfg)

	assert.True(t, cfg.ShowOnEmpty)
	assert.Equal(t, "/tmp/host.sock", cfg.Transport.Socket)
	assert.Equal(t, 4096, cfg.Limits.MaxFrame)
}

// stuckReader blocks every Read until release is closed and ignores Close,
// like a terminal stdin
type stuckReader struct {
	release chan struct{}
}

func (r stuckReader) Read([]byte) (int, error) {
	<-r.release
	return 0, io.EOF
}

func (r stuckReader) Close() error { return nil }

func TestServeReturnsOnCancelWhileReadIsStuck(t *testing.T) {
	in := stuckReader{release: make(chan struct{})}
	defer close(in.release)
	conn := unirun.NewConn(in, io.Discard, in)

	dir := apps.NewDesktopDirectory(apps.WithDirs(t.TempDir()), apps.WithDesktops(nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, conn, dir, config.Default(), zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServeReportsProviderFailure(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	dir := apps.NewDesktopDirectory(apps.WithDirs(t.TempDir()), apps.WithDesktops(nil))

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), unirun.NewStreamConn(b), dir, config.Default(), zap.NewNop()) }()

	// A HIT where a COMMAND is expected ends the session.
	require.NoError(t, unirun.NewStreamConn(a).WritePackage(unirun.NewHitPackage(unirun.Hit{ID: "x.desktop", Title: "X"})))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, provider.ErrProtocolViolation)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestOpenTransportSocket(t *testing.T) {
	tmp, err := os.MkdirTemp("", "unirun")
	require.NoError(t, err)
	defer os.RemoveAll(tmp)
	sock := filepath.Join(tmp, "host.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	conn, err := openTransport(config.TransportConfig{Socket: sock})
	require.NoError(t, err)
	defer conn.Close()

	host := unirun.NewStreamConn(<-accepted)
	defer host.Close()

	quit := unirun.NewQuit()
	require.NoError(t, host.WritePackage(quit))
	got, err := conn.ReadPackage()
	require.NoError(t, err)
	assert.Equal(t, quit.ID, got.ID)
}

func TestOpenTransportMissingSocket(t *testing.T) {
	_, err := openTransport(config.TransportConfig{Socket: filepath.Join(t.TempDir(), "absent.sock")})
	assert.Error(t, err)
}

type recordingLauncher struct {
	mu    sync.Mutex
	calls [][]string
}

func (l *recordingLauncher) Start(argv []string, dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, argv)
	return nil
}

func writeDesktopFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"firefox.desktop": "[Desktop Entry]\nType=Application\nName=Firefox\nComment=Browse the web\nExec=firefox %u\n",
		"foot.desktop":    "[Desktop Entry]\nType=Application\nName=Foot\nComment=Terminal emulator\nExec=foot\n",
		"hidden.desktop":  "[Desktop Entry]\nType=Application\nName=Fhidden\nExec=fhidden\nNoDisplay=true\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// serveOverPipe runs a provider on one end of a pipe and returns a client
// for the other end plus a func that waits for the provider to stop
func serveOverPipe(t *testing.T, dir provider.Directory, cfg config.Config) (*unirun.Client, func() error) {
	t.Helper()
	a, b := net.Pipe()
	require.NoError(t, a.SetDeadline(time.Now().Add(5*time.Second)))

	done := make(chan error, 1)
	go func() {
		done <- runProvider(context.Background(), unirun.NewStreamConn(b), dir, cfg, zaptest.NewLogger(t))
	}()

	var once sync.Once
	var runErr error
	wait := func() error {
		once.Do(func() { runErr = <-done })
		return runErr
	}

	host := unirun.NewStreamConn(a)
	t.Cleanup(func() {
		host.Close()
		b.Close()
		wait()
	})
	return unirun.NewClient(host), wait
}

func TestProbeAgainstProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Directory.Paths = []string{writeDesktopFiles(t)}
	dir := newDirectory(cfg.Directory, zaptest.NewLogger(t))

	client, wait := serveOverPipe(t, dir, cfg)

	var out bytes.Buffer
	require.NoError(t, probe(client, probeOptions{Query: "f"}, &out))
	assert.Equal(t, "firefox.desktop\tFirefox\tBrowse the web\nfoot.desktop\tFoot\tTerminal emulator\n", out.String())
	assert.NoError(t, wait())
}

func TestProbeLimitAndActivate(t *testing.T) {
	launcher := &recordingLauncher{}
	dir := apps.NewDesktopDirectory(
		apps.WithDirs(writeDesktopFiles(t)),
		apps.WithLocale(""),
		apps.WithDesktops(nil),
		apps.WithLauncher(launcher),
	)

	client, wait := serveOverPipe(t, dir, config.Default())

	var out bytes.Buffer
	require.NoError(t, probe(client, probeOptions{Query: "f", Limit: 1, Activate: true}, &out))
	assert.Equal(t, "firefox.desktop\tFirefox\tBrowse the web\nlaunched firefox.desktop\n", out.String())
	assert.NoError(t, wait())

	require.Len(t, launcher.calls, 1)
	assert.Equal(t, []string{"firefox"}, launcher.calls[0])
}

func TestProbeActivateWithoutHits(t *testing.T) {
	dir := apps.NewDesktopDirectory(apps.WithDirs(writeDesktopFiles(t)), apps.WithDesktops(nil))
	client, _ := serveOverPipe(t, dir, config.Default())

	err := probe(client, probeOptions{Query: "zzz", Activate: true}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hits")
}
