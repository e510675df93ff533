package apps

import (
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// Launcher starts a program and returns once it is running
type Launcher interface {
	Start(argv []string, dir string) error
}

// ExecLauncher starts applications as detached child processes
type ExecLauncher struct {
	Log *zap.Logger
}

// Start runs argv in dir without waiting for it to finish. The child is
// reaped in the background.
func (l ExecLauncher) Start(argv []string, dir string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	pid := cmd.Process.Pid
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("launched application exited", zap.Int("pid", pid), zap.Error(err))
		}
	}()
	return nil
}

// commandLine builds the argv for rec, wrapping it in terminal when the
// entry asks for one
func commandLine(rec Record, terminal []string) ([]string, error) {
	argv, err := ExpandExec(rec)
	if err != nil {
		return nil, err
	}
	if rec.Terminal {
		if len(terminal) == 0 {
			return nil, fmt.Errorf("%s needs a terminal but none is configured", rec.ID)
		}
		wrapped := make([]string, 0, len(terminal)+len(argv))
		wrapped = append(wrapped, terminal...)
		argv = append(wrapped, argv...)
	}
	return argv, nil
}
