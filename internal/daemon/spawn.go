package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/lydakis/richpresence/internal/control"
)

const holderStartTimeout = 5 * time.Second

var (
	spawnHolderFn   = spawnHolder
	waitForHolderFn = waitForHolder
	execCommandFn   = exec.Command
)

// Detach starts a background copy of this binary with args and waits until
// its control socket answers. It returns the new holder's status.
func Detach(args []string, socketPath string) (*control.Status, error) {
	if control.NewClient(socketPath).Listening() {
		return nil, ErrAlreadyHolding
	}
	if err := spawnHolderFn(args); err != nil {
		return nil, err
	}
	return waitForHolderFn(socketPath)
}

func spawnHolder(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable: %w", err)
	}

	cmd, cleanup, err := newHolderCommand(exe, args)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning holder: %w", err)
	}

	go cmd.Wait() //nolint: errcheck
	return nil
}

func newHolderCommand(exe string, args []string) (*exec.Cmd, func(), error) {
	cmd := execCommandFn(exe, args...)
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	return cmd, func() {
		_ = devNull.Close()
	}, nil
}

func waitForHolder(socketPath string) (*control.Status, error) {
	client := control.NewClient(socketPath)
	deadline := time.Now().Add(holderStartTimeout)
	for time.Now().Before(deadline) {
		if resp, err := client.Send(&control.Request{Type: control.TypeStatus}); err == nil && resp.Status != nil {
			return resp.Status, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("holder did not start within %s", holderStartTimeout)
}
