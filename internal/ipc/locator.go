package ipc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

const (
	endpointPrefix = "discord-ipc-"
	endpointCount  = 9
)

// ErrOpenFailed is returned when no candidate endpoint accepts a connection.
var ErrOpenFailed = errors.New("no available endpoint")

// Locator finds and opens the desktop client's IPC endpoint.
type Locator interface {
	Open() (io.ReadWriteCloser, error)
}

// DialFunc opens a single endpoint path.
type DialFunc func(path string) (io.ReadWriteCloser, error)

// StaticLocator tries a fixed list of paths in order.
type StaticLocator struct {
	Paths  []string
	Dial   DialFunc
	Logger *slog.Logger
}

// DefaultLocator returns the locator for the current platform.
func DefaultLocator(logger *slog.Logger) *StaticLocator {
	return &StaticLocator{Paths: CandidatePaths(), Dial: dialEndpoint, Logger: logger}
}

// Open returns the first endpoint that accepts a connection. It does not
// retry.
func (l *StaticLocator) Open() (io.ReadWriteCloser, error) {
	dial := l.Dial
	if dial == nil {
		dial = dialEndpoint
	}

	var lastErr error
	for _, path := range l.Paths {
		conn, err := dial(path)
		if err == nil {
			l.logger().Debug("ipc endpoint opened", slog.String("path", path))
			return conn, nil
		}
		l.logger().Debug("ipc endpoint unavailable", slog.String("path", path), slog.Any("error", err))
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %v)", ErrOpenFailed, lastErr)
	}
	return nil, ErrOpenFailed
}

func (l *StaticLocator) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

// candidatePaths appends the endpoint prefix and indexes 0..8 to root.
func candidatePaths(root string) []string {
	out := make([]string, 0, endpointCount)
	for i := 0; i < endpointCount; i++ {
		out = append(out, root+endpointPrefix+strconv.Itoa(i))
	}
	return out
}
