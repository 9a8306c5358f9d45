package session

import (
	"errors"
	"fmt"
)

var (
	// ErrOpenFailed is returned when no transport endpoint could be opened.
	ErrOpenFailed = errors.New("opening ipc transport")
	// ErrConnectionFailed is returned when connect is called without an open
	// transport or on an already connected session.
	ErrConnectionFailed = errors.New("connecting to ipc")
	// ErrAlreadyConnected is a ErrConnectionFailed for a second connect.
	ErrAlreadyConnected = fmt.Errorf("%w: already connected", ErrConnectionFailed)
	// ErrNotReady is returned by Dial when the handshake reply is not READY.
	ErrNotReady = fmt.Errorf("%w: handshake reply was not READY", ErrConnectionFailed)
	// ErrDisconnected is returned by every operation after Disconnect.
	ErrDisconnected = errors.New("session is disconnected")
	// ErrListenWithoutConnection is returned by On before the session is ready.
	ErrListenWithoutConnection = errors.New("connect to ipc before listening to events")
	// ErrReadFailed wraps transport read faults.
	ErrReadFailed = errors.New("reading from ipc")
	// ErrWriteFailed wraps transport write faults.
	ErrWriteFailed = errors.New("writing to ipc")
	// ErrCriticalFailure matches every *CriticalError.
	ErrCriticalFailure = errors.New("ipc critical error")
	// ErrReconnectUnsupported is returned by Reconnect.
	ErrReconnectUnsupported = errors.New("reconnect is not supported; create a new session")
)

// CriticalError is returned when the service answers with a critical error.
// The session must be disconnected and rebuilt.
type CriticalError struct {
	Code    uint32
	Message string
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("ipc critical error (code %d): %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrCriticalFailure) hold.
func (e *CriticalError) Is(target error) bool {
	return target == ErrCriticalFailure
}
