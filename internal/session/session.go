// Package session drives one client session with the desktop IPC service:
// open the transport, handshake, issue commands, and tear down.
//
// Every write is paired with exactly one read of the reply, performed under
// the session lock, so writes and replies never interleave. Replies tagged
// with an event are forwarded to the session's event dispatcher.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/lydakis/richpresence/internal/activity"
	"github.com/lydakis/richpresence/internal/event"
	"github.com/lydakis/richpresence/internal/ipc"
)

// SetActivityCommand is the command used to set and clear presence.
const SetActivityCommand = "SET_ACTIVITY"

// SubscribeCommand asks the service to push one event kind.
const SubscribeCommand = "SUBSCRIBE"

// State is the session lifecycle position.
type State int

const (
	StateUnopened State = iota
	StateOpened
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpened:
		return "opened"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLocator overrides transport discovery.
func WithLocator(l ipc.Locator) Option {
	return func(s *Session) { s.locator = l }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNonceSource overrides nonce generation.
func WithNonceSource(fn func() int64) Option {
	return func(s *Session) {
		if fn != nil {
			s.nonce = fn
		}
	}
}

// WithPID overrides the process id reported with activity commands.
func WithPID(pid int) Option {
	return func(s *Session) { s.pid = pid }
}

// Session is a single client session. A disconnected session cannot be
// reused.
type Session struct {
	appID   string
	locator ipc.Locator
	logger  *slog.Logger
	nonce   func() int64
	pid     int
	events  *event.Dispatcher

	mu           sync.Mutex
	conn         io.ReadWriteCloser
	connected    bool
	disconnected bool
}

// New creates an unopened session for the given application id.
func New(appID string, opts ...Option) *Session {
	s := &Session{
		appID:  appID,
		logger: slog.New(slog.DiscardHandler),
		nonce:  randomNonce,
		pid:    os.Getpid(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locator == nil {
		s.locator = ipc.DefaultLocator(s.logger)
	}
	s.logger = s.logger.With(slog.String("component", "session"))
	s.events = event.New(s.logger)
	return s
}

// Dial opens the transport and performs the handshake. It fails unless the
// session reaches READY; on failure the session is disconnected.
func Dial(appID string, opts ...Option) (*Session, error) {
	s := New(appID, opts...)
	if err := s.Open(); err != nil {
		return nil, err
	}
	if err := s.Connect(); err != nil {
		_ = s.Disconnect()
		return nil, err
	}
	if !s.Connected() {
		_ = s.Disconnect()
		return nil, ErrNotReady
	}
	return s, nil
}

// AppID returns the application id sent in the handshake.
func (s *Session) AppID() string {
	return s.appID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.disconnected:
		return StateDisconnected
	case s.connected:
		return StateConnected
	case s.conn != nil:
		return StateOpened
	default:
		return StateUnopened
	}
}

// Connected reports whether the handshake reached READY.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Open locates and opens the transport. It is a no-op once a transport is
// held.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disconnected {
		return ErrDisconnected
	}
	if s.conn != nil {
		return nil
	}

	conn, err := s.locator.Open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	s.conn = conn
	s.logger.Debug("ipc transport opened")
	return nil
}

// Connect sends the handshake. The session becomes connected when the reply
// is the READY event; any other reply leaves it opened.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disconnected {
		return ErrDisconnected
	}
	if s.conn == nil {
		return fmt.Errorf("%w: no transport open", ErrConnectionFailed)
	}
	if s.connected {
		return ErrAlreadyConnected
	}

	hs := ipc.Handshake{Version: ipc.ProtocolVersion, ClientID: s.appID}
	if err := s.transactLocked(ipc.OpHandshake, hs); err != nil {
		return err
	}
	if !s.connected {
		s.logger.Warn("handshake reply was not READY", slog.String("app_id", s.appID))
	}
	return nil
}

// IssueCommand sends a command frame with the given nonce and arguments.
func (s *Session) IssueCommand(cmd string, nonce int64, args any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %s args: %w", ipc.ErrSerialization, cmd, err)
	}

	return s.transact(ipc.OpFrame, ipc.OutgoingCommand{Cmd: cmd, Nonce: nonce, Args: raw})
}

// Subscribe asks the service to push events of kind. Pushed events are only
// read as the reply to a later command or Ping.
func (s *Session) Subscribe(kind ipc.Event) error {
	return s.transact(ipc.OpFrame, ipc.OutgoingCommand{
		Cmd:   SubscribeCommand,
		Nonce: s.nonce(),
		Args:  json.RawMessage(`{}`),
		Evt:   &kind,
	})
}

// Ping sends a keepalive and classifies the one frame read back, which may
// be a pushed event instead of the pong.
func (s *Session) Ping() error {
	return s.transact(ipc.OpPing, ipc.Empty{})
}

func (s *Session) transact(op ipc.Opcode, msg ipc.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disconnected {
		return ErrDisconnected
	}
	if s.conn == nil {
		return fmt.Errorf("%w: no transport open", ErrWriteFailed)
	}
	return s.transactLocked(op, msg)
}

// SetActivity publishes a as the current presence.
func (s *Session) SetActivity(a *activity.Activity) error {
	if err := activity.Validate(a); err != nil {
		return fmt.Errorf("invalid activity: %w", err)
	}
	args := map[string]any{
		"pid":      s.pid,
		"activity": a,
	}
	return s.IssueCommand(SetActivityCommand, s.nonce(), args)
}

// ClearActivity removes the current presence.
func (s *Session) ClearActivity() error {
	args := map[string]any{
		"pid": s.pid,
	}
	return s.IssueCommand(SetActivityCommand, s.nonce(), args)
}

// On registers fn to run once with the next event of kind. The session must
// be connected.
func (s *Session) On(kind ipc.Event, fn func(ipc.Message)) error {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return ErrListenWithoutConnection
	}
	s.events.Listen(kind, fn)
	return nil
}

// Disconnect sends the close notice, stops event delivery and closes the
// transport. The service drops the connection after a close notice, so no
// reply is read. Calling Disconnect again returns nil.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disconnected {
		return nil
	}
	s.disconnected = true
	s.connected = false
	s.events.Stop()

	if s.conn == nil {
		return nil
	}

	var writeErr error
	if err := ipc.WriteFrame(s.conn, ipc.OpClose, ipc.Empty{}); err != nil {
		writeErr = fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("closing ipc transport", slog.Any("error", err))
	}
	s.conn = nil
	s.logger.Debug("ipc session disconnected")
	return writeErr
}

// Reconnect is not supported. Build a new Session instead.
func (s *Session) Reconnect() error {
	return ErrReconnectUnsupported
}

// transactLocked writes msg and reads exactly one reply frame.
func (s *Session) transactLocked(op ipc.Opcode, msg ipc.Message) error {
	if err := ipc.WriteFrame(s.conn, op, msg); err != nil {
		if errors.Is(err, ipc.ErrSerialization) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	s.logger.Debug("ipc frame sent", slog.String("op", op.String()))

	reply, err := ipc.ReadFrame(s.conn)
	if err != nil {
		if errors.Is(err, ipc.ErrMalformedBody) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	s.logger.Debug("ipc frame received", slog.String("op", reply.Header.Opcode.String()))
	return s.handleReplyLocked(reply)
}

func (s *Session) handleReplyLocked(reply ipc.Frame) error {
	switch m := reply.Message.(type) {
	case ipc.IncomingCommand:
		if m.Evt == nil {
			return nil
		}
		s.events.Emit(*m.Evt, m)
		if *m.Evt == ipc.EventReady && !s.connected {
			s.connected = true
			s.logger.Info("ipc session ready", slog.String("app_id", s.appID))
		}
	case ipc.CriticalError:
		s.logger.Error("ipc critical error", slog.Int("code", int(m.Code)), slog.String("message", m.Message))
		return &CriticalError{Code: m.Code, Message: m.Message}
	case ipc.Empty:
		if reply.Header.Opcode == ipc.OpPing {
			s.logger.Debug("answering ipc ping")
			return s.transactLocked(ipc.OpPong, ipc.Empty{})
		}
	}
	return nil
}
