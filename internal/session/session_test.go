package session

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/lydakis/richpresence/internal/activity"
	"github.com/lydakis/richpresence/internal/ipc"
)

type reply struct {
	op  ipc.Opcode
	msg ipc.Message
}

// fakeService reads frames from the client end of a pipe and answers each
// one with the replies returned by respond.
type fakeService struct {
	conn    net.Conn
	respond func(ipc.Frame) []reply

	mu       sync.Mutex
	received []ipc.Frame
	done     chan struct{}
}

func newFakeService(t *testing.T, respond func(ipc.Frame) []reply) (*fakeService, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	fs := &fakeService{conn: server, respond: respond, done: make(chan struct{})}
	go fs.serve()
	t.Cleanup(func() {
		server.Close()
		client.Close()
		<-fs.done
	})
	return fs, client
}

func (fs *fakeService) serve() {
	defer close(fs.done)
	for {
		f, err := ipc.ReadFrame(fs.conn)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.received = append(fs.received, f)
		fs.mu.Unlock()
		for _, r := range fs.respond(f) {
			if err := ipc.WriteFrame(fs.conn, r.op, r.msg); err != nil {
				return
			}
		}
	}
}

func (fs *fakeService) frames() []ipc.Frame {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]ipc.Frame(nil), fs.received...)
}

func pipeLocator(conn net.Conn) ipc.Locator {
	return &ipc.StaticLocator{
		Paths: []string{"discord-ipc-0"},
		Dial:  func(string) (io.ReadWriteCloser, error) { return conn, nil },
	}
}

func readyEvent() *ipc.Event {
	ev := ipc.EventReady
	return &ev
}

// readyThenAck answers the handshake with READY and anything else with a
// plain command reply.
func readyThenAck(f ipc.Frame) []reply {
	if f.Header.Opcode == ipc.OpHandshake {
		return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: "DISPATCH", Data: json.RawMessage(`{}`), Evt: readyEvent()}}}
	}
	if f.Header.Opcode == ipc.OpClose {
		return nil
	}
	return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: SetActivityCommand, Nonce: 1, Data: json.RawMessage(`{}`)}}}
}

func connectedSession(t *testing.T, respond func(ipc.Frame) []reply, opts ...Option) (*Session, *fakeService) {
	t.Helper()
	fs, client := newFakeService(t, respond)
	s := New("123456", append([]Option{WithLocator(pipeLocator(client))}, opts...)...)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return s, fs
}

func TestConnectHandshakeReachesReady(t *testing.T) {
	fs, client := newFakeService(t, readyThenAck)
	s := New("123456", WithLocator(pipeLocator(client)))

	if got := s.State(); got != StateUnopened {
		t.Fatalf("State() = %v, want unopened", got)
	}
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := s.State(); got != StateOpened {
		t.Fatalf("State() = %v, want opened", got)
	}

	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.Connected() || s.State() != StateConnected {
		t.Fatalf("State() = %v, want connected", s.State())
	}

	frames := fs.frames()
	if len(frames) != 1 {
		t.Fatalf("service received %d frames, want 1", len(frames))
	}
	if frames[0].Header.Opcode != ipc.OpHandshake {
		t.Fatalf("handshake opcode = %v", frames[0].Header.Opcode)
	}
	body, err := ipc.MarshalMessage(frames[0].Message)
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	if string(body) != `{"v":1,"client_id":"123456"}` {
		t.Fatalf("handshake body = %s", body)
	}

	// The READY item went to the dispatcher.
	got := make(chan ipc.Message, 1)
	if err := s.On(ipc.EventReady, func(m ipc.Message) { got <- m }); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	select {
	case m := <-got:
		if m.(ipc.IncomingCommand).Cmd != "DISPATCH" {
			t.Fatalf("READY message = %#v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("READY event was not dispatched")
	}
}

func TestConnectWithoutTransportFails(t *testing.T) {
	s := New("123456", WithLocator(&ipc.StaticLocator{}))
	if err := s.Connect(); !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectTwiceFails(t *testing.T) {
	s, _ := connectedSession(t, readyThenAck)
	err := s.Connect()
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("Connect() error = %v, want ErrAlreadyConnected", err)
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed class", err)
	}
}

func TestConnectWithoutReadyStaysOpened(t *testing.T) {
	_, client := newFakeService(t, func(ipc.Frame) []reply {
		return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: "DISPATCH", Data: json.RawMessage(`{}`)}}}
	})
	s := New("123456", WithLocator(pipeLocator(client)))
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.Connected() {
		t.Fatal("Connected() = true without READY")
	}
	if err := s.On(ipc.EventReady, func(ipc.Message) {}); !errors.Is(err, ErrListenWithoutConnection) {
		t.Fatalf("On() error = %v, want ErrListenWithoutConnection", err)
	}
}

func TestOpenFailsWithoutEndpoint(t *testing.T) {
	s := New("123456", WithLocator(&ipc.StaticLocator{
		Paths: []string{"a", "b"},
		Dial:  func(string) (io.ReadWriteCloser, error) { return nil, errors.New("refused") },
	}))
	err := s.Open()
	if !errors.Is(err, ErrOpenFailed) || !errors.Is(err, ipc.ErrOpenFailed) {
		t.Fatalf("Open() error = %v, want ErrOpenFailed", err)
	}
	if s.State() != StateUnopened {
		t.Fatalf("State() = %v, want unopened", s.State())
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dials := 0
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := New("123456", WithLocator(&ipc.StaticLocator{
		Paths: []string{"a"},
		Dial: func(string) (io.ReadWriteCloser, error) {
			dials++
			return client, nil
		},
	}))
	for i := 0; i < 3; i++ {
		if err := s.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	if dials != 1 {
		t.Fatalf("dials = %d, want 1", dials)
	}
}

func TestCriticalErrorFailsWrite(t *testing.T) {
	s, _ := connectedSession(t, func(f ipc.Frame) []reply {
		if f.Header.Opcode == ipc.OpHandshake {
			return readyThenAck(f)
		}
		return []reply{{op: ipc.OpClose, msg: ipc.CriticalError{Code: 4000, Message: "Invalid Client ID"}}}
	})

	err := s.ClearActivity()
	if !errors.Is(err, ErrCriticalFailure) {
		t.Fatalf("ClearActivity() error = %v, want ErrCriticalFailure", err)
	}
	var ce *CriticalError
	if !errors.As(err, &ce) || ce.Code != 4000 || ce.Message != "Invalid Client ID" {
		t.Fatalf("ClearActivity() error = %#v", err)
	}
}

func TestPingIsAnsweredWithPongBeforeWriteReturns(t *testing.T) {
	s, fs := connectedSession(t, func(f ipc.Frame) []reply {
		switch f.Header.Opcode {
		case ipc.OpHandshake:
			return readyThenAck(f)
		case ipc.OpFrame:
			return []reply{{op: ipc.OpPing, msg: ipc.Empty{}}}
		case ipc.OpPong:
			return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: SetActivityCommand, Data: json.RawMessage(`{}`)}}}
		}
		return nil
	})

	if err := s.ClearActivity(); err != nil {
		t.Fatalf("ClearActivity() error = %v", err)
	}

	frames := fs.frames()
	var pongs int
	for _, f := range frames {
		if f.Header.Opcode == ipc.OpPong {
			pongs++
			if f.Message != (ipc.Empty{}) {
				t.Fatalf("pong message = %#v, want Empty", f.Message)
			}
		}
	}
	if pongs != 1 {
		t.Fatalf("pongs = %d, want 1 (frames %+v)", pongs, frames)
	}
	if last := frames[len(frames)-1]; last.Header.Opcode != ipc.OpPong {
		t.Fatalf("last frame opcode = %v, want pong", last.Header.Opcode)
	}
}

func TestSetActivitySendsPidAndActivity(t *testing.T) {
	s, fs := connectedSession(t, readyThenAck, WithPID(4242), WithNonceSource(func() int64 { return 99 }))

	a := activity.New().SetState("Editing").SetLargeImage("logo")
	if err := s.SetActivity(a); err != nil {
		t.Fatalf("SetActivity() error = %v", err)
	}

	frames := fs.frames()
	cmd, ok := frames[len(frames)-1].Message.(ipc.OutgoingCommand)
	if !ok {
		t.Fatalf("last frame = %#v, want OutgoingCommand", frames[len(frames)-1].Message)
	}
	if cmd.Cmd != SetActivityCommand || cmd.Nonce != 99 || cmd.Evt != nil {
		t.Fatalf("command = %+v", cmd)
	}
	var args map[string]any
	if err := json.Unmarshal(cmd.Args, &args); err != nil {
		t.Fatalf("decoding args: %v", err)
	}
	want := map[string]any{
		"pid":      float64(4242),
		"activity": map[string]any{"state": "Editing", "assets": map[string]any{"large_image": "logo"}},
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %#v, want %#v", args, want)
	}
}

func TestClearActivitySendsOnlyPid(t *testing.T) {
	s, fs := connectedSession(t, readyThenAck, WithPID(7))
	if err := s.ClearActivity(); err != nil {
		t.Fatalf("ClearActivity() error = %v", err)
	}
	frames := fs.frames()
	cmd := frames[len(frames)-1].Message.(ipc.OutgoingCommand)
	if string(cmd.Args) != `{"pid":7}` {
		t.Fatalf("args = %s, want {\"pid\":7}", cmd.Args)
	}
}

func TestSetActivityRejectsInvalidActivity(t *testing.T) {
	s, fs := connectedSession(t, readyThenAck)
	before := len(fs.frames())

	err := s.SetActivity(activity.New().AddButton("", "ftp://x"))
	if err == nil {
		t.Fatal("SetActivity() error = nil, want validation error")
	}
	if after := len(fs.frames()); after != before {
		t.Fatalf("invalid activity was sent (%d -> %d frames)", before, after)
	}
}

func TestIssueCommandWithoutTransportFails(t *testing.T) {
	s := New("123456", WithLocator(&ipc.StaticLocator{}))
	if err := s.IssueCommand("X", 1, map[string]any{}); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("IssueCommand() error = %v, want ErrWriteFailed", err)
	}
}

func TestReadFailureWhenServiceHangsUp(t *testing.T) {
	server, client := net.Pipe()
	go func() {
		ipc.ReadFrame(server) //nolint:errcheck
		server.Close()
	}()
	s := New("123456", WithLocator(pipeLocator(client)))
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Connect(); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("Connect() error = %v, want ErrReadFailed", err)
	}
}

func TestTaggedReplyIsDispatched(t *testing.T) {
	s, _ := connectedSession(t, func(f ipc.Frame) []reply {
		if f.Header.Opcode == ipc.OpHandshake {
			return readyThenAck(f)
		}
		ev := ipc.EventError
		return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: SetActivityCommand, Data: json.RawMessage(`{"code":4000}`), Evt: &ev}}}
	})

	got := make(chan ipc.Message, 1)
	if err := s.On(ipc.EventError, func(m ipc.Message) { got <- m }); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := s.ClearActivity(); err != nil {
		t.Fatalf("ClearActivity() error = %v", err)
	}
	select {
	case m := <-got:
		if string(m.(ipc.IncomingCommand).Data) != `{"code":4000}` {
			t.Fatalf("ERROR data = %s", m.(ipc.IncomingCommand).Data)
		}
	case <-time.After(time.Second):
		t.Fatal("ERROR event was not dispatched")
	}
}

func TestDisconnectSendsCloseAndStopsListeners(t *testing.T) {
	s, fs := connectedSession(t, readyThenAck)

	fired := make(chan struct{}, 1)
	if err := s.On(ipc.EventActivityJoin, func(ipc.Message) { fired <- struct{}{} }); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if s.State() != StateDisconnected || s.Connected() {
		t.Fatalf("State() = %v, want disconnected", s.State())
	}

	s.events.Wait()
	select {
	case <-fired:
		t.Fatal("listener fired after disconnect")
	default:
	}

	// The close frame is the last thing the service saw.
	deadline := time.Now().Add(time.Second)
	for {
		frames := fs.frames()
		if n := len(frames); n > 0 && frames[n-1].Header.Opcode == ipc.OpClose {
			if frames[n-1].Message != (ipc.Empty{}) {
				t.Fatalf("close message = %#v, want Empty", frames[n-1].Message)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("close frame not received: %+v", frames)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}
	if err := s.Open(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Open() after disconnect error = %v, want ErrDisconnected", err)
	}
	if err := s.Connect(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Connect() after disconnect error = %v, want ErrDisconnected", err)
	}
	if err := s.On(ipc.EventReady, func(ipc.Message) {}); !errors.Is(err, ErrListenWithoutConnection) {
		t.Fatalf("On() after disconnect error = %v, want ErrListenWithoutConnection", err)
	}
}

func TestDisconnectUnopenedSession(t *testing.T) {
	s := New("123456", WithLocator(&ipc.StaticLocator{}))
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("State() = %v, want disconnected", s.State())
	}
}

func TestReconnectIsUnsupported(t *testing.T) {
	s := New("123456", WithLocator(&ipc.StaticLocator{}))
	if err := s.Reconnect(); !errors.Is(err, ErrReconnectUnsupported) {
		t.Fatalf("Reconnect() error = %v, want ErrReconnectUnsupported", err)
	}
}

func TestRandomNonceVaries(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 100; i++ {
		seen[randomNonce()] = struct{}{}
	}
	if len(seen) < 99 {
		t.Fatalf("randomNonce produced %d distinct values out of 100", len(seen))
	}
}

func TestDialConnects(t *testing.T) {
	_, client := newFakeService(t, readyThenAck)
	s, err := Dial("123456", WithLocator(pipeLocator(client)))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if !s.Connected() {
		t.Fatal("Dial() returned an unconnected session")
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
}

func TestDialFailsWithoutReady(t *testing.T) {
	_, client := newFakeService(t, func(ipc.Frame) []reply {
		return []reply{{op: ipc.OpFrame, msg: ipc.Empty{}}}
	})
	_, err := Dial("123456", WithLocator(pipeLocator(client)))
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Dial() error = %v, want ErrNotReady", err)
	}
}

func TestSubscribeSendsEventTag(t *testing.T) {
	s, fs := connectedSession(t, readyThenAck)

	if err := s.Subscribe(ipc.EventActivityJoin); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	frames := fs.frames()
	last := frames[len(frames)-1]
	cmd, ok := last.Message.(ipc.OutgoingCommand)
	if !ok {
		t.Fatalf("last frame = %#v, want OutgoingCommand", last.Message)
	}
	if cmd.Cmd != SubscribeCommand || cmd.Evt == nil || *cmd.Evt != ipc.EventActivityJoin {
		t.Fatalf("subscribe frame = %+v", cmd)
	}
	if string(cmd.Args) != `{}` {
		t.Fatalf("subscribe args = %s, want {}", cmd.Args)
	}
}

func TestPingReadsPushedEvent(t *testing.T) {
	join := ipc.EventActivityJoin
	s, _ := connectedSession(t, func(f ipc.Frame) []reply {
		switch f.Header.Opcode {
		case ipc.OpHandshake:
			return readyThenAck(f)
		case ipc.OpPing:
			return []reply{{op: ipc.OpFrame, msg: ipc.IncomingCommand{Cmd: "DISPATCH", Data: json.RawMessage(`{"secret":"s"}`), Evt: &join}}}
		}
		return nil
	})

	got := make(chan ipc.Message, 1)
	if err := s.On(ipc.EventActivityJoin, func(m ipc.Message) { got <- m }); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := s.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	select {
	case m := <-got:
		if string(m.(ipc.IncomingCommand).Data) != `{"secret":"s"}` {
			t.Fatalf("ACTIVITY_JOIN data = %s", m.(ipc.IncomingCommand).Data)
		}
	case <-time.After(time.Second):
		t.Fatal("pushed event was not dispatched")
	}
}

func TestPingAfterDisconnectFails(t *testing.T) {
	s, _ := connectedSession(t, readyThenAck)
	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := s.Ping(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Ping() error = %v, want ErrDisconnected", err)
	}
}
