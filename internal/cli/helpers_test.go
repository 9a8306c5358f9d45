package cli

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lydakis/richpresence/internal/ipc"
)

// fakeDiscord serves the desktop IPC protocol on a real Unix socket.
type fakeDiscord struct {
	path string
	ln   net.Listener

	mu       sync.Mutex
	commands []ipc.OutgoingCommand
	wg       sync.WaitGroup
}

func startFakeDiscord(t *testing.T) *fakeDiscord {
	t.Helper()
	dir, err := os.MkdirTemp("", "rp")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	fd := &fakeDiscord{path: filepath.Join(dir, "discord-ipc-0")}
	fd.ln, err = net.Listen("unix", fd.path)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	fd.wg.Add(1)
	go fd.acceptLoop()
	t.Cleanup(func() {
		fd.ln.Close()
		fd.wg.Wait()
	})
	return fd
}

func (fd *fakeDiscord) acceptLoop() {
	defer fd.wg.Done()
	for {
		conn, err := fd.ln.Accept()
		if err != nil {
			return
		}
		fd.wg.Add(1)
		go func() {
			defer fd.wg.Done()
			defer conn.Close()
			fd.serve(conn)
		}()
	}
}

func (fd *fakeDiscord) serve(conn net.Conn) {
	ready := ipc.EventReady
	for {
		f, err := ipc.ReadFrame(conn)
		if err != nil {
			return
		}
		op, reply := ipc.OpFrame, ipc.Message(nil)
		switch m := f.Message.(type) {
		case ipc.Handshake:
			reply = ipc.IncomingCommand{Cmd: "DISPATCH", Data: json.RawMessage(`{"v":1}`), Evt: &ready}
		case ipc.OutgoingCommand:
			fd.mu.Lock()
			fd.commands = append(fd.commands, m)
			fd.mu.Unlock()
			reply = ipc.IncomingCommand{Cmd: m.Cmd, Nonce: m.Nonce, Data: json.RawMessage(`{}`)}
		default:
			if f.Header.Opcode == ipc.OpClose {
				return
			}
			op, reply = ipc.OpPong, ipc.Empty{}
		}
		if err := ipc.WriteFrame(conn, op, reply); err != nil {
			return
		}
	}
}

func (fd *fakeDiscord) sent() []ipc.OutgoingCommand {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return append([]ipc.OutgoingCommand(nil), fd.commands...)
}

// isolateEnv points config and runtime state at fresh directories.
func isolateEnv(t *testing.T) {
	t.Helper()
	runtimeDir, err := os.MkdirTemp("", "rprun")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(runtimeDir) })
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	oldOut, oldErr := rootStdout, rootStderr
	defer func() {
		rootStdout, rootStderr = oldOut, oldErr
	}()

	var out, errOut bytes.Buffer
	rootStdout = &out
	rootStderr = &errOut
	code := Run(args)
	return out.String(), errOut.String(), code
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Fatalf("output %q does not contain %q", got, want)
	}
}
