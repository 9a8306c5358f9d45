//go:build linux || darwin

package control

import (
	"errors"
	"net"
	"os"
)

var errNotUnixConn = errors.New("connection is not a unix socket")

func peerUIDMatchesCurrentUser(conn net.Conn) (bool, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return false, errNotUnixConn
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return false, err
	}

	var (
		uid     uint32
		credErr error
	)
	if err := raw.Control(func(fd uintptr) {
		uid, credErr = socketPeerUID(int(fd))
	}); err != nil {
		return false, err
	}
	if credErr != nil {
		return false, credErr
	}
	return uid == uint32(os.Getuid()), nil
}
