//go:build unix

package ipc

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/lydakis/richpresence/internal/paths"
	"golang.org/x/sys/unix"
)

// CandidatePaths returns the socket paths under the resolved base directory.
func CandidatePaths() []string {
	return candidatePaths(strings.TrimRight(paths.SocketBaseDir(), "/") + "/")
}

// dialEndpoint skips paths that exist but are not sockets. Missing paths are
// dialed so the caller sees the dial error.
func dialEndpoint(path string) (io.ReadWriteCloser, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err == nil && st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return nil, fmt.Errorf("%s is not a socket", path)
	}
	return net.Dial("unix", path)
}
