//go:build windows

package ipc

import (
	"io"
	"os"
)

const pipeRoot = `\\?\pipe\`

// CandidatePaths returns the named pipe paths.
func CandidatePaths() []string {
	return candidatePaths(pipeRoot)
}

func dialEndpoint(path string) (io.ReadWriteCloser, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
