package paths

import (
	"os"
	"path/filepath"
)

// socketDirEnvVars are checked in order when resolving the directory that
// holds the desktop client's IPC sockets.
var socketDirEnvVars = []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"}

const socketDirFallback = "/tmp"

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "richpresence")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "richpresence")
}

// ConfigDir returns the richpresence config directory ($XDG_CONFIG_HOME/richpresence).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the richpresence state directory ($XDG_STATE_HOME/richpresence).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// RuntimeDir returns the richpresence runtime directory for lock files.
// Falls back to $XDG_STATE_HOME/richpresence if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "richpresence")
	}
	return StateDir()
}

// SocketBaseDir returns the directory the desktop client creates its IPC
// sockets in. The first non-empty of XDG_RUNTIME_DIR, TMPDIR, TMP and TEMP
// wins; /tmp is used when none is set.
func SocketBaseDir() string {
	for _, name := range socketDirEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return socketDirFallback
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LockPath returns the path to the presence holder's file lock.
func LockPath() string {
	return filepath.Join(RuntimeDir(), "hold.lock")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// ControlSocketPath returns the path to the presence holder's control socket.
func ControlSocketPath() string {
	return filepath.Join(RuntimeDir(), "control.sock")
}
