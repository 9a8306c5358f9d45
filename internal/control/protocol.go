// Package control lets CLI invocations talk to a running presence holder
// over a per-user Unix socket.
package control

import "github.com/lydakis/richpresence/internal/activity"

// Request types.
const (
	TypeStatus = "status"
	TypeUpdate = "update"
	TypeClear  = "clear"
	TypeStop   = "stop"
)

// Request is sent from the CLI to the holder.
type Request struct {
	Type     string             `json:"type"`
	Activity *activity.Activity `json:"activity,omitempty"` // update only
}

// Response is sent from the holder back to the CLI.
type Response struct {
	ExitCode int     `json:"exit_code"`        // 0=ok, 1=runtime error, 2=usage error
	Stderr   string  `json:"stderr,omitempty"` // error message for stderr
	Status   *Status `json:"status,omitempty"`
}

// Status describes what a holder is currently showing.
type Status struct {
	PID      int                `json:"pid"`
	ClientID string             `json:"client_id"`
	Since    int64              `json:"since"` // unix seconds
	Activity *activity.Activity `json:"activity,omitempty"`
}

// Exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsageErr = 2
)
