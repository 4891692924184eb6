package tshark

import (
	"fmt"
	"runtime"
	"time"
)

// Mode is a tshark statistics selector passed with -z.
type Mode string

const (
	ModeHierarchy     Mode = "io,phs"  // protocol hierarchy: frames/bytes per protocol
	ModeExpert        Mode = "expert"  // expert info: errors, warnings, notes
	ModeConversations Mode = "conv,ip" // IPv4 conversation table
)

// Reports holds the raw text tshark printed for each mode.
type Reports struct {
	Hierarchy     string
	Expert        string
	Conversations string
}

// InvocationError reports a tshark run that did not complete successfully:
// the binary is missing, it exited non-zero, or it ran past its timeout.
type InvocationError struct {
	Mode     Mode
	ExitCode int // -1 when the process never exited on its own
	Stderr   string
	Timeout  time.Duration // non-zero when the run was cut off by its deadline
	Err      error
}

func (e *InvocationError) Error() string {
	switch {
	case e.Timeout > 0:
		return fmt.Sprintf("tshark %s timed out after %s", e.Mode, e.Timeout)
	case e.ExitCode > 0 && e.Stderr != "":
		return fmt.Sprintf("tshark %s exited with status %d: %s", e.Mode, e.ExitCode, e.Stderr)
	case e.ExitCode > 0:
		return fmt.Sprintf("tshark %s exited with status %d", e.Mode, e.ExitCode)
	}
	return fmt.Sprintf("failed to run tshark %s: %v", e.Mode, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// TimedOut reports whether the run was killed by its deadline.
func (e *InvocationError) TimedOut() bool {
	return e.Timeout > 0
}

// DefaultPath is the tshark binary used when none is configured.
func DefaultPath() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\Wireshark\tshark.exe`
	}
	return "tshark"
}
