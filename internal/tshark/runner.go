package tshark

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"netforensic/internal/logging"
)

// DefaultTimeout bounds a single tshark run.
const DefaultTimeout = 2 * time.Minute

// waitDelay is how long Wait keeps draining pipes after the process is killed.
const waitDelay = 2 * time.Second

// Runner invokes tshark against a capture file, one process per report mode.
type Runner struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. An empty path uses DefaultPath and a
// non-positive timeout uses DefaultTimeout.
func NewRunner(path string, timeout time.Duration, logger *slog.Logger) *Runner {
	if path == "" {
		path = DefaultPath()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		path:    path,
		timeout: timeout,
		logger:  logging.Component(logger, "tshark"),
	}
}

// Path returns the tshark binary this runner executes.
func (r *Runner) Path() string {
	return r.path
}

// Dissect runs the hierarchy, expert and conversation reports in that order
// and stops at the first failure. The capture file is only read.
func (r *Runner) Dissect(ctx context.Context, capturePath string) (Reports, error) {
	var reports Reports

	out, err := r.Run(ctx, capturePath, ModeHierarchy)
	if err != nil {
		return Reports{}, err
	}
	reports.Hierarchy = out

	out, err = r.Run(ctx, capturePath, ModeExpert)
	if err != nil {
		return Reports{}, err
	}
	reports.Expert = out

	out, err = r.Run(ctx, capturePath, ModeConversations)
	if err != nil {
		return Reports{}, err
	}
	reports.Conversations = out

	return reports, nil
}

// Run executes a single report mode and returns tshark's standard output.
// Any failure is returned as *InvocationError.
func (r *Runner) Run(ctx context.Context, capturePath string, mode Mode) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// -r: read from file
	// -q: suppress per-packet lines, print only the statistics
	// -z: statistics selector
	cmd := exec.CommandContext(ctx, r.path, "-r", capturePath, "-q", "-z", string(mode))
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		ierr := &InvocationError{
			Mode:     mode,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			ierr.Timeout = r.timeout
			ierr.Err = ctx.Err()
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				ierr.ExitCode = exitErr.ExitCode()
			}
		}
		r.logger.Warn("tshark run failed",
			"mode", string(mode), "file", capturePath, "elapsed", elapsed, "error", ierr)
		return "", ierr
	}

	r.logger.Debug("tshark run finished",
		"mode", string(mode), "file", capturePath, "elapsed", elapsed, "bytes", stdout.Len())
	return stdout.String(), nil
}
