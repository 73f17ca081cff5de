package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

var (
	// ErrCommandNotFound is returned when the binary cannot be resolved.
	ErrCommandNotFound = errors.New("command not available")

	// ErrCommandTimeout is returned when execution exceeds its timeout.
	ErrCommandTimeout = errors.New("command execution timeout")
)

// CommandExecutor runs external commands.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error)
	HealthCheck(ctx context.Context) error
}

// LocalExecutor executes commands directly on the local system using exec.Command.
type LocalExecutor struct {
	config ExecutorConfig
}

// NewLocalExecutor creates a new LocalExecutor with the given configuration.
func NewLocalExecutor(config ExecutorConfig) *LocalExecutor {
	return &LocalExecutor{config: config}
}

// ExecuteCommand executes a command locally and returns the result.
// A non-zero exit is reported both in the response and as a non-nil error.
func (e *LocalExecutor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	// 1. Resolve binary path (from config or PATH)
	binaryPath, err := e.resolveBinaryPath(req.Command)
	if err != nil {
		return CommandResponse{ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, req.Command, err)
	}

	// 2. Create timeout context
	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.config.DefaultTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// 3. Build command; the whole process group is killed on cancellation
	cmd := exec.CommandContext(runCtx, binaryPath, req.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	resp := CommandResponse{
		Success:  err == nil,
		ExitCode: e.getExitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	// 4. Distinguish our deadline from caller cancellation
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return resp, fmt.Errorf("%w (%v): %s", ErrCommandTimeout, timeout, req.Command)
	}
	if ctx.Err() != nil {
		return resp, fmt.Errorf("command %s interrupted: %w", req.Command, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return resp, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, req.Command, err)
		}
	}

	return resp, err
}

// HealthCheck verifies that all configured local binaries are available.
func (e *LocalExecutor) HealthCheck(ctx context.Context) error {
	for cmd, path := range e.config.LocalBinaryPaths {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("local command %s not available at %s: %w", cmd, path, err)
		}
	}
	return nil
}

// resolveBinaryPath resolves the binary path from config or PATH environment.
func (e *LocalExecutor) resolveBinaryPath(command string) (string, error) {
	if path, ok := e.config.LocalBinaryPaths[command]; ok {
		return exec.LookPath(path)
	}
	return exec.LookPath(command)
}

// getExitCode extracts exit code from error.
func (e *LocalExecutor) getExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
