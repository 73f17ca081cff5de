// Package audio extracts a mono PCM waveform from an uploaded video container
// by running ffmpeg through a command executor.
package audio

import "time"

// CommandRequest encapsulates all information needed to execute a command.
type CommandRequest struct {
	// Command is the binary name or alias (e.g., "ffmpeg").
	Command string `json:"command" yaml:"command"`

	// Args are the command-line arguments (e.g., ["-i", "input.mp4", "output.wav"]).
	Args []string `json:"args" yaml:"args"`

	// Timeout is the maximum execution duration (0 means executor default).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CommandResponse contains the result of a command execution.
type CommandResponse struct {
	// Success indicates if the command completed without errors.
	Success bool `json:"success" yaml:"success"`

	// ExitCode is the process exit code (-1 when the process never ran).
	ExitCode int `json:"exit_code" yaml:"exit_code"`

	Stdout string `json:"stdout" yaml:"stdout"`
	Stderr string `json:"stderr" yaml:"stderr"`

	// Duration is the actual execution time.
	Duration time.Duration `json:"duration_ms" yaml:"duration_ms"`
}

// ExecutorConfig defines the configuration for local command execution.
type ExecutorConfig struct {
	// LocalBinaryPaths maps command names to binary paths
	// (e.g., {"ffmpeg": "/usr/local/bin/ffmpeg"}). Unmapped commands are looked up in PATH.
	LocalBinaryPaths map[string]string `json:"local_binary_paths" yaml:"local_binary_paths"`

	// DefaultTimeout applies when a request carries no timeout of its own.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`
}
