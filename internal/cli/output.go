// SPDX-License-Identifier: MIT

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the solve itself failed
	ExitCommandError = 2 // bad flags, unreadable files
)

// Error codes reported in structured output.
const (
	ErrCodeUsage = "E001"
	ErrCodeInput = "E002"
	ErrCodeSolve = "E003"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, ExitFailure by default.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope of json and yaml output.
type Response struct {
	Status string    `json:"status" yaml:"status"`
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIError is the error part of a Response.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// OutputFormatter writes results in the selected format.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

func (f *OutputFormatter) encode(r Response) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		defer enc.Close()
		return enc.Encode(r)
	}
	return nil
}

// Success writes data. Text output prints data with %v.
func (f *OutputFormatter) Success(data any) error {
	if f.Format != "text" {
		return f.encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Fail writes an error response and returns the matching ExitError.
func (f *OutputFormatter) Fail(exitCode int, code, message string, cause error) error {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	if f.Format != "text" {
		_ = f.encode(Response{Status: "error", Error: &CLIError{Code: code, Message: message, Details: details}})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
		if details != "" {
			fmt.Fprintf(f.Writer, "Details: %s\n", details)
		}
	}

	return WrapExitError(exitCode, fmt.Sprintf("[%s] %s", code, message), cause)
}

// GetErrWriter returns the diagnostics writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
