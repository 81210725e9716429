package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ralt/chartrepo/internal/models"
	"github.com/sirupsen/logrus"
)

// Runner executes external commands
type Runner interface {
	// Run runs a command and reports only whether it succeeded
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is returned when an external command fails
type CommandError struct {
	Command string
	Args    []string
	Stderr  string
	Err     error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Command, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) execute(ctx context.Context, name string, args ...string) (*bytes.Buffer, error) {
	logrus.Debugf("Running command: %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if stdout.Len() != 0 {
		logrus.Debugf("Command output:\n%s", stdout.String())
	}
	if err != nil {
		return stdout, &CommandError{
			Command: name,
			Args:    args,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	return stdout, nil
}

// Run runs a command and reports only whether it succeeded
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.execute(ctx, name, args...)
	return err
}

// Output runs a command and returns its standard output
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := r.execute(ctx, name, args...)
	return out.Bytes(), err
}

// Require checks that every named binary can be found
func Require(names ...string) error {
	for _, name := range names {
		path, err := exec.LookPath(name)
		if err != nil {
			return &models.RepoError{
				Kind: models.ErrMissingDependency,
				Err:  fmt.Errorf("%s is required but was not found: %w", name, err),
			}
		}
		logrus.Debugf("Using %s at %s", name, path)
	}
	return nil
}
