package runner

import (
	"context"
	"strings"
)

// Call is one command seen by a StubRunner
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// StubResult is what a StubRunner returns for a matching command line
type StubResult struct {
	Stdout string
	Err    error
}

// StubRunner records commands instead of executing them. Results are looked
// up by exact command line; unknown commands succeed with no output
type StubRunner struct {
	Calls   []Call
	Results map[string]StubResult
}

// NewStubRunner creates an empty StubRunner
func NewStubRunner() *StubRunner {
	return &StubRunner{Results: make(map[string]StubResult)}
}

// On registers the result for a command line
func (s *StubRunner) On(cmdline string, result StubResult) {
	s.Results[cmdline] = result
}

func (s *StubRunner) record(name string, args []string) StubResult {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	s.Calls = append(s.Calls, call)
	return s.Results[call.String()]
}

// Run implements Runner
func (s *StubRunner) Run(_ context.Context, name string, args ...string) error {
	return s.record(name, args).Err
}

// Output implements Runner
func (s *StubRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	res := s.record(name, args)
	return []byte(res.Stdout), res.Err
}

// CommandLines returns every recorded call as a command line
func (s *StubRunner) CommandLines() []string {
	lines := make([]string, 0, len(s.Calls))
	for _, c := range s.Calls {
		lines = append(lines, c.String())
	}
	return lines
}
