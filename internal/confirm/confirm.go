// Package confirm resolves yes/no decisions before destructive repository
// actions, either automatically or by prompting the user
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ralt/chartrepo/internal/models"
	"github.com/sirupsen/logrus"
)

// Mode represents how conflicts are resolved
type Mode int

const (
	Interactive Mode = iota
	AssumeYes
	AssumeNo
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case Interactive:
		return "interactive"
	case AssumeYes:
		return "assume-yes"
	case AssumeNo:
		return "assume-no"
	default:
		return "unknown"
	}
}

// ModeFromFlags maps the -y and -n flags to a Mode
func ModeFromFlags(yes, no bool) (Mode, error) {
	switch {
	case yes && no:
		return Interactive, &models.RepoError{
			Kind: models.ErrBadInput,
			Err:  fmt.Errorf("--yes and --no are mutually exclusive"),
		}
	case yes:
		return AssumeYes, nil
	case no:
		return AssumeNo, nil
	default:
		return Interactive, nil
	}
}

// Confirmer answers yes/no questions
type Confirmer interface {
	// Confirm returns true when the action described by question may proceed
	Confirm(question string) (bool, error)
}

// New returns the Confirmer for mode. in and out are only used in interactive mode
func New(mode Mode, in io.Reader, out io.Writer) Confirmer {
	switch mode {
	case AssumeYes:
		return fixed(true)
	case AssumeNo:
		return fixed(false)
	default:
		return NewPrompt(in, out)
	}
}

type fixed bool

func (f fixed) Confirm(question string) (bool, error) {
	logrus.Debugf("%s -> %t (non-interactive)", question, bool(f))
	return bool(f), nil
}

// Prompt asks on out and reads answers line by line from in
type Prompt struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompt creates an interactive confirmer
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Confirm asks until it gets an answer starting with y or n
func (p *Prompt) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/n] ", question)

		if !p.scanner.Scan() {
			fmt.Fprintln(p.out)
			if err := p.scanner.Err(); err != nil {
				return false, fmt.Errorf("failed to read answer: %w", err)
			}
			return false, errors.New("no answer: input closed")
		}

		answer := strings.TrimSpace(p.scanner.Text())
		switch {
		case strings.HasPrefix(answer, "y"), strings.HasPrefix(answer, "Y"):
			return true, nil
		case strings.HasPrefix(answer, "n"), strings.HasPrefix(answer, "N"):
			return false, nil
		}

		fmt.Fprintln(p.out, "Please answer yes or no.")
	}
}
