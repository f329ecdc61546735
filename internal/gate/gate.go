// Package gate holds the confirmation step between proposing actions and
// executing them. Nothing mutates a fleet without passing through here or
// explicitly forcing past it.
package gate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrAborted means the operator declined. It is a normal terminal
// outcome, not a failure.
var ErrAborted = errors.New("aborted by user")

type Gate struct {
	in    *bufio.Reader
	out   io.Writer
	force bool
}

// New builds a gate reading answers from in and writing prompts to out.
// With force set, Confirm always passes without prompting.
func New(in io.Reader, out io.Writer, force bool) *Gate {
	return &Gate{
		in:    bufio.NewReader(in),
		out:   out,
		force: force,
	}
}

// Confirm asks the operator to approve. Only "y" or "yes" (case
// insensitive) approve; anything else, including closed input, aborts.
func (g *Gate) Confirm(prompt string) error {
	if g.force {
		return nil
	}

	fmt.Fprintf(g.out, "%s [y/N]: ", prompt)

	line, err := g.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return ErrAborted
	}
}
