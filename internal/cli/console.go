// Package cli is the terminal front end: it renders quizzes, reads commands
// line by line and drives a session controller.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputClosed is returned when stdin reaches EOF.
var ErrInputClosed = errors.New("input closed")

// Console pairs an output writer with a line reader that can be selected on
// alongside session events.
type Console struct {
	out   io.Writer
	lines chan string
}

// NewConsole starts reading in line by line.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lines: make(chan string)}
	go c.scan(in)
	return c
}

func (c *Console) scan(in io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		c.lines <- strings.TrimSpace(sc.Text())
	}
}

// Lines returns the input channel. It is closed at EOF.
func (c *Console) Lines() <-chan string { return c.lines }

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line of output.
func (c *Console) Println(args ...interface{}) {
	fmt.Fprintln(c.out, args...)
}

// Ask prints prompt and waits for the next line.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return line, nil
	}
}

// Confirm asks a yes/no question. def is returned for an empty answer.
func (c *Console) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	line, err := c.Ask(ctx, prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Retry runs fn until it succeeds or the user declines another attempt.
func (c *Console) Retry(ctx context.Context, what string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		c.Printf("Could not %s: %v\n", what, err)
		again, askErr := c.Confirm(ctx, "Retry? [Y/n] ", true)
		if askErr != nil {
			return errors.Join(err, askErr)
		}
		if !again {
			return err
		}
	}
}
