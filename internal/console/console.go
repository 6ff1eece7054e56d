// Package console is a line-oriented front end for a session: it reads
// start, stop and status commands and prints the outcome.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"micstream/internal/session"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	streamingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0474C"))
)

// Controller is the subset of *session.Session the console drives.
type Controller interface {
	Start(host string) error
	Stop()
	State() session.State
	Destination() netip.AddrPort
}

const helpText = `Commands:
  start <ip>   stream the microphone to <ip>
  stop         stop streaming
  status       show the current state
  help         show this message
  quit         stop and exit`

// Run reads commands from in until quit, end of input, or ctx is done.
// It returns ctx.Err() when cancelled and nil otherwise.
func Run(ctx context.Context, in io.Reader, out io.Writer, c Controller) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, helpText)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			if quit := Execute(line, out, c); quit {
				return nil
			}
		}
	}
}

// Execute runs a single command line and reports whether the console
// should exit.
func Execute(line string, out io.Writer, c Controller) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "start":
		if len(fields) != 2 {
			fmt.Fprintln(out, errorStyle.Render("usage: start <ip>"))
			return false
		}
		if err := c.Start(fields[1]); err != nil {
			fmt.Fprintln(out, errorStyle.Render(describe(err)))
		}
	case "stop":
		c.Stop()
	case "status":
		fmt.Fprintln(out, Status(c))
	case "help", "?":
		fmt.Fprintln(out, helpText)
	case "quit", "exit":
		c.Stop()
		return true
	default:
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("unknown command %q, try help", fields[0])))
	}
	return false
}

// Status renders the session state on one line.
func Status(c Controller) string {
	if c.State() == session.Streaming {
		return streamingStyle.Render(fmt.Sprintf("streaming to %s", c.Destination()))
	}
	return idleStyle.Render("idle")
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidAddress):
		return "not a valid IP address"
	case errors.Is(err, session.ErrAlreadyStreaming):
		return "already streaming, stop first"
	default:
		return err.Error()
	}
}
