// Package console is the interactive text surface: it announces discovered
// devices and reads the user's selection from a line-oriented input.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/shlex"
	"golang.org/x/term"

	"github.com/chaz8081/fastpair-seeker/internal/discovery"
	"github.com/chaz8081/fastpair-seeker/internal/pairing"
)

// ErrQuit is returned by Run when the user asks to exit.
var ErrQuit = errors.New("console: quit")

// Lister lists discovered devices. *discovery.Catalogue implements it.
type Lister interface {
	List() []discovery.Entry
}

// Pairer pairs with a device by index. *discovery.Loop implements it.
type Pairer interface {
	Pair(ctx context.Context, index int) (pairing.Outcome, error)
}

// Options configures a Console.
type Options struct {
	Prompt bool   // print "> " before reading each line
	Stop   func() // called for the "stop" command; nil disables it
}

// Console reads commands from in and writes to out. Announce and Done may
// be called from other goroutines while Run is reading.
type Console struct {
	in     io.Reader
	lister Lister
	pairer Pairer
	opts   Options

	mu  sync.Mutex
	out io.Writer
}

// New creates a Console.
func New(in io.Reader, out io.Writer, lister Lister, pairer Pairer, opts Options) *Console {
	return &Console{in: in, out: out, lister: lister, pairer: pairer, opts: opts}
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Announce prints a newly discovered device as "<index>: <name>".
func (c *Console) Announce(e discovery.Entry) {
	c.printf("%d: %s\n", e.Index, e.Name)
}

// Done reports the end of scanning.
func (c *Console) Done() {
	c.printf("Done scanning\n")
}

// Run reads commands until the input ends, the user quits or ctx is done.
// It returns nil at the end of input or on cancellation, and ErrQuit when
// the user quits.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		if c.opts.Prompt {
			c.printf("> ")
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("console: read input: %w", err)
				}
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				return ErrQuit
			}
		}
	}
}

// handle runs one command line and reports whether the user asked to quit.
func (c *Console) handle(ctx context.Context, line string) bool {
	args, err := shlex.Split(line)
	if err != nil {
		c.printf("Invalid command: %s\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "quit", "exit":
		return true
	case "help", "?":
		c.help()
	case "list", "ls":
		c.list()
	case "stop":
		if c.opts.Stop == nil {
			c.printf("Scanning cannot be stopped from here\n")
			return false
		}
		c.opts.Stop()
	case "pair":
		if len(args) != 2 {
			c.printf("Usage: pair <index>\n")
			return false
		}
		c.pair(ctx, args[1])
	default:
		if len(args) == 1 {
			c.pair(ctx, args[0])
			return false
		}
		c.printf("Unknown command %q, try help\n", args[0])
	}
	return false
}

func (c *Console) pair(ctx context.Context, arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		c.printf("Please enter a valid digit.\n")
		return
	}

	outcome, err := c.pairer.Pair(ctx, index)
	if err != nil {
		c.printf("Error %s\n", err)
		return
	}
	switch outcome.Kind {
	case pairing.OutcomePaired:
		c.printf("Pairing success!\n")
	case pairing.OutcomeAlreadyPaired:
		c.printf("Already paired\n")
	default:
		c.printf("Pairing failed: %s\n", outcome)
	}
}

func (c *Console) list() {
	entries := c.lister.List()
	if len(entries) == 0 {
		c.printf("No devices found yet\n")
		return
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d: %s (%s)\n", e.Index, e.Name, e.Device.Address())
	}
	c.printf("%s", b.String())
}

func (c *Console) help() {
	c.printf(`Commands:
  <index>       pair with a discovered device
  pair <index>  same as above
  list          list discovered devices
  stop          stop scanning
  quit          exit
`)
}
