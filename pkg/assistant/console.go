package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Prompt is shown before each typed instruction.
const Prompt = "› "

// Console is the text-mode Listener and Narrator.
type Console struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
	err   error // set before lines is closed
	mu    sync.Mutex
}

// NewConsole reads instructions from in and writes to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, lines: make(chan string)}
}

// read runs for the life of the process. A blocked read on stdin cannot
// be interrupted, so one goroutine owns the reader and Listen only waits
// on it.
func (c *Console) read() {
	sc := bufio.NewScanner(c.in)
	for sc.Scan() {
		c.lines <- sc.Text()
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	c.err = err
	close(c.lines)
}

// Listen prints the prompt and returns the next line.
func (c *Console) Listen(ctx context.Context) (string, error) {
	c.once.Do(func() { go c.read() })

	c.mu.Lock()
	fmt.Fprint(c.out, Prompt)
	c.mu.Unlock()

	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", c.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Say prints text on its own line.
func (c *Console) Say(_ context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}
