package installer

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Command is one subprocess invocation.
type Command struct {
	Path string
	Args []string
	Env  []string
	// Output receives combined stdout and stderr.
	Output io.Writer
}

func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// CommandRunner runs a Command to completion.
type CommandRunner interface {
	Run(ctx context.Context, c Command) error
}

// ExecRunner runs commands with os/exec. A started command is not killed
// when ctx is cancelled; installs run to completion or failure.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.Stdout = c.Output
	cmd.Stderr = c.Output
	return cmd.Run()
}

// lineWriter splits subprocess output into lines for a progress callback.
// Carriage returns end a line too, so progress bars are reported as they
// redraw.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(data[:i]))
		w.buf.Next(i + 1)
		if line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if line := strings.TrimSpace(w.buf.String()); line != "" {
		w.emit(line)
	}
	w.buf.Reset()
}
