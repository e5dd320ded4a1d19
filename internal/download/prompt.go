package download

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/docketrocket/internal/model"
)

// Challenge describes a CAPTCHA a person has to solve.
type Challenge struct {
	// Record is the docket entry being downloaded.
	Record model.DocumentRecord
	// Directory is where the browser will save the file.
	Directory string
	// TargetPath is the full path the downloader waits for.
	TargetPath string
}

// Prompter blocks until a person acknowledges a solved CAPTCHA.
type Prompter interface {
	Acknowledge(ctx context.Context, ch Challenge) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, ch Challenge) error

// Acknowledge calls f.
func (f PrompterFunc) Acknowledge(ctx context.Context, ch Challenge) error {
	return f(ctx, ch)
}

// ConsolePrompter asks on a terminal and waits for Enter.
type ConsolePrompter struct {
	out io.Writer
	in  *bufio.Reader
}

// NewConsolePrompter creates a prompter writing to out and reading from in.
func NewConsolePrompter(out io.Writer, in io.Reader) *ConsolePrompter {
	return &ConsolePrompter{out: out, in: bufio.NewReader(in)}
}

// Acknowledge prints the challenge and waits for a line on the input.
// The wait has no timeout; it ends early only when ctx is cancelled.
func (p *ConsolePrompter) Acknowledge(ctx context.Context, ch Challenge) error {
	docket := ch.Record.DocketNumber
	if docket == "" {
		docket = "N/A"
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "--- HUMAN INTERVENTION REQUIRED ---")
	fmt.Fprintf(p.out, "Navigated to: %s (for docket item: %s, title: %s)\n", ch.Record.URL, docket, ch.Record.Title)
	fmt.Fprintln(p.out, "Please solve the CAPTCHA in the browser window.")
	fmt.Fprintf(p.out, "The PDF should then download automatically to: %s as %s\n", ch.Directory, ch.Record.TargetName())
	fmt.Fprint(p.out, "Press Enter here AFTER the CAPTCHA is solved and the PDF is saved...")

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		done <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return ctx.Err()
	case a := <-done:
		switch {
		case a.err == nil:
			return nil
		case errors.Is(a.err, io.EOF) && a.line != "":
			return nil
		case errors.Is(a.err, io.EOF):
			return fmt.Errorf("%w: input closed", ErrPromptAborted)
		default:
			return fmt.Errorf("%w: %w", ErrPromptAborted, a.err)
		}
	}
}
