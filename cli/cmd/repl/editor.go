package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/ftl/log"
)

const defaultEditor = "vi"

// editTemplateCommand implements [tea.ExecCommand] for the edit-render-retry
// loop. It writes the last template to a temporary file, opens the user's
// editor and renders the result. On error the user is prompted to edit
// again; declining ends the loop with [ErrEditDeclined].
type editTemplateCommand struct {
	sess    *Session
	source  string
	ctxFunc func() context.Context
	logger  log.Logger

	// Set by Run.
	edited string
	output string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editTemplateCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editTemplateCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editTemplateCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the loop. An emptied file cancels the edit and leaves
// edited empty.
func (c *editTemplateCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp(os.TempDir(), "ftl-repl-*.ftl")
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Close(); err != nil {
		return err
	}

	content := c.source

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		data, err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath)
		if err != nil {
			return err
		}

		if strings.TrimSpace(data) == "" {
			return nil
		}

		out, renderErr := c.sess.Render(ctx, "<edit>", data)

		c.logger.TraceContext(ctx, "editor render attempt",
			slog.Int("content_length", len(data)),
			slog.Bool("success", renderErr == nil),
		)

		if renderErr == nil {
			c.edited, c.output = data, out

			return nil
		}

		fmt.Fprintf(c.stderr, "\n%s\n", renderErr)
		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if response == "n" || response == "no" {
			return ErrEditDeclined
		}

		content = data
	}
}

// runEditor opens path in $EDITOR and returns the edited content.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	args := strings.Fields(editor)

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
