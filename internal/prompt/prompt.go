// Package prompt asks the user questions on the terminal and collects text
// through their editor.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

const template = `# Please enter a title below (one line)
%s
# Please enter a description below (optional) (multiple lines)
%s

# Lines starting with '#' will be ignored.
# An empty title aborts the workflow.
`

// ConfigSource reads git configuration.
type ConfigSource interface {
	ConfigValue(ctx context.Context, key string) (string, error)
}

// Terminal prompts on a pair of streams and edits text with Editor.
type Terminal struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Editor string

	reader *bufio.Reader
}

// NewTerminal creates a Terminal on the process streams.
func NewTerminal(editor string) *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout, Err: os.Stderr, Editor: editor}
}

// Confirm asks a yes/no question. Only "y" and "yes" count as yes.
func (t *Terminal) Confirm(question string) (bool, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	fmt.Fprintf(t.Out, "%s (y/n) ", question)

	line, err := t.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Describe opens the editor on a title and description and returns what
// the user saved. An empty title is returned as is.
func (t *Terminal) Describe(title, description string) (string, string, error) {
	f, err := os.CreateTemp("", "git-lab-*.md")
	if err != nil {
		return "", "", fmt.Errorf("create description file: %w", err)
	}
	defer os.Remove(f.Name())

	_, err = fmt.Fprintf(f, template, title, description)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", "", fmt.Errorf("write description file: %w", err)
	}

	if err := t.edit(f.Name()); err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return "", "", fmt.Errorf("read description file: %w", err)
	}
	title, description = ParseDescription(string(data))
	return title, description, nil
}

func (t *Terminal) edit(path string) error {
	args, err := shlex.Split(t.Editor)
	if err != nil {
		return fmt.Errorf("editor command %q must be valid: %w", t.Editor, err)
	}
	if len(args) == 0 {
		return fmt.Errorf("no editor configured")
	}
	args = append(args, path)
	slog.Debug("editor", "args", args)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = t.Out
	cmd.Stderr = t.Err
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s failed: %w", args[0], err)
	}
	return nil
}

// ParseDescription splits edited text into a title, its first line, and a
// description, the remaining lines. Lines starting with '#' are dropped.
func ParseDescription(text string) (title, description string) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	if len(lines) == 0 {
		return "", ""
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(strings.Join(lines[1:], "\n"))
}

// ResolveEditor picks the editor the way git does: GIT_EDITOR, core.editor,
// VISUAL, EDITOR, then a system default.
func ResolveEditor(ctx context.Context, cfg ConfigSource) string {
	if e := os.Getenv("GIT_EDITOR"); e != "" {
		return e
	}
	if cfg != nil {
		if e, err := cfg.ConfigValue(ctx, "core.editor"); err == nil && e != "" {
			return e
		}
	}
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if e := os.Getenv(env); e != "" {
			return e
		}
	}
	if _, err := exec.LookPath("editor"); err == nil {
		return "editor"
	}
	return "vi"
}
