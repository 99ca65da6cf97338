package gtts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/example/go-tts-form/internal/text"
	"github.com/example/go-tts-form/internal/tts"
)

const DefaultCommand = "gtts-cli"

// CLI synthesizes by running gtts-cli with the text on stdin and reading
// MP3 from stdout.
type CLI struct {
	cmd    []string
	tld    string
	lang   string
	slow   bool
	logger *slog.Logger
}

type CLIOption func(*CLI)

func WithCLITLD(tld string) CLIOption {
	return func(c *CLI) {
		c.tld = strings.TrimSpace(tld)
	}
}

func WithCLIDefaultLanguage(lang string) CLIOption {
	return func(c *CLI) {
		if lang = strings.TrimSpace(lang); lang != "" {
			c.lang = lang
		}
	}
}

func WithCLISlow(slow bool) CLIOption {
	return func(c *CLI) {
		c.slow = slow
	}
}

func WithCLILogger(logger *slog.Logger) CLIOption {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCLI parses command as a shell command line, e.g.
// "python -m gtts.cli" or "/opt/venv/bin/gtts-cli".
func NewCLI(command string, opts ...CLIOption) (*CLI, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}

	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse gtts command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("gtts command empty")
	}

	c := &CLI{
		cmd:    args,
		lang:   DefaultLanguage,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CLI) Format() tts.Format { return tts.FormatMP3 }

// Args returns the full argument vector for one call, without the text.
func (c *CLI) Args(lang string) []string {
	if lang == "" {
		lang = c.lang
	}

	args := append([]string{}, c.cmd...)
	args = append(args, "--lang", lang)
	if c.slow {
		args = append(args, "--slow")
	}
	if c.tld != "" {
		args = append(args, "--tld", c.tld)
	}
	return append(args, "--output", "-", "-")
}

func (c *CLI) Synthesize(ctx context.Context, input, lang string) (tts.Audio, error) {
	cleaned, err := text.Normalize(input)
	if err != nil {
		return nil, ErrNoText
	}

	args := c.Args(lang)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(cleaned)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", args[0], err, lastLine(msg))
		}
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no audio", args[0])
	}

	c.logger.Debug("gtts-cli synthesized",
		slog.String("command", args[0]),
		slog.Int("bytes", stdout.Len()),
	)

	return tts.EncodedAudio(stdout.Bytes()), nil
}

// Version runs "<command> --version" and returns its first output line.
func (c *CLI) Version(ctx context.Context) (string, error) {
	args := append(append([]string{}, c.cmd...), "--version")

	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", args[0], err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// Command returns the executable name.
func (c *CLI) Command() string {
	return c.cmd[0]
}

// gtts-cli prints a Python traceback; the last line carries the message.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
