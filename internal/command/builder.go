// Package command assembles the argument vector for a node test run.
package command

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Command is a finalized program invocation.
type Command struct {
	Program string
	Args    []string
	display []string
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Program)
	return append(argv, c.Args...)
}

// String renders the command for display, quoting values that were added
// as quoted. It is never parsed back into arguments.
func (c Command) String() string {
	if len(c.display) == 0 {
		return strings.Join(c.Argv(), " ")
	}
	return strings.Join(c.display, " ")
}

// Builder is an append-only sequence of argument tokens. Each token keeps
// its raw value for the process launcher and a display form for logs.
type Builder struct {
	args    []string
	display []string
}

// NewBuilder starts a command with the given program.
func NewBuilder(program string) *Builder {
	b := &Builder{}
	b.Arg(program)
	return b
}

// Arg appends plain tokens.
func (b *Builder) Arg(values ...string) *Builder {
	for _, v := range values {
		b.args = append(b.args, v)
		b.display = append(b.display, v)
	}
	return b
}

// Quoted appends a token shown in double quotes.
func (b *Builder) Quoted(value string) *Builder {
	b.args = append(b.args, value)
	b.display = append(b.display, quote(value))
	return b
}

// FlagQuoted appends flag=value with the value shown in double quotes.
func (b *Builder) FlagQuoted(flag, value string) *Builder {
	b.args = append(b.args, flag+"="+value)
	b.display = append(b.display, flag+"="+quote(value))
	return b
}

// Raw splits text with shell word rules and appends the resulting tokens.
// The display form keeps text exactly as given.
func (b *Builder) Raw(text string) error {
	words, err := shellwords.Parse(text)
	if err != nil {
		return fmt.Errorf("cannot split %q: %w", text, err)
	}
	if len(words) == 0 {
		return nil
	}
	b.args = append(b.args, words...)
	b.display = append(b.display, text)
	return nil
}

// Command finalizes the builder. The builder must not be used afterwards.
func (b *Builder) Command() Command {
	if len(b.args) == 0 {
		return Command{}
	}
	args := make([]string, len(b.args)-1)
	copy(args, b.args[1:])
	display := make([]string, len(b.display))
	copy(display, b.display)
	return Command{Program: b.args[0], Args: args, display: display}
}

// quote wraps s in double quotes, escaping characters a POSIX shell would
// still interpret inside them.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\', '$', '`':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}
