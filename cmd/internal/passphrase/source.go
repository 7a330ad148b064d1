// Package passphrase resolves keystore passphrases for the command line tools.
package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrEmpty = errors.New("passphrase: empty passphrase")

// Source yields a passphrase from an environment variable or, failing that,
// an interactive terminal prompt. The first result is cached.
type Source struct {
	envVar string
	label  string
	prompt io.Writer
	stdin  int
	lookup func(string) (string, bool)

	once  sync.Once
	value string
	err   error
}

// NewSource reads envVar first and prompts for label otherwise.
func NewSource(envVar, label string) *Source {
	if strings.TrimSpace(label) == "" {
		label = "keystore"
	}
	return &Source{
		envVar: strings.TrimSpace(envVar),
		label:  label,
		prompt: os.Stderr,
		stdin:  int(os.Stdin.Fd()),
		lookup: os.LookupEnv,
	}
}

func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := s.lookup(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%w: %s is set but blank", ErrEmpty, s.envVar)
			}
			return value, nil
		}
	}
	if !term.IsTerminal(s.stdin) {
		if s.envVar != "" {
			return "", fmt.Errorf("%s passphrase required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s passphrase required and no terminal available", s.label)
	}
	fmt.Fprintf(s.prompt, "Enter %s passphrase: ", s.label)
	raw, err := term.ReadPassword(s.stdin)
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", ErrEmpty
	}
	return string(raw), nil
}
