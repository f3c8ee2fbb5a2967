package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when neither the environment nor a terminal can
// supply the passphrase.
var ErrNoTerminal = errors.New("passphrase: no terminal available")

// Prompter reads a secret interactively. The default reads stdin without
// echo via x/term.
type Prompter interface {
	Available() bool
	ReadSecret(prompt string) ([]byte, error)
}

type terminal struct{}

func (terminal) Available() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func (terminal) ReadSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return secret, err
}

// Source unlocks a keystore once per process: the environment variable wins,
// otherwise the operator is prompted. The answer, or the failure, is cached.
type Source struct {
	envVar string
	label  string
	prompt Prompter

	once  sync.Once
	value string
	err   error
}

// NewSource reads envVar or prompts on the terminal. Label names the
// keystore in prompts and errors.
func NewSource(envVar, label string) *Source {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "keystore"
	}
	return &Source{envVar: strings.TrimSpace(envVar), label: label, prompt: terminal{}}
}

// WithPrompter swaps the interactive reader.
func (s *Source) WithPrompter(p Prompter) *Source {
	if p != nil {
		s.prompt = p
	}
	return s
}

// Get returns the passphrase. Blank secrets are rejected from either path so
// no keystore is written unprotected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() { s.value, s.err = s.resolve() })
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	if !s.prompt.Available() {
		if s.envVar != "" {
			return "", fmt.Errorf("%w: %s passphrase required, set %s", ErrNoTerminal, s.label, s.envVar)
		}
		return "", fmt.Errorf("%w: %s passphrase required", ErrNoTerminal, s.label)
	}
	secret, err := s.prompt.ReadSecret(fmt.Sprintf("Enter %s passphrase: ", s.label))
	if err != nil {
		return "", fmt.Errorf("read %s passphrase: %w", s.label, err)
	}
	if strings.TrimSpace(string(secret)) == "" {
		return "", fmt.Errorf("%s passphrase cannot be empty", s.label)
	}
	return string(secret), nil
}
