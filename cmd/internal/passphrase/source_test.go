package passphrase

import (
	"errors"
	"strings"
	"testing"
)

func TestSourceUsesEnvironment(t *testing.T) {
	t.Setenv("TEST_SETTLE_PASSPHRASE", "correct horse")
	src := NewSource("TEST_SETTLE_PASSPHRASE", "operator keystore")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "correct horse" {
		t.Fatalf("unexpected passphrase %q", got)
	}
	// Cached after the first call.
	t.Setenv("TEST_SETTLE_PASSPHRASE", "changed")
	if again, _ := src.Get(); again != "correct horse" {
		t.Fatalf("expected cached passphrase, got %q", again)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("TEST_SETTLE_PASSPHRASE", "   ")
	_, err := NewSource("TEST_SETTLE_PASSPHRASE", "").Get()
	if err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected blank passphrase to be rejected, got %v", err)
	}
}

type scriptedPrompt struct {
	available bool
	answer    string
	asked     []string
}

func (p *scriptedPrompt) Available() bool { return p.available }

func (p *scriptedPrompt) ReadSecret(prompt string) ([]byte, error) {
	p.asked = append(p.asked, prompt)
	return []byte(p.answer), nil
}

func TestSourcePromptsWithLabel(t *testing.T) {
	prompt := &scriptedPrompt{available: true, answer: "s3cret"}
	src := NewSource("", "operator keystore").WithPrompter(prompt)
	got, err := src.Get()
	if err != nil || got != "s3cret" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	if _, err := src.Get(); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if len(prompt.asked) != 1 || prompt.asked[0] != "Enter operator keystore passphrase: " {
		t.Fatalf("unexpected prompts %v", prompt.asked)
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	_, err := NewSource("", "").WithPrompter(&scriptedPrompt{}).Get()
	if !errors.Is(err, ErrNoTerminal) {
		t.Fatalf("expected ErrNoTerminal, got %v", err)
	}
	_, err = NewSource("", "").WithPrompter(&scriptedPrompt{available: true, answer: "  "}).Get()
	if err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Fatalf("expected blank prompt answer to be rejected, got %v", err)
	}
}
