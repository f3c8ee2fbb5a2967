package common

import (
	"errors"
	"testing"
)

type staticPause struct {
	paused bool
	err    error
}

func (s staticPause) IsPaused() (bool, error) { return s.paused, s.err }

func TestGuard(t *testing.T) {
	if err := Guard(nil); err != nil {
		t.Fatalf("nil view should pass: %v", err)
	}
	if err := Guard(staticPause{}); err != nil {
		t.Fatalf("unpaused view should pass: %v", err)
	}
	if err := Guard(staticPause{paused: true}); !errors.Is(err, ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}
	boom := errors.New("read failed")
	if err := Guard(staticPause{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
