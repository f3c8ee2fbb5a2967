package common

import "errors"

// ErrSystemPaused is returned by every gated entry point while the circuit
// breaker is engaged.
var ErrSystemPaused = errors.New("system paused")

// PauseView reports the global circuit-breaker flag.
type PauseView interface {
	IsPaused() (bool, error)
}

// Guard fails with ErrSystemPaused when p reports the system as paused. A nil
// view is treated as unpaused.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	paused, err := p.IsPaused()
	if err != nil {
		return err
	}
	if paused {
		return ErrSystemPaused
	}
	return nil
}
