package dispatch

import (
	"fmt"
	"os/exec"
)

// Runner executes a shell command without waiting for it to finish. The
// daemon only cares whether the spawn itself succeeded.
type Runner interface {
	Run(command string) error
}

// Synthesizer injects a synthesized key sequence. The sequence is a
// +-joined canonical token string as produced by combo.Translate.
type Synthesizer interface {
	Press(sequence string) error
}

type shellRunner struct{}

// NewShellRunner returns the default Runner: a detached /bin/sh -c spawn.
func NewShellRunner() Runner {
	return shellRunner{}
}

func (shellRunner) Run(command string) error {
	cmd := exec.Command("/bin/sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command %q: %w", command, err)
	}
	go cmd.Wait() // reap; output is not captured
	return nil
}

type xdotoolSynthesizer struct{}

// NewXdotoolSynthesizer returns the default Synthesizer, backed by
// `xdotool key`.
func NewXdotoolSynthesizer() Synthesizer {
	return xdotoolSynthesizer{}
}

func (xdotoolSynthesizer) Press(sequence string) error {
	cmd := exec.Command("xdotool", "key", sequence)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xdotool key %q: %w", sequence, err)
	}
	go cmd.Wait()
	return nil
}
