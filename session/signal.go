package session

import (
	"fmt"

	"golang.org/x/sys/unix"

	. "github.com/pattyshack/gmi/common"
	"github.com/pattyshack/gmi/procfs"
)

// Signaler delivers signals to a locally running debuggee.
type Signaler struct {
	pid int
}

func NewSignaler(pid int) *Signaler {
	return &Signaler{
		pid: pid,
	}
}

func (signaler *Signaler) ToProcess(signal unix.Signal) error {
	status, err := procfs.GetProcessStatus(signaler.pid)
	if err != nil {
		return fmt.Errorf(
			"failed to signal to process %d (%v): %w",
			signaler.pid,
			signal,
			err)
	}

	if !status.Alive() {
		return fmt.Errorf(
			"%w. cannot signal to process %d (%s)",
			ErrNotRunning,
			signaler.pid,
			status.State)
	}

	err = unix.Kill(signaler.pid, signal)
	if err != nil {
		return fmt.Errorf(
			"failed to signal to process %d (%v): %w",
			signaler.pid,
			signal,
			err)
	}

	return nil
}

func (signaler *Signaler) Interrupt() error {
	return signaler.ToProcess(unix.SIGINT)
}

func interruptProcess(pid int) error {
	return NewSignaler(pid).Interrupt()
}
