// Package pty allocates the pseudo-terminal used as the debuggee's
// controlling terminal and forwards whatever the debuggee writes to it.
package pty

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	ptmxPath = "/dev/ptmx"

	// poll(2) timeout, in milliseconds.  Bounds how long ReadLoop takes to
	// notice cancellation.
	pollTimeout = 100

	readBufferSize = 4096
)

type Pty struct {
	master    int
	slavePath string

	// The slave end is kept open so that the master never reports hang up
	// while no debuggee is attached.
	slave *os.File
}

func Open() (*Pty, error) {
	master, err := unix.Open(ptmxPath, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", ptmxPath, err)
	}

	err = unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0)
	if err != nil {
		_ = unix.Close(master)
		return nil, fmt.Errorf("failed to unlock pty: %w", err)
	}

	num, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	if err != nil {
		_ = unix.Close(master)
		return nil, fmt.Errorf("failed to get pty number: %w", err)
	}

	slavePath := fmt.Sprintf("/dev/pts/%d", num)
	slave, err := os.OpenFile(slavePath, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		_ = unix.Close(master)
		return nil, fmt.Errorf("failed to open pty slave %s: %w", slavePath, err)
	}

	return &Pty{
		master:    master,
		slavePath: slavePath,
		slave:     slave,
	}, nil
}

func (pty *Pty) SlavePath() string {
	return pty.slavePath
}

// Write sends input to the debuggee.
func (pty *Pty) Write(data []byte) (int, error) {
	n, err := unix.Write(pty.master, data)
	if err != nil {
		return n, fmt.Errorf("failed to write to pty: %w", err)
	}
	return n, nil
}

// ReadLoop forwards raw debuggee output until ctx is cancelled.  Must be
// called at most once.
func (pty *Pty) ReadLoop(ctx context.Context, output chan<- []byte) error {
	buffer := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		fds := []unix.PollFd{
			{
				Fd:     int32(pty.master),
				Events: unix.POLLIN,
			},
		}

		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("failed to poll pty: %w", err)
		}

		if n == 0 {
			continue
		}

		if fds[0].Revents&unix.POLLIN == 0 {
			if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
				return nil
			}
			continue
		}

		count, err := unix.Read(pty.master, buffer)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			if errors.Is(err, unix.EIO) {
				return nil
			}
			return fmt.Errorf("failed to read pty: %w", err)
		}

		if count == 0 {
			continue
		}

		chunk := make([]byte, count)
		copy(chunk, buffer[:count])

		select {
		case output <- chunk:
		case <-ctx.Done():
			return nil
		}
	}
}

func (pty *Pty) Close() error {
	slaveErr := pty.slave.Close()

	err := unix.Close(pty.master)
	if err != nil {
		return fmt.Errorf("failed to close pty: %w", err)
	}

	if slaveErr != nil {
		return fmt.Errorf("failed to close pty slave: %w", slaveErr)
	}

	return nil
}
