package procfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	. "github.com/pattyshack/gmi/common"
)

type ProcessState string

const (
	Running        = ProcessState("running")
	Sleeping       = ProcessState("sleeping")
	WaitingForDisk = ProcessState("waiting for disk")
	Zombie         = ProcessState("zombie")
	Stopped        = ProcessState("stopped")
	TracingStop    = ProcessState("tracing stop")
	Dead           = ProcessState("dead")
	Idle           = ProcessState("idle")
	UnknownState   = ProcessState("unknown")
)

type ProcessStatus struct {
	Pid   int
	Comm  string
	State ProcessState
	Ppid  int
	Pgrp  int

	// NOTE: See man page for the full list of (52) fields.
}

// Alive reports whether the process can still receive signals in a
// meaningful way.
func (status ProcessStatus) Alive() bool {
	return status.State != Zombie && status.State != Dead
}

func GetProcessStatus(pid int) (ProcessStatus, error) {
	content, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return ProcessStatus{}, fmt.Errorf(
			"failed to read process %d status: %w",
			pid,
			err)
	}

	return ParseProcessStatus(string(content))
}

// ParseProcessStatus parses the content of /proc/<pid>/stat.  comm may
// contain spaces and parentheses, so it is delimited by the first '(' and
// the last ')'.
func ParseProcessStatus(content string) (ProcessStatus, error) {
	commStart := strings.Index(content, "(")
	commEnd := strings.LastIndex(content, ")")
	if commStart < 0 || commEnd < commStart || commEnd+2 > len(content) {
		return ProcessStatus{}, fmt.Errorf(
			"%w. malformed process status (%s)",
			ErrInvalidInput,
			content)
	}

	chunks := strings.Fields(content[commEnd+1:])
	if len(chunks) < 3 {
		return ProcessStatus{}, fmt.Errorf(
			"%w. truncated process status (%s)",
			ErrInvalidInput,
			content)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(content[:commStart]))
	if err != nil {
		return ProcessStatus{}, fmt.Errorf(
			"%w. invalid process status pid: %w",
			ErrInvalidInput,
			err)
	}

	state := UnknownState
	switch chunks[0] {
	case "R":
		state = Running
	case "S":
		state = Sleeping
	case "D":
		state = WaitingForDisk
	case "Z":
		state = Zombie
	case "T":
		state = Stopped
	case "t":
		state = TracingStop
	case "X", "x":
		state = Dead
	case "I":
		state = Idle
	}

	ppid, err := strconv.Atoi(chunks[1])
	if err != nil {
		return ProcessStatus{}, fmt.Errorf(
			"%w. invalid process status ppid: %w",
			ErrInvalidInput,
			err)
	}

	pgrp, err := strconv.Atoi(chunks[2])
	if err != nil {
		return ProcessStatus{}, fmt.Errorf(
			"%w. invalid process status pgrp: %w",
			ErrInvalidInput,
			err)
	}

	return ProcessStatus{
		Pid:   pid,
		Comm:  content[commStart+1 : commEnd],
		State: state,
		Ppid:  ppid,
		Pgrp:  pgrp,
	}, nil
}
