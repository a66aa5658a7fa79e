package session

import (
	"fmt"
)

type TargetState int

const (
	Stopped = TargetState(iota)
	Running
	Finished
)

func (state TargetState) String() string {
	switch state {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("TargetState(%d)", int(state))
	}
}

type StopReason int

const (
	UnknownReason = StopReason(iota)
	EndSteppingRange
	BreakpointHit
	SignalReceived
	ExitedNormally
	FunctionFinished
	Exited
	WatchpointTrigger
	LocationReached
)

var stopReasonNames = []string{
	UnknownReason:     "unknown",
	EndSteppingRange:  "end-stepping-range",
	BreakpointHit:     "breakpoint-hit",
	SignalReceived:    "signal-received",
	ExitedNormally:    "exited-normally",
	FunctionFinished:  "function-finished",
	Exited:            "exited",
	WatchpointTrigger: "watchpoint-trigger",
	LocationReached:   "location-reached",
}

func (reason StopReason) String() string {
	if reason < 0 || int(reason) >= len(stopReasonNames) {
		return fmt.Sprintf("StopReason(%d)", int(reason))
	}
	return stopReasonNames[reason]
}

// ParseStopReason maps gdb's *stopped reason field.  ok is false for
// reasons gdb may emit which are not modelled; those map to UnknownReason.
func ParseStopReason(reason string) (StopReason, bool) {
	switch reason {
	case "":
		return UnknownReason, true
	case "exited-signalled":
		return SignalReceived, true
	}

	for idx, name := range stopReasonNames {
		if idx != int(UnknownReason) && name == reason {
			return StopReason(idx), true
		}
	}

	return UnknownReason, false
}
