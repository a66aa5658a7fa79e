package session

import (
	"fmt"
)

type EventKind int

const (
	StoppedKind = EventKind(iota)
	StateChangedKind
	SignalReceivedKind
	LocalVarsResetKind
	LocalVarChangedKind
	FrameVarsResetKind
	FrameVarChangedKind
	WatchVarChangedKind
	WatchVarChildAddedKind
	ConsoleStreamKind
	BreakpointsChangedKind
	ThreadListChangedKind
	CurrentThreadChangedKind
	StackFrameChangedKind
	CurrentFrameChangedKind
	SourceFileListChangedKind
	TargetOutputKind
	MessageKind
)

var eventKindNames = []string{
	StoppedKind:               "stopped",
	StateChangedKind:          "state-changed",
	SignalReceivedKind:        "signal-received",
	LocalVarsResetKind:        "local-vars-reset",
	LocalVarChangedKind:       "local-var-changed",
	FrameVarsResetKind:        "frame-vars-reset",
	FrameVarChangedKind:       "frame-var-changed",
	WatchVarChangedKind:       "watch-var-changed",
	WatchVarChildAddedKind:    "watch-var-child-added",
	ConsoleStreamKind:         "console-stream",
	BreakpointsChangedKind:    "breakpoints-changed",
	ThreadListChangedKind:     "thread-list-changed",
	CurrentThreadChangedKind:  "current-thread-changed",
	StackFrameChangedKind:     "stack-frame-changed",
	CurrentFrameChangedKind:   "current-frame-changed",
	SourceFileListChangedKind: "source-file-list-changed",
	TargetOutputKind:          "target-output",
	MessageKind:               "message",
}

func (kind EventKind) String() string {
	if kind < 0 || int(kind) >= len(eventKindNames) {
		return fmt.Sprintf("EventKind(%d)", int(kind))
	}
	return eventKindNames[kind]
}

type Event interface {
	Kind() EventKind
}

type StoppedEvent struct {
	Reason     StopReason
	SourcePath string
	Line       int
}

func (StoppedEvent) Kind() EventKind { return StoppedKind }

type StateChangedEvent struct {
	State TargetState
}

func (StateChangedEvent) Kind() EventKind { return StateChangedKind }

type SignalReceivedEvent struct {
	SignalName string
}

func (SignalReceivedEvent) Kind() EventKind { return SignalReceivedKind }

type LocalVarsResetEvent struct{}

func (LocalVarsResetEvent) Kind() EventKind { return LocalVarsResetKind }

type LocalVarChangedEvent struct {
	Name  string
	Value VarValue
}

func (LocalVarChangedEvent) Kind() EventKind { return LocalVarChangedKind }

type FrameVarsResetEvent struct{}

func (FrameVarsResetEvent) Kind() EventKind { return FrameVarsResetKind }

type FrameVarChangedEvent struct {
	Name  string
	Value VarValue
}

func (FrameVarChangedEvent) Kind() EventKind { return FrameVarChangedKind }

type WatchVarChangedEvent struct {
	WatchID     string
	Name        string
	Value       VarValue
	HasChildren bool
}

func (WatchVarChangedEvent) Kind() EventKind { return WatchVarChangedKind }

type WatchVarChildAddedEvent struct {
	// gdb's variable object name for the child, e.g. w10.x
	Name        string
	Expression  string
	Value       VarValue
	Type        string
	HasChildren bool
}

func (WatchVarChildAddedEvent) Kind() EventKind { return WatchVarChildAddedKind }

type ConsoleStreamEvent struct {
	Text string
}

func (ConsoleStreamEvent) Kind() EventKind { return ConsoleStreamKind }

type BreakpointsChangedEvent struct{}

func (BreakpointsChangedEvent) Kind() EventKind { return BreakpointsChangedKind }

type ThreadListChangedEvent struct{}

func (ThreadListChangedEvent) Kind() EventKind { return ThreadListChangedKind }

type CurrentThreadChangedEvent struct {
	ThreadID int
}

func (CurrentThreadChangedEvent) Kind() EventKind { return CurrentThreadChangedKind }

type StackFrameChangedEvent struct {
	// Oldest frame first.
	Frames []StackFrame
}

func (StackFrameChangedEvent) Kind() EventKind { return StackFrameChangedKind }

type CurrentFrameChangedEvent struct {
	FrameIndex int
}

func (CurrentFrameChangedEvent) Kind() EventKind { return CurrentFrameChangedKind }

type SourceFileListChangedEvent struct{}

func (SourceFileListChangedEvent) Kind() EventKind {
	return SourceFileListChangedKind
}

type TargetOutputEvent struct {
	Text string
}

func (TargetOutputEvent) Kind() EventKind { return TargetOutputKind }

type MessageEvent struct {
	Text string
}

func (MessageEvent) Kind() EventKind { return MessageKind }
