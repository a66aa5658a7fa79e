// Package session drives a gdb/mi debug session: it tracks the target's run
// state, mirrors gdb's breakpoint / thread / stack / watch tables and
// publishes typed events to subscribers.
//
// A Session is not safe for concurrent use.  Its owner calls every method,
// and feeds the channel's unsolicited output back through the channel's
// Dispatch, from a single goroutine.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pattyshack/gmi/com"
	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/tree"
)

const (
	firstWatchID = 10

	allValuesUpdate = "-var-update --all-values *"
	listLocals      = "-stack-list-locals 1"
)

// Channel is the subset of com.Channel the session needs.
type Channel interface {
	Command(ctx context.Context, cmd string) (*tree.Tree, error)
	SetHandler(handler com.Handler)

	// The debuggee terminal's slave path, or "" if there is none.
	PtyPath() string
}

type Options struct {
	// Defaults to logrus' standard logger.
	Logger *logrus.Logger

	// Upper bound for a single mi command.  Zero waits forever.
	CommandTimeout time.Duration
}

type Session struct {
	log *logrus.Entry

	channel        Channel
	commandTimeout time.Duration

	ctx    context.Context
	cancel func()

	subscribers []*Subscription

	state             TargetState
	lastNotifiedState TargetState

	// 0 until learnt from -list-thread-groups
	pid int

	isRemote bool

	// Set by library-loaded notifications, cleared on the next stop.
	scanSources bool

	breakPoints *BreakPointSet

	nextWatchID int
	watches     map[string]string // watch id -> expression

	threads          map[int]ThreadInfo
	selectedThreadID int

	stack             []StackFrame
	currentFrameIndex int

	sourceFiles []SourceFile
	sources     *sourceCache

	interrupt func(pid int) error
}

var _ com.Handler = &Session{}

func New(channel Channel, options Options) *Session {
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	session := &Session{
		log:               logger.WithField("layer", "session"),
		channel:           channel,
		commandTimeout:    options.CommandTimeout,
		ctx:               ctx,
		cancel:            cancel,
		state:             Stopped,
		lastNotifiedState: Finished,
		breakPoints:       NewBreakPointSet(),
		nextWatchID:       firstWatchID,
		watches:           map[string]string{},
		threads:           map[int]ThreadInfo{},
		currentFrameIndex: -1,
		sources:           newSourceCache(),
		interrupt:         interruptProcess,
	}

	channel.SetHandler(session)
	return session
}

// Close aborts in-flight commands and detaches from the channel.  The
// channel itself is owned (and closed) by the caller.
func (session *Session) Close() {
	session.cancel()
	session.channel.SetHandler(nil)
}

func (session *Session) command(ctx context.Context, cmd string) (*tree.Tree, error) {
	if session.commandTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, session.commandTimeout)
		defer cancel()
	}

	results, err := session.channel.Command(ctx, cmd)
	if results == nil {
		results = tree.New()
	}
	return results, err
}

func (session *Session) commandf(format string, args ...any) (*tree.Tree, error) {
	return session.command(session.ctx, fmt.Sprintf(format, args...))
}

// refresh issues a follow up command whose result is consumed through
// OnResult.  Failures are only logged.
func (session *Session) refresh(cmd string) {
	_, err := session.command(session.ctx, cmd)
	if err != nil {
		session.log.Warnf("%s failed: %s", cmd, err)
	}
}

func (session *Session) message(text string) {
	session.publish(MessageEvent{Text: text})
}

func (session *Session) State() TargetState {
	return session.state
}

func (session *Session) Pid() int {
	return session.pid
}

func (session *Session) IsRemote() bool {
	return session.isRemote
}

func (session *Session) BreakPoints() []BreakPoint {
	return session.breakPoints.List()
}

func (session *Session) FindBreakPoint(fullPath string, line int) (BreakPoint, bool) {
	return session.breakPoints.Find(fullPath, line)
}

func (session *Session) FindBreakPointByNumber(number int) (BreakPoint, bool) {
	return session.breakPoints.Get(number)
}

// Threads returns the last known thread list sorted by id.
func (session *Session) Threads() []ThreadInfo {
	result := make([]ThreadInfo, 0, len(session.threads))
	for _, thread := range session.threads {
		result = append(result, thread)
	}

	sort.Slice(
		result,
		func(i int, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Stack returns the last listed stack, oldest frame first.
func (session *Session) Stack() []StackFrame {
	return append([]StackFrame(nil), session.stack...)
}

func (session *Session) CurrentFrameIndex() int {
	return session.currentFrameIndex
}

func (session *Session) SourceFiles() []SourceFile {
	return append([]SourceFile(nil), session.sourceFiles...)
}

func (session *Session) SourceSnippet(
	fullPath string,
	line int,
	delta int,
) (
	Snippet,
	error,
) {
	return session.sources.snippet(fullPath, line, delta)
}

// HandleTargetOutput publishes raw output read from the debuggee's terminal.
func (session *Session) HandleTargetOutput(data []byte) {
	session.publish(TargetOutputEvent{Text: string(data)})
}

func (session *Session) notifyStateChange() {
	if session.lastNotifiedState == session.state {
		return
	}

	session.lastNotifiedState = session.state
	session.publish(StateChangedEvent{State: session.state})
}

func (session *Session) OnResult(record *mi.Record) {
	for _, payload := range decodeResults(record.Results) {
		session.applyResult(payload)
	}
}

func (session *Session) applyResult(payload resultPayload) {
	switch payload := payload.(type) {
	case changeListPayload:
		for _, change := range payload.changes {
			session.publish(
				WatchVarChangedEvent{
					WatchID:     change.WatchID,
					Name:        session.VarWatchName(change.WatchID),
					Value:       VarValue{Raw: change.Value},
					HasChildren: change.Value == "{...}",
				})
		}

	case breakPointPayload:
		session.breakPoints.Update(payload.BreakPoint)
		session.publish(BreakpointsChangedEvent{})

	case threadsPayload:
		session.threads = map[int]ThreadInfo{}
		for _, thread := range payload.threads {
			session.threads[thread.ID] = thread
		}
		session.publish(ThreadListChangedEvent{})

	case currentThreadPayload:
		session.publish(CurrentThreadChangedEvent{ThreadID: payload.id})

	case framePayload:
		session.currentFrameIndex = payload.frame.Level
		session.publish(
			StoppedEvent{
				Reason:     UnknownReason,
				SourcePath: payload.frame.SourcePath,
				Line:       payload.frame.Line,
			})
		session.publishFrameVars(payload.args)

	case stackPayload:
		session.stack = payload.frames
		session.publish(StackFrameChangedEvent{Frames: session.Stack()})
		session.publish(
			CurrentFrameChangedEvent{FrameIndex: session.currentFrameIndex})

	case localsPayload:
		session.publish(LocalVarsResetEvent{})
		for _, local := range payload.locals {
			session.publish(
				LocalVarChangedEvent{
					Name:  local.Name,
					Value: local.Value,
				})
		}

	case messagePayload:
		session.message(payload.text)

	case groupsPayload:
		if session.pid == 0 {
			session.pid = payload.pid
		}

	default:
		panic(fmt.Sprintf("should never happen: %T", payload))
	}
}

func (session *Session) publishFrameVars(args []Variable) {
	session.publish(FrameVarsResetEvent{})
	for _, arg := range args {
		session.publish(
			FrameVarChangedEvent{
				Name:  arg.Name,
				Value: arg.Value,
			})
	}
}

func (session *Session) OnExecAsync(class mi.AsyncClass, results *tree.Tree) {
	session.log.Debugf("exec async: %s", class)

	switch class {
	case mi.StoppedAsync:
		session.onStopped(results)
	case mi.RunningAsync:
		session.state = Running
	}

	threadID, ok := parseThreadID(results.GetString("thread-id"))
	if ok {
		session.publish(CurrentThreadChangedEvent{ThreadID: threadID})
	}

	session.notifyStateChange()
}

func (session *Session) onStopped(results *tree.Tree) {
	session.state = Stopped

	if session.pid == 0 {
		session.refresh("-list-thread-groups")
	}

	session.refresh("-thread-info")
	session.refresh(allValuesUpdate)
	session.refresh(listLocals)

	if session.scanSources {
		modified, err := session.RefreshSourceFiles()
		if err != nil {
			session.log.Warnf("failed to rescan source files: %s", err)
		} else if modified {
			session.publish(SourceFileListChangedEvent{})
		}
		session.scanSources = false
	}

	reasonString := results.GetString("reason")
	reason, ok := ParseStopReason(reasonString)
	if !ok {
		session.log.Errorf("received unknown stop reason (%s)", reasonString)
	}

	if reason == ExitedNormally {
		session.state = Finished
	}

	if reason == SignalReceived {
		signalName := results.GetString("signal-name")
		if signalName == "SIGSEGV" {
			session.state = Finished
		}
		session.publish(SignalReceivedEvent{SignalName: signalName})
	} else {
		session.publish(
			StoppedEvent{
				Reason:     reason,
				SourcePath: results.GetString("frame/fullname"),
				Line:       results.GetInt("frame/line", 0),
			})
	}

	session.publishFrameVars(decodeVariables(results, "frame/args"))

	session.currentFrameIndex = results.GetInt("frame/level", 0)
	session.publish(
		CurrentFrameChangedEvent{FrameIndex: session.currentFrameIndex})
}

func (session *Session) OnNotifyAsync(class mi.AsyncClass, results *tree.Tree) {
	session.log.Debugf("notify async: %s", class)

	switch class {
	case mi.BreakpointCreatedAsync, mi.BreakpointModifiedAsync:
		if results.Find("bkpt") != nil {
			session.applyResult(decodeBreakPoint(results, "bkpt"))
		}

	case mi.BreakpointDeletedAsync:
		number := results.GetInt("id", -1)
		err := session.breakPoints.Remove(number)
		if err == nil {
			session.publish(BreakpointsChangedEvent{})
		}

	case mi.ThreadCreatedAsync:
		if session.state == Running {
			// Refreshed on the next stop.
			return
		}
		session.refresh("-thread-info")

	case mi.LibraryLoadedAsync:
		session.scanSources = true
	}
}

func (session *Session) OnStatusAsync(class mi.AsyncClass, results *tree.Tree) {
	session.log.Infof("status async: %s", class)
	results.Dump(session.log)
}

func (session *Session) OnConsoleStream(text string) {
	lines := strings.Split(text, "\n")
	for idx, line := range lines {
		if line == "" && idx+1 == len(lines) {
			continue
		}
		session.publish(ConsoleStreamEvent{Text: line})
	}
}

func (session *Session) OnTargetStream(text string) {
	for _, line := range strings.Split(text, "\n") {
		session.log.Infof("target stream: %s", line)
	}
}

func (session *Session) OnLogStream(text string) {
	for _, line := range strings.Split(text, "\n") {
		session.log.Infof("log stream: %s", line)
	}
}
