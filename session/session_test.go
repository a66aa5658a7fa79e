package session

import (
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"

	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/tree"
)

const (
	breakpointHitLine = `*stopped,reason="breakpoint-hit",disp="keep",` +
		`bkptno="1",frame={addr="0x0000555555555131",func="main",` +
		`args=[{name="argc",value="1"},{name="argv",value="0x7fffffffe0c8"}],` +
		`file="main.c",fullname="/tmp/main.c",line="5",arch="i386:x86-64"},` +
		`thread-id="1",stopped-threads="all",core="3"`

	threadGroupsResult = `^done,groups=[{id="i1",type="process",` +
		`pid="4242",executable="/tmp/main",cores=["3"]}]`

	threadInfoResult = `^done,threads=[{id="1",target-id="process 4242",` +
		`name="main",frame={level="0",addr="0x0000555555555131",func="main",` +
		`args=[],file="main.c",fullname="/tmp/main.c",line="5"},` +
		`state="stopped",core="3"}],current-thread-id="1"`

	localsResult = `^done,locals=[{name="x",value="42"},` +
		`{name="p",value="{a = 1, b = 2}"}]`
)

type SessionSuite struct{}

func TestSession(t *testing.T) {
	suite.RunTests(t, &SessionSuite{})
}

func (SessionSuite) TestInitialState(t *testing.T) {
	session, _, sub := newTestSession()

	expect.Equal(t, Stopped, session.State())
	expect.Equal(t, 0, session.Pid())
	expect.Equal(t, -1, session.CurrentFrameIndex())
	expectDrained(t, sub)
}

func (SessionSuite) TestRunningNotifiedOnce(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(`*running,thread-id="all"`)
	channel.dispatch(`*running,thread-id="all"`)

	expect.Equal(t, Running, session.State())

	events := sub.Drain()
	expect.Equal(t, []EventKind{StateChangedKind}, eventKinds(events))
	expect.Equal(t, Event(StateChangedEvent{State: Running}), events[0])
}

func (SessionSuite) TestBreakpointHit(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-list-thread-groups"] = []string{threadGroupsResult}
	channel.responses["-thread-info"] = []string{threadInfoResult}
	channel.responses["-stack-list-locals 1"] = []string{localsResult}

	channel.dispatch(`*running,thread-id="all"`)
	sub.Drain()

	channel.dispatch(breakpointHitLine)

	expect.Equal(
		t,
		[]string{
			"-list-thread-groups",
			"-thread-info",
			"-var-update --all-values *",
			"-stack-list-locals 1",
		},
		channel.sent)

	expect.Equal(t, Stopped, session.State())
	expect.Equal(t, 4242, session.Pid())
	expect.Equal(t, 0, session.CurrentFrameIndex())

	threads := session.Threads()
	expect.Equal(t, 1, len(threads))
	expect.Equal(t, ThreadInfo{ID: 1, Name: "process 4242", Function: "main"}, threads[0])

	events := sub.Drain()
	expect.Equal(
		t,
		[]EventKind{
			ThreadListChangedKind,
			CurrentThreadChangedKind,
			LocalVarsResetKind,
			LocalVarChangedKind,
			LocalVarChangedKind,
			StoppedKind,
			FrameVarsResetKind,
			FrameVarChangedKind,
			FrameVarChangedKind,
			CurrentFrameChangedKind,
			CurrentThreadChangedKind,
			StateChangedKind,
		},
		eventKinds(events))

	stopped := eventsOf[StoppedEvent](events)
	expect.Equal(
		t,
		StoppedEvent{
			Reason:     BreakpointHit,
			SourcePath: "/tmp/main.c",
			Line:       5,
		},
		stopped[0])

	locals := eventsOf[LocalVarChangedEvent](events)
	expect.Equal(t, "x", locals[0].Name)
	expect.Equal(t, "42", locals[0].Value.String())
	expect.Equal(t, "p", locals[1].Name)
	expect.Equal(t, "2", locals[1].Value.Tree().GetString("b"))

	args := eventsOf[FrameVarChangedEvent](events)
	expect.Equal(t, "argc", args[0].Name)
	expect.Equal(t, "1", args[0].Value.Raw)
	expect.Equal(t, "argv", args[1].Name)

	expect.Equal(t, Event(StateChangedEvent{State: Stopped}), events[len(events)-1])

	// The pid is already known.
	channel.reset()
	channel.dispatch(breakpointHitLine)
	expect.Equal(t, "-thread-info", channel.sent[0])

	// Still stopped.
	kinds := eventKinds(sub.Drain())
	expect.NotEqual(t, StateChangedKind, kinds[len(kinds)-1])
}

func (SessionSuite) TestExitedNormally(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(`*running,thread-id="all"`)
	channel.dispatch(`*stopped,reason="exited-normally"`)
	channel.dispatch(`*stopped,reason="exited-normally"`)

	expect.Equal(t, Finished, session.State())

	states := eventsOf[StateChangedEvent](sub.Drain())
	expect.Equal(
		t,
		[]StateChangedEvent{
			{State: Running},
			{State: Finished},
		},
		states)
}

func (SessionSuite) TestSegmentationFault(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(
		`*stopped,reason="signal-received",signal-name="SIGSEGV",` +
			`signal-meaning="Segmentation fault",frame={level="0",` +
			`func="crash",file="main.c",fullname="/tmp/main.c",line="9"},` +
			`thread-id="1"`)

	expect.Equal(t, Finished, session.State())

	events := sub.Drain()
	expect.Equal(
		t,
		[]SignalReceivedEvent{{SignalName: "SIGSEGV"}},
		eventsOf[SignalReceivedEvent](events))
	expect.Equal(t, 0, len(eventsOf[StoppedEvent](events)))
}

func (SessionSuite) TestInterruptSignal(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(`*running,thread-id="all"`)
	channel.dispatch(
		`*stopped,reason="signal-received",signal-name="SIGINT",` +
			`frame={level="2",func="loop",fullname="/tmp/main.c",line="12"}`)

	expect.Equal(t, Stopped, session.State())
	expect.Equal(t, 2, session.CurrentFrameIndex())

	events := sub.Drain()
	expect.Equal(
		t,
		[]SignalReceivedEvent{{SignalName: "SIGINT"}},
		eventsOf[SignalReceivedEvent](events))
	expect.Equal(
		t,
		[]CurrentFrameChangedEvent{{FrameIndex: 2}},
		eventsOf[CurrentFrameChangedEvent](events))
}

func (SessionSuite) TestUnknownStopReason(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(`*stopped,reason="solar-flare"`)

	expect.Equal(t, Stopped, session.State())
	expect.Equal(
		t,
		[]StoppedEvent{{Reason: UnknownReason}},
		eventsOf[StoppedEvent](sub.Drain()))
}

func (SessionSuite) TestNonNumericThreadID(t *testing.T) {
	_, channel, sub := newTestSession()

	channel.dispatch(`*running,thread-id="all"`)
	channel.dispatch(`*running,thread-id="7"`)

	expect.Equal(
		t,
		[]CurrentThreadChangedEvent{{ThreadID: 7}},
		eventsOf[CurrentThreadChangedEvent](sub.Drain()))
}

func (SessionSuite) TestLibraryLoadedRescansSources(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-file-list-exec-source-files"] = []string{
		`^done,files=[{file="main.c",fullname="/tmp/main.c"}]`,
	}

	channel.dispatch(`=library-loaded,id="/lib/libc.so.6",target-name="/lib/libc.so.6"`)
	channel.dispatch(`*stopped,reason="end-stepping-range"`)

	expect.Equal(t, "-file-list-exec-source-files", channel.sent[4])
	expect.Equal(t, 1, len(session.SourceFiles()))

	events := sub.Drain()
	expect.Equal(t, 1, len(eventsOf[SourceFileListChangedEvent](events)))

	// The flag is cleared once scanned.
	channel.reset()
	channel.dispatch(`*stopped,reason="end-stepping-range"`)
	for _, cmd := range channel.sent {
		expect.NotEqual(t, "-file-list-exec-source-files", cmd)
	}
}

func (SessionSuite) TestThreadCreated(t *testing.T) {
	_, channel, _ := newTestSession()

	channel.dispatch(`=thread-created,id="2",group-id="i1"`)
	expect.Equal(t, []string{"-thread-info"}, channel.sent)

	channel.dispatch(`*running,thread-id="all"`)
	channel.reset()

	channel.dispatch(`=thread-created,id="3",group-id="i1"`)
	expect.Equal(t, 0, len(channel.sent))
}

func (SessionSuite) TestThreadsReplaced(t *testing.T) {
	session, channel, _ := newTestSession()

	channel.dispatch(
		`^done,threads=[{id="1",target-id="LWP 1"},{id="2",target-id="LWP 2"}]`)
	expect.Equal(t, 2, len(session.Threads()))

	channel.dispatch(`^done,threads=[{id="3",target-id="LWP 3"}]`)

	threads := session.Threads()
	expect.Equal(t, 1, len(threads))
	expect.Equal(t, 3, threads[0].ID)
	expect.Equal(t, "LWP 3", threads[0].Name)
}

func (SessionSuite) TestBreakpointNotifications(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(
		`=breakpoint-created,bkpt={number="2",type="breakpoint",` +
			`addr="0x0000000000001149",func="helper",fullname="/tmp/main.c",` +
			`line="3"}`)

	bp, ok := session.FindBreakPointByNumber(2)
	expect.True(t, ok)
	expect.Equal(t, 3, bp.Line)
	expect.Equal(t, "helper", bp.Function)

	channel.dispatch(
		`=breakpoint-modified,bkpt={number="2",type="breakpoint",` +
			`addr="0x0000000000001151",func="helper",fullname="/tmp/main.c",` +
			`line="4"}`)

	bp, ok = session.FindBreakPointByNumber(2)
	expect.True(t, ok)
	expect.Equal(t, 4, bp.Line)
	expect.Equal(t, 1, len(session.BreakPoints()))

	channel.dispatch(`=breakpoint-deleted,id="2"`)
	expect.Equal(t, 0, len(session.BreakPoints()))

	// Unknown numbers are ignored.
	channel.dispatch(`=breakpoint-deleted,id="9"`)

	expect.Equal(
		t,
		3,
		len(eventsOf[BreakpointsChangedEvent](sub.Drain())))
}

func (SessionSuite) TestChangeList(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-var-create w10 @ point"] = []string{
		`^done,name="w10",numchild="2",value="{...}",type="struct point"`,
	}

	_, err := session.AddVarWatch("point")
	expect.Nil(t, err)

	channel.dispatch(
		`^done,changelist=[{name="w10",value="{...}",in_scope="true"},` +
			`{name="w10.x",value="3",in_scope="true"}]`)

	changes := eventsOf[WatchVarChangedEvent](sub.Drain())
	expect.Equal(
		t,
		[]WatchVarChangedEvent{
			{
				WatchID:     "w10",
				Name:        "point",
				Value:       VarValue{Raw: "{...}"},
				HasChildren: true,
			},
			{
				WatchID: "w10.x",
				Name:    "x",
				Value:   VarValue{Raw: "3"},
			},
		},
		changes)
}

func (SessionSuite) TestStackReversed(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.dispatch(`*stopped,reason="end-stepping-range",frame={level="1"}`)
	sub.Drain()

	channel.dispatch(
		`^done,stack=[` +
			`frame={level="0",addr="0x1149",func="inner",fullname="/tmp/a.c",line="3"},` +
			`frame={level="1",addr="0x1160",func="middle",fullname="/tmp/a.c",line="8"},` +
			`frame={level="2",addr="0x1180",func="main",fullname="/tmp/a.c",line="13"}]`)

	stack := session.Stack()
	expect.Equal(t, 3, len(stack))
	expect.Equal(t, "main", stack[0].Function)
	expect.Equal(t, "middle", stack[1].Function)
	expect.Equal(t, "inner", stack[2].Function)
	expect.Equal(t, 0, stack[2].Level)
	expect.Equal(t, 0x1149, int(stack[2].Address))

	events := sub.Drain()
	expect.Equal(
		t,
		[]EventKind{StackFrameChangedKind, CurrentFrameChangedKind},
		eventKinds(events))
	expect.Equal(t, Event(CurrentFrameChangedEvent{FrameIndex: 1}), events[1])
}

func (SessionSuite) TestFrameResult(t *testing.T) {
	session, channel, sub := newTestSession()

	channel.dispatch(
		`^done,frame={level="1",addr="0x1160",func="middle",` +
			`args=[{name="n",value="5"}],fullname="/tmp/a.c",line="8"}`)

	expect.Equal(t, 1, session.CurrentFrameIndex())

	events := sub.Drain()
	expect.Equal(
		t,
		[]EventKind{StoppedKind, FrameVarsResetKind, FrameVarChangedKind},
		eventKinds(events))
	expect.Equal(
		t,
		Event(StoppedEvent{Reason: UnknownReason, SourcePath: "/tmp/a.c", Line: 8}),
		events[0])
}

func (SessionSuite) TestMessageResult(t *testing.T) {
	_, channel, sub := newTestSession()

	channel.dispatch(`^error,msg="No symbol table is loaded."`)

	expect.Equal(
		t,
		[]Event{MessageEvent{Text: "No symbol table is loaded."}},
		sub.Drain())
}

func (SessionSuite) TestConsoleStream(t *testing.T) {
	_, channel, sub := newTestSession()

	channel.dispatch(`~"Breakpoint 1 at 0x1131\nfile main.c\n"`)

	expect.Equal(
		t,
		[]Event{
			ConsoleStreamEvent{Text: "Breakpoint 1 at 0x1131"},
			ConsoleStreamEvent{Text: "file main.c"},
		},
		sub.Drain())
}

func (SessionSuite) TestTargetOutput(t *testing.T) {
	session, _, sub := newTestSession()

	session.HandleTargetOutput([]byte("hello\n"))

	expect.Equal(t, []Event{TargetOutputEvent{Text: "hello\n"}}, sub.Drain())
}

func (SessionSuite) TestSubscriptionFanOut(t *testing.T) {
	session, _, first := newTestSession()
	second := session.Subscribe()

	session.message("one")

	<-first.Ready()
	<-second.Ready()
	expect.Equal(t, []Event{MessageEvent{Text: "one"}}, first.Drain())
	expect.Equal(t, []Event{MessageEvent{Text: "one"}}, second.Drain())

	session.Unsubscribe(second)
	session.message("two")

	expect.Equal(t, []Event{MessageEvent{Text: "two"}}, first.Drain())
	expect.Equal(t, 0, len(second.Drain()))
}

func (SessionSuite) TestClose(t *testing.T) {
	session, channel, sub := newTestSession()

	session.Close()
	channel.dispatch(`*running,thread-id="all"`)

	expect.Equal(t, Stopped, session.State())
	expectDrained(t, sub)
}

func (SessionSuite) TestNilResults(t *testing.T) {
	session, _, sub := newTestSession()

	session.OnResult(&mi.Record{Kind: mi.ResultRecord})
	session.OnStatusAsync(mi.DownloadAsync, tree.New())

	expect.Equal(t, 0, len(sub.Drain()))
}
