package session

import (
	"errors"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/pattyshack/gt/testing/suite"
	"golang.org/x/arch/x86/x86asm"

	"github.com/pattyshack/gmi/com"
	. "github.com/pattyshack/gmi/common"
)

type CommandsSuite struct{}

func TestCommands(t *testing.T) {
	suite.RunTests(t, &CommandsSuite{})
}

func (CommandsSuite) TestRunWhileRunning(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.dispatch(`*running,thread-id="all"`)
	sub.Drain()

	err := session.Run()
	expect.True(t, errors.Is(err, ErrAlreadyRunning))
	expect.Equal(t, 0, len(channel.sent))
	expect.Equal(
		t,
		[]Event{MessageEvent{Text: "Program is currently running"}},
		sub.Drain())
}

func (CommandsSuite) TestRunResetsPid(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-list-thread-groups"] = []string{threadGroupsResult}
	channel.dispatch(`*stopped,reason="end-stepping-range"`)
	expect.Equal(t, 4242, session.Pid())

	channel.reset()
	channel.responses["-exec-run"] = []string{
		`*running,thread-id="all"`,
		`^running`,
	}

	err := session.Run()
	expect.Nil(t, err)
	expect.Equal(t, []string{"-exec-run"}, channel.sent)
	expect.Equal(t, 0, session.Pid())
	expect.Equal(t, Running, session.State())
}

func (CommandsSuite) TestContinue(t *testing.T) {
	session, channel, _ := newTestSession()

	err := session.Continue()
	expect.Nil(t, err)
	expect.Equal(t, []string{"-exec-continue"}, channel.sent)
}

func (CommandsSuite) TestContinueWhileRunning(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.dispatch(`*running,thread-id="all"`)
	sub.Drain()

	err := session.Continue()
	expect.True(t, errors.Is(err, ErrAlreadyRunning))
	expect.Equal(t, 0, len(channel.sent))
	expect.Equal(
		t,
		[]Event{MessageEvent{Text: "Program is currently running"}},
		sub.Drain())
}

func (CommandsSuite) TestStepping(t *testing.T) {
	session, channel, _ := newTestSession()

	expect.Nil(t, session.Next())
	expect.Nil(t, session.StepIn())
	expect.Nil(t, session.StepOut())

	expect.Equal(
		t,
		[]string{
			"-exec-next",
			"-exec-step",
			"-var-update --all-values *",
			"-exec-finish",
			"-var-update --all-values *",
		},
		channel.sent)
}

func (CommandsSuite) TestSteppingRequiresStopped(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.dispatch(`*running,thread-id="all"`)
	sub.Drain()

	expect.True(t, errors.Is(session.Next(), ErrNotStopped))
	expect.True(t, errors.Is(session.StepIn(), ErrNotStopped))
	expect.True(t, errors.Is(session.StepOut(), ErrNotStopped))
	expect.Equal(t, 0, len(channel.sent))

	messages := eventsOf[MessageEvent](sub.Drain())
	expect.Equal(t, 3, len(messages))
	expect.Equal(t, "Program is not stopped", messages[0].Text)

	channel.dispatch(`*stopped,reason="exited-normally"`)
	expect.True(t, errors.Is(session.Next(), ErrNotStopped))
}

func (CommandsSuite) TestStopWhenNotRunning(t *testing.T) {
	session, _, sub := newTestSession()

	err := session.Stop()
	expect.True(t, errors.Is(err, ErrNotRunning))
	expect.Equal(
		t,
		[]Event{MessageEvent{Text: "Program is not running"}},
		sub.Drain())
}

func (CommandsSuite) TestStopLocal(t *testing.T) {
	session, channel, _ := newTestSession()

	interrupted := []int{}
	session.interrupt = func(pid int) error {
		interrupted = append(interrupted, pid)
		return nil
	}

	channel.dispatch(`*running,thread-id="all"`)

	err := session.Stop()
	expect.True(t, errors.Is(err, ErrProcessUnknown))
	expect.Equal(t, 0, len(interrupted))

	channel.dispatch(`^done,groups=[{id="i1",type="process",pid="77"}]`)

	err = session.Stop()
	expect.Nil(t, err)
	expect.Equal(t, []int{77}, interrupted)
	expect.Equal(t, 0, len(channel.sent))
}

func (CommandsSuite) TestStopRemote(t *testing.T) {
	session, channel, _ := newTestSession()
	session.isRemote = true
	channel.dispatch(`*running,thread-id="all"`)

	err := session.Stop()
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{"-exec-interrupt --all", "-exec-step-instruction"},
		channel.sent)
}

func (CommandsSuite) TestBreakpoints(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-break-insert /tmp/main.c:5"] = []string{
		`^done,bkpt={number="1",type="breakpoint",disp="keep",enabled="y",` +
			`addr="0x0000000000001131",func="main",file="main.c",` +
			`fullname="/tmp/main.c",line="5",thread-groups=["i1"],times="0"}`,
	}
	channel.responses["-break-insert -f helper"] = []string{
		`^done,bkpt={number="2",type="breakpoint",addr="0x0000000000001149",` +
			`func="helper",fullname="/tmp/main.c",line="2"}`,
	}

	err := session.SetBreakpoint("/tmp/main.c", 5)
	expect.Nil(t, err)

	err = session.SetBreakpointAtFunc("helper")
	expect.Nil(t, err)

	bp, ok := session.FindBreakPoint("/tmp/main.c", 5)
	expect.True(t, ok)
	expect.Equal(t, 1, bp.Number)
	expect.Equal(t, VirtualAddress(0x1131), bp.Address)
	expect.Equal(t, "1: /tmp/main.c:5 in main", bp.String())

	_, ok = session.FindBreakPoint("/tmp/main.c", 6)
	expect.False(t, ok)

	expect.Equal(t, 2, len(session.BreakPoints()))
	expect.Equal(t, 2, session.BreakPoints()[1].Number)

	err = session.RemoveBreakpoint(1)
	expect.Nil(t, err)
	expect.Equal(t, "-break-delete 1", channel.sent[len(channel.sent)-1])

	_, ok = session.FindBreakPointByNumber(1)
	expect.False(t, ok)

	err = session.RemoveBreakpoint(1)
	expect.True(t, errors.Is(err, ErrInvalidInput))

	expect.Equal(
		t,
		3,
		len(eventsOf[BreakpointsChangedEvent](sub.Drain())))
}

func (CommandsSuite) TestBreakpointErrors(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-break-insert /tmp/none.c:1"] = []string{
		`^error,msg="No source file named /tmp/none.c."`,
	}

	err := session.SetBreakpoint("/tmp/none.c", 1)
	expect.True(t, errors.Is(err, com.ErrCommandFailed))
	expect.Error(t, err, "No source file named")
	expect.Equal(t, 0, len(session.BreakPoints()))

	expect.Equal(
		t,
		[]Event{MessageEvent{Text: "No source file named /tmp/none.c."}},
		sub.Drain())

	err = session.SetBreakpoint("", 1)
	expect.True(t, errors.Is(err, ErrInvalidInput))

	err = session.SetBreakpointAtFunc("")
	expect.True(t, errors.Is(err, ErrInvalidInput))
}

func (CommandsSuite) TestVarWatches(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-var-create w10 @ counter"] = []string{
		`^done,name="w10",numchild="0",value="42",type="int",has_more="0"`,
	}
	channel.responses["-var-create w11 @ bogus"] = []string{
		`^error,msg="-var-create: unable to create variable object"`,
	}
	channel.responses["-var-create w12 @ point"] = []string{
		`^done,name="w12",numchild="2",value="{...}",type="struct point"`,
	}

	result, err := session.AddVarWatch("counter")
	expect.Nil(t, err)
	expect.Equal(
		t,
		WatchResult{
			WatchID: "w10",
			Type:    "int",
			Value:   VarValue{Raw: "42"},
		},
		result)

	_, err = session.AddVarWatch("bogus")
	expect.True(t, errors.Is(err, com.ErrCommandFailed))

	result, err = session.AddVarWatch("point")
	expect.Nil(t, err)
	expect.Equal(t, "w12", result.WatchID)
	expect.True(t, result.HasChildren)

	expect.Equal(t, "counter", session.VarWatchName("w10"))
	expect.Equal(t, "y", session.VarWatchName("w12.y"))
	expect.Equal(t, "", session.VarWatchName("w11"))

	err = session.RemoveVarWatch("w10")
	expect.Nil(t, err)
	expect.Equal(t, "-var-delete w10", channel.sent[len(channel.sent)-1])
	expect.Equal(t, "", session.VarWatchName("w10"))

	err = session.RemoveVarWatch("w10")
	expect.True(t, errors.Is(err, ErrInvalidInput))

	_, err = session.AddVarWatch("")
	expect.True(t, errors.Is(err, ErrInvalidInput))
}

func (CommandsSuite) TestExpandVarWatchChildren(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-var-list-children --all-values w10"] = []string{
		`^done,numchild="2",children=[` +
			`child={name="w10.x",exp="x",numchild="0",value="1",type="int"},` +
			`child={name="w10.next",exp="next",numchild="2",` +
			`value="0x4052a0",type="struct node *"}],has_more="0"`,
	}

	err := session.ExpandVarWatchChildren("w10")
	expect.Nil(t, err)

	expect.Equal(
		t,
		[]WatchVarChildAddedEvent{
			{
				Name:       "w10.x",
				Expression: "x",
				Value:      VarValue{Raw: "1"},
				Type:       "int",
			},
			{
				Name:        "w10.next",
				Expression:  "next",
				Value:       VarValue{Raw: "0x4052a0"},
				Type:        "struct node *",
				HasChildren: true,
			},
		},
		eventsOf[WatchVarChildAddedEvent](sub.Drain()))
}

func (CommandsSuite) TestSelectThread(t *testing.T) {
	session, channel, _ := newTestSession()

	expect.Nil(t, session.SelectThread(2))
	expect.Nil(t, session.SelectThread(2))
	expect.Nil(t, session.SelectThread(3))

	expect.Equal(t, []string{"-thread-select 2", "-thread-select 3"}, channel.sent)
}

func (CommandsSuite) TestSelectFrame(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.dispatch(`*stopped,reason="end-stepping-range",frame={level="0"}`)
	channel.reset()
	sub.Drain()

	channel.responses["-stack-info-frame"] = []string{
		`^done,frame={level="1",addr="0x1160",func="middle",` +
			`fullname="/tmp/a.c",line="8"}`,
	}

	err := session.SelectFrame(1)
	expect.Nil(t, err)
	expect.Equal(
		t,
		[]string{
			"-stack-select-frame 1",
			"-stack-info-frame",
			"-stack-list-locals 1",
		},
		channel.sent)
	expect.Equal(t, 1, session.CurrentFrameIndex())

	stopped := eventsOf[StoppedEvent](sub.Drain())
	expect.Equal(
		t,
		[]StoppedEvent{{Reason: UnknownReason, SourcePath: "/tmp/a.c", Line: 8}},
		stopped)

	// Same frame.
	channel.reset()
	expect.Nil(t, session.SelectFrame(1))
	expect.Equal(t, 0, len(channel.sent))

	// Ignored while running.
	channel.dispatch(`*running,thread-id="all"`)
	expect.Nil(t, session.SelectFrame(0))
	expect.Equal(t, 0, len(channel.sent))
}

func (CommandsSuite) TestThreadList(t *testing.T) {
	session, channel, sub := newTestSession()
	channel.responses["-thread-info"] = []string{threadInfoResult}

	expect.Nil(t, session.ThreadList())
	expect.Equal(t, 1, len(session.Threads()))
	expect.Equal(t, 1, len(eventsOf[ThreadListChangedEvent](sub.Drain())))

	channel.dispatch(`*running,thread-id="all"`)
	err := session.ThreadList()
	expect.True(t, errors.Is(err, ErrAlreadyRunning))
}

func (CommandsSuite) TestStackFrames(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-stack-list-frames"] = []string{
		`^done,stack=[frame={level="0",func="inner"},frame={level="1",func="main"}]`,
	}

	expect.Nil(t, session.StackFrames())

	stack := session.Stack()
	expect.Equal(t, 2, len(stack))
	expect.Equal(t, "main", stack[0].Function)
	expect.Equal(t, 1, stack[0].Level)
}

func (CommandsSuite) TestRefreshSourceFiles(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-file-list-exec-source-files"] = []string{
		`^done,files=[{file="main.c",fullname="/tmp/main.c"},` +
			`{file="<built-in>",fullname=""},` +
			`{file="util.c"},` +
			`{file="main.c",fullname="/tmp/main.c"}]`,
	}

	modified, err := session.RefreshSourceFiles()
	expect.Nil(t, err)
	expect.True(t, modified)
	expect.Equal(
		t,
		[]SourceFile{{Name: "main.c", FullName: "/tmp/main.c"}},
		session.SourceFiles())

	modified, err = session.RefreshSourceFiles()
	expect.Nil(t, err)
	expect.False(t, modified)

	channel.responses["-file-list-exec-source-files"] = []string{`^done,files=[]`}

	modified, err = session.RefreshSourceFiles()
	expect.Nil(t, err)
	expect.True(t, modified)
	expect.Equal(t, 0, len(session.SourceFiles()))
}

func (CommandsSuite) TestReadMemory(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-data-read-memory-bytes 0x1000 5"] = []string{
		`^done,memory=[{begin="0x0000000000001000",offset="0x0000000000000000",` +
			`end="0x0000000000001005",contents="48656c6c6f"}]`,
	}
	channel.responses["-data-read-memory-bytes 0x2000 4"] = []string{
		`^done,memory=[{begin="0x0000000000002000",contents="zz"}]`,
	}
	channel.responses["-data-read-memory-bytes 0x0 1"] = []string{
		`^error,msg="Unable to read memory."`,
	}

	data, err := session.ReadMemory(0x1000, 5)
	expect.Nil(t, err)
	expect.Equal(t, "Hello", string(data))

	data, err = session.ReadMemory(0x2000, 4)
	expect.Nil(t, err)
	expect.Equal(t, 0, len(data))

	_, err = session.ReadMemory(0, 1)
	expect.True(t, errors.Is(err, com.ErrCommandFailed))

	_, err = session.ReadMemory(0x1000, -1)
	expect.True(t, errors.Is(err, ErrInvalidInput))
}

func (CommandsSuite) TestDisassemble(t *testing.T) {
	session, channel, _ := newTestSession()
	channel.responses["-data-read-memory-bytes 0x1000 45"] = []string{
		`^done,memory=[{begin="0x0000000000001000",contents="554889e5c3"}]`,
	}

	insts, err := session.Disassemble(0x1000, 3)
	expect.Nil(t, err)
	expect.Equal(t, 3, len(insts))

	expect.Equal(t, VirtualAddress(0x1000), insts[0].Address)
	expect.Equal(t, x86asm.PUSH, insts[0].Op)
	expect.Equal(t, VirtualAddress(0x1001), insts[1].Address)
	expect.Equal(t, x86asm.MOV, insts[1].Op)
	expect.Equal(t, VirtualAddress(0x1004), insts[2].Address)
	expect.Equal(t, x86asm.RET, insts[2].Op)

	insts, err = session.Disassemble(0x1000, 0)
	expect.Nil(t, err)
	expect.Equal(t, 0, len(insts))
}
