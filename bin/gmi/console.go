package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pattyshack/gmi/com"
	"github.com/pattyshack/gmi/config"
	"github.com/pattyshack/gmi/session"
	"github.com/pattyshack/gmi/tagscan"
)

const snippetDelta = 3

type command struct {
	name        string
	description string
	run         func(args []string) error
}

type console struct {
	out io.Writer

	configPath string
	settings   config.Settings

	channel *com.Channel
	session *session.Session
	tags    *tagscan.Manager

	commands []command
	lastLine string
	quit     bool

	// Last reported location, used by list.
	sourcePath string
	line       int

	locals []session.Variable
	args   []session.Variable
}

func newConsole(
	out io.Writer,
	configPath string,
	settings config.Settings,
	channel *com.Channel,
	sess *session.Session,
	tags *tagscan.Manager,
) *console {
	console := &console{
		out:        out,
		configPath: configPath,
		settings:   settings,
		channel:    channel,
		session:    sess,
		tags:       tags,
	}

	console.commands = []command{
		{"run", "                  - (re)start the program", console.noArgs(sess.Run)},
		{"continue", "             - continue execution", console.noArgs(sess.Continue)},
		{"next", "                 - step over", console.noArgs(sess.Next)},
		{"step", "                 - step into", console.noArgs(sess.StepIn)},
		{"finish", "               - step out of the current function", console.noArgs(sess.StepOut)},
		{"stop", "                 - interrupt the program", console.noArgs(sess.Stop)},
		{"break", " <file:line|func>   - set break point", console.setBreakPoint},
		{"delete", " <number>         - remove break point", console.removeBreakPoint},
		{"info", " <breakpoints|threads|frames|files|locals|args>", console.info},
		{"thread", " <id>             - select thread", console.selectThread},
		{"frame", " <index>           - select stack frame", console.selectFrame},
		{"watch", " <expression>      - watch expression", console.addWatch},
		{"unwatch", " <watch id>      - remove watch", console.removeWatch},
		{"children", " <watch id>     - list watch children", console.expandWatch},
		{"x", " <address> [<size>]    - examine memory", console.readMemory},
		{"disassemble", " <address> [<count>] - disassemble instructions", console.disassemble},
		{"list", " [<file:line>]       - show source around location", console.listSource},
		{"tags", " <file>              - list functions and variables in file", console.listTags},
		{"save", "                 - save settings and break points", console.saveSettings},
		{"version", "              - show gdb version", console.version},
		{"help", "                 - list commands", console.help},
		{"quit", "                 - exit", console.exit},
	}

	return console
}

func (console *console) printf(format string, args ...any) {
	fmt.Fprintf(console.out, format, args...)
}

func (console *console) println(args ...any) {
	fmt.Fprintln(console.out, args...)
}

func (console *console) noArgs(run func() error) func([]string) error {
	return func(args []string) error {
		if len(args) != 0 {
			console.println("unexpected arguments:", strings.Join(args, " "))
			return nil
		}
		return run()
	}
}

func (console *console) initTarget(ctx context.Context) error {
	settings := console.settings

	var err error
	if settings.Mode == config.TcpMode {
		err = console.session.InitRemote(
			ctx,
			session.RemoteTarget{
				Program:           settings.TcpProgram,
				Host:              settings.TcpHost,
				Port:              settings.TcpPort,
				InitialBreakpoint: settings.InitialBreakpoint,
				InitCommands:      settings.InitCommands,
			})
	} else {
		err = console.session.InitLocal(
			ctx,
			session.LocalTarget{
				Program:           settings.Program,
				Args:              settings.Arguments,
				InitialBreakpoint: settings.InitialBreakpoint,
				InitCommands:      settings.InitCommands,
			})
	}

	if err != nil {
		return err
	}

	if settings.ReloadBreakpoints {
		for _, bp := range settings.Breakpoints {
			err := console.session.SetBreakpoint(bp.File, bp.Line)
			if err != nil {
				console.println("failed to restore break point", bp, ":", err)
			}
		}
	}

	return nil
}

// execute runs the first command whose name starts with the line's first
// word.  An empty line repeats the last command.
func (console *console) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		line = console.lastLine
	}
	console.lastLine = line

	if line == "" {
		return
	}

	args := strings.Fields(line)
	for _, cmd := range console.commands {
		if strings.HasPrefix(cmd.name, args[0]) {
			err := cmd.run(args[1:])
			if err != nil {
				console.println("error:", err)
			}
			return
		}
	}

	console.println("invalid command:", args[0])
}

func (console *console) help(args []string) error {
	for _, cmd := range console.commands {
		console.printf("  %s%s\n", cmd.name, cmd.description)
	}
	return nil
}

func (console *console) exit(args []string) error {
	console.quit = true
	return nil
}

func (console *console) version(args []string) error {
	version, err := com.Version(context.Background(), console.settings.GdbPath)
	if err != nil {
		return err
	}

	console.println(version)
	return nil
}

func (console *console) saveSettings(args []string) error {
	settings := console.settings
	settings.Breakpoints = nil
	for _, bp := range console.session.BreakPoints() {
		if bp.FullPath == "" {
			continue
		}
		settings.Breakpoints = append(
			settings.Breakpoints,
			config.Breakpoint{
				File: bp.FullPath,
				Line: bp.Line,
			})
	}

	err := settings.Save(console.configPath)
	if err != nil {
		return err
	}

	console.settings = settings
	console.println("saved", console.configPath)
	return nil
}

func (console *console) printEvent(event session.Event) {
	switch event := event.(type) {
	case session.StoppedEvent:
		console.sourcePath = event.SourcePath
		console.line = event.Line

		if event.SourcePath == "" {
			console.printf("stopped (%s)\n", event.Reason)
			return
		}

		console.printf(
			"stopped (%s) at %s:%d\n",
			event.Reason,
			event.SourcePath,
			event.Line)
		console.printSnippet(event.SourcePath, event.Line)

	case session.StateChangedEvent:
		console.printf("[%s]\n", event.State)

	case session.SignalReceivedEvent:
		console.println("received signal", event.SignalName)

	case session.LocalVarsResetEvent:
		console.locals = nil

	case session.LocalVarChangedEvent:
		console.locals = append(
			console.locals,
			session.Variable{Name: event.Name, Value: event.Value})

	case session.FrameVarsResetEvent:
		console.args = nil

	case session.FrameVarChangedEvent:
		console.args = append(
			console.args,
			session.Variable{Name: event.Name, Value: event.Value})

	case session.WatchVarChangedEvent:
		console.printf("%s (%s) = %s\n", event.WatchID, event.Name, event.Value)

	case session.WatchVarChildAddedEvent:
		suffix := ""
		if event.HasChildren {
			suffix = " [+]"
		}
		console.printf(
			"  %s %s (%s) = %s%s\n",
			event.Name,
			event.Expression,
			event.Type,
			event.Value,
			suffix)

	case session.ConsoleStreamEvent:
		console.println(event.Text)

	case session.TargetOutputEvent:
		console.printf("%s", event.Text)

	case session.MessageEvent:
		console.println(event.Text)

	case session.SourceFileListChangedEvent:
		for _, file := range console.session.SourceFiles() {
			console.tags.QueueScan(file.FullName)
		}

	case session.CurrentThreadChangedEvent,
		session.CurrentFrameChangedEvent,
		session.BreakpointsChangedEvent,
		session.ThreadListChangedEvent,
		session.StackFrameChangedEvent:
		// Shown on demand through info.
	}
}

func (console *console) printSnippet(path string, line int) {
	snippet, err := console.session.SourceSnippet(path, line, snippetDelta)
	if err != nil {
		console.println(err)
		return
	}
	console.println(snippet)
}
