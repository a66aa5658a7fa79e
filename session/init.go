package session

import (
	"context"
	"fmt"
	"strings"

	. "github.com/pattyshack/gmi/common"
)

type LocalTarget struct {
	Program string
	Args    []string

	// Location of the breakpoint inserted before running, e.g. "main".
	// Empty skips both the breakpoint and the initial run.
	InitialBreakpoint string

	// Raw gdb console commands.  '#' starts a comment.
	InitCommands []string
}

type RemoteTarget struct {
	// Optional.  When set, symbols are loaded from it and it is downloaded
	// to the target.
	Program string

	Host string
	Port int

	InitialBreakpoint string
	InitCommands      []string
}

// InitLocal loads the program into gdb, directs its terminal to the
// channel's pty and runs it to the initial breakpoint.
func (session *Session) InitLocal(ctx context.Context, target LocalTarget) error {
	if target.Program == "" {
		return fmt.Errorf("%w. no program specified", ErrInvalidInput)
	}

	session.isRemote = false

	ptyPath := session.channel.PtyPath()
	if ptyPath != "" {
		_, err := session.command(ctx, "-inferior-tty-set "+ptyPath)
		if err != nil {
			return fmt.Errorf("failed to set inferior tty: %w", err)
		}
	}

	_, err := session.command(ctx, "-file-exec-and-symbols "+target.Program)
	if err != nil {
		session.log.Errorf("failed to load %s: %s", target.Program, err)
	}

	if len(target.Args) > 0 {
		_, err := session.command(
			ctx,
			"-exec-arguments "+strings.Join(target.Args, " "))
		if err != nil {
			return fmt.Errorf("failed to set program arguments: %w", err)
		}
	}

	run := session.insertInitialBreakpoint(ctx, target.InitialBreakpoint)

	return session.finishInit(ctx, target.InitCommands, run)
}

// InitRemote attaches to a gdbserver in extended-remote mode.
func (session *Session) InitRemote(ctx context.Context, target RemoteTarget) error {
	if target.Host == "" || target.Port <= 0 {
		return fmt.Errorf(
			"%w. invalid remote target %s:%d",
			ErrInvalidInput,
			target.Host,
			target.Port)
	}

	session.isRemote = true

	_, err := session.command(
		ctx,
		fmt.Sprintf("-target-select extended-remote %s:%d", target.Host, target.Port))
	if err != nil {
		return fmt.Errorf("failed to connect to remote target: %w", err)
	}

	if target.Program != "" {
		_, err := session.command(ctx, "-file-symbol-file "+target.Program)
		if err != nil {
			session.log.Errorf("failed to load symbols from %s: %s", target.Program, err)
		}
	}

	session.runInitCommands(ctx, target.InitCommands)

	if target.Program != "" {
		_, err := session.command(ctx, "-file-exec-file "+target.Program)
		if err != nil {
			return fmt.Errorf("failed to set remote executable: %w", err)
		}

		_, err = session.command(ctx, "-target-download")
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", target.Program, err)
		}
	}

	run := session.insertInitialBreakpoint(ctx, target.InitialBreakpoint)

	return session.finishInit(ctx, nil, run)
}

func (session *Session) insertInitialBreakpoint(
	ctx context.Context,
	location string,
) bool {
	if location == "" {
		return false
	}

	_, err := session.command(ctx, "-break-insert -f "+location)
	if err != nil {
		session.log.Errorf(
			"failed to set initial breakpoint (%s): %s",
			location,
			err)
		return false
	}

	return true
}

func (session *Session) finishInit(
	ctx context.Context,
	initCommands []string,
	run bool,
) error {
	modified, err := session.RefreshSourceFiles()
	if err != nil {
		session.log.Warnf("failed to list source files: %s", err)
	} else if modified {
		session.publish(SourceFileListChangedEvent{})
	}

	session.runInitCommands(ctx, initCommands)

	if !run {
		return nil
	}

	return session.Run()
}

func (session *Session) runInitCommands(ctx context.Context, commands []string) {
	for _, cmd := range cleanInitCommands(commands) {
		_, err := session.command(ctx, cmd)
		if err != nil {
			session.log.Warnf("init command (%s) failed: %s", cmd, err)
		}
	}
}

func cleanInitCommands(commands []string) []string {
	result := []string{}
	for _, cmd := range commands {
		idx := strings.IndexByte(cmd, '#')
		if idx >= 0 {
			cmd = cmd[:idx]
		}

		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}

		result = append(result, cmd)
	}
	return result
}
