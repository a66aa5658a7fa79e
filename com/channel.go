// Package com owns the gdb subprocess.  It serializes mi commands,
// correlates their results by token and dispatches every other record to a
// Handler while a command is in flight.
package com

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/pty"
	"github.com/pattyshack/gmi/tree"
)

const (
	DefaultGdbPath = "gdb"

	exitGracePeriod = 2 * time.Second

	maxLineLength = 16 * 1024 * 1024
)

var (
	ErrExited        = fmt.Errorf("gdb exited")
	ErrCommandFailed = fmt.Errorf("command failed")
)

// CommandError is returned for ^error results.
type CommandError struct {
	Command string
	Msg     string
}

func (err *CommandError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrCommandFailed, err.Command, err.Msg)
}

func (err *CommandError) Unwrap() error {
	return ErrCommandFailed
}

type Options struct {
	// Defaults to "gdb"
	GdbPath string

	// Extra gdb arguments, appended after the mi interpreter flags.
	Args []string

	// Defaults to logrus' standard logger.
	Logger *logrus.Logger
}

func (options Options) logger() *logrus.Logger {
	if options.Logger == nil {
		return logrus.StandardLogger()
	}
	return options.Logger
}

type Channel struct {
	log    *logrus.Entry
	parser mi.Parser

	handler Handler

	stdin io.WriteCloser
	lines chan string

	// Closed once gdb's stdout reaches eof.
	stdoutDone chan struct{}

	cmd          *exec.Cmd
	pty          *pty.Pty
	targetOutput chan []byte

	group  *errgroup.Group
	ctx    context.Context
	cancel func()

	nextToken int

	// Tokens of commands currently blocked in Command (nested commands
	// are issued from handler callbacks).
	waiting map[int]struct{}

	// Results which arrived while a nested command was in flight.
	pending map[int]*mi.Record

	closed bool
}

func newChannel(
	ctx context.Context,
	stdin io.WriteCloser,
	stdout io.Reader,
	logger *logrus.Logger,
) *Channel {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	channel := &Channel{
		log:        logger.WithField("layer", "com"),
		parser:     mi.NewParser(logger),
		handler:    NopHandler{},
		stdin:      stdin,
		lines:      make(chan string, 64),
		stdoutDone: make(chan struct{}),
		group:      group,
		ctx:        ctx,
		cancel:     cancel,
		waiting:    map[int]struct{}{},
		pending:    map[int]*mi.Record{},
	}

	group.Go(func() error {
		defer close(channel.stdoutDone)
		defer close(channel.lines)
		return channel.readLines(ctx, stdout)
	})

	return channel
}

// NewChannel runs the mi protocol over an already established gdb
// connection.  The channel takes ownership of stdin.
func NewChannel(
	stdin io.WriteCloser,
	stdout io.Reader,
	logger *logrus.Logger,
) *Channel {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return newChannel(context.Background(), stdin, stdout, logger)
}

// Start spawns gdb in mi2 mode together with the debuggee's pty.  Launch
// failures are returned as is; no retry is attempted.
func Start(ctx context.Context, options Options) (*Channel, error) {
	gdbPath := options.GdbPath
	if gdbPath == "" {
		gdbPath = DefaultGdbPath
	}

	args := append([]string{"--interpreter=mi2", "--nx", "-q"}, options.Args...)

	terminal, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to start gdb: %w", err)
	}

	cmd := exec.Command(gdbPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = terminal.Close()
		return nil, fmt.Errorf("failed to create gdb stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = terminal.Close()
		return nil, fmt.Errorf("failed to create gdb stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = terminal.Close()
		return nil, fmt.Errorf("failed to create gdb stderr: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		_ = terminal.Close()
		return nil, fmt.Errorf("failed to start gdb (%s): %w", gdbPath, err)
	}

	channel := newChannel(ctx, stdin, stdout, options.logger())
	channel.cmd = cmd
	channel.pty = terminal
	channel.targetOutput = make(chan []byte, 64)

	channel.log.Infof("started %s (pid %d)", gdbPath, cmd.Process.Pid)

	channel.group.Go(func() error {
		return channel.logStderr(stderr)
	})

	channel.group.Go(func() error {
		defer close(channel.targetOutput)
		return terminal.ReadLoop(channel.ctx, channel.targetOutput)
	})

	return channel, nil
}

func (channel *Channel) readLines(ctx context.Context, stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		select {
		case channel.lines <- line:
		case <-ctx.Done():
			return nil
		}
	}

	err := scanner.Err()
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("failed to read gdb output: %w", err)
	}

	return nil
}

func (channel *Channel) logStderr(stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		channel.log.Warnf("gdb stderr: %s", scanner.Text())
	}
	return nil
}

func (channel *Channel) SetHandler(handler Handler) {
	if handler == nil {
		handler = NopHandler{}
	}
	channel.handler = handler
}

// PtyPath returns the debuggee terminal's slave path, or "" when the
// channel does not own a pty.
func (channel *Channel) PtyPath() string {
	if channel.pty == nil {
		return ""
	}
	return channel.pty.SlavePath()
}

// Output returns the raw mi lines gdb emits outside of commands.  The owner
// must feed each line back through Dispatch.  The channel is closed when gdb
// exits.
func (channel *Channel) Output() <-chan string {
	return channel.lines
}

// TargetOutput returns the debuggee's raw terminal output.  Nil when the
// channel does not own a pty.
func (channel *Channel) TargetOutput() <-chan []byte {
	return channel.targetOutput
}

// WriteTarget sends input to the debuggee's terminal.
func (channel *Channel) WriteTarget(data []byte) error {
	if channel.pty == nil {
		return fmt.Errorf("failed to write to debuggee: no terminal")
	}

	_, err := channel.pty.Write(data)
	return err
}

// Command sends cmd and blocks until its result arrives or ctx is done.
// Records arriving in the meantime are dispatched to the handler on the
// calling goroutine; handlers may issue nested commands.
func (channel *Channel) Command(
	ctx context.Context,
	cmd string,
) (
	*tree.Tree,
	error,
) {
	if channel.closed {
		return nil, fmt.Errorf("%w. cannot send (%s)", ErrExited, cmd)
	}

	channel.nextToken++
	token := channel.nextToken

	channel.log.Debugf("-> %d%s", token, cmd)
	_, err := fmt.Fprintf(channel.stdin, "%d%s\n", token, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to send command (%s): %w", cmd, err)
	}

	channel.waiting[token] = struct{}{}
	defer delete(channel.waiting, token)

	for {
		record, ok := channel.pending[token]
		if ok {
			delete(channel.pending, token)
			return channel.complete(cmd, record)
		}

		var line string
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("command (%s) not completed: %w", cmd, ctx.Err())
		case line, ok = <-channel.lines:
			if !ok {
				return nil, fmt.Errorf("%w. command (%s) aborted", ErrExited, cmd)
			}
		}

		record = channel.parse(line)
		if record == nil {
			continue
		}

		if record.Kind != mi.ResultRecord {
			channel.dispatch(record)
			continue
		}

		if record.Token == token {
			return channel.complete(cmd, record)
		}

		_, ok = channel.waiting[record.Token]
		if ok {
			channel.pending[record.Token] = record
			continue
		}

		channel.log.Warnf(
			"result (%s) for unknown token %d",
			record.Class,
			record.Token)
		channel.handler.OnResult(record)
	}
}

func (channel *Channel) complete(
	cmd string,
	record *mi.Record,
) (
	*tree.Tree,
	error,
) {
	channel.handler.OnResult(record)

	if record.IsError() {
		return record.Results, &CommandError{
			Command: cmd,
			Msg:     record.Results.GetString("msg"),
		}
	}

	return record.Results, nil
}

// Dispatch classifies a line received from Output and hands it to the
// handler.
func (channel *Channel) Dispatch(line string) {
	record := channel.parse(line)
	if record == nil {
		return
	}

	if record.Kind == mi.ResultRecord {
		channel.handler.OnResult(record)
		return
	}

	channel.dispatch(record)
}

func (channel *Channel) parse(line string) *mi.Record {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	channel.log.Debugf("<- %s", line)

	record, err := channel.parser.ParseRecord(line)
	if record == nil {
		channel.log.Warnf("ignored unclassifiable output (%s): %s", line, err)
		return nil
	}

	if err != nil {
		channel.log.Errorf("partially parsed record: %s", err)
	}

	if record.Kind == mi.PromptRecord {
		return nil
	}

	if record.Results != nil {
		record.Results.Dump(channel.log)
	}

	return record
}

func (channel *Channel) dispatch(record *mi.Record) {
	switch record.Kind {
	case mi.ExecAsyncRecord:
		channel.handler.OnExecAsync(record.AsyncClass, record.Results)
	case mi.NotifyAsyncRecord:
		channel.handler.OnNotifyAsync(record.AsyncClass, record.Results)
	case mi.StatusAsyncRecord:
		channel.handler.OnStatusAsync(record.AsyncClass, record.Results)
	case mi.ConsoleStreamRecord:
		channel.handler.OnConsoleStream(record.Stream)
	case mi.TargetStreamRecord:
		channel.handler.OnTargetStream(record.Stream)
	case mi.LogStreamRecord:
		channel.handler.OnLogStream(record.Stream)
	default:
		panic("should never happen")
	}
}

// Close asks gdb to exit, kills it if it does not comply within a grace
// period, then releases the pty.
func (channel *Channel) Close() error {
	if channel.closed {
		return nil
	}
	channel.closed = true

	_, _ = fmt.Fprintf(channel.stdin, "-gdb-exit\n")
	_ = channel.stdin.Close()

	select {
	case <-channel.stdoutDone:
	case <-time.After(exitGracePeriod):
		if channel.cmd != nil {
			channel.log.Warn("gdb did not exit, killing")
			_ = channel.cmd.Process.Kill()
		}
	}

	channel.cancel()
	groupErr := channel.group.Wait()

	var errs []error
	if groupErr != nil {
		errs = append(errs, groupErr)
	}

	if channel.cmd != nil {
		err := channel.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			errs = append(errs, fmt.Errorf("failed to wait for gdb: %w", err))
		}
	}

	if channel.pty != nil {
		err := channel.pty.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
