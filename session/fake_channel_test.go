package session

import (
	"context"
	"io"
	"testing"

	"github.com/pattyshack/gt/testing/expect"
	"github.com/sirupsen/logrus"

	"github.com/pattyshack/gmi/com"
	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/tree"
)

// fakeChannel replies to commands with scripted mi lines.  Every line other
// than the final result record is dispatched before the result, the way gdb
// interleaves async output.
type fakeChannel struct {
	handler com.Handler

	ptyPath string

	sent      []string
	responses map[string][]string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		handler:   com.NopHandler{},
		responses: map[string][]string{},
	}
}

func (channel *fakeChannel) SetHandler(handler com.Handler) {
	if handler == nil {
		handler = com.NopHandler{}
	}
	channel.handler = handler
}

func (channel *fakeChannel) PtyPath() string {
	return channel.ptyPath
}

func (channel *fakeChannel) Command(
	ctx context.Context,
	cmd string,
) (
	*tree.Tree,
	error,
) {
	channel.sent = append(channel.sent, cmd)

	lines, ok := channel.responses[cmd]
	if !ok {
		lines = []string{"^done"}
	}

	for _, line := range lines {
		record, err := mi.ParseRecord(line)
		if err != nil {
			panic(err)
		}

		if record.Kind != mi.ResultRecord {
			channel.dispatchRecord(record)
			continue
		}

		channel.handler.OnResult(record)
		if record.IsError() {
			return record.Results, &com.CommandError{
				Command: cmd,
				Msg:     record.Results.GetString("msg"),
			}
		}
		return record.Results, nil
	}

	return tree.New(), nil
}

func (channel *fakeChannel) dispatch(line string) {
	record, err := mi.ParseRecord(line)
	if err != nil {
		panic(err)
	}
	channel.dispatchRecord(record)
}

func (channel *fakeChannel) dispatchRecord(record *mi.Record) {
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
	case mi.ResultRecord:
		channel.handler.OnResult(record)
	}
}

func (channel *fakeChannel) reset() {
	channel.sent = nil
}

func newTestSession() (*Session, *fakeChannel, *Subscription) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	channel := newFakeChannel()
	session := New(channel, Options{Logger: logger})
	return session, channel, session.Subscribe()
}

func eventKinds(events []Event) []EventKind {
	kinds := []EventKind{}
	for _, event := range events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func eventsOf[T Event](events []Event) []T {
	result := []T{}
	for _, event := range events {
		typed, ok := event.(T)
		if ok {
			result = append(result, typed)
		}
	}
	return result
}

func expectDrained(t *testing.T, sub *Subscription) {
	select {
	case <-sub.Ready():
		expect.Equal(t, 0, len(sub.Drain()))
	default:
	}
}
