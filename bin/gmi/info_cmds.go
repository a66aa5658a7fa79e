package main

import (
	"strconv"
	"strings"

	. "github.com/pattyshack/gmi/common"
	"github.com/pattyshack/gmi/session"
)

func (console *console) info(args []string) error {
	if len(args) != 1 {
		console.println("info <breakpoints|threads|frames|files|locals|args>")
		return nil
	}

	topics := []struct {
		name string
		show func() error
	}{
		{"breakpoints", func() error { console.listBreakPoints(); return nil }},
		{"threads", console.listThreads},
		{"frames", console.listFrames},
		{"files", func() error { console.listFiles(); return nil }},
		{"locals", func() error { console.listVariables(console.locals); return nil }},
		{"args", func() error { console.listVariables(console.args); return nil }},
	}

	for _, topic := range topics {
		if strings.HasPrefix(topic.name, args[0]) {
			return topic.show()
		}
	}

	console.println("unknown info topic:", args[0])
	return nil
}

func (console *console) listThreads() error {
	err := console.session.ThreadList()
	if err != nil {
		return err
	}

	for _, thread := range console.session.Threads() {
		console.printf(
			"  %d %s in %s\n",
			thread.ID,
			thread.Name,
			DisplayName(thread.Function))
	}
	return nil
}

func (console *console) listFrames() error {
	err := console.session.StackFrames()
	if err != nil {
		return err
	}

	stack := console.session.Stack()
	for idx := len(stack) - 1; idx >= 0; idx-- {
		frame := stack[idx]
		marker := " "
		if frame.Level == console.session.CurrentFrameIndex() {
			marker = ">"
		}
		console.println(marker, frame)
	}
	return nil
}

func (console *console) listFiles() {
	for _, file := range console.session.SourceFiles() {
		console.println(" ", file.FullName)
	}
}

func (console *console) listVariables(vars []session.Variable) {
	if len(vars) == 0 {
		console.println("No variables")
		return
	}

	for _, variable := range vars {
		console.printf("  %s = %s\n", variable.Name, variable.Value)
	}
}

func (console *console) selectThread(args []string) error {
	if len(args) != 1 {
		console.println("failed to select thread. id not specified")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		console.println("failed to parse thread id:", err)
		return nil
	}

	return console.session.SelectThread(id)
}

func (console *console) selectFrame(args []string) error {
	if len(args) != 1 {
		console.println("failed to select frame. index not specified")
		return nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		console.println("failed to parse frame index:", err)
		return nil
	}

	return console.session.SelectFrame(index)
}
