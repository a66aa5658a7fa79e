package main

import (
	"path/filepath"
	"strconv"
	"strings"
)

func (console *console) setBreakPoint(args []string) error {
	if len(args) != 1 {
		console.println("failed to set break point. location not specified")
		return nil
	}

	idx := strings.LastIndexByte(args[0], ':')
	if idx < 0 {
		return console.session.SetBreakpointAtFunc(args[0])
	}

	line, err := strconv.Atoi(args[0][idx+1:])
	if err != nil {
		console.println("failed to parse line number:", err)
		return nil
	}

	path, err := filepath.Abs(args[0][:idx])
	if err != nil {
		return err
	}

	return console.session.SetBreakpoint(console.resolveSourcePath(path, args[0][:idx]), line)
}

// resolveSourcePath maps a bare file name onto a known source file.
func (console *console) resolveSourcePath(absPath string, name string) string {
	if strings.Contains(name, "/") {
		return absPath
	}

	for _, file := range console.session.SourceFiles() {
		if filepath.Base(file.FullName) == name {
			return file.FullName
		}
	}

	return absPath
}

func (console *console) removeBreakPoint(args []string) error {
	if len(args) != 1 {
		console.println("failed to remove break point. number not specified")
		return nil
	}

	number, err := strconv.Atoi(args[0])
	if err != nil {
		console.println("failed to parse break point number:", err)
		return nil
	}

	return console.session.RemoveBreakpoint(number)
}

func (console *console) listBreakPoints() {
	bps := console.session.BreakPoints()
	if len(bps) == 0 {
		console.println("No break points set")
		return
	}

	console.println("Current break points")
	for _, bp := range bps {
		console.println(" ", bp)
	}
}
