package main

import (
	"context"
	"strconv"
	"strings"
)

func (console *console) listSource(args []string) error {
	path := console.sourcePath
	line := console.line

	if len(args) > 0 {
		idx := strings.LastIndexByte(args[0], ':')
		if idx < 0 {
			console.println("failed to list. location is not in file:line form")
			return nil
		}

		val, err := strconv.Atoi(args[0][idx+1:])
		if err != nil {
			console.println("failed to parse line number:", err)
			return nil
		}

		path = console.resolveSourcePath(args[0][:idx], args[0][:idx])
		line = val
	}

	if path == "" {
		console.println("no source location")
		return nil
	}

	console.printSnippet(path, line)
	return nil
}

func (console *console) listTags(args []string) error {
	if len(args) != 1 {
		console.println("failed to list tags. file not specified")
		return nil
	}

	path := console.resolveSourcePath(args[0], args[0])

	tags, err := console.tags.Scan(context.Background(), path)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		console.printf("  %-8s %5d %s\n", tag.Kind, tag.Line, tag.LongName())
	}
	return nil
}
