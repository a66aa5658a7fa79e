package main

import (
	"strings"
)

func (console *console) addWatch(args []string) error {
	if len(args) == 0 {
		console.println("failed to watch. expression not specified")
		return nil
	}

	result, err := console.session.AddVarWatch(strings.Join(args, " "))
	if err != nil {
		return err
	}

	suffix := ""
	if result.HasChildren {
		suffix = " [+]"
	}

	console.printf(
		"%s (%s) = %s%s\n",
		result.WatchID,
		result.Type,
		result.Value,
		suffix)
	return nil
}

func (console *console) removeWatch(args []string) error {
	if len(args) != 1 {
		console.println("failed to remove watch. id not specified")
		return nil
	}

	return console.session.RemoveVarWatch(args[0])
}

func (console *console) expandWatch(args []string) error {
	if len(args) != 1 {
		console.println("failed to list children. id not specified")
		return nil
	}

	return console.session.ExpandVarWatchChildren(args[0])
}
