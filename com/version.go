package com

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionQueryTimeout = 2 * time.Second

// Version returns the first line of `gdb --version`.
func Version(ctx context.Context, gdbPath string) (string, error) {
	if gdbPath == "" {
		gdbPath = DefaultGdbPath
	}

	ctx, cancel := context.WithTimeout(ctx, versionQueryTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, gdbPath, "--version").Output()
	if ctx.Err() != nil {
		return "", fmt.Errorf(
			"failed to query %s version: %w",
			gdbPath,
			ctx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", gdbPath, err)
	}

	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("failed to query %s version: empty output", gdbPath)
	}

	return line, nil
}
