// Package tagscan indexes functions and variables of source files using
// ctags.
package tagscan

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCtagsPath = "ctags"

	minColumns = 5
)

var scanArgs = []string{"-f", "-", "--excmd=number", "--fields=+nmsSk"}

type TagKind int

const (
	VariableTag = TagKind(iota)
	FunctionTag
)

func (kind TagKind) String() string {
	if kind == FunctionTag {
		return "function"
	}
	return "variable"
}

type Tag struct {
	Name      string
	ClassName string
	FilePath  string
	Kind      TagKind
	Signature string
	Line      int
}

// LongName returns the qualified name followed by the signature, e.g.
// "Stack::push(int value)".
func (tag Tag) LongName() string {
	name := tag.Name
	if tag.ClassName != "" {
		name = tag.ClassName + "::" + name
	}
	return name + tag.Signature
}

type Scanner struct {
	CtagsPath string

	log       *logrus.Entry
	available bool
}

func NewScanner(ctagsPath string, logger *logrus.Logger) *Scanner {
	if ctagsPath == "" {
		ctagsPath = DefaultCtagsPath
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Scanner{
		CtagsPath: ctagsPath,
		log:       logger.WithField("layer", "tagscan"),
	}
}

// Init checks that ctags can be executed.  Scan is a no-op when Init fails.
func (scanner *Scanner) Init(ctx context.Context) error {
	output, err := exec.CommandContext(ctx, scanner.CtagsPath, "--version").Output()
	if err != nil {
		scanner.available = false
		return fmt.Errorf(
			"failed to start %s (install universal-ctags or exuberant-ctags): %w",
			scanner.CtagsPath,
			err)
	}

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		scanner.log.Debugf("ctags: %s", line)
	}

	scanner.available = true
	return nil
}

func (scanner *Scanner) Scan(ctx context.Context, filePath string) ([]Tag, error) {
	if !scanner.available {
		return nil, nil
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := exec.CommandContext(
		ctx,
		scanner.CtagsPath,
		append(append([]string{}, scanArgs...), filePath)...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	tags := scanner.parseOutput(stdout.String())

	for _, line := range strings.Split(stderr.String(), "\n") {
		if line != "" {
			scanner.log.Error(line)
		}
	}

	if runErr != nil {
		return tags, fmt.Errorf("failed to scan %s: %w", filePath, runErr)
	}

	return tags, nil
}

// parseOutput parses ctags' tab separated rows:
//
//	name<TAB>file<TAB>line;"<TAB>kind<TAB>field:value...
func (scanner *Scanner) parseOutput(output string) []Tag {
	tags := []Tag{}
	for _, row := range strings.Split(output, "\n") {
		if row == "" {
			continue
		}

		columns := strings.Split(row, "\t")
		if len(columns) < minColumns {
			scanner.log.Errorf(
				"failed to parse ctags output (%d columns): %s",
				len(columns),
				row)
			continue
		}

		tag := Tag{
			Name:     columns[0],
			FilePath: columns[1],
		}

		if columns[3] == "f" {
			tag.Kind = FunctionTag
			tag.Signature = "()"
		}

		for _, field := range columns[4:] {
			name, value, ok := strings.Cut(field, ":")
			if !ok {
				scanner.log.Errorf("malformed ctags field (%s)", field)
				continue
			}

			switch name {
			case "class":
				tag.ClassName = value
			case "signature":
				tag.Signature = value
			case "line":
				line, err := strconv.Atoi(value)
				if err != nil {
					scanner.log.Errorf("malformed ctags line number (%s)", value)
					continue
				}
				tag.Line = line
			}
		}

		tags = append(tags, tag)
	}

	return tags
}
