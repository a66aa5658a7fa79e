package session

import (
	"fmt"
	"os"
	"path"
	"strings"

	. "github.com/pattyshack/gmi/common"
	"github.com/pattyshack/gmi/tree"
)

type SourceFile struct {
	Name     string
	FullName string
}

// decodeSourceFiles extracts the -file-list-exec-source-files entries,
// skipping gdb's built-in pseudo files and entries without a full name.
// Duplicates (by full name) are dropped.
func decodeSourceFiles(results *tree.Tree) []SourceFile {
	files := []SourceFile{}
	seen := map[string]struct{}{}

	for _, entry := range childPaths(results, "files") {
		file := SourceFile{
			Name:     results.GetString(entry + "/file"),
			FullName: results.GetString(entry + "/fullname"),
		}

		if file.FullName == "" || strings.Contains(file.Name, "<built-in>") {
			continue
		}

		_, ok := seen[file.FullName]
		if ok {
			continue
		}
		seen[file.FullName] = struct{}{}

		files = append(files, file)
	}

	return files
}

// sourceFilesModified reports whether any file was added or removed
// (matched by full name).
func sourceFilesModified(before []SourceFile, after []SourceFile) bool {
	previous := map[string]bool{}
	for _, file := range before {
		previous[file.FullName] = false
	}

	for _, file := range after {
		_, ok := previous[file.FullName]
		if !ok {
			return true
		}
		previous[file.FullName] = true
	}

	for _, present := range previous {
		if !present {
			return true
		}
	}

	return false
}

type Snippet struct {
	Start int // 1-based
	Focus int // 1-based
	End   int // exclusive
	Lines []string
}

func (snippet Snippet) String() string {
	template := fmt.Sprintf("%%s %%%dd %%s", len(fmt.Sprintf("%d", snippet.End)))

	content := []string{}
	for idx, line := range snippet.Lines {
		current := snippet.Start + idx
		prefix := " "
		if current == snippet.Focus {
			prefix = ">"
		}

		content = append(content, fmt.Sprintf(template, prefix, current, line))
	}

	return strings.Join(content, "\n")
}

// sourceCache holds the lines of source files read for snippets.
type sourceCache struct {
	files map[string][]string
}

func newSourceCache() *sourceCache {
	return &sourceCache{
		files: map[string][]string{},
	}
}

func (cache *sourceCache) invalidate() {
	cache.files = map[string][]string{}
}

func (cache *sourceCache) snippet(
	pathName string,
	focus int,
	delta int,
) (
	Snippet,
	error,
) {
	pathName = path.Clean(pathName)
	lines, ok := cache.files[pathName]
	if !ok {
		content, err := os.ReadFile(pathName)
		if err != nil {
			return Snippet{}, fmt.Errorf("failed to read %s: %w", pathName, err)
		}

		lines = strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		cache.files[pathName] = lines
	}

	if focus <= 0 || focus > len(lines) {
		return Snippet{}, fmt.Errorf(
			"%w. line %d out of bound (%s has %d lines)",
			ErrInvalidInput,
			focus,
			pathName,
			len(lines))
	}

	if delta < 0 {
		return Snippet{}, fmt.Errorf("%w. negative line delta", ErrInvalidInput)
	}

	start := max(focus-delta, 1)
	end := min(focus+delta+1, len(lines)+1)

	return Snippet{
		Start: start,
		Focus: focus,
		End:   end,
		Lines: lines[start-1 : end-1],
	}, nil
}
