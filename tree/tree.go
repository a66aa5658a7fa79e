// Package tree holds the parsed representation of gdb/mi results and gdb
// value strings: an ordered, labelled tree whose nodes are addressed by
// slash separated paths.
package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	. "github.com/pattyshack/gmi/common"
)

// Node is either a leaf (Data set, no children) or a container (children,
// Data unused). Children keep insertion order and may share names; list
// elements have an empty name.
type Node struct {
	Name    string
	Data    string
	Address VirtualAddress

	children []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name: name,
	}
}

func (node *Node) AddChild(child *Node) {
	node.children = append(node.children, child)
}

// Child returns the idx-th (0-based) child, or nil when out of range.
func (node *Node) Child(idx int) *Node {
	if idx < 0 || idx >= len(node.children) {
		return nil
	}
	return node.children[idx]
}

func (node *Node) ChildCount() int {
	return len(node.children)
}

func (node *Node) Children() []*Node {
	return node.children
}

func (node *Node) RemoveAll() {
	node.children = nil
}

// ChildList returns a path segment for each child: its name, or "#N" (1-based)
// for unnamed children.
func (node *Node) ChildList() []string {
	result := make([]string, 0, len(node.children))
	for idx, child := range node.children {
		if child.Name == "" {
			result = append(result, fmt.Sprintf("#%d", idx+1))
		} else {
			result = append(result, child.Name)
		}
	}
	return result
}

// FindChild resolves a path such as "frame/args/#2/name".  A segment matches
// the first child with that name.  A "#N" segment, or a numeric segment that
// does not name any child, selects the N-th (1-based) child.
func (node *Node) FindChild(path string) *Node {
	current := node
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		current = current.findSegment(segment)
		if current == nil {
			return nil
		}
	}

	return current
}

func (node *Node) findSegment(segment string) *Node {
	if strings.HasPrefix(segment, "#") {
		idx, err := strconv.Atoi(segment[1:])
		if err != nil {
			return nil
		}
		return node.Child(idx - 1)
	}

	for _, child := range node.children {
		if child.Name == segment {
			return child
		}
	}

	idx, err := strconv.Atoi(segment)
	if err != nil {
		return nil
	}
	return node.Child(idx - 1)
}

func (node *Node) writeTo(builder *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)

	name := node.Name
	if name == "" {
		name = "-"
	}

	builder.WriteString(indent)
	builder.WriteString(name)
	if node.Data != "" {
		builder.WriteString(" = ")
		builder.WriteString(strconv.Quote(node.Data))
	}
	if node.Address != 0 {
		builder.WriteString(" @ ")
		builder.WriteString(node.Address.String())
	}
	builder.WriteString("\n")

	for _, child := range node.children {
		child.writeTo(builder, depth+1)
	}
}

// Tree is built fresh for each result / async record and dropped once the
// session has consumed it.
type Tree struct {
	root Node
}

func New() *Tree {
	return &Tree{}
}

func (tree *Tree) Root() *Node {
	return &tree.root
}

func (tree *Tree) Child(idx int) *Node {
	return tree.root.Child(idx)
}

func (tree *Tree) RootChildCount() int {
	return tree.root.ChildCount()
}

func (tree *Tree) Find(path string) *Node {
	return tree.root.FindChild(path)
}

func (tree *Tree) GetString(path string) string {
	node := tree.root.FindChild(path)
	if node == nil {
		return ""
	}
	return node.Data
}

func (tree *Tree) GetInt(path string, defaultValue int) int {
	node := tree.root.FindChild(path)
	if node == nil || node.Data == "" {
		return defaultValue
	}

	val, err := strconv.ParseInt(strings.TrimSpace(node.Data), 0, 64)
	if err != nil {
		return defaultValue
	}
	return int(val)
}

// GetInt64 returns 0 for missing or non-numeric data.  Values above MaxInt64
// (e.g. kernel addresses) wrap.
func (tree *Tree) GetInt64(path string) int64 {
	node := tree.root.FindChild(path)
	if node == nil {
		return 0
	}

	str := strings.ReplaceAll(strings.TrimSpace(node.Data), "_", "")
	val, err := strconv.ParseInt(str, 0, 64)
	if err == nil {
		return val
	}

	uval, err := strconv.ParseUint(str, 0, 64)
	if err == nil {
		return int64(uval)
	}

	return 0
}

func (tree *Tree) GetAddress(path string) VirtualAddress {
	node := tree.root.FindChild(path)
	if node == nil {
		return 0
	}

	if node.Address != 0 {
		return node.Address
	}

	return VirtualAddress(tree.GetInt64(path))
}

func (tree *Tree) GetChildCount(path string) int {
	node := tree.root.FindChild(path)
	if node == nil {
		return 0
	}
	return node.ChildCount()
}

func (tree *Tree) GetChildList(path string) []string {
	node := tree.root.FindChild(path)
	if node == nil {
		return nil
	}
	return node.ChildList()
}

func (tree *Tree) RemoveAll() {
	tree.root.RemoveAll()
	tree.root.Data = ""
	tree.root.Address = 0
}

func (tree *Tree) String() string {
	builder := &strings.Builder{}
	for _, child := range tree.root.children {
		child.writeTo(builder, 0)
	}
	return builder.String()
}

// Dump logs the tree at debug level.
func (tree *Tree) Dump(log *logrus.Entry) {
	if log == nil || !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	for _, line := range strings.Split(strings.TrimRight(tree.String(), "\n"), "\n") {
		log.Debug(line)
	}
}
