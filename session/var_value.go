package session

import (
	"strings"

	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/tree"
)

// VarValue is a value string as printed by gdb, e.g. `42`,
// `{x = 1, y = 0x0}` or `{<No data fields>}`.
type VarValue struct {
	Raw string
}

// String strips the braces around gdb messages such as {<No data fields>}.
func (value VarValue) String() string {
	if strings.HasPrefix(value.Raw, "{<") && strings.HasSuffix(value.Raw, ">}") {
		return value.Raw[1 : len(value.Raw)-1]
	}
	return value.Raw
}

// Tree parses the value.  Returns nil for plain scalars.
func (value VarValue) Tree() *tree.Tree {
	return mi.ParseValue(value.Raw)
}
