package session

import (
	"fmt"
	"strconv"

	. "github.com/pattyshack/gmi/common"
	"github.com/pattyshack/gmi/tree"
)

type ThreadInfo struct {
	ID int

	// gdb's target-id, e.g. "Thread 0x7ffff7d8a740 (LWP 4242)"
	Name string

	Function string
}

type StackFrame struct {
	Level      int
	Function   string
	Line       int
	SourcePath string
	Address    VirtualAddress
}

func (frame StackFrame) String() string {
	function := DisplayName(frame.Function)
	if frame.SourcePath == "" {
		return fmt.Sprintf("#%d %s in %s", frame.Level, frame.Address, function)
	}
	return fmt.Sprintf(
		"#%d %s at %s:%d",
		frame.Level,
		function,
		frame.SourcePath,
		frame.Line)
}

type Variable struct {
	Name  string
	Value VarValue
}

// The closed set of result payloads the session reacts to.  A result
// record's tree is decoded once into these; unknown top level keys are
// dropped.
type resultPayload interface {
	isResultPayload()
}

type watchChange struct {
	WatchID string
	Value   string
}

type changeListPayload struct {
	changes []watchChange
}

type breakPointPayload struct {
	BreakPoint
}

type threadsPayload struct {
	threads []ThreadInfo
}

type currentThreadPayload struct {
	id int
}

type framePayload struct {
	frame StackFrame
	args  []Variable
}

type stackPayload struct {
	// Oldest first.
	frames []StackFrame
}

type localsPayload struct {
	locals []Variable
}

type messagePayload struct {
	text string
}

type groupsPayload struct {
	pid int
}

func (changeListPayload) isResultPayload()    {}
func (breakPointPayload) isResultPayload()    {}
func (threadsPayload) isResultPayload()       {}
func (currentThreadPayload) isResultPayload() {}
func (framePayload) isResultPayload()         {}
func (stackPayload) isResultPayload()         {}
func (localsPayload) isResultPayload()        {}
func (messagePayload) isResultPayload()       {}
func (groupsPayload) isResultPayload()        {}

func decodeResults(results *tree.Tree) []resultPayload {
	if results == nil {
		return nil
	}

	payloads := []resultPayload{}
	for idx := 0; idx < results.RootChildCount(); idx++ {
		var payload resultPayload

		switch results.Child(idx).Name {
		case "changelist":
			payload = decodeChangeList(results)
		case "bkpt":
			payload = decodeBreakPoint(results, "bkpt")
		case "threads":
			payload = decodeThreads(results)
		case "current-thread-id":
			id, ok := parseThreadID(results.GetString("current-thread-id"))
			if ok {
				payload = currentThreadPayload{id: id}
			}
		case "frame":
			payload = framePayload{
				frame: decodeFrame(results, "frame"),
				args:  decodeVariables(results, "frame/args"),
			}
		case "stack":
			payload = decodeStack(results)
		case "locals":
			payload = localsPayload{
				locals: decodeVariables(results, "locals"),
			}
		case "msg":
			payload = messagePayload{text: results.GetString("msg")}
		case "groups":
			payload = groupsPayload{pid: results.GetInt("groups/1/pid", 0)}
		}

		if payload != nil {
			payloads = append(payloads, payload)
		}
	}

	return payloads
}

func parseThreadID(str string) (int, bool) {
	if str == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(str, 0, 64)
	if err != nil {
		return 0, false
	}

	return int(id), true
}

// childPaths returns an index based path for each child of path.  Sibling
// names are not unique, e.g. stack=[frame={..},frame={..}].
func childPaths(results *tree.Tree, path string) []string {
	count := results.GetChildCount(path)
	paths := make([]string, 0, count)
	for idx := 1; idx <= count; idx++ {
		paths = append(paths, fmt.Sprintf("%s/#%d", path, idx))
	}
	return paths
}

func decodeChangeList(results *tree.Tree) changeListPayload {
	payload := changeListPayload{}
	for _, path := range childPaths(results, "changelist") {
		payload.changes = append(
			payload.changes,
			watchChange{
				WatchID: results.GetString(path + "/name"),
				Value:   results.GetString(path + "/value"),
			})
	}
	return payload
}

func decodeBreakPoint(results *tree.Tree, prefix string) breakPointPayload {
	return breakPointPayload{
		BreakPoint: BreakPoint{
			Number:   results.GetInt(prefix+"/number", 0),
			FullPath: results.GetString(prefix + "/fullname"),
			Line:     results.GetInt(prefix+"/line", 0),
			Function: results.GetString(prefix + "/func"),
			Address:  results.GetAddress(prefix + "/addr"),
		},
	}
}

func decodeThreads(results *tree.Tree) threadsPayload {
	payload := threadsPayload{
		threads: []ThreadInfo{},
	}

	for _, path := range childPaths(results, "threads") {
		payload.threads = append(
			payload.threads,
			ThreadInfo{
				ID:       results.GetInt(path+"/id", 0),
				Name:     results.GetString(path + "/target-id"),
				Function: results.GetString(path + "/frame/func"),
			})
	}

	return payload
}

func decodeFrame(results *tree.Tree, path string) StackFrame {
	return StackFrame{
		Level:      results.GetInt(path+"/level", 0),
		Function:   results.GetString(path + "/func"),
		Line:       results.GetInt(path+"/line", 0),
		SourcePath: results.GetString(path + "/fullname"),
		Address:    results.GetAddress(path + "/addr"),
	}
}

// gdb lists the innermost frame first.
func decodeStack(results *tree.Tree) stackPayload {
	count := results.GetChildCount("stack")
	frames := make([]StackFrame, 0, count)
	for idx := count; idx > 0; idx-- {
		frames = append(frames, decodeFrame(results, fmt.Sprintf("stack/#%d", idx)))
	}

	return stackPayload{
		frames: frames,
	}
}

func decodeVariables(results *tree.Tree, path string) []Variable {
	vars := []Variable{}
	for _, varPath := range childPaths(results, path) {
		vars = append(
			vars,
			Variable{
				Name:  results.GetString(varPath + "/name"),
				Value: VarValue{Raw: results.GetString(varPath + "/value")},
			})
	}
	return vars
}
