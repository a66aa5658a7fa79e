package mi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pattyshack/gmi/tree"
)

type RecordKind int

const (
	ResultRecord = RecordKind(iota)
	ExecAsyncRecord
	StatusAsyncRecord
	NotifyAsyncRecord
	ConsoleStreamRecord
	TargetStreamRecord
	LogStreamRecord
	PromptRecord
)

func (kind RecordKind) String() string {
	switch kind {
	case ResultRecord:
		return "result"
	case ExecAsyncRecord:
		return "exec-async"
	case StatusAsyncRecord:
		return "status-async"
	case NotifyAsyncRecord:
		return "notify-async"
	case ConsoleStreamRecord:
		return "console-stream"
	case TargetStreamRecord:
		return "target-stream"
	case LogStreamRecord:
		return "log-stream"
	case PromptRecord:
		return "prompt"
	default:
		return fmt.Sprintf("RecordKind(%d)", int(kind))
	}
}

const (
	ResultDone      = "done"
	ResultRunning   = "running"
	ResultConnected = "connected"
	ResultError     = "error"
	ResultExit      = "exit"
)

type AsyncClass int

const (
	UnknownAsync = AsyncClass(iota)
	StoppedAsync
	RunningAsync
	ThreadGroupAddedAsync
	ThreadGroupStartedAsync
	ThreadGroupExitedAsync
	ThreadCreatedAsync
	ThreadExitedAsync
	LibraryLoadedAsync
	LibraryUnloadedAsync
	BreakpointCreatedAsync
	BreakpointModifiedAsync
	BreakpointDeletedAsync
	CmdParamChangedAsync
	MemoryChangedAsync
	DownloadAsync
)

var asyncClassNames = []string{
	UnknownAsync:            "unknown",
	StoppedAsync:            "stopped",
	RunningAsync:            "running",
	ThreadGroupAddedAsync:   "thread-group-added",
	ThreadGroupStartedAsync: "thread-group-started",
	ThreadGroupExitedAsync:  "thread-group-exited",
	ThreadCreatedAsync:      "thread-created",
	ThreadExitedAsync:       "thread-exited",
	LibraryLoadedAsync:      "library-loaded",
	LibraryUnloadedAsync:    "library-unloaded",
	BreakpointCreatedAsync:  "breakpoint-created",
	BreakpointModifiedAsync: "breakpoint-modified",
	BreakpointDeletedAsync:  "breakpoint-deleted",
	CmdParamChangedAsync:    "cmd-param-changed",
	MemoryChangedAsync:      "memory-changed",
	DownloadAsync:           "download",
}

func (class AsyncClass) String() string {
	if class < 0 || int(class) >= len(asyncClassNames) {
		return fmt.Sprintf("AsyncClass(%d)", int(class))
	}
	return asyncClassNames[class]
}

func ParseAsyncClass(name string) AsyncClass {
	for idx, className := range asyncClassNames {
		if className == name {
			return AsyncClass(idx)
		}
	}
	return UnknownAsync
}

type Record struct {
	Kind RecordKind

	// Command token prefix.  Zero when absent (tokens issued by the channel
	// start at 1).
	Token int

	// Result class (done, error, ...) or async class name.
	Class      string
	AsyncClass AsyncClass

	// Payload of result / async records.  Never nil for those kinds.
	Results *tree.Tree

	// Decoded text of stream records.
	Stream string
}

func (record *Record) IsError() bool {
	return record.Kind == ResultRecord && record.Class == ResultError
}

// ParseRecord classifies a single mi output line.  A record is returned
// whenever the line could be classified, even if its payload is malformed;
// the error then describes the payload problem.
func ParseRecord(line string) (*Record, error) {
	return Parser{}.ParseRecord(line)
}

func (parser Parser) ParseRecord(line string) (*Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w. empty record", ErrUnexpectedEnd)
	}

	if strings.HasPrefix(line, "(gdb)") {
		return &Record{Kind: PromptRecord}, nil
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}

	token := 0
	if digits > 0 {
		val, err := strconv.Atoi(line[:digits])
		if err != nil {
			return nil, fmt.Errorf(
				"%w. invalid record token (%s): %w",
				ErrUnexpectedToken,
				line,
				err)
		}
		token = val
	}

	body := line[digits:]
	if body == "" {
		return nil, fmt.Errorf("%w. token without record (%s)", ErrUnexpectedEnd, line)
	}

	record := &Record{
		Token: token,
	}

	switch body[0] {
	case '^':
		record.Kind = ResultRecord
	case '*':
		record.Kind = ExecAsyncRecord
	case '+':
		record.Kind = StatusAsyncRecord
	case '=':
		record.Kind = NotifyAsyncRecord
	case '~':
		record.Kind = ConsoleStreamRecord
		record.Stream = parseStream(body[1:])
		return record, nil
	case '@':
		record.Kind = TargetStreamRecord
		record.Stream = parseStream(body[1:])
		return record, nil
	case '&':
		record.Kind = LogStreamRecord
		record.Stream = parseStream(body[1:])
		return record, nil
	default:
		return nil, fmt.Errorf(
			"%w. unknown record prefix (%s)",
			ErrUnexpectedToken,
			line)
	}

	body = body[1:]
	payload := ""
	if idx := strings.IndexByte(body, ','); idx >= 0 {
		record.Class = body[:idx]
		payload = body[idx+1:]
	} else {
		record.Class = body
	}

	if record.Kind != ResultRecord {
		record.AsyncClass = ParseAsyncClass(record.Class)
	}

	record.Results = tree.New()
	if payload == "" {
		return record, nil
	}

	_, err := parser.ParseResults(record.Results.Root(), Tokenize(payload))
	if err != nil {
		return record, fmt.Errorf(
			"failed to parse %s %s payload: %w",
			record.Kind,
			record.Class,
			err)
	}

	return record, nil
}

func parseStream(body string) string {
	tokens := Tokenize(body)
	if len(tokens) == 1 && tokens[0].Kind == StringToken {
		return tokens[0].Text
	}
	return body
}
