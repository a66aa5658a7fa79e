package session

import (
	"fmt"
	"strings"

	. "github.com/pattyshack/gmi/common"
)

// Run (re)starts the program from the beginning.
func (session *Session) Run() error {
	if session.state == Running {
		session.message("Program is currently running")
		return fmt.Errorf("%w. cannot run", ErrAlreadyRunning)
	}

	session.pid = 0
	_, err := session.commandf("-exec-run")
	return err
}

func (session *Session) Continue() error {
	if session.state == Running {
		session.message("Program is currently running")
		return fmt.Errorf("%w. cannot continue", ErrAlreadyRunning)
	}

	_, err := session.commandf("-exec-continue")
	return err
}

// Stop interrupts a running program.  Remote targets are interrupted through
// gdb; local programs receive SIGINT directly.
func (session *Session) Stop() error {
	if session.state != Running {
		session.message("Program is not running")
		return fmt.Errorf("%w. cannot stop", ErrNotRunning)
	}

	if session.isRemote {
		_, err := session.commandf("-exec-interrupt --all")
		if err != nil {
			return err
		}

		_, err = session.commandf("-exec-step-instruction")
		return err
	}

	if session.pid == 0 {
		return fmt.Errorf("%w. cannot interrupt", ErrProcessUnknown)
	}

	return session.interrupt(session.pid)
}

func (session *Session) checkStopped(action string) error {
	if session.state == Stopped {
		return nil
	}

	session.message("Program is not stopped")
	return fmt.Errorf("%w. cannot %s", ErrNotStopped, action)
}

func (session *Session) Next() error {
	err := session.checkStopped("step over")
	if err != nil {
		return err
	}

	_, err = session.commandf("-exec-next")
	return err
}

func (session *Session) StepIn() error {
	err := session.checkStopped("step in")
	if err != nil {
		return err
	}

	_, err = session.commandf("-exec-step")
	if err != nil {
		return err
	}

	_, err = session.commandf(allValuesUpdate)
	return err
}

func (session *Session) StepOut() error {
	err := session.checkStopped("step out")
	if err != nil {
		return err
	}

	_, err = session.commandf("-exec-finish")
	if err != nil {
		return err
	}

	_, err = session.commandf(allValuesUpdate)
	return err
}

// SetBreakpoint inserts a breakpoint at fullPath:line.  The table is updated
// from gdb's bkpt reply.
func (session *Session) SetBreakpoint(fullPath string, line int) error {
	if fullPath == "" || line <= 0 {
		return fmt.Errorf(
			"%w. invalid breakpoint location %s:%d",
			ErrInvalidInput,
			fullPath,
			line)
	}

	_, err := session.commandf("-break-insert %s:%d", fullPath, line)
	return err
}

func (session *Session) SetBreakpointAtFunc(function string) error {
	if function == "" {
		return fmt.Errorf("%w. empty function name", ErrInvalidInput)
	}

	_, err := session.commandf("-break-insert -f %s", function)
	return err
}

func (session *Session) RemoveBreakpoint(number int) error {
	_, ok := session.breakPoints.Get(number)
	if !ok {
		return fmt.Errorf("%w. breakpoint %d not found", ErrInvalidInput, number)
	}

	_, err := session.commandf("-break-delete %d", number)
	if err != nil {
		return err
	}

	err = session.breakPoints.Remove(number)
	if err != nil {
		return err
	}

	session.publish(BreakpointsChangedEvent{})
	return nil
}

type WatchResult struct {
	WatchID     string
	Type        string
	Value       VarValue
	HasChildren bool
}

// AddVarWatch creates a gdb variable object tracking expression in the
// current frame.  Watch ids are never reused, even when creation fails.
func (session *Session) AddVarWatch(expression string) (WatchResult, error) {
	if expression == "" {
		return WatchResult{}, fmt.Errorf("%w. empty watch expression", ErrInvalidInput)
	}

	watchID := fmt.Sprintf("w%d", session.nextWatchID)
	session.nextWatchID++

	results, err := session.commandf("-var-create %s @ %s", watchID, expression)
	if err != nil {
		return WatchResult{}, fmt.Errorf(
			"failed to watch (%s): %w",
			expression,
			err)
	}

	result := WatchResult{
		WatchID:     results.GetString("name"),
		Type:        results.GetString("type"),
		Value:       VarValue{Raw: results.GetString("value")},
		HasChildren: results.GetInt("numchild", 0) > 0,
	}
	if result.WatchID == "" {
		result.WatchID = watchID
	}

	session.watches[result.WatchID] = expression
	return result, nil
}

func (session *Session) RemoveVarWatch(watchID string) error {
	_, ok := session.watches[watchID]
	if !ok {
		return fmt.Errorf("%w. unknown watch (%s)", ErrInvalidInput, watchID)
	}

	delete(session.watches, watchID)

	_, err := session.commandf("-var-delete %s", watchID)
	return err
}

// VarWatchName returns the watched expression.  Child variable objects
// (e.g. w10.member) are named by their last path component.
func (session *Session) VarWatchName(watchID string) string {
	expression, ok := session.watches[watchID]
	if ok {
		return expression
	}

	idx := strings.LastIndexByte(watchID, '.')
	if idx < 0 {
		return ""
	}
	return watchID[idx+1:]
}

func (session *Session) ExpandVarWatchChildren(watchID string) error {
	results, err := session.commandf("-var-list-children --all-values %s", watchID)
	if err != nil {
		return err
	}

	for _, path := range childPaths(results, "children") {
		session.publish(
			WatchVarChildAddedEvent{
				Name:        results.GetString(path + "/name"),
				Expression:  results.GetString(path + "/exp"),
				Value:       VarValue{Raw: results.GetString(path + "/value")},
				Type:        results.GetString(path + "/type"),
				HasChildren: results.GetInt(path+"/numchild", 0) > 0,
			})
	}

	return nil
}

func (session *Session) SelectThread(threadID int) error {
	if threadID == session.selectedThreadID {
		return nil
	}

	_, err := session.commandf("-thread-select %d", threadID)
	if err != nil {
		return err
	}

	session.selectedThreadID = threadID
	return nil
}

// SelectFrame switches to the frame at index (0 is innermost) and refreshes
// its locals.  Ignored while the program runs.
func (session *Session) SelectFrame(index int) error {
	if session.state == Running || index == session.currentFrameIndex {
		return nil
	}

	if index < 0 {
		return fmt.Errorf("%w. negative frame index", ErrInvalidInput)
	}

	_, err := session.commandf("-stack-select-frame %d", index)
	if err != nil {
		return err
	}

	session.currentFrameIndex = index

	_, err = session.commandf("-stack-info-frame")
	if err != nil {
		return err
	}

	_, err = session.commandf(listLocals)
	return err
}

// StackFrames requests the current thread's stack.  The result is delivered
// through StackFrameChangedEvent.
func (session *Session) StackFrames() error {
	_, err := session.commandf("-stack-list-frames")
	return err
}

// ThreadList requests the thread list.  The result is delivered through
// ThreadListChangedEvent.
func (session *Session) ThreadList() error {
	if session.state == Running {
		session.message("Program is currently running")
		return fmt.Errorf("%w. cannot list threads", ErrAlreadyRunning)
	}

	_, err := session.commandf("-thread-info")
	return err
}

// RefreshSourceFiles reloads the program's source file list and reports
// whether it changed.
func (session *Session) RefreshSourceFiles() (bool, error) {
	results, err := session.commandf("-file-list-exec-source-files")
	if err != nil {
		return false, err
	}

	files := decodeSourceFiles(results)
	modified := sourceFilesModified(session.sourceFiles, files)

	session.sourceFiles = files
	if modified {
		session.sources.invalidate()
	}

	return modified, nil
}
