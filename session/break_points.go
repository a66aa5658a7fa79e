package session

import (
	"fmt"
	"sort"

	. "github.com/pattyshack/gmi/common"
)

type BreakPoint struct {
	// Assigned by gdb.
	Number int

	FullPath string
	Line     int
	Function string
	Address  VirtualAddress
}

func (bp BreakPoint) String() string {
	location := bp.Address.String()
	if bp.FullPath != "" {
		location = fmt.Sprintf("%s:%d", bp.FullPath, bp.Line)
	}

	if bp.Function == "" {
		return fmt.Sprintf("%d: %s", bp.Number, location)
	}

	return fmt.Sprintf(
		"%d: %s in %s",
		bp.Number,
		location,
		DisplayName(bp.Function))
}

// BreakPointSet mirrors gdb's breakpoint table.  Breakpoint counts are small,
// so lookups other than by number are linear scans.
type BreakPointSet struct {
	points map[int]*BreakPoint
}

func NewBreakPointSet() *BreakPointSet {
	return &BreakPointSet{
		points: map[int]*BreakPoint{},
	}
}

// Update inserts the breakpoint, or replaces the entry with the same number.
func (set *BreakPointSet) Update(bp BreakPoint) {
	existing, ok := set.points[bp.Number]
	if !ok {
		set.points[bp.Number] = &bp
		return
	}

	*existing = bp
}

func (set *BreakPointSet) Remove(number int) error {
	_, ok := set.points[number]
	if !ok {
		return fmt.Errorf(
			"%w. break point number (%d) not found",
			ErrInvalidInput,
			number)
	}

	delete(set.points, number)
	return nil
}

func (set *BreakPointSet) Get(number int) (BreakPoint, bool) {
	bp, ok := set.points[number]
	if !ok {
		return BreakPoint{}, false
	}
	return *bp, true
}

func (set *BreakPointSet) Find(fullPath string, line int) (BreakPoint, bool) {
	for _, bp := range set.points {
		if bp.Line == line && bp.FullPath == fullPath {
			return *bp, true
		}
	}
	return BreakPoint{}, false
}

func (set *BreakPointSet) Len() int {
	return len(set.points)
}

// List returns a snapshot sorted by number.
func (set *BreakPointSet) List() []BreakPoint {
	result := make([]BreakPoint, 0, len(set.points))
	for _, bp := range set.points {
		result = append(result, *bp)
	}

	sort.Slice(
		result,
		func(i int, j int) bool { return result[i].Number < result[j].Number })
	return result
}
