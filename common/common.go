package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

var (
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrNotRunning     = fmt.Errorf("program is not running")
	ErrNotStopped     = fmt.Errorf("program is not stopped")
	ErrAlreadyRunning = fmt.Errorf("program is currently running")
	ErrProcessUnknown = fmt.Errorf("process id not known")
)

type VirtualAddress uint64

func (addr VirtualAddress) String() string {
	return fmt.Sprintf("0x%016x", uint64(addr))
}

// ParseVirtualAddress accepts the same literal forms gdb prints: 0x prefixed
// hex, 0 prefixed octal, decimal, with optional '_' separators.
func ParseVirtualAddress(str string) (VirtualAddress, error) {
	str = strings.ReplaceAll(strings.TrimSpace(str), "_", "")
	val, err := strconv.ParseUint(str, 0, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"%w. cannot parse address (%s): %w",
			ErrInvalidInput,
			str,
			err)
	}

	return VirtualAddress(val), nil
}

// DisplayName returns the demangled form of a (possibly) mangled symbol name.
// Names that are not mangled are returned as is.
func DisplayName(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}

	val, err := demangle.ToString(name)
	if err != nil {
		return name
	}

	return val
}
