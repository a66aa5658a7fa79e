package main

import (
	"fmt"
	"strconv"

	. "github.com/pattyshack/gmi/common"
)

const (
	defaultReadSize        = 32
	defaultNumInstructions = 5
	bytesPerMemoryDumpLine = 16
)

func (console *console) parseAddressAndCount(
	args []string,
	defaultCount int,
) (
	VirtualAddress,
	int,
	bool,
) {
	if len(args) == 0 {
		console.println("address not specified")
		return 0, 0, false
	}

	addr, err := ParseVirtualAddress(args[0])
	if err != nil {
		console.println("failed to parse address:", err)
		return 0, 0, false
	}

	count := defaultCount
	if len(args) > 1 {
		val, err := strconv.ParseInt(args[1], 0, 32)
		if err != nil {
			console.println("failed to parse count:", err)
			return 0, 0, false
		}
		count = int(val)

		if count < 1 {
			console.println("invalid count:", count)
			return 0, 0, false
		}
	}

	return addr, count, true
}

func (console *console) readMemory(args []string) error {
	addr, size, ok := console.parseAddressAndCount(args, defaultReadSize)
	if !ok {
		return nil
	}

	out, err := console.session.ReadMemory(addr, size)
	if err != nil {
		return err
	}

	if len(out) < size {
		console.printf(
			"WARNING: requested %d bytes but only read %d bytes.\n",
			size,
			len(out))
	}

	for len(out) > 0 {
		line := addr.String() + ":"

		size = min(len(out), bytesPerMemoryDumpLine)
		for _, b := range out[:size] {
			line += fmt.Sprintf(" %02x", b)
		}
		console.println(line)

		out = out[size:]
		addr += VirtualAddress(size)
	}

	return nil
}

func (console *console) disassemble(args []string) error {
	addr, count, ok := console.parseAddressAndCount(args, defaultNumInstructions)
	if !ok {
		return nil
	}

	insts, err := console.session.Disassemble(addr, count)
	if err != nil {
		return err
	}

	for _, inst := range insts {
		console.println(inst)
	}
	return nil
}
