package session

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	. "github.com/pattyshack/gmi/common"
)

const (
	maxX64InstructionLength = 15
)

// ReadMemory reads count bytes starting at addr.  Malformed or missing
// contents in gdb's reply yield an empty result, not an error.
func (session *Session) ReadMemory(
	addr VirtualAddress,
	count int,
) (
	[]byte,
	error,
) {
	if count < 0 {
		return nil, fmt.Errorf("%w. negative read size (%d)", ErrInvalidInput, count)
	}

	results, err := session.commandf(
		"-data-read-memory-bytes 0x%x %d",
		uint64(addr),
		count)
	if err != nil {
		return []byte{}, fmt.Errorf(
			"failed to read memory at %s: %w",
			addr,
			err)
	}

	return session.decodeMemoryContents(results.GetString("memory/1/contents")), nil
}

func (session *Session) decodeMemoryContents(contents string) []byte {
	if contents == "" {
		return []byte{}
	}

	data, err := hex.DecodeString(contents)
	if err != nil {
		session.log.Warnf("malformed memory contents (%s): %s", contents, err)
		return []byte{}
	}
	return data
}

type DisassembledInstruction struct {
	Address VirtualAddress
	x86asm.Inst
}

func (inst DisassembledInstruction) String() string {
	return fmt.Sprintf(
		"0x%016x: %s",
		uint64(inst.Address),
		x86asm.GNUSyntax(inst.Inst, uint64(inst.Address), nil))
}

// Disassemble decodes up to numInstructions x86-64 instructions starting at
// startAddress.  gdb removes its own breakpoint instructions from memory
// reads, so the original bytes are decoded.
func (session *Session) Disassemble(
	startAddress VirtualAddress,
	numInstructions int,
) (
	[]DisassembledInstruction,
	error,
) {
	if numInstructions < 0 {
		return nil, fmt.Errorf(
			"%w. invalid number of instructions to disassemble: %d",
			ErrInvalidInput,
			numInstructions)
	} else if numInstructions == 0 {
		return nil, nil
	}

	data, err := session.ReadMemory(
		startAddress,
		numInstructions*maxX64InstructionLength)
	if err != nil {
		return nil, err
	}

	return disassemble(startAddress, data, numInstructions), nil
}

func disassemble(
	address VirtualAddress,
	data []byte,
	numInstructions int,
) []DisassembledInstruction {
	result := make([]DisassembledInstruction, 0, numInstructions)
	for len(data) > 0 && len(result) < numInstructions {
		inst, err := x86asm.Decode(data, 64)
		if err != nil {
			break
		}

		result = append(
			result,
			DisassembledInstruction{
				Address: address,
				Inst:    inst,
			})

		data = data[inst.Len:]
		address += VirtualAddress(inst.Len)
	}

	return result
}
