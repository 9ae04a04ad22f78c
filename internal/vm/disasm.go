package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders every instruction in chunk as text, headed by
// name, in the "== name ==" / "%04d" offset / opcode-mnemonic format.
func Disassemble(chunk *Chunk, name string, heap *Heap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < chunk.Len(); {
		offset = disassembleInstruction(&b, chunk, offset, heap)
	}
	return b.String()
}

// DisassembleInstruction renders one instruction at offset and
// returns the offset of the instruction following it — exported for
// the --trace-execution single-step tracer (see debugger.go).
func DisassembleInstruction(chunk *Chunk, offset int, heap *Heap) (string, int) {
	var b strings.Builder
	next := disassembleInstruction(&b, chunk, offset, heap)
	return strings.TrimRight(b.String(), "\n"), next
}

func disassembleInstruction(b *strings.Builder, chunk *Chunk, offset int, heap *Heap) int {
	fmt.Fprintf(b, "%04d ", offset)
	line := chunk.LineAt(offset)
	if offset > 0 && line == chunk.LineAt(offset-1) {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(b, "%4d ", line)
	}

	op := Opcode(chunk.Code[offset])
	switch op {
	case OP_CONSTANT:
		return constantInstruction(b, op, chunk, offset, false, heap)
	case OP_CONSTANT_LONG:
		return constantInstruction(b, op, chunk, offset, true, heap)
	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP, OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN, OP_INHERIT, OP_HALT:
		return simpleInstruction(b, op, offset)
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(b, op, chunk, offset)
	case OP_GET_LOCAL_LONG, OP_SET_LOCAL_LONG:
		return longByteInstruction(b, op, chunk, offset)
	case OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_DEFINE_CONST_GLOBAL, OP_GET_PROPERTY, OP_SET_PROPERTY,
		OP_CLASS, OP_METHOD, OP_GET_SUPER:
		return constantInstruction(b, op, chunk, offset, false, heap)
	case OP_DEFINE_GLOBAL_LONG, OP_GET_GLOBAL_LONG, OP_SET_GLOBAL_LONG,
		OP_DEFINE_CONST_GLOBAL_LONG:
		return constantInstruction(b, op, chunk, offset, true, heap)
	case OP_INVOKE, OP_SUPER_INVOKE:
		return invokeInstruction(b, op, chunk, offset, heap)
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_BREAK:
		return jumpInstruction(b, op, 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(b, op, -1, chunk, offset)
	case OP_CLOSURE:
		return closureInstruction(b, chunk, offset, heap)
	default:
		fmt.Fprintf(b, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(b *strings.Builder, op Opcode, offset int) int {
	fmt.Fprintf(b, "%s\n", op)
	return offset + 1
}

func byteInstruction(b *strings.Builder, op Opcode, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-18s %4d\n", op, slot)
	return offset + 2
}

func longByteInstruction(b *strings.Builder, op Opcode, chunk *Chunk, offset int) int {
	idx := chunk.ReadConstantIndexLong(offset + 1)
	fmt.Fprintf(b, "%-18s %4d\n", op, idx)
	return offset + 4
}

func constantInstruction(b *strings.Builder, op Opcode, chunk *Chunk, offset int, long bool, heap *Heap) int {
	var idx int
	width := 2
	if long {
		idx = chunk.ReadConstantIndexLong(offset + 1)
		width = 4
	} else {
		idx = chunk.ReadConstantIndex(offset + 1)
	}
	fmt.Fprintf(b, "%-18s %4d '%s'\n", op, idx, chunk.Constants[idx].String(heap))
	return offset + width
}

func invokeInstruction(b *strings.Builder, op Opcode, chunk *Chunk, offset int, heap *Heap) int {
	constIdx := chunk.ReadConstantIndex(offset + 1)
	argCount := chunk.Code[offset+2]
	fmt.Fprintf(b, "%-18s (%d args) %4d '%s'\n", op, argCount, constIdx, chunk.Constants[constIdx].String(heap))
	return offset + 3
}

func jumpInstruction(b *strings.Builder, op Opcode, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(b, "%-18s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func closureInstruction(b *strings.Builder, chunk *Chunk, offset int, heap *Heap) int {
	offset++
	constIdx := int(chunk.Code[offset])
	offset++
	fmt.Fprintf(b, "%-18s %4d '%s'\n", OP_CLOSURE, constIdx, chunk.Constants[constIdx].String(heap))

	fn, _ := heap.Function(chunk.Constants[constIdx].Handle)
	if fn != nil {
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := chunk.Code[offset]
			offset++
			index := chunk.Code[offset]
			offset++
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(b, "%04d      |                     %s %d\n", offset-2, kind, index)
		}
	}
	return offset
}
