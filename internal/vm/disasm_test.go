package vm

import (
	"strings"
	"testing"
)

func TestDisassembleSimpleChunk(t *testing.T) {
	heap := NewHeap()
	c := NewChunk("main")
	idx := c.AddConstant(NumberVal(1.5))
	c.WriteConstant(idx, 1)
	c.WriteOp(OP_NEGATE, 1)
	c.WriteOp(OP_RETURN, 2)

	out := Disassemble(c, "main", heap)
	if !strings.HasPrefix(out, "== main ==\n") {
		t.Fatalf("missing header, got %q", out)
	}
	if !strings.Contains(out, "OP_CONSTANT") || !strings.Contains(out, "'1.5'") {
		t.Fatalf("missing constant line, got %q", out)
	}
	if !strings.Contains(out, "OP_NEGATE") {
		t.Fatalf("missing OP_NEGATE, got %q", out)
	}
	if !strings.Contains(out, "OP_RETURN") {
		t.Fatalf("missing OP_RETURN, got %q", out)
	}
}

func TestDisassembleRepeatsLineMarkerOnlyWhenLineChanges(t *testing.T) {
	heap := NewHeap()
	c := NewChunk("main")
	c.WriteOp(OP_NIL, 1)
	c.WriteOp(OP_POP, 1)
	c.WriteOp(OP_NIL, 2)

	out := Disassemble(c, "main", heap)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// lines[0] is the header.
	if !strings.Contains(lines[1], "   1 ") {
		t.Fatalf("first instruction should show line 1, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "   | ") {
		t.Fatalf("second instruction shares line 1, expected the '   | ' marker, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "   2 ") {
		t.Fatalf("third instruction should show the new line 2, got %q", lines[3])
	}
}

func TestDisassembleInstructionReturnsNextOffset(t *testing.T) {
	heap := NewHeap()
	c := NewChunk("main")
	c.WriteOp(OP_NIL, 1)
	c.WriteOp(OP_RETURN, 1)

	_, next := DisassembleInstruction(c, 0, heap)
	if next != 1 {
		t.Fatalf("got next offset %d, want 1", next)
	}
	text, next2 := DisassembleInstruction(c, 1, heap)
	if next2 != 2 {
		t.Fatalf("got next offset %d, want 2", next2)
	}
	if !strings.Contains(text, "OP_RETURN") {
		t.Fatalf("got %q", text)
	}
}
