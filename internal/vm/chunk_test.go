package vm

import "testing"

func TestChunkLineRunLengthEncoding(t *testing.T) {
	c := NewChunk("test")
	c.WriteOp(OP_NIL, 1)
	c.WriteOp(OP_NIL, 1)
	c.WriteOp(OP_NIL, 2)
	c.WriteOp(OP_NIL, 2)
	c.WriteOp(OP_NIL, 2)
	c.WriteOp(OP_NIL, 7)

	want := []int{1, 1, 2, 2, 2, 7}
	for offset, line := range want {
		if got := c.LineAt(offset); got != line {
			t.Fatalf("LineAt(%d) = %d, want %d", offset, got, line)
		}
	}
}

func TestChunkWriteConstantShortAndLongForm(t *testing.T) {
	c := NewChunk("test")
	idx := c.AddConstant(NumberVal(1))
	c.WriteConstant(idx, 1)
	if Opcode(c.Code[0]) != OP_CONSTANT {
		t.Fatalf("expected short OP_CONSTANT form for a small index")
	}
	if c.ReadConstantIndex(1) != idx {
		t.Fatalf("got %d, want %d", c.ReadConstantIndex(1), idx)
	}

	c2 := NewChunk("test")
	for i := 0; i < 300; i++ {
		c2.AddConstant(NumberVal(float64(i)))
	}
	idx2 := c2.AddConstant(NumberVal(999))
	c2.WriteConstant(idx2, 1)
	if Opcode(c2.Code[0]) != OP_CONSTANT_LONG {
		t.Fatalf("expected long OP_CONSTANT_LONG form for index %d", idx2)
	}
	if got := c2.ReadConstantIndexLong(1); got != idx2 {
		t.Fatalf("got %d, want %d", got, idx2)
	}
}
