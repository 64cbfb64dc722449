package vm

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Line table decoding tests
// ---------------------------------------------------------------------------

func TestLineForOffset(t *testing.T) {
	// Lines 10, 12, 15 entered at byte offsets 0, 4, 9.
	code := &CodeObject{
		FirstLine: 10,
		LineTable: []byte{4, 2, 5, 3},
	}

	cases := []struct {
		offset int
		want   int
	}{
		{0, 10},
		{3, 10},
		{4, 12},
		{6, 12},
		{8, 12},
		{9, 15},
		{100, 15},
	}
	for _, c := range cases {
		if got := code.LineForOffset(c.offset); got != c.want {
			t.Errorf("LineForOffset(%d) = %d, want %d", c.offset, got, c.want)
		}
	}
}

func TestLineForOffsetEmptyTable(t *testing.T) {
	code := &CodeObject{FirstLine: 7}
	if got := code.LineForOffset(12); got != 7 {
		t.Errorf("LineForOffset with empty table = %d, want 7", got)
	}
}

func TestCodeBuilderMarkLine(t *testing.T) {
	b := NewCodeBuilder("body")
	b.MarkLine(10)
	b.Bytecode().EmitUint16(OpLoadConst, 0) // 3 bytes
	b.Bytecode().Emit(OpPop)                // 1 byte
	b.MarkLine(12)
	b.Bytecode().EmitUint16(OpLoadConst, 1)
	b.Bytecode().Emit(OpReturn)
	b.MarkLine(15)
	code := b.Build()

	if code.FirstLine != 10 {
		t.Errorf("FirstLine = %d, want 10", code.FirstLine)
	}
	if got := code.LineForOffset(0); got != 10 {
		t.Errorf("line at 0 = %d, want 10", got)
	}
	if got := code.LineForOffset(5); got != 12 {
		t.Errorf("line at 5 = %d, want 12", got)
	}
}

// ---------------------------------------------------------------------------
// Code object metadata tests
// ---------------------------------------------------------------------------

func TestDocString(t *testing.T) {
	code := &CodeObject{Consts: []Value{StrValue("does a thing"), IntValue(1)}}
	if got := code.DocString(); got != "does a thing" {
		t.Errorf("DocString = %q, want %q", got, "does a thing")
	}

	noDoc := &CodeObject{Consts: []Value{IntValue(1)}}
	if got := noDoc.DocString(); got != "" {
		t.Errorf("DocString = %q, want empty", got)
	}
}

func TestConstAndNameDedup(t *testing.T) {
	code := &CodeObject{}
	a := code.ConstIndex(IntValue(5))
	b := code.ConstIndex(IntValue(5))
	if a != b {
		t.Errorf("duplicate const got indices %d and %d", a, b)
	}
	c := code.ConstIndex(StrValue("5"))
	if c == a {
		t.Error("str and int constants must not collapse")
	}

	n1 := code.NameIndex("x")
	n2 := code.NameIndex("x")
	if n1 != n2 {
		t.Errorf("duplicate name got indices %d and %d", n1, n2)
	}
}

func TestIsGenerator(t *testing.T) {
	plain := &CodeObject{}
	if plain.IsGenerator() {
		t.Error("plain body should not be a generator")
	}
	gen := &CodeObject{Flags: FlagGenerator}
	if !gen.IsGenerator() {
		t.Error("flagged body should be a generator")
	}
}
