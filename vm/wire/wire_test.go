package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chazu/opal/vm"
)

func sampleCode() *vm.CodeObject {
	inner := &vm.CodeObject{
		Name:     "inner",
		FreeVars: []string{"n"},
		Consts:   []vm.Value{vm.Nil},
		Bytecode: []byte{byte(vm.OpLoadDeref), 0, 0, byte(vm.OpReturn)},
	}
	return &vm.CodeObject{
		Name:     "outer",
		Filename: "sample.op",
		Params:   []string{"a", "b"},
		CellVars: []string{"n"},
		Names:    []string{"n", "inner"},
		Consts: []vm.Value{
			vm.StrValue("doc"),
			vm.IntValue(42),
			vm.FloatValue(1.5),
			vm.True,
			vm.TupleValue{vm.IntValue(1), vm.StrValue("x"), vm.Nil},
			inner,
		},
		Bytecode:  []byte{byte(vm.OpLoadConst), 1, 0, byte(vm.OpReturn)},
		Flags:     vm.FlagGenerator,
		FirstLine: 10,
		LineTable: []byte{4, 2, 5, 3},
	}
}

// ---------------------------------------------------------------------------
// Code round-trip tests
// ---------------------------------------------------------------------------

func TestCodeRoundTrip(t *testing.T) {
	orig := sampleCode()
	data, err := MarshalCode(orig)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	got, err := UnmarshalCode(data)
	if err != nil {
		t.Fatalf("UnmarshalCode failed: %v", err)
	}

	if got.Name != orig.Name || got.Filename != orig.Filename {
		t.Errorf("identity = %s/%s, want %s/%s", got.Name, got.Filename, orig.Name, orig.Filename)
	}
	if len(got.Params) != 2 || got.Params[0] != "a" {
		t.Errorf("Params = %v, want [a b]", got.Params)
	}
	if got.Flags != vm.FlagGenerator {
		t.Errorf("Flags = %v, want generator flag", got.Flags)
	}
	if !bytes.Equal(got.Bytecode, orig.Bytecode) {
		t.Errorf("Bytecode = %v, want %v", got.Bytecode, orig.Bytecode)
	}
	for i := range orig.Consts[:5] {
		if !vm.Equal(got.Consts[i], orig.Consts[i]) {
			t.Errorf("const %d = %v, want %v", i, got.Consts[i], orig.Consts[i])
		}
	}
}

func TestLineTableCarriedVerbatim(t *testing.T) {
	orig := sampleCode()
	data, err := MarshalCode(orig)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	got, err := UnmarshalCode(data)
	if err != nil {
		t.Fatalf("UnmarshalCode failed: %v", err)
	}

	if got.FirstLine != 10 {
		t.Errorf("FirstLine = %d, want 10", got.FirstLine)
	}
	if !bytes.Equal(got.LineTable, orig.LineTable) {
		t.Errorf("LineTable = %v, want %v byte-for-byte", got.LineTable, orig.LineTable)
	}
	// The decoded table still resolves offsets.
	if line := got.LineForOffset(6); line != 12 {
		t.Errorf("LineForOffset(6) = %d, want 12", line)
	}
}

func TestNestedCodeConstRoundTrip(t *testing.T) {
	orig := sampleCode()
	data, err := MarshalCode(orig)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	got, err := UnmarshalCode(data)
	if err != nil {
		t.Fatalf("UnmarshalCode failed: %v", err)
	}

	inner, ok := got.Consts[5].(*vm.CodeObject)
	if !ok {
		t.Fatalf("const 5 = %T, want *vm.CodeObject", got.Consts[5])
	}
	if inner.Name != "inner" || len(inner.FreeVars) != 1 || inner.FreeVars[0] != "n" {
		t.Errorf("nested code = %s freevars %v, want inner [n]", inner.Name, inner.FreeVars)
	}
}

func TestMarshalCodeIsCanonical(t *testing.T) {
	code := sampleCode()
	a, err := MarshalCode(code)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	b, err := MarshalCode(code)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding must be byte-identical across calls")
	}
}

func TestUnencodableConst(t *testing.T) {
	code := &vm.CodeObject{
		Name:   "bad",
		Consts: []vm.Value{vm.NewFunction("f", &vm.CodeObject{Name: "f"}, nil, nil, nil)},
	}
	if _, err := MarshalCode(code); err == nil {
		t.Fatal("function constants must not be encodable")
	}
}

func TestDecodeUnknownConstKind(t *testing.T) {
	if _, err := decodeConst(Const{Kind: 0xFF}); err == nil {
		t.Fatal("unknown constant kind should fail to decode")
	}
}

// ---------------------------------------------------------------------------
// Image tests
// ---------------------------------------------------------------------------

func TestImageRoundTrip(t *testing.T) {
	img, err := NewImage("base", sampleCode())
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	if _, err := uuid.Parse(img.ID); err != nil {
		t.Errorf("image ID %q is not a UUID: %v", img.ID, err)
	}

	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage failed: %v", err)
	}
	got, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage failed: %v", err)
	}
	if got.ID != img.ID || got.Name != "base" || len(got.Codes) != 1 {
		t.Errorf("image = %s/%s with %d codes, want %s/base with 1", got.ID, got.Name, len(got.Codes), img.ID)
	}
}

func TestUnmarshalImageRejectsBadVersion(t *testing.T) {
	img, err := NewImage("base")
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	img.Version = FormatVersion + 1
	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage failed: %v", err)
	}
	_, err = UnmarshalImage(data)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("error = %v, want a version rejection", err)
	}
}

func TestUnmarshalImageRejectsBadID(t *testing.T) {
	img, err := NewImage("base")
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	img.ID = "not-a-uuid"
	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage failed: %v", err)
	}
	if _, err := UnmarshalImage(data); err == nil {
		t.Error("malformed image id should be rejected")
	}
}
