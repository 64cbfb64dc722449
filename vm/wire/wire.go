// Package wire defines the serialized form of compiled Opal code.
//
// Code objects and images are encoded as canonical CBOR so that equal
// inputs always produce byte-identical encodings, which content-addressed
// storage depends on. The raw delta-encoded line table is carried through
// untouched: its byte layout is a fidelity boundary for source-location
// diagnostics.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/opal/vm"
)

// FormatVersion is bumped on incompatible changes to the wire structs.
const FormatVersion = 1

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ---------------------------------------------------------------------------
// Wire structs
// ---------------------------------------------------------------------------

// Constant kind tags. Only code-object constants are representable on the
// wire: runtime-only kinds (cells, frames, generators) never appear in a
// constant pool.
const (
	ConstNil byte = iota
	ConstTrue
	ConstFalse
	ConstInt
	ConstFloat
	ConstStr
	ConstTuple
	ConstCode
)

// Const is the tagged wire form of one constant-pool entry.
type Const struct {
	Kind  byte    `cbor:"k"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Str   string  `cbor:"s,omitempty"`
	Tuple []Const `cbor:"t,omitempty"`
	Code  *Code   `cbor:"c,omitempty"`
}

// Code is the wire form of a vm.CodeObject.
type Code struct {
	Name     string `cbor:"name"`
	Filename string `cbor:"file,omitempty"`

	Params   []string `cbor:"params,omitempty"`
	CellVars []string `cbor:"cellvars,omitempty"`
	FreeVars []string `cbor:"freevars,omitempty"`
	Names    []string `cbor:"names,omitempty"`

	Consts   []Const `cbor:"consts,omitempty"`
	Bytecode []byte  `cbor:"bytecode"`

	Flags     uint32 `cbor:"flags,omitempty"`
	FirstLine int    `cbor:"firstline,omitempty"`
	LineTable []byte `cbor:"linetable,omitempty"`
}

// Image is a named, identified bundle of top-level code objects.
type Image struct {
	ID      string  `cbor:"id"`
	Version int     `cbor:"version"`
	Name    string  `cbor:"name"`
	Codes   []*Code `cbor:"codes"`
}

// NewImage creates an image with a fresh UUID identity.
func NewImage(name string, codes ...*vm.CodeObject) (*Image, error) {
	img := &Image{
		ID:      uuid.NewString(),
		Version: FormatVersion,
		Name:    name,
	}
	for _, code := range codes {
		wc, err := EncodeCode(code)
		if err != nil {
			return nil, err
		}
		img.Codes = append(img.Codes, wc)
	}
	return img, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// EncodeCode converts a runtime code object to its wire form.
func EncodeCode(code *vm.CodeObject) (*Code, error) {
	consts := make([]Const, len(code.Consts))
	for i, v := range code.Consts {
		c, err := encodeConst(v)
		if err != nil {
			return nil, fmt.Errorf("wire: code %s const %d: %w", code.Name, i, err)
		}
		consts[i] = c
	}
	return &Code{
		Name:      code.Name,
		Filename:  code.Filename,
		Params:    code.Params,
		CellVars:  code.CellVars,
		FreeVars:  code.FreeVars,
		Names:     code.Names,
		Consts:    consts,
		Bytecode:  code.Bytecode,
		Flags:     uint32(code.Flags),
		FirstLine: code.FirstLine,
		LineTable: code.LineTable,
	}, nil
}

func encodeConst(v vm.Value) (Const, error) {
	switch x := v.(type) {
	case vm.NilValue:
		return Const{Kind: ConstNil}, nil
	case vm.BoolValue:
		if x {
			return Const{Kind: ConstTrue}, nil
		}
		return Const{Kind: ConstFalse}, nil
	case vm.IntValue:
		return Const{Kind: ConstInt, Int: int64(x)}, nil
	case vm.FloatValue:
		return Const{Kind: ConstFloat, Float: float64(x)}, nil
	case vm.StrValue:
		return Const{Kind: ConstStr, Str: string(x)}, nil
	case vm.TupleValue:
		items := make([]Const, len(x))
		for i, item := range x {
			c, err := encodeConst(item)
			if err != nil {
				return Const{}, err
			}
			items[i] = c
		}
		return Const{Kind: ConstTuple, Tuple: items}, nil
	case *vm.CodeObject:
		wc, err := EncodeCode(x)
		if err != nil {
			return Const{}, err
		}
		return Const{Kind: ConstCode, Code: wc}, nil
	default:
		return Const{}, fmt.Errorf("unencodable constant kind %s", v.Type())
	}
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// DecodeCode converts a wire code object back to its runtime form.
func DecodeCode(wc *Code) (*vm.CodeObject, error) {
	consts := make([]vm.Value, len(wc.Consts))
	for i, c := range wc.Consts {
		v, err := decodeConst(c)
		if err != nil {
			return nil, fmt.Errorf("wire: code %s const %d: %w", wc.Name, i, err)
		}
		consts[i] = v
	}
	return &vm.CodeObject{
		Name:      wc.Name,
		Filename:  wc.Filename,
		Params:    wc.Params,
		CellVars:  wc.CellVars,
		FreeVars:  wc.FreeVars,
		Names:     wc.Names,
		Consts:    consts,
		Bytecode:  wc.Bytecode,
		Flags:     vm.CodeFlags(wc.Flags),
		FirstLine: wc.FirstLine,
		LineTable: wc.LineTable,
	}, nil
}

func decodeConst(c Const) (vm.Value, error) {
	switch c.Kind {
	case ConstNil:
		return vm.Nil, nil
	case ConstTrue:
		return vm.True, nil
	case ConstFalse:
		return vm.False, nil
	case ConstInt:
		return vm.IntValue(c.Int), nil
	case ConstFloat:
		return vm.FloatValue(c.Float), nil
	case ConstStr:
		return vm.StrValue(c.Str), nil
	case ConstTuple:
		items := make(vm.TupleValue, len(c.Tuple))
		for i, item := range c.Tuple {
			v, err := decodeConst(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case ConstCode:
		if c.Code == nil {
			return nil, fmt.Errorf("code constant with no body")
		}
		return DecodeCode(c.Code)
	default:
		return nil, fmt.Errorf("unknown constant kind %d", c.Kind)
	}
}

// ---------------------------------------------------------------------------
// Marshalling
// ---------------------------------------------------------------------------

// MarshalCode serializes a runtime code object to canonical CBOR bytes.
func MarshalCode(code *vm.CodeObject) ([]byte, error) {
	wc, err := EncodeCode(code)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(wc)
}

// UnmarshalCode deserializes a runtime code object from CBOR bytes.
func UnmarshalCode(data []byte) (*vm.CodeObject, error) {
	var wc Code
	if err := cbor.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("wire: unmarshal code: %w", err)
	}
	return DecodeCode(&wc)
}

// MarshalImage serializes an Image to canonical CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("wire: unmarshal image: %w", err)
	}
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("wire: unsupported image version %d (want %d)", img.Version, FormatVersion)
	}
	if _, err := uuid.Parse(img.ID); err != nil {
		return nil, fmt.Errorf("wire: invalid image id %q: %w", img.ID, err)
	}
	return &img, nil
}
