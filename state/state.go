// Package state implements the per-decoding-session context/register state
// (spec.md §4.F) and the constructor matcher (spec.md §4.G), grounded on
// original_source/src/state.rs and
// original_source/src/spec/constraint/matches.rs.
//
// Context values are represented with math/big.Int rather than a fixed
// machine width, since SLEIGH context registers may be declared wider than
// 64 bits; no arbitrary-precision library is used anywhere else in the
// retrieved example pack, so this one is a deliberate standard-library
// choice (see DESIGN.md).
package state

import (
	"math/big"

	"sleigh/sleigherr"
	"sleigh/spec"
)

// State is a snapshot-able decoding session: a byte window into the
// instruction stream plus a map from register name to its current byte
// buffer.
type State struct {
	Spec      *spec.Spec
	Code      []byte
	Registers map[string][]byte
}

// New creates a decoding session over code. Every register declared in sp
// starts zero-initialized — spec.md §4.F/§6 state this explicitly, which
// this implementation follows over original_source/src/state.rs's
// `vec![0x6; size]` literal (see DESIGN.md).
func New(sp *spec.Spec, code []byte) *State {
	regs := make(map[string][]byte, len(sp.Registers))
	for _, r := range sp.Registers {
		regs[r.Name] = make([]byte, r.Size)
	}
	return &State{Spec: sp, Code: code, Registers: regs}
}

// withCode returns a new State sharing this one's Spec and Registers but
// viewing a different byte window — used to advance past a Semi boundary
// or to probe an Ellipsis offset without disturbing the caller's State.
func (s *State) withCode(code []byte) *State {
	return &State{Spec: s.Spec, Code: code, Registers: s.Registers}
}

// WithCode is the exported form of withCode, for callers (such as an
// interactive REPL) that want to match successive instruction windows
// against one persistent set of context register values.
func (s *State) WithCode(code []byte) *State {
	return s.withCode(code)
}

// SetContext mutates the named ContextField's bits in its owning
// register's buffer, leaving every other bit untouched. The map and the
// affected buffer are copied before mutation (copy-on-write), so any State
// sharing the old Registers map via withCode is unaffected.
func (s *State) SetContext(name string, value *big.Int) error {
	found := false
	regs := make(map[string][]byte, len(s.Registers))
	for k, v := range s.Registers {
		regs[k] = v
	}
	for _, ctx := range s.Spec.Contexts {
		for _, f := range ctx.Fields {
			if f.Name != name {
				continue
			}
			found = true
			buf := append([]byte{}, regs[ctx.Register]...)
			buf = writeBits(buf, f.Start, f.End, value, s.Spec.Endianness)
			regs[ctx.Register] = buf
		}
	}
	if !found {
		return sleigherr.UndefinedSymbolError{Kind: "context field", Name: name}
	}
	s.Registers = regs
	return nil
}

// FieldValue looks up name first among Token fields (read from the code
// window), then Context fields (read from the register buffer). It
// returns (value, true) or (nil, false) if name is undeclared or the
// backing buffer is too short to contain the field.
func (s *State) FieldValue(name string) (*big.Int, bool) {
	if field, tok := s.Spec.FindTokenField(name); field != nil {
		nbytes := tok.Size / 8
		if len(s.Code) < nbytes {
			return nil, false
		}
		return extractBits(s.Code[:nbytes], field.Start, field.End, field.Signed, s.Spec.Endianness), true
	}
	if field, ctx := s.Spec.FindContextField(name); field != nil {
		buf, ok := s.Registers[ctx.Register]
		if !ok || len(buf)*8 <= field.End {
			return nil, false
		}
		return extractBits(buf, field.Start, field.End, field.Signed, s.Spec.Endianness), true
	}
	return nil, false
}

// TokenLen returns the byte width of the Token that declares fieldName, or
// (0, false) if fieldName is not a token field.
func (s *State) TokenLen(fieldName string) (int, bool) {
	field, tok := s.Spec.FindTokenField(fieldName)
	if field == nil {
		return 0, false
	}
	return tok.Size / 8, true
}

func bufferToInt(buf []byte, endian spec.Endianness) *big.Int {
	v := new(big.Int)
	if endian == spec.LittleEndian {
		rev := make([]byte, len(buf))
		for i, b := range buf {
			rev[len(buf)-1-i] = b
		}
		v.SetBytes(rev)
	} else {
		v.SetBytes(buf)
	}
	return v
}

func intToBuffer(v *big.Int, size int, endian spec.Endianness) []byte {
	raw := v.Bytes()
	buf := make([]byte, size)
	// right-align raw (big-endian natural form) into buf's low-order bytes
	copy(buf[size-len(raw):], raw)
	if endian == spec.LittleEndian {
		rev := make([]byte, size)
		for i, b := range buf {
			rev[size-1-i] = b
		}
		return rev
	}
	return buf
}

func bitMask(width int) *big.Int {
	one := big.NewInt(1)
	return new(big.Int).Sub(new(big.Int).Lsh(one, uint(width)), one)
}

func extractBits(buf []byte, start, end int, signed bool, endian spec.Endianness) *big.Int {
	v := bufferToInt(buf, endian)
	width := end - start + 1
	v.Rsh(v, uint(start))
	v.And(v, bitMask(width))
	if signed {
		signBit := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
		if v.Cmp(signBit) >= 0 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(width))
			v.Sub(v, full)
		}
	}
	return v
}

func writeBits(buf []byte, start, end int, value *big.Int, endian spec.Endianness) []byte {
	width := end - start + 1
	mask := bitMask(width)

	masked := new(big.Int).And(value, mask)
	shifted := new(big.Int).Lsh(masked, uint(start))
	maskAtPos := new(big.Int).Lsh(mask, uint(start))

	current := bufferToInt(buf, endian)
	current.AndNot(current, maskAtPos)
	current.Or(current, shifted)
	return intToBuffer(current, len(buf), endian)
}
