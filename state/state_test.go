package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"sleigh/spec"
	"sleigh/state"
)

func contextSpec(endian spec.Endianness, signed bool) *spec.Spec {
	return &spec.Spec{
		Endianness: endian,
		Registers:  []spec.Register{{Name: "ctxreg", Offset: 0, Size: 4}},
		Contexts: []spec.Context{
			{Register: "ctxreg", Fields: []spec.ContextField{
				{Name: "mode", Start: 0, End: 3, Signed: signed},
				{Name: "phase", Start: 4, End: 7},
			}},
		},
	}
}

func TestSetContext_RoundTrips(t *testing.T) {
	for _, endian := range []spec.Endianness{spec.LittleEndian, spec.BigEndian} {
		sp := contextSpec(endian, false)
		s := state.New(sp, nil)

		require.NoError(t, s.SetContext("mode", big.NewInt(9)))
		v, ok := s.FieldValue("mode")
		require.True(t, ok)
		require.Equal(t, int64(9), v.Int64())
	}
}

func TestSetContext_DoesNotDisturbAdjacentField(t *testing.T) {
	sp := contextSpec(spec.LittleEndian, false)
	s := state.New(sp, nil)

	require.NoError(t, s.SetContext("mode", big.NewInt(0xF)))
	require.NoError(t, s.SetContext("phase", big.NewInt(0x3)))

	mode, _ := s.FieldValue("mode")
	phase, _ := s.FieldValue("phase")
	require.Equal(t, int64(0xF), mode.Int64())
	require.Equal(t, int64(0x3), phase.Int64())
}

func TestSetContext_SignedNegative(t *testing.T) {
	sp := contextSpec(spec.LittleEndian, true)
	s := state.New(sp, nil)

	require.NoError(t, s.SetContext("mode", big.NewInt(-1)))
	v, ok := s.FieldValue("mode")
	require.True(t, ok)
	require.Equal(t, int64(-1), v.Int64())
}

func TestSetContext_UndefinedField(t *testing.T) {
	sp := contextSpec(spec.LittleEndian, false)
	s := state.New(sp, nil)
	require.Error(t, s.SetContext("nope", big.NewInt(1)))
}

func TestNew_RegistersZeroInitialized(t *testing.T) {
	sp := contextSpec(spec.LittleEndian, false)
	s := state.New(sp, nil)
	v, ok := s.FieldValue("mode")
	require.True(t, ok)
	require.Equal(t, int64(0), v.Int64())
}

func tokenSpec() *spec.Spec {
	return &spec.Spec{
		Tokens: []spec.Token{
			{Name: "opbyte", Size: 8, Fields: []spec.TokenField{
				{Name: "opcode", Start: 0, End: 7},
			}},
		},
		Constructors: []spec.Constructor{
			{
				Header: spec.TableHeader{Table: "instruction", Mnemonic: "NOP"},
				Constraint: spec.ConstraintComparison{
					Lhs: "opcode", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0x90},
				},
			},
			{
				Header: spec.TableHeader{Table: "instruction", Mnemonic: "HLT"},
				Constraint: spec.ConstraintComparison{
					Lhs: "opcode", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0xF4},
				},
			},
		},
	}
}

func TestMatchConstructor_FirstMatchWins(t *testing.T) {
	sp := tokenSpec()
	// a later constructor that also matches 0x90 must not be chosen
	sp.Constructors = append(sp.Constructors, spec.Constructor{
		Header: spec.TableHeader{Table: "instruction", Mnemonic: "NOP_ALIAS"},
		Constraint: spec.ConstraintComparison{
			Lhs: "opcode", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0x90},
		},
	})
	s := state.New(sp, []byte{0x90})
	c, err := s.MatchConstructor("")
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "NOP", c.Header.Mnemonic)
}

func TestMatchConstructor_NoMatchReturnsNilNotError(t *testing.T) {
	sp := tokenSpec()
	s := state.New(sp, []byte{0x00})
	c, err := s.MatchConstructor("")
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestMatchConstructor_SemiAdvancesWindow(t *testing.T) {
	sp := &spec.Spec{
		Tokens: []spec.Token{
			{Name: "byte", Size: 8, Fields: []spec.TokenField{{Name: "b0", Start: 0, End: 7}}},
		},
		Constructors: []spec.Constructor{
			{Header: spec.TableHeader{Table: "prefix", Mnemonic: "LOCK"},
				Constraint: spec.ConstraintComparison{Lhs: "b0", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0xF0}}},
			{Header: spec.TableHeader{Table: "instruction", Mnemonic: "LOCKED_OP"},
				Constraint: spec.ConstraintSemi{
					Left:  spec.ConstraintExists{Name: "prefix"},
					Right: spec.ConstraintComparison{Lhs: "b0", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0x01}},
				}},
		},
	}
	s := state.New(sp, []byte{0xF0, 0x01})
	c, err := s.MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "LOCKED_OP", c.Header.Mnemonic)
}

func TestMatchConstructor_Ellipsis(t *testing.T) {
	sp := &spec.Spec{
		Tokens: []spec.Token{
			{Name: "byte", Size: 8, Fields: []spec.TokenField{{Name: "b0", Start: 0, End: 7}}},
		},
		Constructors: []spec.Constructor{
			{Header: spec.TableHeader{Table: "instruction", Mnemonic: "FOUND_FF"},
				Constraint: spec.ConstraintEllipsis{
					Inner: spec.ConstraintComparison{Lhs: "b0", Op: spec.CmpEqual, Rhs: spec.ConstraintRValueInteger{Value: 0xFF}},
				}},
		},
	}
	s := state.New(sp, []byte{0x00, 0x00, 0xFF})
	c, err := s.MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestMatchConstructor_ComparisonOperators(t *testing.T) {
	sp := &spec.Spec{
		Tokens: []spec.Token{
			{Name: "byte", Size: 8, Fields: []spec.TokenField{{Name: "b0", Start: 0, End: 7}}},
		},
		Constructors: []spec.Constructor{
			{Header: spec.TableHeader{Table: "instruction", Mnemonic: "GE10"},
				Constraint: spec.ConstraintComparison{Lhs: "b0", Op: spec.CmpGreaterEqual, Rhs: spec.ConstraintRValueInteger{Value: 10}}},
		},
	}
	s := state.New(sp, []byte{9})
	c, _ := s.MatchConstructor("instruction")
	require.Nil(t, c)

	s2 := state.New(sp, []byte{10})
	c2, _ := s2.MatchConstructor("instruction")
	require.NotNil(t, c2)
}

func TestWithCode_PreservesRegisters(t *testing.T) {
	sp := contextSpec(spec.LittleEndian, false)
	s := state.New(sp, []byte{1, 2})
	require.NoError(t, s.SetContext("mode", big.NewInt(5)))

	next := s.WithCode([]byte{3, 4})
	v, ok := next.FieldValue("mode")
	require.True(t, ok)
	require.Equal(t, int64(5), v.Int64())
}
