package sleighparser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sleigh/preprocess"
	"sleigh/sleighparser"
	"sleigh/spec"
	"sleigh/state"
)

func writeSpecFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// S1: one Token op(8): opcode=(0,7), one constructor ":NOP is opcode=0x90 {}".
// [0x90] matches, [0x91] doesn't.
func TestEndToEnd_S1_NOP(t *testing.T) {
	src := "define token op(8) opcode=(0,7);\n" +
		":NOP is opcode=0x90 {}\n"

	sp, err := sleighparser.Parse(src)
	require.NoError(t, err)
	require.Len(t, sp.Constructors, 1)

	ok, err := state.New(sp, []byte{0x90}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, ok)
	require.Equal(t, "NOP", ok.Header.Mnemonic)

	noMatch, err := state.New(sp, []byte{0x91}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.Nil(t, noMatch)
}

// S2: a=1 | b=2 & c=3 (written here as ||/&& per spec.md §4.B's operator
// table) must parse as a=1 || (b=2 && c=3) after the precedence fix, so
// [a=1,b=9,c=9] and [a=0,b=2,c=3] both match.
func TestEndToEnd_S2_OrPrecedence(t *testing.T) {
	src := "define token op(24) a=(0,7) b=(8,15) c=(16,23);\n" +
		":OP is a=1 || b=2 && c=3 {}\n"

	sp, err := sleighparser.Parse(src)
	require.NoError(t, err)
	require.Len(t, sp.Constructors, 1)

	and, ok := sp.Constructors[0].Constraint.(spec.ConstraintOr)
	require.True(t, ok, "expected top-level Or after precedence fix, got %T", sp.Constructors[0].Constraint)
	_, rightIsAnd := and.Right.(spec.ConstraintAnd)
	require.True(t, rightIsAnd, "expected b=2 && c=3 nested under the Or's right side")

	m1, err := state.New(sp, []byte{0x01, 0x09, 0x09}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, m1)

	m2, err := state.New(sp, []byte{0x00, 0x02, 0x03}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, m2)

	noMatch, err := state.New(sp, []byte{0x00, 0x02, 0x00}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.Nil(t, noMatch)
}

// S3: two consecutive tokens t1(8), t2(8); ":X is t1=1 ; t2=2 {}". Matches
// [0x01,0x02], fails [0x02,0x01], fails [0x01] (too short).
func TestEndToEnd_S3_SemiAdvances(t *testing.T) {
	src := "define token t1(8) v1=(0,7);\n" +
		"define token t2(8) v2=(0,7);\n" +
		":X is v1=1 ; v2=2 {}\n"

	sp, err := sleighparser.Parse(src)
	require.NoError(t, err)

	m, err := state.New(sp, []byte{0x01, 0x02}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, m)

	noMatch, err := state.New(sp, []byte{0x02, 0x01}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.Nil(t, noMatch)

	tooShort, err := state.New(sp, []byte{0x01}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.Nil(t, tooShort)
}

// S4: table sub has a constructor matching x=0; the instruction constructor
// references sub by name (an Exists constraint). Matching succeeds iff a
// constructor in sub matches the current window.
func TestEndToEnd_S4_SubTableExists(t *testing.T) {
	src := "define token op(8) x=(0,7);\n" +
		"sub: is x=0 {}\n" +
		":USES_SUB is sub {}\n"

	sp, err := sleighparser.Parse(src)
	require.NoError(t, err)

	m, err := state.New(sp, []byte{0x00}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "USES_SUB", m.Header.Mnemonic)

	noMatch, err := state.New(sp, []byte{0x01}).MatchConstructor("instruction")
	require.NoError(t, err)
	require.Nil(t, noMatch)
}

// S5: macro M(r) { r = r + 1; }, constructor body M(R0); M(R0);. After
// expansion the two local introductions of r carry distinct renamed names.
func TestEndToEnd_S5_MacroExpansionHygiene(t *testing.T) {
	src := "define token op(8) x=(0,7);\n" +
		"macro M(r) {\n" +
		"  r = r + 1;\n" +
		"}\n" +
		":BUMP is x=0 {\n" +
		"  M(R0);\n" +
		"  M(R0);\n" +
		"}\n"

	sp, err := sleighparser.Parse(src)
	require.NoError(t, err)
	require.Len(t, sp.Constructors, 1)

	actions := sp.Constructors[0].Actions
	require.Len(t, actions, 4)

	first, ok := actions[0].(spec.ActionLocalDecl)
	require.True(t, ok)
	second, ok := actions[2].(spec.ActionLocalDecl)
	require.True(t, ok)

	require.NotEqual(t, first.Name.Name, second.Name.Name)
	require.NotEqual(t, "r", first.Name.Name)
	require.NotEqual(t, "r", second.Name.Name)

	assign1, ok := actions[1].(spec.ActionAssignment)
	require.True(t, ok)
	target1, ok := assign1.Target.(spec.LValueIdent)
	require.True(t, ok)
	require.Equal(t, first.Name.Name, target1.Name)
}

// S6: file A defines NAME=FOO and includes B; B contains $(NAME). The
// preprocessor output contains the literal FOO.
func TestEndToEnd_S6_IncludeAndDefine(t *testing.T) {
	dir := t.TempDir()
	writeSpecFile(t, dir, "b.sla", "define token op(8) x=(0,7);\n:$(NAME) is x=0 {}\n")
	writeSpecFile(t, dir, "a.sla", "@define NAME \"FOO\"\n@include \"b.sla\"\n")

	out, err := preprocess.Preprocess(dir, "a.sla")
	require.NoError(t, err)
	require.Contains(t, out, "FOO")

	sp, err := sleighparser.Parse(out)
	require.NoError(t, err)
	require.Len(t, sp.Constructors, 1)
	require.Equal(t, "FOO", sp.Constructors[0].Header.Mnemonic)
}
