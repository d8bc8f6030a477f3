package preprocess_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sleigh/preprocess"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPreprocess_DefineAndInterpolate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.sla", "@define WIDTH \"32\"\ndefine space ram type=ram_space size=$(WIDTH);\n")

	out, err := preprocess.Preprocess(dir, "main.sla")
	require.NoError(t, err)
	require.Contains(t, out, "size=32")
}

func TestPreprocess_Include(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.sla", "define alignment=1;\n")
	writeFile(t, dir, "main.sla", "@include \"base.sla\"\ndefine endian=little;\n")

	out, err := preprocess.Preprocess(dir, "main.sla")
	require.NoError(t, err)
	require.Contains(t, out, "define alignment=1;")
	require.Contains(t, out, "define endian=little;")
}

func TestPreprocess_IfdefTakesActiveBranch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.sla", "@define X86\n@ifdef X86\ndefine alignment=1;\n@else\ndefine alignment=2;\n@endif\n")

	out, err := preprocess.Preprocess(dir, "main.sla")
	require.NoError(t, err)
	require.Contains(t, out, "alignment=1;")
	require.NotContains(t, out, "alignment=2;")
}

func TestPreprocess_IfndefSkipsInactiveBranch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.sla", "@ifndef ARM\ndefine alignment=1;\n@endif\n")

	out, err := preprocess.Preprocess(dir, "main.sla")
	require.NoError(t, err)
	require.Contains(t, out, "alignment=1;")
}

func TestPreprocess_UndefinedInterpolationErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.sla", "define alignment=$(MISSING);\n")

	_, err := preprocess.Preprocess(dir, "main.sla")
	require.Error(t, err)
}

func TestPreprocess_UnterminatedIfErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.sla", "@ifdef X\ndefine alignment=1;\n")

	_, err := preprocess.Preprocess(dir, "main.sla")
	require.Error(t, err)
}
