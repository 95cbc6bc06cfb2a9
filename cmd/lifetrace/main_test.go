package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/scenario"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "scenario", "testdata", name)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRun_Passes(t *testing.T) {
	out, err := execute(t, "run", "--color", "off", testdata("escape.toml"))
	require.NoError(t, err)
	require.Contains(t, out, "escape once")
	require.Contains(t, out, "escape_called_twice")
	require.Contains(t, out, "9 steps, all passed")
}

func TestRun_PrintsState(t *testing.T) {
	out, err := execute(t, "run", "--state", testdata("scope_ref.toml"))
	require.NoError(t, err)
	require.Contains(t, out, "objects:")
	require.Contains(t, out, "collected")
	require.Contains(t, out, "references:\n  (none)")
}

func TestRun_ReportsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "bad"

[[step]]
op = "open"
scope = "a"
expect = "invalid_arg"
`), 0o644))

	out, err := execute(t, "run", path)
	require.Error(t, err)
	require.Equal(t, errors.KindExpectation, errors.KindOf(err))
	require.Contains(t, out, "FAIL")
	require.Contains(t, out, "(want invalid_arg)")
	require.Contains(t, out, "1 steps, 1 failed")
}

func TestRun_MissingFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	require.Equal(t, errors.KindInvalidData, errors.KindOf(err))
}

func TestSnapshot_WritesTrace(t *testing.T) {
	output := filepath.Join(t.TempDir(), "collected.msgpack")
	out, err := execute(t, "snapshot", testdata("collected.toml"), "-o", output)
	require.NoError(t, err)
	require.Contains(t, out, "wrote 15 steps")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	trace, err := scenario.ReadSnapshot(f)
	require.NoError(t, err)
	require.Equal(t, "wrapped object collected", trace.Name)
	require.Len(t, trace.Steps, 15)

	loaded, err := loadTrace(scenario.NewRunner(), output)
	require.NoError(t, err)
	require.Equal(t, trace.Name, loaded.Name)
}

func TestInspect_NeedsTerminal(t *testing.T) {
	saved := isTerminal
	isTerminal = func(*os.File) bool { return false }
	defer func() { isTerminal = saved }()

	_, err := execute(t, "inspect", testdata("escape.toml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "needs a terminal")
}

func TestInspectModel_Navigation(t *testing.T) {
	trace, err := loadTrace(scenario.NewRunner(), testdata("escape.toml"))
	require.NoError(t, err)
	m := newInspectModel(trace)

	press := func(k tea.KeyMsg) {
		_, _ = m.Update(k)
	}
	runes := func(s string) tea.KeyMsg {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}

	press(tea.KeyMsg{Type: tea.KeyDown})
	press(runes("j"))
	require.Equal(t, 2, m.cursor)

	press(runes("G"))
	require.Equal(t, len(trace.Steps)-1, m.cursor)
	press(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, len(trace.Steps)-1, m.cursor)

	press(runes("g"))
	require.Equal(t, 0, m.cursor)
	press(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 0, m.cursor)

	press(runes(":"))
	require.True(t, m.jumping)
	press(runes("6"))
	press(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.jumping)
	require.Equal(t, 5, m.cursor)
	require.Contains(t, m.View(), "escape_called_twice")

	press(runes(":"))
	press(runes("99"))
	press(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 5, m.cursor)
	require.Error(t, m.err)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	require.True(t, m.quitting)
	require.Empty(t, m.View())
}

func TestInspectModel_NextFailure(t *testing.T) {
	f, err := scenario.Parse(`
[[step]]
op = "gc"

[[step]]
op = "open"
scope = "a"
expect = "invalid_arg"

[[step]]
op = "gc"
`)
	require.NoError(t, err)
	trace, err := scenario.NewRunner().Run(f)
	require.NoError(t, err)

	m := newInspectModel(trace)
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	require.Equal(t, 1, m.cursor)
	require.True(t, strings.Contains(m.View(), "1 failed"))
}

func TestFormatState(t *testing.T) {
	got := formatState(scenario.State{Closed: true})
	require.Contains(t, got, "environment: torn down")
	require.Contains(t, got, "objects:\n  (none)")
}
