package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/env/jsproc"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := jsproc.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(context.Background(), append([]string{"code-squad-cli"}, args...))
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := runApp(t, "", "list")
	require.NoError(t, err)

	var cs []model.Challenge
	require.NoError(t, json.Unmarshal([]byte(out), &cs))
	require.Len(t, cs, 5)
	require.Equal(t, "hello-world-typo", cs[0].ID)
}

func TestShow(t *testing.T) {
	out, err := runApp(t, "", "show", "simple-add")
	require.NoError(t, err)

	var c model.Challenge
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	require.Equal(t, "add", c.FunctionName)
	require.Contains(t, c.InitialCode, "function add")

	_, err = runApp(t, "", "show", "nope")
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	p := filepath.Join(t.TempDir(), "add.js")
	require.NoError(t, os.WriteFile(p, []byte("function add(a, b) { return a + b; }"), 0o644))

	out, err := runApp(t, "", "run", "--challenge", "simple-add", p)
	require.NoError(t, err)
	var resp model.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.AllPassed)
	require.Len(t, resp.Results, 3)
}

func TestRunStdin(t *testing.T) {
	out, err := runApp(t, "function add(a, b) { return a - b; }", "run", "--challenge", "simple-add", "-")
	require.True(t, errors.Is(err, errNotPassed), "got %v", err)
	var resp model.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.False(t, resp.AllPassed)
}

func TestRunNotFound(t *testing.T) {
	out, err := runApp(t, "function f() {}", "run", "--challenge", "nope", "-")
	require.True(t, errors.Is(err, errNotPassed), "got %v", err)
	var resp model.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "Challenge with ID 'nope' not found.", resp.Error)
}

func TestPrinterText(t *testing.T) {
	var out bytes.Buffer
	p := &printer{
		w:     &out,
		pass:  fmtAll,
		fail:  fmtAll,
		faint: fmtAll,
		title: fmtAll,
	}
	require.NoError(t, p.response(&model.Response{
		Success: true,
		Completed: &model.Completed{
			Results: []model.TestResult{
				{Input: []json.RawMessage{json.RawMessage("1"), json.RawMessage("2")}, Expected: json.RawMessage("3"), Output: json.RawMessage("-1")},
				{Input: []json.RawMessage{json.RawMessage("0")}, Expected: json.RawMessage("0"), ErrorKind: "Timeout", Error: "Script execution timed out after 500ms"},
				{Input: []json.RawMessage{}, Expected: json.RawMessage("null")},
			},
		},
	}))
	want := "FAIL case 1: input (1, 2)\n" +
		"     expected 3, got -1\n" +
		"FAIL case 2: input (0)\n" +
		"     Timeout: Script execution timed out after 500ms\n" +
		"FAIL case 3: input ()\n" +
		"     expected null, got undefined\n" +
		"0/3 passed\n"
	require.Equal(t, want, out.String())
}

func fmtAll(a ...any) string {
	var b strings.Builder
	for _, v := range a {
		b.WriteString(v.(string))
	}
	return b.String()
}
