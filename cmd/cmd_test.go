package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
)

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func starterSpec(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".tlex.yaml")
	require.NoError(t, initSpecFile(path, false))
	return path
}

func TestInitSpecFile(t *testing.T) {
	t.Parallel()
	path := starterSpec(t)

	err := initSpecFile(path, false)
	assert.ErrorContains(t, err, "already exists")
	assert.NoError(t, initSpecFile(path, true))

	err = initSpecFile(filepath.Join(t.TempDir(), "rules.tlex"), false)
	assert.ErrorContains(t, err, "init writes YAML")
}

func TestRunCompile(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, runCompile(zap.NewNop(), &out, starterSpec(t), engine.Config{}))

	got := out.String()
	assert.Contains(t, got, "rule set:   tlex\n")
	assert.Contains(t, got, "rules:      6\n")
	assert.Contains(t, got, "dead)\n")
	assert.NotContains(t, got, "capture-conflict")
}

func TestRunCompileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	t.Run("pattern syntax", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, dir, "bad.yaml", "name: bad\nrules:\n  - action: A\n    pattern: \"(a\"\n")
		var out bytes.Buffer
		err := runCompile(zap.NewNop(), &out, path, engine.Config{})
		require.Error(t, err)
		assert.Contains(t, out.String(), "error: pattern-syntax\n")
		assert.Contains(t, out.String(), "missing ')' to close capture group")
	})

	t.Run("capture conflict", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, dir, "caps.yaml", "name: caps\nrules:\n  - action: AB\n    pattern: (a)(b)\n")

		var out bytes.Buffer
		require.NoError(t, runCompile(zap.NewNop(), &out, path, engine.Config{}))
		assert.Contains(t, out.String(), "info: capture-conflict\n")

		out.Reset()
		require.Error(t, runCompile(zap.NewNop(), &out, path, engine.Config{Strict: true}))
		assert.Contains(t, out.String(), "error: capture-conflict\n")
	})

	t.Run("missing spec", func(t *testing.T) {
		t.Parallel()
		err := runCompile(zap.NewNop(), &bytes.Buffer{}, filepath.Join(dir, "none.yaml"), engine.Config{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRunScan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.src", "if x = 12\n")
	bad := writeFile(t, dir, "bad.src", "x ?")

	var out bytes.Buffer
	failed, err := runScan(context.Background(), zap.NewNop(), &out, starterSpec(t), []string{good}, scanOptions{})
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, strings.Join([]string{
		good + `:1:1	KW_IF	"if"`,
		good + `:1:4	IDENT	"x"`,
		good + `:1:6	ASSIGN	"="`,
		good + `:1:8	NUMBER	"12"`,
	}, "\n")+"\n", out.String())

	out.Reset()
	failed, err = runScan(context.Background(), zap.NewNop(), &out, starterSpec(t), []string{bad}, scanOptions{})
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Contains(t, out.String(), bad+`:1:1	IDENT	"x"`+"\n")
	assert.Contains(t, out.String(), "error: lexical-error\n --> "+bad+":1:3\n")
}

func TestRunScanCaptures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "kv.yaml", "name: kv\nrules:\n  - action: KV\n    pattern: \"([a-z]*)=([0-9]*)\"\n  - action: WS\n    pattern: \"[ ]\"\n    skip: true\n")
	input := writeFile(t, dir, "in.txt", "ab=12 c=3")

	var out bytes.Buffer
	failed, err := runScan(context.Background(), zap.NewNop(), &out, path, []string{input}, scanOptions{})
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t,
		input+`:1:1	KV	"ab=12"	$0="ab"	$1="12"`+"\n"+
			input+`:1:7	KV	"c=3"	$0="c"	$1="3"`+"\n",
		out.String())
}

func TestRunScanJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.src", "if")
	writeFile(t, dir, "b.src", "?")
	outPath := filepath.Join(t.TempDir(), "out.json")

	opts := scanOptions{
		Extensions: []string{".src"},
		JSON:       true,
		OutPath:    outPath,
		CacheDir:   filepath.Join(t.TempDir(), "cache"),
	}
	failed, err := runScan(context.Background(), zap.NewNop(), &bytes.Buffer{}, starterSpec(t), []string{dir}, opts)
	require.NoError(t, err)
	assert.True(t, failed)

	d, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got map[string]struct {
		Tokens []struct {
			Action string `json:"action"`
			Text   string `json:"text"`
		} `json:"tokens"`
		Error *struct {
			Rule string `json:"Rule"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(d, &got))
	require.Len(t, got, 2)

	a := got[filepath.Join(dir, "a.src")]
	require.Len(t, a.Tokens, 1)
	assert.Equal(t, "KW_IF", a.Tokens[0].Action)
	assert.Nil(t, a.Error)

	b := got[filepath.Join(dir, "b.src")]
	assert.Empty(t, b.Tokens)
	require.NotNil(t, b.Error)
	assert.Equal(t, "lexical-error", b.Error.Rule)

	_, err = os.Stat(filepath.Join(opts.CacheDir, "scan_cache.gob"))
	assert.NoError(t, err)
}

func TestRunDot(t *testing.T) {
	t.Parallel()
	path := starterSpec(t)

	for _, stage := range []string{"nfa", "dfa", "compressed"} {
		var out bytes.Buffer
		require.NoError(t, runDot(zap.NewNop(), &out, path, stage), stage)
		assert.True(t, strings.HasPrefix(out.String(), "digraph {\n"), stage)
		assert.True(t, strings.HasSuffix(out.String(), "}\n"), stage)
	}

	err := runDot(zap.NewNop(), &bytes.Buffer{}, path, "minimal")
	assert.ErrorContains(t, err, `unknown stage "minimal"`)
}

func TestRunClasses(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "ab.yaml", "name: ab\nrules:\n  - action: A\n    pattern: a\n  - action: B\n    pattern: \"[b-c]\"\n")

	var out bytes.Buffer
	require.NoError(t, runClasses(zap.NewNop(), &out, path))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "3 classes", lines[0])
	assert.Contains(t, lines[2], `e.g. 'a'`)
	assert.Contains(t, lines[3], "2 bytes  e.g. 'b'")
}

func TestRunScanJSONRawBytes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "bin.yaml", "name: bin\nrules:\n  - action: HIGH\n    pattern: '\\xff\\xfe'\n  - action: A\n    pattern: a\n")
	input := writeFile(t, dir, "in.bin", "a\xff\xfe")

	var out bytes.Buffer
	failed, err := runScan(context.Background(), zap.NewNop(), &out, path, []string{input}, scanOptions{JSON: true})
	require.NoError(t, err)
	assert.False(t, failed)

	var got map[string]struct {
		Tokens []struct {
			Action string `json:"action"`
			Start  int    `json:"start"`
			End    int    `json:"end"`
			Raw    []byte `json:"raw"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	toks := got[input].Tokens
	require.Len(t, toks, 2)

	assert.Equal(t, "A", toks[0].Action)
	assert.Nil(t, toks[0].Raw, "valid UTF-8 text needs no raw bytes")
	assert.Equal(t, "HIGH", toks[1].Action)
	assert.Equal(t, []byte{0xff, 0xfe}, toks[1].Raw)
	assert.Equal(t, 1, toks[1].Start)
	assert.Equal(t, 3, toks[1].End)
}

func TestRunScanWatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeFile(t, dir, "a.src", "if x")

	// watch mode runs until the context ends
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out bytes.Buffer
	failed, err := runScan(ctx, zap.NewNop(), &out, starterSpec(t), []string{dir}, scanOptions{Watch: true})
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, input+`:1:1	KW_IF	"if"`+"\n"+input+`:1:4	IDENT	"x"`+"\n", out.String())
}
