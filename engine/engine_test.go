package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gnolang/tlex/lexer"
	"github.com/gnolang/tlex/spec"
)

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(nil, cfg)
	require.NoError(t, err)
	return e
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func actions(toks []lexer.Token) []string {
	var out []string
	for _, tok := range toks {
		out = append(out, tok.Action)
	}
	return out
}

// not parallel: reads package-level counters
func TestEngineLexerCache(t *testing.T) {
	e := newEngine(t, Config{})
	compiles := testutil.ToFloat64(metricCompiles)
	hits := testutil.ToFloat64(metricLexerCacheHits)

	first, err := e.Lexer(spec.Default())
	require.NoError(t, err)
	second, err := e.Lexer(spec.Default())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "tlex", first.Name)
	assert.Len(t, first.Fingerprint, 64)

	renamed := spec.Default()
	renamed.Name = "other"
	third, err := e.Lexer(renamed)
	require.NoError(t, err)
	assert.Same(t, first, third, "the name does not change the lexer")

	assert.Equal(t, compiles+1, testutil.ToFloat64(metricCompiles))
	assert.Equal(t, hits+2, testutil.ToFloat64(metricLexerCacheHits))
}

func TestEngineFingerprint(t *testing.T) {
	t.Parallel()
	plain, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)
	keep, err := newEngine(t, Config{KeepSkipped: true}).Lexer(spec.Default())
	require.NoError(t, err)
	again, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	assert.NotEqual(t, plain.Fingerprint, keep.Fingerprint)
	assert.Equal(t, plain.Fingerprint, again.Fingerprint)

	rs := spec.Default()
	rs.Rules[0].Skip = true
	changed, err := newEngine(t, Config{}).Lexer(rs)
	require.NoError(t, err)
	assert.NotEqual(t, plain.Fingerprint, changed.Fingerprint)
}

func TestEngineLexerErrors(t *testing.T) {
	t.Parallel()
	e := newEngine(t, Config{})

	_, err := e.Lexer(&spec.RuleSet{Rules: []lexer.Rule{{Action: "BAD", Pattern: `[b-a]`}}})
	var ruleErr *lexer.RuleError
	require.True(t, errors.As(err, &ruleErr), "error = %v", err)
	assert.Equal(t, "BAD", ruleErr.Action)

	_, err = newEngine(t, Config{Strict: true}).Lexer(&spec.RuleSet{Rules: []lexer.Rule{{Action: "AB", Pattern: `(a)(b)`}}})
	var conflict *lexer.CaptureConflictError
	assert.True(t, errors.As(err, &conflict), "error = %v", err)
}

func TestEngineLeadingCaptureLogsAtDebug(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := New(zap.New(core), Config{})
	require.NoError(t, err)

	c, err := e.Lexer(&spec.RuleSet{Name: "ab", Rules: []lexer.Rule{{Action: "AB", Pattern: `(a)(b)`}}})
	require.NoError(t, err)
	require.Error(t, c.CaptureConflict())

	conflicts := logs.FilterMessage("capture conflict")
	require.Equal(t, 1, conflicts.Len())
	assert.Equal(t, zapcore.DebugLevel, conflicts.All()[0].Level)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	// spans are exact regardless
	toks, err := c.Scan([]byte("ab"))
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, []lexer.Capture{{Group: 0, Start: 0, End: 1}, {Group: 1, Start: 1, End: 2}}, toks[0].Captures)
}

func TestProcessPaths(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"a.src":     "if x = 12\n",
		"b.src":     "x ? y",
		"sub/c.src": "",
		"skip.txt":  "?",
	})
	c, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	results, err := ProcessPaths(context.Background(), nil, c, []string{dir}, ProcessOptions{
		Extensions: []string{".src"},
		Workers:    2,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, filepath.Join(dir, "a.src"), results[0].Path)
	require.NoError(t, results[0].Err)
	assert.Equal(t, []string{"KW_IF", "IDENT", "ASSIGN", "NUMBER"}, actions(results[0].Tokens))

	assert.Equal(t, filepath.Join(dir, "b.src"), results[1].Path)
	var lexErr *lexer.LexicalError
	require.True(t, errors.As(results[1].Err, &lexErr))
	assert.Equal(t, lexer.LexicalError{Offset: 2, TokenStart: 2}, *lexErr)
	assert.Equal(t, []string{"IDENT"}, actions(results[1].Tokens))

	assert.Equal(t, filepath.Join(dir, "sub", "c.src"), results[2].Path)
	assert.NoError(t, results[2].Err)
	assert.Empty(t, results[2].Tokens)
}

func TestProcessPathsMissing(t *testing.T) {
	t.Parallel()
	c, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	_, err = ProcessPaths(context.Background(), nil, c, []string{filepath.Join(t.TempDir(), "nope")}, ProcessOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessPathsCancelled(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{"a.src": "x", "b.src": "y"})
	c, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ProcessPaths(ctx, nil, c, []string{dir}, ProcessOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// not parallel: reads package-level counters
func TestScanSourceMetrics(t *testing.T) {
	c, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	idents := testutil.ToFloat64(metricTokens.WithLabelValues("IDENT"))
	scanned := testutil.ToFloat64(metricScannedBytes)
	lexErrs := testutil.ToFloat64(metricLexicalErrors)

	res := ScanSource(c, []byte("a b ?"))
	require.Error(t, res.Err)

	assert.Equal(t, idents+2, testutil.ToFloat64(metricTokens.WithLabelValues("IDENT")))
	assert.Equal(t, scanned+5, testutil.ToFloat64(metricScannedBytes))
	assert.Equal(t, lexErrs+1, testutil.ToFloat64(metricLexicalErrors))
}

func TestResultCache(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{"a.src": "if x", "b.src": "?"})
	a, b := filepath.Join(dir, "a.src"), filepath.Join(dir, "b.src")
	cacheDir := filepath.Join(t.TempDir(), "cache")

	cache, err := OpenResultCache(cacheDir, 0)
	require.NoError(t, err)

	toks := []lexer.Token{
		{Rule: 0, Action: "KW_IF", Matched: []int{0, 2}, Start: 0, End: 2, Text: "if"},
		{Rule: 2, Action: "IDENT", Matched: []int{2}, Start: 3, End: 4, Text: "x"},
	}
	require.NoError(t, cache.Set(a, "fp1", Result{Path: a, Tokens: toks}))
	require.NoError(t, cache.Set(b, "fp1", Result{Path: b, Err: &lexer.LexicalError{Offset: 0, TokenStart: 0}}))
	require.NoError(t, cache.Set(b, "fp1", Result{Path: b, Err: os.ErrPermission}), "non-lexical errors are ignored")

	t.Run("Hit", func(t *testing.T) {
		res, ok := cache.Get(a, "fp1")
		require.True(t, ok)
		assert.Equal(t, Result{Path: a, Tokens: toks, Cached: true}, res)
	})

	t.Run("Persisted", func(t *testing.T) {
		require.NoError(t, cache.Flush())
		reopened, err := OpenResultCache(cacheDir, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, reopened.Len())

		res, ok := reopened.Get(a, "fp1")
		require.True(t, ok)
		assert.Equal(t, toks, res.Tokens)

		res, ok = reopened.Get(b, "fp1")
		require.True(t, ok)
		assert.ErrorIs(t, res.Err, lexer.ErrLexical)
	})

	t.Run("FingerprintChanged", func(t *testing.T) {
		other, err := OpenResultCache(t.TempDir(), 0)
		require.NoError(t, err)
		require.NoError(t, other.Set(a, "fp1", Result{Path: a, Tokens: toks}))
		_, ok := other.Get(a, "fp2")
		assert.False(t, ok)
		assert.Equal(t, 0, other.Len(), "stale entries are dropped")
	})

	t.Run("NotFound", func(t *testing.T) {
		_, ok := cache.Get(filepath.Join(dir, "none.src"), "fp1")
		assert.False(t, ok)
	})
}

func TestResultCacheInvalidation(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{"a.src": "if x"})
	a := filepath.Join(dir, "a.src")

	cache, err := OpenResultCache(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, cache.Set(a, "fp", Result{Path: a}))
	require.NoError(t, os.WriteFile(a, []byte("if y"), 0o644))
	_, ok := cache.Get(a, "fp")
	assert.False(t, ok, "modified file")

	require.NoError(t, cache.Set(a, "fp", Result{Path: a}))
	cache.SetMaxAge(time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok = cache.Get(a, "fp")
	assert.False(t, ok, "expired entry")

	cache.SetMaxAge(0)
	require.NoError(t, cache.Set(a, "fp", Result{Path: a}))
	require.NoError(t, cache.InvalidateAll())
	_, ok = cache.Get(a, "fp")
	assert.False(t, ok, "invalidated")
}

func TestProcessPathsWithCache(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{"a.src": "if x = 1", "b.src": "x ?"})
	c, err := newEngine(t, Config{}).Lexer(spec.Default())
	require.NoError(t, err)

	cache, err := OpenResultCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	opts := ProcessOptions{Cache: cache}

	first, err := ProcessPaths(context.Background(), nil, c, []string{dir}, opts)
	require.NoError(t, err)
	second, err := ProcessPaths(context.Background(), nil, c, []string{dir}, opts)
	require.NoError(t, err)

	require.Len(t, second, 2)
	for i := range first {
		assert.False(t, first[i].Cached)
		assert.True(t, second[i].Cached)
		assert.Equal(t, first[i].Tokens, second[i].Tokens)
		assert.Equal(t, first[i].Err, second[i].Err)
	}
}
