// Package engine compiles rule sets into lexers, caches them, and runs them
// over files.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/lexer"
	"github.com/gnolang/tlex/spec"
)

const DefaultCacheSize = 16

// Config controls how the engine compiles rule sets.
type Config struct {
	CacheSize   int // compiled lexers kept in memory
	StateLimit  int // see lexer.WithStateLimit; zero means lexer.DefaultStateLimit
	Strict      bool
	KeepSkipped bool
}

// Compiled is a lexer together with the identity of the rule set it was
// built from.
type Compiled struct {
	*lexer.Lexer
	Name        string
	Fingerprint string
}

// Engine compiles rule sets and keeps the most recently used lexers, so a
// long-lived caller that resolves the same rule set again gets the compiled
// lexer back. A CLI invocation resolves its rule set once.
type Engine struct {
	logger *zap.Logger
	cfg    Config
	cache  *lru.Cache[string, *Compiled]
}

func New(logger *zap.Logger, cfg Config) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.StateLimit == 0 {
		cfg.StateLimit = lexer.DefaultStateLimit
	}

	cache, err := lru.New[string, *Compiled](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexer cache: %w", err)
	}
	return &Engine{logger: logger, cfg: cfg, cache: cache}, nil
}

// Lexer returns the compiled lexer for rs, compiling it on first use. Rule
// sets with identical expanded rules share one lexer.
func (e *Engine) Lexer(rs *spec.RuleSet) (*Compiled, error) {
	rules, err := rs.Expand()
	if err != nil {
		return nil, err
	}

	fp := e.fingerprint(rules)
	if c, ok := e.cache.Get(fp); ok {
		metricLexerCacheHits.Inc()
		e.logger.Debug("lexer cache hit", zap.String("name", rs.Name), zap.String("fingerprint", fp[:12]))
		return c, nil
	}

	lx, err := lexer.Compile(rules, e.lexerOptions()...)
	if err != nil {
		return nil, err
	}
	metricCompiles.Inc()

	c := &Compiled{Lexer: lx, Name: rs.Name, Fingerprint: fp}
	e.cache.Add(fp, c)
	if conflict := lx.CaptureConflict(); conflict != nil {
		e.logger.Debug("capture conflict", zap.String("name", rs.Name), zap.Error(conflict))
	}
	return c, nil
}

func (e *Engine) lexerOptions() []lexer.Option {
	opts := []lexer.Option{
		lexer.WithLogger(e.logger),
		lexer.WithStateLimit(e.cfg.StateLimit),
	}
	if e.cfg.Strict {
		opts = append(opts, lexer.WithStrictCaptures())
	}
	if e.cfg.KeepSkipped {
		opts = append(opts, lexer.KeepSkipped())
	}
	return opts
}

// fingerprint identifies the expanded rules and every setting that changes
// what the compiled lexer emits.
func (e *Engine) fingerprint(rules []lexer.Rule) string {
	h := sha256.New()
	fmt.Fprintf(h, "limit=%d strict=%t keep=%t\n", e.cfg.StateLimit, e.cfg.Strict, e.cfg.KeepSkipped)
	for _, r := range rules {
		fmt.Fprintf(h, "%d:%s %d:%s %t\n", len(r.Action), r.Action, len(r.Pattern), r.Pattern, r.Skip)
	}
	return hex.EncodeToString(h.Sum(nil))
}
