package lexer

import "go.uber.org/zap"

// DefaultStateLimit bounds the number of DFA states Compile may create.
const DefaultStateLimit = 1 << 14

// Option configures Compile.
type Option func(*config)

type config struct {
	logger      *zap.Logger
	stateLimit  int
	strict      bool
	keepSkipped bool
}

func defaultConfig() *config {
	return &config{
		logger:     zap.NewNop(),
		stateLimit: DefaultStateLimit,
	}
}

// WithLogger sets the logger used to report compile statistics and capture
// conflicts.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateLimit bounds the DFA size. A limit of zero or less disables the
// bound.
func WithStateLimit(n int) Option {
	return func(c *config) { c.stateLimit = n }
}

// WithStrictCaptures makes Compile fail with a *CaptureConflictError when
// the DFA merges states that disagree about a capture boundary. A rule that
// starts with a capture group always does: its capture entry is merged with
// the start state.
func WithStrictCaptures() Option {
	return func(c *config) { c.strict = true }
}

// KeepSkipped makes Scan return tokens of skip rules too.
func KeepSkipped() Option {
	return func(c *config) { c.keepSkipped = true }
}
