package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/internal/inputs"
	"github.com/gnolang/tlex/lexer"
)

// Result is the outcome of scanning one file. Err is a *lexer.LexicalError
// when the input does not tokenize, or an I/O error.
type Result struct {
	Path   string
	Tokens []lexer.Token
	Err    error
	Cached bool
}

type ProcessOptions struct {
	// Extensions filters files found in directories. Empty keeps all files.
	Extensions []string
	// Cache, when set, serves unchanged files without scanning them.
	Cache *ResultCache
	// Progress receives a progress bar. Nil disables it.
	Progress io.Writer
	// Workers bounds concurrent scans; zero means runtime.NumCPU().
	Workers int
}

// ProcessPaths scans every file named by paths, walking directories, and
// returns one result per file in path order.
func ProcessPaths(
	ctx context.Context,
	logger *zap.Logger,
	c *Compiled,
	paths []string,
	opts ProcessOptions,
) ([]Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := inputs.New(opts.Extensions...).Collect(paths...)
	if err != nil {
		return nil, err
	}

	maxWorkers := opts.Workers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	sem := make(chan struct{}, maxWorkers)

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription(c.Name),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	results := make([]Result, len(files))
	var wg sync.WaitGroup

dispatch:
	for i, file := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, fp string) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = processFile(logger, c, fp, opts.Cache)
			_ = bar.Add(1)
		}(i, file.Path)
	}
	wg.Wait()
	_ = bar.Finish()

	if opts.Cache != nil {
		if err := opts.Cache.Flush(); err != nil {
			logger.Error("Error writing scan cache", zap.Error(err))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func processFile(logger *zap.Logger, c *Compiled, path string, cache *ResultCache) Result {
	if cache != nil {
		if res, ok := cache.Get(path, c.Fingerprint); ok {
			metricResultCacheHits.Inc()
			return res
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Error reading file", zap.String("file", path), zap.Error(err))
		return Result{Path: path, Err: err}
	}

	res := ScanSource(c, data)
	res.Path = path
	if res.Err != nil {
		logger.Debug("lexical error", zap.String("file", path), zap.Error(res.Err))
	}

	if cache != nil {
		if err := cache.Set(path, c.Fingerprint, res); err != nil {
			logger.Warn("Error caching result", zap.String("file", path), zap.Error(err))
		}
	}
	return res
}

// ScanSource scans data with c and records scan metrics.
func ScanSource(c *Compiled, data []byte) Result {
	toks, err := c.Scan(data)
	metricScannedBytes.Add(float64(len(data)))
	for _, tok := range toks {
		metricTokens.WithLabelValues(tok.Action).Inc()
	}
	if errors.Is(err, lexer.ErrLexical) {
		metricLexicalErrors.Inc()
	}
	return Result{Tokens: toks, Err: err}
}
