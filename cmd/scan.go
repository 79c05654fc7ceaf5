package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
	"github.com/gnolang/tlex/formatter"
	tt "github.com/gnolang/tlex/internal/types"
	"github.com/gnolang/tlex/lexer"
)

var (
	scanJsonOutput bool
	scanOutPath    string
	scanCacheDir   string
	scanCacheAge   time.Duration
	scanExtensions []string
	keepSkipped    bool
	showProgress   bool
	scanWatch      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Tokenize files with the compiled rule specification",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if scanWatch {
			ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
		} else {
			ctx, cancel = context.WithTimeout(context.Background(), timeout)
		}
		defer cancel()

		opts := scanOptions{
			Config:     engine.Config{KeepSkipped: keepSkipped},
			Extensions: scanExtensions,
			CacheDir:   scanCacheDir,
			CacheAge:   scanCacheAge,
			JSON:       scanJsonOutput,
			OutPath:    scanOutPath,
			Watch:      scanWatch,
		}
		if showProgress {
			opts.Progress = cmd.ErrOrStderr()
		}

		failed, err := runScan(ctx, logger, cmd.OutOrStdout(), specPath(), args, opts)
		if err != nil {
			logger.Error("Error scanning files", zap.Error(err))
			os.Exit(1)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJsonOutput, "json", false, "Output tokens in JSON format")
	scanCmd.Flags().StringVarP(&scanOutPath, "output", "o", "", "Output path (when using JSON)")
	scanCmd.Flags().StringVar(&scanCacheDir, "cache-dir", "", "Directory of the scan result cache (disabled when empty)")
	scanCmd.Flags().DurationVar(&scanCacheAge, "cache-max-age", 24*time.Hour, "Maximum age of cached scan results")
	scanCmd.Flags().StringSliceVar(&scanExtensions, "ext", nil, "File extensions to scan in directories, e.g. .src (all files when empty)")
	scanCmd.Flags().BoolVar(&keepSkipped, "keep-skipped", false, "Also print tokens of skip rules")
	scanCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar on stderr")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Rescan files when they change, until interrupted (ignores --timeout)")
}

type scanOptions struct {
	engine.Config
	Extensions []string
	CacheDir   string
	CacheAge   time.Duration
	JSON       bool
	OutPath    string
	Progress   io.Writer
	Watch      bool
}

// fileOutput is the JSON form of one scanned file.
type fileOutput struct {
	Tokens []jsonToken `json:"tokens"`
	Error  *tt.Issue   `json:"error,omitempty"`
}

// jsonToken carries the exact token bytes in Raw when Text is not valid
// UTF-8, since JSON strings cannot hold them.
type jsonToken struct {
	lexer.Token
	Raw []byte `json:"raw,omitempty"`
}

func jsonTokens(toks []lexer.Token) []jsonToken {
	if toks == nil {
		return nil
	}
	out := make([]jsonToken, len(toks))
	for i, tok := range toks {
		out[i].Token = tok
		if !utf8.ValidString(tok.Text) {
			out[i].Raw = []byte(tok.Text)
		}
	}
	return out
}

// runScan scans paths and writes the tokens to w. It reports whether any
// file failed to scan.
func runScan(ctx context.Context, logger *zap.Logger, w io.Writer, path string, paths []string, opts scanOptions) (bool, error) {
	c, err := compileSpec(logger, w, path, opts.Config)
	if err != nil {
		return false, err
	}

	popts := engine.ProcessOptions{Extensions: opts.Extensions, Progress: opts.Progress}
	if opts.CacheDir != "" {
		cache, err := engine.OpenResultCache(opts.CacheDir, opts.CacheAge)
		if err != nil {
			return false, err
		}
		popts.Cache = cache
	}

	if opts.Watch {
		failed := false
		err := engine.Watch(ctx, logger, c, paths, popts, func(results []engine.Result) {
			batchFailed, err := printResults(logger, w, results, opts)
			if err != nil {
				logger.Error("Error writing scan results", zap.Error(err))
			}
			failed = failed || batchFailed
		})
		return failed, err
	}

	results, err := engine.ProcessPaths(ctx, logger, c, paths, popts)
	if err != nil {
		return false, err
	}
	return printResults(logger, w, results, opts)
}

// printResults writes tokens and diagnostics of results to w, or to the
// JSON output. It reports whether any file failed to scan.
func printResults(logger *zap.Logger, w io.Writer, results []engine.Result, opts scanOptions) (bool, error) {
	failed := false
	outputs := make(map[string]fileOutput, len(results))
	for _, res := range results {
		var (
			src    *tt.SourceCode
			issue  *tt.Issue
			lexErr *lexer.LexicalError
			err    error
		)
		if res.Err != nil {
			failed = true
		}
		if res.Err == nil || errors.As(res.Err, &lexErr) {
			src, err = tt.ReadSourceCode(res.Path)
			if err != nil {
				logger.Error("Error reading source file", zap.String("file", res.Path), zap.Error(err))
				continue
			}
		}
		switch {
		case lexErr != nil:
			li := formatter.LexicalIssue(res.Path, src, lexErr)
			issue = &li
		case res.Err != nil:
			issue = &tt.Issue{
				Rule:     formatter.IOError,
				Category: "scan",
				Filename: res.Path,
				Message:  res.Err.Error(),
				Severity: tt.SeverityError,
			}
		}

		if opts.JSON {
			outputs[res.Path] = fileOutput{Tokens: jsonTokens(res.Tokens), Error: issue}
			continue
		}
		if src != nil {
			printTokens(w, res.Path, src, res.Tokens)
		}
		if issue != nil {
			fmt.Fprint(w, formatter.GenerateFormattedIssue([]tt.Issue{*issue}, src))
		}
	}

	if opts.JSON {
		if err := writeJSON(w, opts.OutPath, outputs); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func printTokens(w io.Writer, filename string, src *tt.SourceCode, toks []lexer.Token) {
	for _, tok := range toks {
		pos := src.Position(filename, tok.Start)
		fmt.Fprintf(w, "%s:%d:%d\t%s\t%q", filename, pos.Line, pos.Column, tok.Action, tok.Text)
		for _, c := range tok.Captures {
			fmt.Fprintf(w, "\t$%d=%q", c.Group, tok.Text[c.Start-tok.Start:c.End-tok.Start])
		}
		fmt.Fprintln(w)
	}
}

func writeJSON(w io.Writer, outPath string, v any) error {
	d, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling tokens to JSON: %w", err)
	}
	if outPath == "" {
		_, err = fmt.Fprintln(w, string(d))
		return err
	}
	return os.WriteFile(outPath, d, 0o644)
}
