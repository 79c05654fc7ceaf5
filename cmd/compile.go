package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
	"github.com/gnolang/tlex/formatter"
	tt "github.com/gnolang/tlex/internal/types"
	"github.com/gnolang/tlex/lexer"
)

var (
	strictCaptures bool
	stateLimit     int
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the rule specification and print statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := engine.Config{Strict: strictCaptures, StateLimit: stateLimit}
		if err := runCompile(logger, cmd.OutOrStdout(), specPath(), cfg); err != nil {
			logger.Error("Compilation failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	compileCmd.Flags().BoolVar(&strictCaptures, "strict", false, "Fail when capture boundaries are ambiguous in the DFA (this rejects any rule that starts with a capture group)")
	compileCmd.Flags().IntVar(&stateLimit, "state-limit", 0, "Maximum number of DFA states (0 uses the default, negative disables)")
}

func runCompile(logger *zap.Logger, w io.Writer, path string, cfg engine.Config) error {
	c, err := compileSpec(logger, w, path, cfg)
	if err != nil {
		return err
	}

	st := c.Stats()
	fmt.Fprintf(w, "rule set:   %s\n", c.Name)
	fmt.Fprintf(w, "rules:      %d\n", st.Rules)
	fmt.Fprintf(w, "nfa states: %d\n", st.NFAStates)
	fmt.Fprintf(w, "dfa states: %d (%d dead)\n", st.DFAStates, st.DeadStates)
	fmt.Fprintf(w, "classes:    %d\n", st.Classes)

	var conflict *lexer.CaptureConflictError
	if errors.As(c.CaptureConflict(), &conflict) {
		fmt.Fprintln(w)
		fmt.Fprint(w, formatter.GenerateFormattedIssue([]tt.Issue{formatter.ConflictIssue(path, conflict)}, nil))
	}
	return nil
}
