package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
	"github.com/gnolang/tlex/internal/automaton"
)

var (
	dotStage  string
	dotOutput string
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Print an automaton of the compiled specification in GraphViz syntax",
	Long: `Prints the combined NFA, the DFA or the class-compressed DFA as a GraphViz digraph.
Example) tlex dot --stage dfa -o lexer.dot`,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if dotOutput != "" {
			f, err := os.Create(dotOutput)
			if err != nil {
				logger.Error("Error creating output file", zap.Error(err))
				os.Exit(1)
			}
			defer f.Close()
			w = f
		}
		if err := runDot(logger, w, specPath(), dotStage); err != nil {
			logger.Error("Error writing GraphViz output", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	dotCmd.Flags().StringVar(&dotStage, "stage", "dfa", "Automaton to print: nfa, dfa or compressed")
	dotCmd.Flags().StringVarP(&dotOutput, "output", "o", "", "Output path for the GraphViz file")
}

func runDot(logger *zap.Logger, w io.Writer, path, stage string) error {
	var pick func(*engine.Compiled) (*automaton.Automaton, automaton.EdgeLabeler)
	switch stage {
	case "nfa":
		pick = func(c *engine.Compiled) (*automaton.Automaton, automaton.EdgeLabeler) { return c.NFA(), nil }
	case "dfa":
		pick = func(c *engine.Compiled) (*automaton.Automaton, automaton.EdgeLabeler) { return c.DFA(), nil }
	case "compressed":
		pick = func(c *engine.Compiled) (*automaton.Automaton, automaton.EdgeLabeler) {
			return c.Compressed(), automaton.ClassLabeler
		}
	default:
		return fmt.Errorf("unknown stage %q, expected nfa, dfa or compressed", stage)
	}

	c, err := compileSpec(logger, os.Stderr, path, engine.Config{})
	if err != nil {
		return err
	}
	a, label := pick(c)
	return a.WriteDot(w, label)
}
