package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/engine"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Print the byte classes of the compiled specification",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runClasses(logger, cmd.OutOrStdout(), specPath()); err != nil {
			logger.Error("Error computing byte classes", zap.Error(err))
			os.Exit(1)
		}
	},
}

func runClasses(logger *zap.Logger, w io.Writer, path string) error {
	c, err := compileSpec(logger, os.Stderr, path, engine.Config{})
	if err != nil {
		return err
	}

	classes := c.Classes()
	fmt.Fprintf(w, "%d classes\n", classes.Len())
	for id := 0; id < classes.Len(); id++ {
		fmt.Fprintf(w, "%3d  %3d bytes  e.g. %q\n", id, len(classes.Members(id)), byte(classes.Example(id)))
	}
	if verbose {
		_, err = io.WriteString(w, classes.String())
	}
	return err
}
