package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tlex/spec"
)

var forceInit bool

// initCmd: tlex init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter rule specification",
	Run: func(cmd *cobra.Command, args []string) {
		path := specPath()
		if err := initSpecFile(path, forceInit); err != nil {
			logger.Error("Error initializing rule specification", zap.Error(err))
			os.Exit(1)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule specification created: %s\n", path)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func initSpecFile(path string, force bool) error {
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("init writes YAML, got a %q file", ext)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
	}

	d, err := spec.Default().YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

func specPath() string {
	if specFile == "" {
		return spec.DefaultFile
	}
	return specFile
}
