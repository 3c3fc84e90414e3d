// Package main provides the audits CLI entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/algorithm-audits/audits/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

// app holds state shared by all commands.
type app struct {
	human   bool
	cfgFile string
	cfg     *config.Config
}

func main() {
	a := &app{}
	root := newRootCmd(a)
	if err := root.Execute(); err != nil {
		os.Exit(a.reportError(root.ErrOrStderr(), err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "audits",
		Short: "Maintain the algorithm audit dataset",
		Long: `audits maintains a curated dataset of algorithm-audit studies.

Core features:
  - Merge a reviewed CSV of audits into the canonical JSON dataset
  - Classify candidate studies with a local LM Studio model
  - Screen studies with keyword heuristics
  - Convert review tables for the website, inspect PDFs

All commands output JSON by default. Use --human for readable output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	root.PersistentFlags().BoolVar(&a.human, "human", false, "Use human-readable output instead of JSON")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ./audits.yaml or $XDG_CONFIG_HOME/audits/audits.yaml)")
	root.Version = Version

	root.AddCommand(
		newMergeCmd(a),
		newClassifyCmd(a),
		newFilterCmd(a),
		newConvertCmd(a),
		newInspectPDFCmd(a),
	)
	return root
}

// setup loads .env, the config file and the logger.
func (a *app) setup() error {
	if err := config.LoadDotenv(); err != nil {
		return withExit(ExitConfigError, err)
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return withExit(ExitConfigError, err)
	}
	a.cfg = cfg
	return nil
}
