// Command weldscan classifies the weld joints of a model from the command
// line. Models are written in the weldscan Lisp DSL (see pkg/engine).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/chazu/weldscan/pkg/config"
	"github.com/spf13/cobra"
)

// globals holds the persistent flags and the configuration they resolve to.
type globals struct {
	configPath string
	logLevel   string
	workers    int
	jsonOutput bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "weldscan <command>",
		Short:         "Classify weld joints on B-Rep models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("WELDSCAN_CONFIG"), "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	root.PersistentFlags().IntVar(&g.workers, "workers", -1, "classification workers (0 = GOMAXPROCS); overrides config")
	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "output as JSON")

	root.AddGroup(
		&cobra.Group{ID: "analysis", Title: "Analysis:"},
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
	)
	cobra.EnableCommandSorting = false

	root.AddCommand(newAnalyzeCmd(g))
	root.AddCommand(newEdgesCmd(g))
	root.AddCommand(newPickCmd(g))
	root.AddCommand(newTopologyCmd(g))
	root.AddCommand(newParamsCmd(g))
	return root
}

// load resolves the configuration and installs the logger.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.workers >= 0 {
		cfg.Workers = g.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg

	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(h))
	slog.Debug("configuration resolved",
		slog.String("config", g.configPath),
		slog.Int("workers", cfg.Workers),
		slog.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)
	return nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
