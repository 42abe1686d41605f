// Package cli implements the contractctl commands using Cobra.
package cli

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-tracker/internal/app"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
)

// newApp is swapped in tests to inject a stub model.
var newApp = app.New

type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "contractctl",
		Short: "Extract schedules and tasks from contract documents",
		Long: `contractctl runs the contract extraction pipeline from the command line.

Supported inputs: PDF, DOCX/DOC, HWP/HWPX and images (JPG, PNG, TIFF, BMP, WebP).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newDetectCommand(g),
		newExtractCommand(g),
		newBatchCommand(g),
		newWatchCommand(g),
	)
	return root
}

// load reads configuration and builds a logger writing to the command's
// stderr so stdout stays machine-readable.
func (g *globalFlags) load(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr()), nil
}

func (g *globalFlags) build(cmd *cobra.Command, withLLM bool) (*app.App, error) {
	cfg, log, err := g.load(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, log, app.Options{WithLLM: withLLM})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
