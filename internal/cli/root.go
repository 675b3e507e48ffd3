// Package cli implements the vidstat command line tool.
package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkglog"
)

const defaultConfigPath = "./config/config.yaml"

type globalFlags struct {
	config   string
	logLevel string
}

// NewRootCommand builds the vidstat command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "vidstat",
		Short:        "Summarize video campaign exports and push them to Feishu",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			pkglog.InitLogging(cmd.ErrOrStderr(), pkglog.ParseLevel(g.logLevel))
		},
	}

	root.PersistentFlags().StringVar(&g.config, "config", defaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newReportCommand(g))
	root.AddCommand(newFieldsCommand(g))
	root.AddCommand(newHistoryCommand(g))

	return root
}

// loadConfig reads the config file. A missing default file is not an error;
// the CLI then runs on flags and environment variables only.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (pkgconfig.Config, error) {
	if _, err := os.Stat(g.config); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		slog.Debug("config file not found, using environment only", "path", g.config)
		return pkgconfig.NewMemory(nil), nil
	}

	return pkgconfig.NewViper(g.config)
}
