package main

import (
	"errors"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tsawler/folio/config"
	"github.com/tsawler/folio/internal/logger"
)

var version = "0.1.0"

// app carries the configuration loaded before every command
type app struct {
	configPath string
	envFile    string
	config     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "folio",
		Short: "Turn PDF documents into structured, enriched text",
		Long: `folio reads the words of a PDF from its text layer, or with OCR when the
text layer is missing or unreadable, predicts its layout and rebuilds the
document: paragraphs, titles, lists and tables in reading order, with
their section hierarchy.

Configuration is read from the file given with --config, then from
FOLIO_* environment variables. A .env file is loaded first when present.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file loaded before the configuration")

	root.AddCommand(newParseCmd(a), newExportCmd(a), newChunksCmd(a), newVersionCmd())
	return root
}

// load reads the environment file and the configuration, then sets up
// logging
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return err
	}
	a.config = cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	cobra.OnFinalize(stop)
	cmd.SetContext(ctx)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("folio %s\n", version)
		},
	}
}
