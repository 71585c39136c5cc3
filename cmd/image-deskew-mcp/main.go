package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/ocr"
	"github.com/ironsheep/image-deskew-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		noOCR      bool
	)

	cmd := &cobra.Command{
		Use:   "image-deskew-mcp",
		Short: "MCP server that detects and corrects tilt in scanned images and PDFs",
		Long: `image-deskew-mcp serves the MCP protocol over stdin/stdout.

Clients load images or PDFs, read and edit the rotation, offset and mirroring
of every page, ask for automatic tilt detection and export corrected images
or PDFs.

Environment variables:
  ` + config.EnvConfigPath + `   tuning file used when --config is not given
  ` + config.EnvLogLevel + `   log level used when --log-level is not given
  TESSDATA_PREFIX          location of the Tesseract language data`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout is for the MCP protocol
			log := config.SetupLogging(os.Stderr, logLevel)

			if configPath == "" {
				configPath = config.PathFromEnv()
			}
			tuning, err := config.Load(configPath)
			if err != nil {
				log.WithError(err).Error("invalid configuration")
				return err
			}

			log.WithFields(logrus.Fields{
				"version": Version,
				"built":   BuildTime,
				"commit":  GitCommit,
				"config":  configPath,
			}).Info("image-deskew-mcp starting")

			var engine *ocr.Engine
			if !noOCR {
				engine = ocr.NewEngine(tuning.Text.Language)
				defer engine.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{Tuning: tuning, Version: Version, OCR: engine})
			defer srv.Close()
			if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
				log.WithError(err).Error("server error")
				return err
			}
			return nil
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf("image-deskew-mcp %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit))
	cmd.Flags().StringVar(&configPath, "config", "", "YAML tuning file overlaid on the defaults")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "disable the OCR text-baseline estimator")
	return cmd
}
