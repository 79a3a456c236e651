package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-authgate/qrgate/internal/bootstrap"
	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRootCmd builds the qrgate command tree
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qrgate",
		Short:         "Gate file links behind QR codes and owner approval",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServerCmd(), newIssueCmd(), newVersionCmd())
	return root
}

// loadRuntime reads configuration from the environment (and .env) and builds the logger
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			log.Info("starting qrgate", zap.String("version", version.Short()))
			return bootstrap.Run(cmd.Context(), cfg, log)
		},
	}
}

func newIssueCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "issue <file-link>",
		Short: "Issue a QR code for a file link and write it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			issued, err := bootstrap.IssueOnce(cmd.Context(), cfg, log, args[0])
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = issued.FileName
			}
			if err := os.WriteFile(filepath.Clean(path), issued.PNG, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token: %s\n", issued.Request.Token)
			fmt.Fprintf(out, "url:   %s\n", issued.RequestURL)
			fmt.Fprintf(out, "png:   %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG output path (default qr-<token>.png)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout())
		},
	}
}
