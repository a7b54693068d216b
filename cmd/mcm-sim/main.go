// Mcm-sim runs a simulated Melexis Compact Master LIN.
//
// It serves the master's WebSocket task channel and REST system API with a
// configurable set of LIN slaves, so mcmctl and the client packages can be
// exercised without hardware.
//
// Usage:
//
//	mcm-sim serve [flags]
//
// See 'mcm-sim serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/simulator"
	"github.com/mcmlink/mcm/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcm-sim",
		Short: "Simulated Compact Master LIN",
		Long: `A simulated Melexis Compact Master LIN box.

The simulator speaks the master's WebSocket envelope protocol on /ws/v1 and
serves the REST system API under /api/v1. LIN slaves, frames and network
settings can be loaded from a YAML profile.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

type serveOptions struct {
	host     string
	port     int
	certPath string
	keyPath  string
	profile  string
	logLevel string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the simulated master",
		Long: `Start the simulated master.

TLS (wss/https) is enabled when both --cert and --key are given.`,
		Example: `  # Plain ws/http on port 8080
  mcm-sim serve --port 8080

  # Slaves from a profile, with TLS
  mcm-sim serve --profile bench.yaml --cert cert.pem --key key.pem --port 8443 --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "Listen address (empty = all interfaces)")
	f.IntVar(&opts.port, "port", 80, "Listen port")
	f.StringVar(&opts.certPath, "cert", "", "Path to TLS certificate file")
	f.StringVar(&opts.keyPath, "key", "", "Path to TLS private key file")
	f.StringVar(&opts.profile, "profile", "", "YAML profile with model, network, slaves and frames")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	return cmd
}

// buildServer validates opts and assembles the simulator and its server.
func buildServer(opts *serveOptions) (*simulator.Server, error) {
	if (opts.certPath == "") != (opts.keyPath == "") {
		return nil, fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, p := range []string{opts.certPath, opts.keyPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", p)
		}
	}

	var simOpts []simulator.Option
	if opts.profile != "" {
		profile, err := simulator.LoadProfile(opts.profile)
		if err != nil {
			return nil, err
		}
		simOpts = profile.Options()
		logging.Info("Loaded profile",
			zap.String("path", opts.profile),
			zap.Int("slaves", len(profile.Slaves)),
		)
	}

	return simulator.NewServer(&simulator.Config{
		Host:     opts.host,
		Port:     opts.port,
		CertPath: opts.certPath,
		KeyPath:  opts.keyPath,
	}, simulator.New(simOpts...))
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	if err := logging.Initialize(opts.logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	srv, err := buildServer(opts)
	if err != nil {
		return err
	}
	return srv.Start(cmd.Context())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcm-sim %s (commit: %s)\n", version.Version, version.Commit)
		},
	}
}
