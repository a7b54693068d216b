// Mcmctl controls Melexis Compact Master LIN boxes over their WebSocket and
// REST interfaces.
//
// It wakes and exchanges frames on the LIN bus, runs node diagnostics,
// switches slave power, drives the slave bootloader and manages the master's
// system settings. Masters can be registered by name in the mcm config file.
//
// Usage:
//
//	mcmctl [command] [flags]
//
// See 'mcmctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdin).ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader) *cobra.Command {
	a := &app{in: in}

	root := &cobra.Command{
		Use:   "mcmctl",
		Short: "Melexis Compact Master LIN control utility",
		Long: `Control a Melexis Compact Master LIN (MCM) box.

The master is addressed by hostname or IP, or by a name registered with
'mcmctl masters add'. Settings are resolved from flags, then MCM_*
environment variables, then the preferences in the mcm config file.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringP(keyMaster, "m", "", "Master name, hostname or IP (default: the registry's default master)")
	pf.Bool(keySecure, false, "Use wss/https")
	pf.Duration(keyTimeout, defaultTimeout, "Timeout for each request")
	pf.Duration(keyHeartbeat, defaultHeartbeat, "Heartbeat ping interval")
	pf.Int(keyBaudrate, defaultBaudrate, "LIN baudrate")
	pf.String(keyLogLevel, "", "Log level (debug, info, warn, error); silent when empty")
	pf.String(keyFormat, formatText, "Output format (text, json)")
	pf.String(keyConfig, "", "Path to the mcm config file")

	root.AddCommand(
		newInfoCmd(a),
		newPowerCmd(a),
		newLinCmd(a),
		newDiagCmd(a),
		newBootloadCmd(a),
		newSystemCmd(a),
		newMastersCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcmctl %s (commit: %s)\n", version.Version, version.Commit)
		},
	}
}
