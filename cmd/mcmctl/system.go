package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/sysapi"
	"github.com/mcmlink/mcm/internal/ui"
)

func newSystemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Manage the master's system settings",
	}

	reboot := &cobra.Command{
		Use:   "reboot",
		Short: "Restart the master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd, func(ctx context.Context, sys *sysapi.Client) error {
				if err := sys.Reboot(ctx); err != nil {
					return err
				}
				return a.emit(map[string]bool{"rebooting": true}, ui.Field{Key: "Master", Value: "rebooting"})
			})
		},
	}

	identify := &cobra.Command{
		Use:   "identify",
		Short: "Blink the master's identification LED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMaster(cmd, func(ctx context.Context, s *session) error {
				if err := s.master.Identify(ctx); err != nil {
					return err
				}
				return a.emit(map[string]bool{"identify": true}, ui.Field{Key: "Identify", Value: "LED blinking"})
			})
		},
	}

	var compact bool
	network := &cobra.Command{
		Use:   "network",
		Short: "Show the WiFi settings and link state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSystem(cmd, func(ctx context.Context, sys *sysapi.Client) error {
				cfg, err := sys.GetNetwork(ctx)
				if err != nil {
					return err
				}
				return a.printNetwork(cfg, compact)
			})
		},
	}
	network.Flags().BoolVar(&compact, "compact", false, "One line output")

	var hostname, ssid, password string
	setNetwork := &cobra.Command{
		Use:   "set-network",
		Short: "Change hostname, SSID or WiFi password",
		Long: `Change the master's hostname, WiFi SSID or WiFi password. Only the
given settings are sent. They take effect after 'mcmctl system reboot'.

Pass --password - to read the password from stdin.`,
		Example: `  mcmctl system set-network --hostname mcm-bench
  mcmctl system set-network --ssid lab --password -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := &sysapi.NetworkUpdate{}
			if cmd.Flags().Changed("hostname") {
				update.Hostname = &hostname
			}
			if cmd.Flags().Changed("ssid") {
				update.SSID = &ssid
			}
			if cmd.Flags().Changed("password") {
				if password == "-" {
					line, err := bufio.NewReader(a.in).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("failed to read password from stdin: %w", err)
					}
					password = strings.TrimRight(line, "\r\n")
				}
				update.Password = &password
			}
			if err := update.Validate(); err != nil {
				return err
			}

			return a.withSystem(cmd, func(ctx context.Context, sys *sysapi.Client) error {
				cfg, err := sys.SetNetwork(ctx, update)
				if err != nil {
					return err
				}
				if a.format == formatText {
					a.out.PrintWarning("Network settings stored",
						ui.Field{Key: "Applies", Value: "after reboot (mcmctl system reboot)"})
				}
				return a.printNetwork(cfg, false)
			})
		},
	}
	setNetwork.Flags().StringVar(&hostname, "hostname", "", "New hostname")
	setNetwork.Flags().StringVar(&ssid, "ssid", "", "New WiFi SSID")
	setNetwork.Flags().StringVar(&password, "password", "", "New WiFi password, or - for stdin")

	cmd.AddCommand(reboot, identify, network, setNetwork)
	return cmd
}

// withSystem runs fn with the system API client of the target master.
func (a *app) withSystem(cmd *cobra.Command, fn func(ctx context.Context, sys *sysapi.Client) error) error {
	return a.withMaster(cmd, func(ctx context.Context, s *session) error {
		sys, err := s.master.System()
		if err != nil {
			return err
		}
		return fn(ctx, sys)
	})
}

func (a *app) printNetwork(cfg *sysapi.NetworkConfig, compact bool) error {
	switch {
	case a.format == formatJSON:
		masked := *cfg
		if masked.Password != "" {
			masked.Password = "********"
		}
		return a.emit(masked)
	case compact:
		a.out.Println(cfg.FormatCompact())
	default:
		a.out.Printf("%s", cfg.FormatDetailed())
	}
	return nil
}
