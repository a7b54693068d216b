package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/ui"
)

type powerOutput struct {
	Enabled bool `json:"enabled"`
}

func newPowerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Switch or query the LIN slave power supply",
	}

	set := func(on bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return a.withMaster(cmd, func(ctx context.Context, s *session) error {
				var err error
				if on {
					err = s.master.EnableSlavePower(ctx)
				} else {
					err = s.master.DisableSlavePower(ctx)
				}
				if err != nil {
					return err
				}
				return a.emit(powerOutput{Enabled: on}, ui.Field{Key: "Slave power", Value: onOff(on)})
			})
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Enable the slave power supply",
			Args:  cobra.NoArgs,
			RunE:  set(true),
		},
		&cobra.Command{
			Use:   "off",
			Short: "Disable the slave power supply",
			Args:  cobra.NoArgs,
			RunE:  set(false),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the slave power supply is enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMaster(cmd, func(ctx context.Context, s *session) error {
					on, err := s.master.IsSlavePowerEnabled(ctx)
					if err != nil {
						return err
					}
					return a.emit(powerOutput{Enabled: on}, ui.Field{Key: "Slave power", Value: onOff(on)})
				})
			},
		},
	)
	return cmd
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
