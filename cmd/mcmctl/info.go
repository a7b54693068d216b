package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/mcm"
	"github.com/mcmlink/mcm/internal/sysapi"
	"github.com/mcmlink/mcm/internal/ui"
)

type infoOutput struct {
	Host   string             `json:"host"`
	Device *mcm.DeviceInfo    `json:"device"`
	System *sysapi.SystemInfo `json:"system,omitempty"`
	WiFi   *mcm.WiFiStatus    `json:"wifi,omitempty"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show master model, firmware and status",
		Long: `Show the master's model and firmware version, and the uptime, reset
reason and WiFi link reported by its system API.

A registered master's model and firmware are recorded in the config file.`,
		Example: `  mcmctl info --master 192.168.4.1
  mcmctl info -m bench --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMaster(cmd, func(ctx context.Context, s *session) error {
				return runInfo(ctx, a, s)
			})
		},
	}
}

func runInfo(ctx context.Context, a *app, s *session) error {
	dev, err := s.master.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to read device info: %w", err)
	}
	out := infoOutput{Host: s.host, Device: dev}

	// The system API and the wifi task are optional extras; older firmware
	// may lack them.
	if sys, err := s.master.System(); err == nil {
		if info, err := sys.GetInfo(ctx); err == nil {
			out.System = info
			logging.Debug("System info", zap.String("summary", info.Summary()))
		} else {
			logging.Debug("System info unavailable", zap.Error(err))
		}
	}
	if wifi, err := s.master.WiFiStatus(ctx); err == nil {
		out.WiFi = wifi
	} else {
		logging.Debug("WiFi status unavailable", zap.Error(err))
	}

	if s.name != "" {
		a.settings.registry.UpdateMasterSeen(s.name, dev.Model, dev.FirmwareVersion)
		if err := a.settings.save(); err != nil {
			logging.Warn("Failed to save config", zap.Error(err))
		}
	}

	fields := []ui.Field{
		{Key: "Host", Value: s.host},
		{Key: "Model", Value: dev.Model},
		{Key: "Firmware", Value: dev.FirmwareVersion},
		{Key: "API revision", Value: strconv.Itoa(dev.APIRevision)},
	}
	if out.System != nil {
		fields = append(fields,
			ui.Field{Key: "Uptime", Value: sysapi.FormatUpTime(out.System.UpTime())},
			ui.Field{Key: "Reset reason", Value: out.System.ResetReasonText()},
		)
	}
	if out.WiFi != nil {
		fields = append(fields, ui.Field{Key: "WiFi", Value: out.WiFi.String()})
	}
	return a.emit(out, fields...)
}
