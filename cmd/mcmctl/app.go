package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/lin"
	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/mcm"
	"github.com/mcmlink/mcm/internal/sysapi"
	"github.com/mcmlink/mcm/internal/transport"
	"github.com/mcmlink/mcm/internal/ui"
	"github.com/mcmlink/mcm/internal/version"
)

const disconnectReason = "mcmctl done"

// app carries the state shared by all commands of one invocation.
type app struct {
	in       io.Reader
	settings *settings
	out      *ui.Printer
	format   string
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := loadSettings(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	if err := logging.Initialize(s.logLevel()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	format, err := s.format()
	if err != nil {
		return err
	}

	a.settings = s
	a.format = format
	a.out = ui.NewPrinter(cmd.OutOrStdout())
	return nil
}

// session is one connected master.
type session struct {
	name   string // registry name, empty for ad-hoc hosts
	host   string
	master *mcm.Master
}

func (a *app) connect(ctx context.Context) (*session, error) {
	name, host, secure, err := a.settings.target()
	if err != nil {
		return nil, err
	}

	m := mcm.New(
		transport.WithHeartbeatInterval(a.settings.heartbeat()),
		transport.WithObserver(transport.ObserverFuncs{
			Disconnect: func(reason string) {
				logging.Info("Master disconnected", zap.String("host", host), zap.String("reason", reason))
			},
		}),
	)

	cctx, cancel := context.WithTimeout(ctx, a.settings.timeout())
	defer cancel()
	if err := m.Connect(cctx, host, secure); err != nil {
		return nil, err
	}

	if sys, err := m.System(); err == nil {
		sys.UserAgent = version.UserAgent("mcmctl")
		sys.SetTimeout(a.settings.timeout())
	}
	return &session{name: name, host: host, master: m}, nil
}

// withMaster connects, runs fn under the request timeout and disconnects.
func (a *app) withMaster(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.master.Disconnect(disconnectReason) }()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.settings.timeout())
	defer cancel()
	return fn(ctx, s)
}

// emit prints v as JSON in json mode, or the fields otherwise.
func (a *app) emit(v any, fields ...ui.Field) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(a.out.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	a.out.PrintFields(fields...)
	return nil
}

// printError renders err with troubleshooting tips where the error type
// has them.
func printError(w io.Writer, err error) {
	p := ui.NewPrinter(w)

	var apiErr *sysapi.APIError
	var nrc *lin.NegativeResponseError
	var reported errAlreadyReported
	switch {
	case errors.As(err, &reported):
	case errors.As(err, &apiErr):
		p.PrintFailure(sysapi.GetShortErrorMessage(err), err, ui.SplitHint(sysapi.GetTroubleshootingHint(err)))
	case transport.IsConnectFailed(err):
		p.PrintFailure("Cannot connect to master", err, []string{
			"Check the master address and that it is powered",
			"Use --secure if the master serves wss",
		})
	case transport.IsConnectionLost(err):
		p.PrintFailure("Connection lost", err, []string{
			"The master stopped answering heartbeats",
			"Increase --heartbeat on slow links",
		})
	case errors.As(err, &nrc):
		p.PrintFailure("Negative response ("+nrc.Name()+")", err, nil)
	case errors.Is(err, context.DeadlineExceeded):
		p.PrintFailure("Request timed out", err, []string{"Increase --timeout"})
	default:
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
