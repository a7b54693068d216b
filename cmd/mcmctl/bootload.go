package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/mcm"
	"github.com/mcmlink/mcm/internal/ui"
)

type bootloadOptions struct {
	operation   string
	memory      string
	one2many    bool
	manualPower bool
	bitrate     int
	fullDuplex  bool
	txPin       int
	flashKeys   []string
	project     string
	yes         bool
}

func newBootloadCmd(a *app) *cobra.Command {
	opts := &bootloadOptions{}
	cmd := &cobra.Command{
		Use:   "bootload <hexfile>",
		Short: "Program or verify slave memory from an Intel HEX file",
		Long: `Run the master's slave bootloader with an Intel HEX image.

The LIN bus is held by the bootloader until the operation finishes and the
heartbeat is paused meanwhile. Writing operations ask for confirmation
unless --yes is given. Press ctrl+c to abort.`,
		Example: `  # Program the flash of the slave on the bus
  mcmctl bootload app.hex -m bench

  # Verify the EEPROM of a single addressed slave, without prompting
  mcmctl bootload cal.hex --operation verify --memory eeprom --one2many=false --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootload(cmd, a, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.operation, "operation", string(mcm.OperationProgram), "Operation (program, verify)")
	f.StringVar(&opts.memory, "memory", string(mcm.MemoryFlash), "Target memory (flash, nvram, eeprom)")
	f.BoolVar(&opts.one2many, "one2many", true, "Address every slave on the bus at once")
	f.BoolVar(&opts.manualPower, "manpow", false, "Slaves are power cycled by hand instead of by the master")
	f.IntVar(&opts.bitrate, "bitrate", 0, "Bootloader bitrate (0 = firmware default)")
	f.BoolVar(&opts.fullDuplex, "fullduplex", false, "Use full duplex mode")
	f.IntVar(&opts.txPin, "txpin", 0, "Transmit pin used by the bootloader")
	f.StringSliceVar(&opts.flashKeys, "flash-keys", nil, "Flash protection keys (comma separated, hex or decimal)")
	f.StringVar(&opts.project, "project", "0", "Project id for protected parts")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (o *bootloadOptions) request(hexPath string) (mcm.BootloadRequest, error) {
	op, err := mcm.ParseOperation(o.operation)
	if err != nil {
		return mcm.BootloadRequest{}, err
	}
	mem, err := mcm.ParseMemory(o.memory)
	if err != nil {
		return mcm.BootloadRequest{}, err
	}
	keys, err := parseFlashKeys(o.flashKeys)
	if err != nil {
		return mcm.BootloadRequest{}, err
	}
	project, err := parseUint(o.project, 16, "project id")
	if err != nil {
		return mcm.BootloadRequest{}, err
	}
	hex, err := os.ReadFile(hexPath)
	if err != nil {
		return mcm.BootloadRequest{}, fmt.Errorf("failed to read hex file: %w", err)
	}

	req := mcm.BootloadRequest{
		Operation:   op,
		Memory:      mem,
		HexFile:     string(hex),
		One2Many:    o.one2many,
		ManualPower: o.manualPower,
		Bitrate:     o.bitrate,
		FullDuplex:  o.fullDuplex,
		TxPin:       o.txPin,
		FlashKeys:   keys,
		Project:     uint16(project),
	}
	return req, req.Validate()
}

func runBootload(cmd *cobra.Command, a *app, opts *bootloadOptions, hexPath string) error {
	req, err := opts.request(hexPath)
	if err != nil {
		return err
	}
	_, host, _, err := a.settings.target()
	if err != nil {
		return err
	}

	interactive := a.format == formatText
	if interactive {
		a.out.PrintHeader("Bootload", "mcmctl "+cmd.Name()+" "+filepath.Base(hexPath),
			ui.Field{Key: "Master", Value: host},
			ui.Field{Key: "Operation", Value: string(req.Operation)},
			ui.Field{Key: "Memory", Value: string(req.Memory)},
			ui.Field{Key: "Hex file", Value: fmt.Sprintf("%s (%d bytes)", hexPath, len(req.HexFile))},
		)
	}
	if req.Operation == mcm.OperationProgram && !opts.yes {
		if !ui.BootloadConfirmation(a.in, a.out.Writer(), string(req.Operation), string(req.Memory), host) {
			return fmt.Errorf("bootload cancelled")
		}
	}

	s, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.master.Disconnect(disconnectReason) }()

	// No request timeout: programming takes as long as the image needs.
	start := time.Now()
	var result json.RawMessage
	task := func(ctx context.Context) error {
		var err error
		result, err = s.master.Bootload(ctx, req)
		return err
	}
	label := fmt.Sprintf("%s %s", titleCase(string(req.Operation)), req.Memory)
	if interactive {
		err = ui.RunWithSpinner(cmd.Context(), a.out.Writer(), label, task)
	} else {
		err = task(cmd.Context())
	}
	elapsed := time.Since(start)

	if err != nil {
		if interactive {
			a.out.PrintFailure(label+" failed", err, []string{
				"Check that the slaves are powered (mcmctl power status)",
				"Verify the hex file matches the slave part",
			})
			return errAlreadyReported{err}
		}
		return err
	}

	if a.format == formatJSON {
		return a.emit(map[string]any{
			"operation": req.Operation,
			"memory":    req.Memory,
			"duration":  elapsed.Seconds(),
			"result":    result,
		})
	}
	a.out.PrintSuccess(label+" complete",
		ui.Field{Key: "Master", Value: host},
		ui.Field{Key: "Duration", Value: formatDuration(elapsed)},
	)
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// errAlreadyReported is returned when the command already printed a failure
// box; main only sets the exit status.
type errAlreadyReported struct{ err error }

func (e errAlreadyReported) Error() string { return e.err.Error() }
func (e errAlreadyReported) Unwrap() error { return e.err }
