package main

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/lin"
	"github.com/mcmlink/mcm/internal/ui"
)

type diagOutput struct {
	NAD      uint8     `json:"nad"`
	SID      uint8     `json:"sid"`
	Response lin.Bytes `json:"response"`
}

type readByIDOutput struct {
	NAD        uint8     `json:"nad"`
	Identifier uint8     `json:"identifier"`
	Data       lin.Bytes `json:"data"`
	SupplierID *uint16   `json:"supplier_id,omitempty"`
	FunctionID *uint16   `json:"function_id,omitempty"`
	Variant    *uint8    `json:"variant,omitempty"`
	Serial     *uint32   `json:"serial_number,omitempty"`
}

func newDiagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Run LIN diagnostic services on a node",
	}

	var noWait bool
	send := &cobra.Command{
		Use:   "send <nad> <sid> [data]",
		Short: "Send a diagnostic request and print the response data",
		Long: `Send a diagnostic request and print the response data, without the
response SID. A negative response is reported with its NRC name.

With --no-wait the request is only queued; read the reply later with the
same SID and --receive.`,
		Example: `  mcmctl diag send 0x0A 0x22 "01 02"
  mcmctl diag send 0x0A 0xB6`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nad, err := parseUint8(args[0], "NAD")
			if err != nil {
				return err
			}
			sid, err := parseUint8(args[1], "SID")
			if err != nil {
				return err
			}
			var data []byte
			if len(args) == 3 {
				if data, err = parseHexBytes(args[2]); err != nil {
					return err
				}
			}
			receive, _ := cmd.Flags().GetBool("receive")

			return a.withMaster(cmd, func(ctx context.Context, s *session) error {
				baud := a.settings.baudrate()
				var resp []byte
				switch {
				case receive:
					resp, err = lin.ReceiveMessage(ctx, s.master, nad, baud, sid)
				case noWait:
					err = lin.SendMessage(ctx, s.master, nad, baud, sid, data)
					if err == nil {
						return a.emit(diagOutput{NAD: nad, SID: sid, Response: lin.Bytes{}},
							ui.Field{Key: "Request", Value: "queued"})
					}
				default:
					resp, err = lin.SendDiagnostic(ctx, s.master, nad, baud, sid, data)
				}
				if err != nil {
					return err
				}
				return a.emit(diagOutput{NAD: nad, SID: sid, Response: resp},
					ui.Field{Key: "NAD", Value: fmt.Sprintf("0x%02X", nad)},
					ui.Field{Key: "SID", Value: fmt.Sprintf("0x%02X", sid)},
					ui.Field{Key: "Response", Value: lin.Bytes(resp).String()})
			})
		},
	}
	send.Flags().BoolVar(&noWait, "no-wait", false, "Queue the request without waiting for the response")
	send.Flags().Bool("receive", false, "Collect the response of an earlier --no-wait request")
	send.MarkFlagsMutuallyExclusive("no-wait", "receive")

	var supplier, function string
	readByID := &cobra.Command{
		Use:   "read-by-id <nad> <identifier>",
		Short: "Read a node identifier (0 = product id, 1 = serial number)",
		Example: `  mcmctl diag read-by-id 0x7F 0
  mcmctl diag read-by-id 0x0A 1 --supplier 0x0013`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nad, err := parseUint8(args[0], "NAD")
			if err != nil {
				return err
			}
			id, err := parseUint8(args[1], "identifier")
			if err != nil {
				return err
			}
			sup, err := parseUint(supplier, 16, "supplier id")
			if err != nil {
				return err
			}
			fn, err := parseUint(function, 16, "function id")
			if err != nil {
				return err
			}

			return a.withMaster(cmd, func(ctx context.Context, s *session) error {
				data, err := lin.ReadByIDFor(ctx, s.master, nad, a.settings.baudrate(), id, uint16(sup), uint16(fn))
				if err != nil {
					return err
				}
				out, fields, err := describeIdentifier(nad, id, data)
				if err != nil {
					return err
				}
				return a.emit(out, fields...)
			})
		},
	}
	readByID.Flags().StringVar(&supplier, "supplier", fmt.Sprintf("0x%04X", lin.WildcardSupplierID), "Supplier id")
	readByID.Flags().StringVar(&function, "function", fmt.Sprintf("0x%04X", lin.WildcardFunctionID), "Function id")

	cmd.AddCommand(send, readByID)
	return cmd
}

func describeIdentifier(nad, id uint8, data []byte) (readByIDOutput, []ui.Field, error) {
	out := readByIDOutput{NAD: nad, Identifier: id, Data: data}
	fields := []ui.Field{
		{Key: "NAD", Value: fmt.Sprintf("0x%02X", nad)},
		{Key: "Identifier", Value: fmt.Sprintf("%d", id)},
		{Key: "Data", Value: lin.Bytes(data).String()},
	}

	switch id {
	case lin.IDProductIdentification:
		p, err := lin.ParseProductIdentification(data)
		if err != nil {
			return out, nil, err
		}
		out.SupplierID, out.FunctionID, out.Variant = &p.SupplierID, &p.FunctionID, &p.Variant
		fields = append(fields,
			ui.Field{Key: "Supplier", Value: fmt.Sprintf("0x%04X", p.SupplierID)},
			ui.Field{Key: "Function", Value: fmt.Sprintf("0x%04X", p.FunctionID)},
			ui.Field{Key: "Variant", Value: fmt.Sprintf("0x%02X", p.Variant)})
	case lin.IDSerialNumber:
		if len(data) >= 4 {
			serial := binary.LittleEndian.Uint32(data)
			out.Serial = &serial
			fields = append(fields, ui.Field{Key: "Serial number", Value: fmt.Sprintf("%d", serial)})
		}
	}
	return out, fields, nil
}
