package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

type writeFlags struct {
	address string
	family  string
	slot    byte
}

func newWriteCmd() *cobra.Command {
	flags := &writeFlags{}

	cmd := &cobra.Command{
		Use:   "write <name> <value>",
		Short: "Write a value to a tag or PCCC address",
		Args:  cobra.ExactArgs(2),
		Example: `  plccli write --address 10.0.0.50 MyTag 1
  plccli write --address 10.0.0.50 --family slc N7:0 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closeFn, err := openDriver(flags.address, flags.family, flags.slot)
			if err != nil {
				return err
			}
			defer closeFn()

			name, raw := args[0], args[1]
			return d.Write(name, parseCliValue(raw))
		},
	}

	cmd.Flags().StringVar(&flags.address, "address", "", "PLC IP address (required)")
	cmd.Flags().StringVar(&flags.family, "family", "logix", "PLC family: logix or slc")
	cmd.Flags().Uint8Var(&flags.slot, "slot", 0, "backplane slot (logix only)")
	cmd.MarkFlagRequired("address")

	return cmd
}

// parseCliValue converts a command-line value string to the narrowest Go
// type it parses as: bool, then int64, then float64, falling back to string.
func parseCliValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
