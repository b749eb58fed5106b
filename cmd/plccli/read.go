package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdmfab/upycomm/driver"
)

type readFlags struct {
	address string
	family  string
	slot    byte
}

func newReadCmd() *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "read <name> [name...]",
		Short: "Read one or more tags or PCCC addresses",
		Args:  cobra.MinimumNArgs(1),
		Example: `  plccli read --address 10.0.0.50 MyTag
  plccli read --address 10.0.0.50 --family slc N7:0 F8:5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closeFn, err := openDriver(flags.address, flags.family, flags.slot)
			if err != nil {
				return err
			}
			defer closeFn()

			values, err := d.Read(args...)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}

			for _, v := range values {
				if v.Error != nil {
					fmt.Printf("%s\tERROR: %v\n", v.Name, v.Error)
					continue
				}
				fmt.Printf("%s\t%v\n", v.Name, v.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.address, "address", "", "PLC IP address (required)")
	cmd.Flags().StringVar(&flags.family, "family", "logix", "PLC family: logix or slc")
	cmd.Flags().Uint8Var(&flags.slot, "slot", 0, "backplane slot (logix only)")
	cmd.MarkFlagRequired("address")

	return cmd
}

// openDriver builds and connects the Driver for the requested family.
func openDriver(address, family string, slot byte) (driver.Driver, func(), error) {
	var d driver.Driver

	switch family {
	case "logix", "":
		d = driver.NewLogixAdapter(address, slot, nil)
	case "slc":
		d = driver.NewSlcAdapter(address, 0, nil)
	default:
		return nil, nil, fmt.Errorf("unknown family %q (want logix or slc)", family)
	}

	if err := d.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return d, func() { d.Close() }, nil
}
