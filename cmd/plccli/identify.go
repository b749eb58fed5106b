package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdmfab/upycomm/eip"
)

func newIdentifyCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:     "identify",
		Short:   "Query device identity over EtherNet/IP (ListIdentity)",
		Example: `  plccli identify --address 10.0.0.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := eip.NewEipClient(address)
			if err := client.Connect(); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer client.Disconnect()

			identities, err := client.ListIdentityTCP()
			if err != nil {
				return fmt.Errorf("identify: %w", err)
			}
			if len(identities) == 0 {
				fmt.Println("no identity returned")
				return nil
			}

			for _, id := range identities {
				fmt.Printf("Vendor ID:    0x%04X\n", id.VendorID)
				fmt.Printf("Device Type:  0x%04X\n", id.DeviceType)
				fmt.Printf("Product Code: 0x%04X\n", id.ProductCode)
				fmt.Printf("Revision:     %d.%d\n", id.RevisionMajor, id.RevisionMinor)
				fmt.Printf("Serial:       0x%08X\n", id.SerialNumber)
				fmt.Printf("Product Name: %s\n", id.ProductName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "PLC IP address (required)")
	cmd.MarkFlagRequired("address")

	return cmd
}
