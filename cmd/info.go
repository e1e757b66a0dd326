/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/allbin/nanocom/serial"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  nanocom info /dev/ttyUSB0
  nanocom info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := serial.GetPortInfo(args[0])
		if err != nil {
			return fmt.Errorf("getting port info: %w", err)
		}
		printPortInfo(os.Stdout, info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printPortInfo(w io.Writer, info *serial.PortInfo) {
	fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(w, "  Name:        %s\n", info.Name)
	fmt.Fprintf(w, "  Type:        %s\n", getPortType(info.Name))
	fmt.Fprintf(w, "  Description: %s\n", info.Description)

	if !info.IsUSB() {
		return
	}

	fmt.Fprintln(w, "\nUSB Device Information:")
	for _, field := range []struct {
		label, value string
	}{
		{"Vendor ID", info.VendorID},
		{"Product ID", info.ProductID},
		{"Serial", info.SerialNumber},
		{"Interface", info.InterfaceNumber},
		{"Bus", info.BusNumber},
		{"Device", info.DeviceNumber},
		{"Manufacturer", info.Manufacturer},
		{"Product", info.Product},
	} {
		if field.value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", field.label+":", field.value)
		}
	}
}
