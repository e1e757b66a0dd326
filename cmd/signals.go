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

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display and set modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified
port. The --dtr and --rts flags set the output lines before reading, the same
way they do for a session.

Examples:
  nanocom signals /dev/ttyUSB0
  nanocom signals /dev/ttyUSB0 --dtr=false --rts=false

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		port, err := serial.Open(portPath)
		if err != nil {
			return fmt.Errorf("opening port: %w", err)
		}
		defer port.Close()

		if err := applyLines(port, configuredLine("dtr"), configuredLine("rts")); err != nil {
			return err
		}

		signals, err := port.GetModemSignals()
		if err != nil {
			return fmt.Errorf("reading modem signals: %w", err)
		}

		printModemSignals(os.Stdout, portPath, signals)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}

// lineSetter is the part of a port that drives the output lines
type lineSetter interface {
	SetDTR(state bool) error
	SetRTS(state bool) error
}

// applyLines drives DTR and RTS on an open port. A nil state leaves the line
// alone.
func applyLines(port lineSetter, dtr, rts *bool) error {
	if dtr != nil {
		if err := port.SetDTR(*dtr); err != nil {
			return fmt.Errorf("setting DTR: %w", err)
		}
	}
	if rts != nil {
		if err := port.SetRTS(*rts); err != nil {
			return fmt.Errorf("setting RTS: %w", err)
		}
	}
	return nil
}

func printModemSignals(w io.Writer, portPath string, signals serial.ModemSignals) {
	fmt.Fprintf(w, "Modem Signals for %s:\n\n", portPath)
	fmt.Fprintf(w, "  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Fprintf(w, "  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Fprintf(w, "  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Fprintf(w, "  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Fprintf(w, "  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Fprintf(w, "  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}
