/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <index>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals of a device.

Examples:
  vserial signals 0
  vserial signals /tmp/vserial/ttyV1

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// An empty update reads the registers without changing them.
		mcr, msr, err := client().SetModemLines(ctx, idx, 0, 0)
		if err != nil {
			fail("reading modem signals", err)
		}
		lines := mcr | msr

		fmt.Printf("Modem Signals for %s:\n\n", vserial.PortPath(ptyDir(), idx))
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(lines&vserial.LineCTS != 0))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(lines&vserial.LineDSR != 0))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(lines&vserial.LineRI != 0))
		fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(lines&vserial.LineDCD != 0))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(lines&vserial.LineRTS != 0))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(lines&vserial.LineDTR != 0))
	},
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
