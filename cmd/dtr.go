/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <index> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state of a device.

The DTR signal indicates that the terminal is ready for communication. With
standard wiring the peer sees it as DCD and DSR.

Examples:
  vserial dtr 0 high
  vserial dtr 0 low

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setControlLine(args, vserial.LineDTR, "DTR")
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
