/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <index> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state of a device.

The peer sees the change on the status lines RTS is wired to.

Examples:
  vserial rts 0 high
  vserial rts 0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setControlLine(args, vserial.LineRTS, "RTS")
	},
}

// setControlLine drives one control line of the device named by args[0]
// to the state in args[1].
func setControlLine(args []string, line vserial.LineMask, name string) {
	idx, err := parseIndexArg(args[0])
	if err != nil {
		fail("parsing index", err)
	}
	state, err := parseSignalState(args[1])
	if err != nil {
		fail("parsing state", err)
	}

	set, clr := vserial.LineMask(0), line
	if state {
		set, clr = line, 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mcr, _, err := client().SetModemLines(ctx, idx, set, clr)
	if err != nil {
		fail("setting "+name, err)
	}

	fmt.Printf("%s set to %s on %s\n", name, formatSignalState(mcr&line != 0), vserial.PortPath(ptyDir(), idx))
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func init() {
	rootCmd.AddCommand(rtsCmd)
}
