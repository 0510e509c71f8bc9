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

var faultEvents = map[string]byte{
	"framing":      vserial.FaultFraming,
	"parity":       vserial.FaultParity,
	"overrun":      vserial.FaultOverrun,
	"ring-on":      vserial.FaultRingOn,
	"ring-off":     vserial.FaultRingOff,
	"break":        vserial.FaultBreak,
	"cable-cut":    vserial.FaultCableCut,
	"cable-repair": vserial.FaultCableRepair,
}

// faultCmd represents the fault command
var faultCmd = &cobra.Command{
	Use:   "fault <index> <event>",
	Short: "Inject a line event on a device",
	Long: `Simulate a line event on a device.

Events:
  framing, parity, overrun   count an error of that kind
  ring-on, ring-off          raise or drop RI
  break                      count a break and deliver a NUL byte
  cable-cut, cable-repair    corrupt or restore bytes sent from the device

The single-character event codes of the control channel (f p o r i b y n)
are accepted too.

Example usage:
  vserial fault 0 ring-on
  vserial fault 1 cable-cut`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}
		event, err := parseFaultEvent(args[1])
		if err != nil {
			fail("parsing event", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client().Fault(ctx, idx, event); err != nil {
			fail("injecting fault", err)
		}
		fmt.Printf("Injected %s on %s\n", args[1], vserial.PortPath(ptyDir(), idx))
	},
}

func parseFaultEvent(s string) (byte, error) {
	if ev, ok := faultEvents[strings.ToLower(s)]; ok {
		return ev, nil
	}
	if len(s) == 1 {
		for _, ev := range faultEvents {
			if ev == s[0] {
				return ev, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown event: %s", s)
}

func init() {
	rootCmd.AddCommand(faultCmd)
}
