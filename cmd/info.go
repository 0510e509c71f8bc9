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

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <index>",
	Short: "Display detailed information about a device",
	Long: `Display the wiring, line state, parameters and event counters of a device.

With --attr a single control channel attribute is printed in its wire
format instead (ownidx, pairidx, ownrtsmap, owndtrmap, pairrtsmap,
pairdtrmap, devtype, owndtratopen, pairdtratopen, evt, mcr, msr).

Example usage:
  vserial info 0
  vserial info /tmp/vserial/ttyV1
  vserial info 0 --attr evt`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}
		attr, _ := cmd.Flags().GetString("attr")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if attr != "" {
			value, err := client().Attr(ctx, idx, attr)
			if err != nil {
				fail("reading attribute", err)
			}
			fmt.Println(value)
			return
		}

		info, err := client().Info(ctx, idx)
		if err != nil {
			fail("getting device info", err)
		}
		printDeviceInfo(info)
	},
}

func printDeviceInfo(info vserial.DeviceInfo) {
	fmt.Printf("Device Information: %s\n\n", vserial.PortPath(ptyDir(), info.Index))
	fmt.Printf("  Index:       %s\n", vserial.FormatIndex(info.Index))
	fmt.Printf("  Peer:        %s\n", vserial.FormatIndex(info.Peer))
	fmt.Printf("  Kind:        %s\n", info.Kind)
	fmt.Printf("  Description: %s\n", info.Description)

	fmt.Println("\nWiring:")
	fmt.Printf("  RTS:         %s\n", vserial.FormatPinMap('7', info.RTSMap))
	fmt.Printf("  DTR:         %s\n", vserial.FormatPinMap('4', info.DTRMap))
	fmt.Printf("  DTR at open: %v\n", info.DTRAtOpen)
	if !info.Kind.Loopback() {
		fmt.Printf("  Peer RTS:    %s\n", vserial.FormatPinMap('7', info.PeerRTSMap))
		fmt.Printf("  Peer DTR:    %s\n", vserial.FormatPinMap('4', info.PeerDTRMap))
	}
	if info.FaultyCable {
		fmt.Println("  Cable:       faulty")
	}

	fmt.Println("\nState:")
	fmt.Printf("  Open:        %v\n", info.Open)
	if info.Open {
		fmt.Printf("  Parameters:  %s\n", info.Params)
	}
	fmt.Printf("  MCR:         %s\n", info.MCR)
	fmt.Printf("  MSR:         %s\n", info.MSR)
	fmt.Printf("  Waiting:     %v\n", info.Waiting)

	c := info.Counters
	fmt.Println("\nCounters:")
	fmt.Printf("  TX %d  RX %d\n", c.TX, c.RX)
	fmt.Printf("  CTS %d  DSR %d  DCD %d  RI %d\n", c.CTS, c.DSR, c.DCD, c.RI)
	fmt.Printf("  Break %d  Framing %d  Parity %d  Overrun %d  Buffer overrun %d\n",
		c.Break, c.Frame, c.Parity, c.Overrun, c.BufOverrun)
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("attr", "a", "", "Print a single attribute in wire format")
}
