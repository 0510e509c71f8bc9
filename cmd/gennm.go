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

// gennmCmd represents the gennm command
var gennmCmd = &cobra.Command{
	Use:   "gennm [index-a] [index-b]",
	Short: "Create a null-modem pair",
	Long: `Create two endpoints wired to each other like a null-modem cable.

Indices default to the lowest free slots. The default wiring is the
standard one: RTS drives the peer's CTS (7-8,x,x,x), DTR drives the peer's
DCD and DSR (4-1,6,x,x), and DTR is raised when the port is opened.

Pin maps use DB-9 pin numbers: 7=RTS 4=DTR 8=CTS 1=DCD 6=DSR 9=RI x=none.

Example usage:
  vserial gennm
  vserial gennm 10 11
  vserial gennm --rts-a 7-8,9,x,x --dtr-at-open-b=false`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pair := vserial.PairSpec{
			A: vserial.StandardEndpoint(vserial.AutoIndex),
			B: vserial.StandardEndpoint(vserial.AutoIndex),
		}
		var err error
		for i, ep := range []*vserial.EndpointSpec{&pair.A, &pair.B} {
			if i < len(args) {
				if ep.Index, err = parseIndexArg(args[i]); err != nil {
					fail("parsing index", err)
				}
			}
			side := string(rune('a' + i))
			if err := endpointFlags(cmd, side, ep); err != nil {
				fail("parsing wiring", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		indices, err := client().Exec(ctx, vserial.Command{Kind: vserial.CommandNullModem, Pair: pair})
		if err != nil {
			fail("creating null-modem pair", err)
		}
		printCreated(indices)
	},
}

func init() {
	rootCmd.AddCommand(gennmCmd)

	for _, side := range []string{"a", "b"} {
		addEndpointFlags(gennmCmd, side)
	}
}

// sideFlag names a per-endpoint flag: "rts-a" for a pair, "rts" for a loopback.
func sideFlag(name, side string) string {
	if side == "" {
		return name
	}
	return name + "-" + side
}

// addEndpointFlags registers the wiring flags of one endpoint.
func addEndpointFlags(cmd *cobra.Command, side string) {
	std := vserial.StandardEndpoint(vserial.AutoIndex)
	cmd.Flags().String(sideFlag("rts", side), vserial.FormatPinMap('7', std.RTSMap), "RTS pin map")
	cmd.Flags().String(sideFlag("dtr", side), vserial.FormatPinMap('4', std.DTRMap), "DTR pin map")
	cmd.Flags().Bool(sideFlag("dtr-at-open", side), std.DTRAtOpen, "Raise DTR when the port is opened")
}

func endpointFlags(cmd *cobra.Command, side string, ep *vserial.EndpointSpec) error {
	rtsFlag, dtrFlag := sideFlag("rts", side), sideFlag("dtr", side)
	rts, _ := cmd.Flags().GetString(rtsFlag)
	dtr, _ := cmd.Flags().GetString(dtrFlag)
	dao, _ := cmd.Flags().GetBool(sideFlag("dtr-at-open", side))

	var err error
	if ep.RTSMap, err = vserial.ParsePinMap(rts, '7'); err != nil {
		return fmt.Errorf("--%s %q: %w", rtsFlag, rts, err)
	}
	if ep.DTRMap, err = vserial.ParsePinMap(dtr, '4'); err != nil {
		return fmt.Errorf("--%s %q: %w", dtrFlag, dtr, err)
	}
	ep.DTRAtOpen = dao
	return nil
}

func printCreated(indices []int) {
	dir := ptyDir()
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = vserial.PortPath(dir, idx)
	}
	fmt.Println(strings.Join(parts, " <-> "))
}
