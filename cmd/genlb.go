/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
)

// genlbCmd represents the genlb command
var genlbCmd = &cobra.Command{
	Use:   "genlb [index]",
	Short: "Create a loopback device",
	Long: `Create an endpoint wired to itself, like a loopback plug: data written
is read back and its own RTS/DTR drive its status lines.

Example usage:
  vserial genlb
  vserial genlb 5 --rts 7-8,x,x,x --dtr 4-1,6,9,x`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ep := vserial.StandardEndpoint(vserial.AutoIndex)
		if len(args) == 1 {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				fail("parsing index", err)
			}
			ep.Index = idx
		}
		if err := endpointFlags(cmd, "", &ep); err != nil {
			fail("parsing wiring", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		indices, err := client().Exec(ctx, vserial.Command{Kind: vserial.CommandLoopback, Pair: vserial.PairSpec{A: ep}})
		if err != nil {
			fail("creating loopback", err)
		}
		printCreated(indices)
	},
}

func init() {
	rootCmd.AddCommand(genlbCmd)
	addEndpointFlags(genlbCmd, "")
}
