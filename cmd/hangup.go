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

// hangupCmd represents the hangup command
var hangupCmd = &cobra.Command{
	Use:     "hangup <index>",
	Aliases: []string{"reset"},
	Short:   "Hang up the session on a device",
	Long: `Hang up the open session on a device. Blocked readers and writers fail,
RTS and DTR drop, and the peer sees its status lines fall. The device
itself stays installed and can be opened again.

Example usage:
  vserial hangup 0
  vserial reset /tmp/vserial/ttyV0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client().Hangup(ctx, idx); err != nil {
			fail("hanging up", err)
		}
		fmt.Printf("Hung up %s\n", vserial.PortPath(ptyDir(), idx))
	},
}

func init() {
	rootCmd.AddCommand(hangupCmd)
}
