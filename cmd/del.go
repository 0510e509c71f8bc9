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

// delCmd represents the del command
var delCmd = &cobra.Command{
	Use:   "del <index|--all>",
	Short: "Destroy a device",
	Long: `Destroy a device. Destroying one end of a null-modem pair destroys both.
Open ports, readers and waiters on the destroyed devices fail.

Example usage:
  vserial del 3
  vserial del /tmp/vserial/ttyV3
  vserial del --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all && len(args) > 0 {
			return fmt.Errorf("cannot specify both an index and --all")
		}
		if !all && len(args) != 1 {
			return fmt.Errorf("requires either an index argument or --all")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		c := vserial.Command{Kind: vserial.CommandDestroyAll, Index: vserial.AutoIndex}
		if len(args) == 1 {
			idx, err := parseIndexArg(args[0])
			if err != nil {
				fail("parsing index", err)
			}
			c = vserial.Command{Kind: vserial.CommandDestroy, Index: idx}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		indices, err := client().Exec(ctx, c)
		if err != nil {
			fail("destroying device", err)
		}
		if c.Kind == vserial.CommandDestroyAll {
			fmt.Println("All devices destroyed")
			return
		}
		for _, idx := range indices {
			fmt.Printf("Destroyed %s\n", vserial.FormatIndex(idx))
		}
	},
}

func init() {
	rootCmd.AddCommand(delCmd)
	delCmd.Flags().Bool("all", false, "Destroy every device")
}
