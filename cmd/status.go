/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusLabels = []string{
	"Last loopback", "Last pair A", "Last pair B", "Next free", "Next free",
	"Loopback RTS", "Loopback DTR", "Loopback DTR at open",
	"Pair A RTS", "Pair A DTR", "Pair A DTR at open",
	"Pair B RTS", "Pair B DTR", "Pair B DTR at open",
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the adapter query record",
	Long: `Show the most recently created loopback and null-modem pair, their wiring,
and the next two free indices.

Absent indices read xxxxx, absent pin maps x-x,x,x,x and absent flags x.

Example usage:
  vserial status
  vserial status --raw`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		raw, _ := cmd.Flags().GetBool("raw")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		record, err := client().Status(ctx)
		if err != nil {
			fail("querying adapter", err)
		}
		if raw {
			fmt.Println(record)
			return
		}
		for i, field := range strings.Split(record, "#") {
			label := "Field"
			if i < len(statusLabels) {
				label = statusLabels[i]
			}
			fmt.Printf("  %-22s %s\n", label+":", field)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("raw", false, "Print the record in its wire format")
}
