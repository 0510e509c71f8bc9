/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
)

var (
	monitorSignals []string
	monitorTimeout time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <index>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem status line changes on a device in real-time.

Blocks on the adapter until one of the selected lines changes and reports
the new state. Press Ctrl+C to stop.

Examples:
  vserial monitor 0
  vserial monitor 0 --signals cts,dsr
  vserial monitor 1 --signals dcd --timeout 30s

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}

		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fail("parsing signals", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := client()
		path := vserial.PortPath(ptyDir(), idx)
		fmt.Printf("Monitoring signals on %s (signals: %s)\n", path, mask)
		fmt.Println("Press Ctrl+C to stop")

		_, msr, err := c.SetModemLines(ctx, idx, 0, 0)
		if err != nil {
			fail("reading initial signals", err)
		}
		printSignalState("Initial", msr, mask)

		for {
			waitCtx, cancel := ctx, context.CancelFunc(func() {})
			if monitorTimeout > 0 {
				waitCtx, cancel = context.WithTimeout(ctx, monitorTimeout)
			}
			changed, err := c.Wait(waitCtx, idx, mask)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("\nStopping monitor...")
					return
				}
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, vserial.ErrInterrupted) {
					fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
					continue
				}
				fail("waiting for signal change", err)
			}

			_, msr, err := c.SetModemLines(ctx, idx, 0, 0)
			if err != nil {
				fail("reading signals", err)
			}
			printSignalState("Signal change detected", msr, changed)
		}
	},
}

func parseSignalMask(signalNames []string) (vserial.SignalMask, error) {
	if len(signalNames) == 0 {
		return vserial.SignalAll, nil
	}
	mask, err := vserial.ParseSignalMask(strings.Join(signalNames, ","))
	if err != nil {
		return 0, fmt.Errorf("unknown signal in %s (valid: cts, dsr, ri, dcd)", strings.Join(signalNames, ","))
	}
	return mask, nil
}

var monitoredLines = []struct {
	name string
	line vserial.LineMask
}{
	{"CTS", vserial.LineCTS},
	{"DSR", vserial.LineDSR},
	{"RI", vserial.LineRI},
	{"DCD", vserial.LineDCD},
}

func printSignalState(prefix string, msr vserial.LineMask, mask vserial.SignalMask) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s:\n", timestamp, prefix)
	watched := mask.Lines()
	for _, l := range monitoredLines {
		if watched&l.line != 0 {
			fmt.Printf("  %-4s %s\n", l.name+":", formatSignalState(msr&l.line != 0))
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Timeout for each wait operation (0 = no timeout)")
}
