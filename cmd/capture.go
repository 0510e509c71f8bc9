/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <index> <output-file>",
	Short: "Capture device data to a file",
	Long: `Capture data arriving on a device to a file for later parsing.

Opens the device's pseudo-terminal and appends everything read to the output
file. Runs continuously until interrupted (Ctrl+C).

Example usage:
  vserial capture 1 data.log
  vserial capture 1 output.txt --baud 9600
  vserial capture /tmp/vserial/ttyV1 capture.log --console`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := parseIndexArg(args[0])
		if err != nil {
			fail("parsing index", err)
		}
		mode, err := modeFlags(cmd)
		if err != nil {
			fail("parsing line settings", err)
		}
		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")

		if err := runCapture(vserial.PortPath(ptyDir(), idx), args[1], mode, bufferSize, showConsole); err != nil {
			fail("capturing", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	addModeFlags(captureCmd)
	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(portPath, outputPath string, mode *serial.Mode, bufferSize int, showConsole bool) error {
	port, err := serial.Open(portPath, mode)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	// Short reads so an interrupt is noticed promptly
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	buffer := make([]byte, bufferSize)
	bytesWritten := int64(0)
	startTime := time.Now()

	for ctx.Err() == nil {
		n, err := port.Read(buffer)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			continue
		}

		written, err := file.Write(buffer[:n])
		if err != nil {
			return fmt.Errorf("write error: %w", err)
		}
		bytesWritten += int64(written)

		if showConsole {
			os.Stdout.Write(buffer[:n])
		}
	}

	duration := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", bytesWritten, duration.Round(time.Millisecond))
	return nil
}
