/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <index>",
	Short: "Send data through a device",
	Long: `Send data through a device's pseudo-terminal, as any serial client would.

Data can be provided as:
- Command line argument: vserial send "Hello World" 0
- From stdin (pipe): echo "test data" | vserial send 0
- Interactive mode: vserial send 0 (prompts for input)

Both ends of a link must agree on the frame (data bits, parity, stop bits)
or the bytes are lost on the way, exactly like a real cable.

Example usage:
  vserial send "Hello World" 0
  vserial send "AT+GMR" 0 --newline
  vserial send 48656c6c6f 0 --hex
  echo "test" | vserial send /tmp/vserial/ttyV0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		var device string

		// Parse arguments: either "send data device" or "send device"
		if len(args) == 1 {
			device = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fail("reading from stdin", err)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			device = args[1]
		}

		idx, err := parseIndexArg(device)
		if err != nil {
			fail("parsing index", err)
		}
		mode, err := modeFlags(cmd)
		if err != nil {
			fail("parsing line settings", err)
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if hexMode {
			processedData, err := parseHexString(data)
			if err != nil {
				fail("parsing hex data", err)
			}
			data = processedData
		}
		if addNewline && !hexMode {
			data += "\n"
		}

		if err := sendData(vserial.PortPath(ptyDir(), idx), data, mode, timeout); err != nil {
			fail("sending", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	addModeFlags(sendCmd)
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data")
}

// addModeFlags registers the line setting flags shared by send and capture.
func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	cmd.Flags().Int("data-bits", 8, "Data bits: 5, 6, 7, 8")
	cmd.Flags().String("parity", "none", "Parity: none, odd, even, mark, space")
	cmd.Flags().Int("stop-bits", 1, "Stop bits: 1, 2")
}

func modeFlags(cmd *cobra.Command) (*serial.Mode, error) {
	baud, _ := cmd.Flags().GetInt("baud")
	dataBits, _ := cmd.Flags().GetInt("data-bits")
	parityName, _ := cmd.Flags().GetString("parity")
	stopBits, _ := cmd.Flags().GetInt("stop-bits")

	params := vserial.LineParams{BaudRate: baud, DataBits: dataBits, StopBits: stopBits}
	switch strings.ToLower(parityName) {
	case "none", "n":
		params.Parity = vserial.ParityNone
	case "odd", "o":
		params.Parity = vserial.ParityOdd
	case "even", "e":
		params.Parity = vserial.ParityEven
	case "mark", "m":
		params.Parity = vserial.ParityMark
	case "space", "s":
		params.Parity = vserial.ParitySpace
	default:
		return nil, fmt.Errorf("invalid parity: %s", parityName)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params.Mode(), nil
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexString(hexStr string) (string, error) {
	// Remove common hex prefixes and whitespace
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return "", fmt.Errorf("hex string must have even length")
	}

	var result strings.Builder
	for i := 0; i < len(hexStr); i += 2 {
		hexByte := hexStr[i : i+2]
		var b byte
		if _, err := fmt.Sscanf(hexByte, "%x", &b); err != nil {
			return "", fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		result.WriteByte(b)
	}

	return result.String(), nil
}

func sendData(portPath, data string, mode *serial.Mode, timeout time.Duration) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer port.Close()

	fmt.Printf("%s Connected successfully\n", successStyle.Render("✓"))

	// A write stuck behind flow control is abandoned by closing the port.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	n, err := port.Write([]byte(data))
	if err == nil {
		err = port.Drain()
	}
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fmt.Errorf("%s failed to send data: %v", errorStyle.Render("✗"), err)
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)

	preview := data
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	// Replace non-printable characters for display
	preview = strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, preview)

	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}
