/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	vserial "github.com/allbin/go-vserial"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the adapter's devices",
	Long: `List the devices installed on the running adapter.

Without --table only the ttyV paths are printed, one per line, which is
handy for scripts. With --table the index, peer, kind and state of each
device is shown. With --host the ttyV links present in --pty-dir are listed
without asking the adapter.

Example usage:
  vserial list
  vserial list --table
  vserial list --filter loopback
  vserial list --host`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		host, _ := cmd.Flags().GetBool("host")

		if host {
			listHostPorts()
			return
		}

		if _, err := vserial.ParseDeviceFilter(filterType); err != nil {
			fail("parsing filter", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		devices, err := client().List(ctx, filterType)
		if err != nil {
			fail("listing devices", err)
		}

		if len(devices) == 0 {
			if filterType != "all" {
				fmt.Printf("No devices found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No devices found")
			}
			return
		}

		if tableFormat {
			renderTable(devices)
		} else {
			renderSimple(devices)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "all", "Filter by kind: all, null-modem, loopback, standard, custom")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().Bool("host", false, "List the ttyV links in the pty directory instead of asking the adapter")
}

// listHostPorts prints the endpoint links exposed on this host.
func listHostPorts() {
	dir := ptyDir()
	ports, err := vserial.ListPorts(dir)
	if err != nil {
		fail("listing ports", err)
	}
	if len(ports) == 0 {
		fmt.Printf("No ports found in %s\n", dir)
		return
	}
	for _, p := range ports {
		fmt.Println(p)
	}
}

// renderTable renders the device list in a styled static table format
func renderTable(devices []vserial.DeviceInfo) {
	fmt.Printf("Found %d device(s):\n\n", len(devices))

	pathWidth := 22
	peerWidth := 6
	kindWidth := 20
	openWidth := 5
	linesWidth := 24

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s",
		pathWidth, "Port",
		peerWidth, "Peer",
		kindWidth, "Kind",
		openWidth, "Open",
		linesWidth, "Lines (MCR/MSR)")
	fmt.Println(headerStyle.Render(header))

	dir := ptyDir()
	for _, d := range devices {
		peer := vserial.FormatIndex(d.Peer)
		if d.Kind.Loopback() {
			peer = "self"
		}
		open := "no"
		if d.Open {
			open = "yes"
		}
		row := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s",
			pathWidth, vserial.PortPath(dir, d.Index),
			peerWidth, peer,
			kindWidth, d.Kind.String(),
			openWidth, open,
			linesWidth, d.MCR.String()+" / "+d.MSR.String())
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the device list in simple text format
func renderSimple(devices []vserial.DeviceInfo) {
	dir := ptyDir()
	for _, d := range devices {
		fmt.Println(vserial.PortPath(dir, d.Index))
	}
}
