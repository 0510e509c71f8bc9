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

	vserial "github.com/allbin/go-vserial"
	"github.com/allbin/go-vserial/internal/ctl"
	"github.com/allbin/go-vserial/internal/ptybridge"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the virtual serial adapter",
	Long: `Run the adapter until interrupted (Ctrl+C).

Every endpoint created on the adapter is exposed as a pseudo-terminal and
linked at <pty-dir>/ttyV<index>. Control commands are accepted on the
control socket (--socket).

Example usage:
  vserial serve
  vserial serve --pairs 2 --pty-dir /tmp/vserial
  VSERIAL_CAPACITY=16 vserial serve`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd.Context()); err != nil {
			fail("running adapter", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("capacity", 32, "Number of device slots")
	serveCmd.Flags().Int("pairs", 0, "Standard null-modem pairs to create at startup")

	for _, name := range []string{"capacity", "pairs"} {
		cobra.CheckErr(viper.BindPFlag(name, serveCmd.Flags().Lookup(name)))
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	vserial.SetLogger(log.Logger.With().Str("component", "adapter").Logger())

	bridge, err := ptybridge.New(ptyDir(),
		ptybridge.WithLogger(log.Logger.With().Str("component", "pty").Logger()))
	if err != nil {
		return err
	}
	defer bridge.Close()

	a, err := vserial.New(
		vserial.WithCapacity(viper.GetInt("capacity")),
		vserial.WithRegistrar(bridge),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	for i := 0; i < viper.GetInt("pairs"); i++ {
		idx, err := a.CreateNullModem(vserial.PairSpec{
			A: vserial.StandardEndpoint(vserial.AutoIndex),
			B: vserial.StandardEndpoint(vserial.AutoIndex),
		})
		if err != nil {
			return fmt.Errorf("create pair %d: %w", i, err)
		}
		log.Info().
			Str("a", bridge.Path(idx[0])).
			Str("b", bridge.Path(idx[1])).
			Msg("null-modem pair created")
	}

	socket := viper.GetString("socket")
	ln, err := ctl.Listen(socket)
	if err != nil {
		return err
	}

	log.Info().
		Str("socket", socket).
		Str("pty_dir", ptyDir()).
		Int("capacity", a.Capacity()).
		Msg("adapter running")

	err = ctl.NewServer(a, log.Logger).Serve(ctx, ln)
	log.Info().Msg("adapter stopped")
	return err
}
