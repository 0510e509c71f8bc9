/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vserial "github.com/allbin/go-vserial"
	"github.com/allbin/go-vserial/internal/ctl"
	"github.com/allbin/go-vserial/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultSocket = "/tmp/vserial.sock"
	defaultPTYDir = "/tmp/vserial"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vserial",
	Short: "Virtual multi-port serial adapter",
	Long: `vserial emulates a multi-port serial adapter whose ports are wired to each
other as null-modem pairs or to themselves as loopback plugs.

Run 'vserial serve' to start the adapter. Its endpoints appear as
pseudo-terminals linked at <pty-dir>/ttyV<index>, and every other command
talks to the running adapter over its control socket.

Example usage:
  vserial serve --pairs 2
  vserial gennm
  vserial list --table
  vserial rts 0 on
  vserial top`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Setup(logging.Options{
			Level:  viper.GetString("log-level"),
			Format: logging.Format(viper.GetString("log-format")),
		})
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vserial/config.yaml)")
	rootCmd.PersistentFlags().String("socket", defaultSocket, "Control socket of the adapter")
	rootCmd.PersistentFlags().String("pty-dir", defaultPTYDir, "Directory of the ttyV<index> links")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", string(logging.FormatConsole), "Log format: console, json")

	for _, name := range []string{"socket", "pty-dir", "log-level", "log-format"} {
		cobra.CheckErr(viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "vserial"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VSERIAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// client returns a control channel client for the configured socket.
func client() *ctl.Client {
	return ctl.NewClient(viper.GetString("socket"))
}

func ptyDir() string {
	return viper.GetString("pty-dir")
}

// parseIndexArg accepts "3", "00003" or a ttyV path such as /dev/vserial/ttyV3.
func parseIndexArg(arg string) (int, error) {
	s := strings.TrimPrefix(filepath.Base(arg), "ttyV")
	if s == "" || len(s) > 5 {
		return 0, fmt.Errorf("invalid device %q", arg)
	}
	idx, err := vserial.ParseIndex(strings.Repeat("0", 5-len(s)) + s)
	if err != nil || idx == vserial.AutoIndex {
		return 0, fmt.Errorf("invalid device %q", arg)
	}
	return idx, nil
}

// fail reports err and exits, the way every command ends on error.
func fail(context string, err error) {
	log.Debug().Err(err).Str("code", vserial.ErrorCode(err)).Msg(context)
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}
