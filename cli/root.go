package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	ConfigPath string
	LogLevel   string
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bms-lock",
	Short: "Hold a Bluetooth link to a battery management system",
	Long: "bms-lock keeps a Bluetooth SPP or BLE connection to a BMS open, retrying on a fixed " +
		"cooldown, and mirrors the connection state to a serial log, a status screen and an HTTP API.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "/etc/bms-lock/config.yaml", "Configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level override (debug/info/warn/error)")
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
