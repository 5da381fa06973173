package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livos-io/livos/version"
)

var (
	logLevel      string
	logFile       string
	listenAddress string
	dataDir       string
	serviceName   string

	rootCmd = &cobra.Command{
		Use:          "livosd",
		Short:        "LivOS lifecycle daemon",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "set log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "/var/log/livos/livosd.log", `set log file path, use "console" to log to stdout`)
	rootCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", "127.0.0.1:3006", "address the HTTP API listens on")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "/var/lib/livos", "appliance data directory")
	rootCmd.PersistentFlags().StringVarP(&serviceName, "service", "s", "livosd", "system service name")

	rootCmd.AddCommand(runCmd, startCmd, stopCmd, installCmd, uninstallCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the LivOS version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(fmt.Sprintf("LivOS %s", version.LivOSVersion()))
	},
}
