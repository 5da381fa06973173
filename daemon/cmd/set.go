package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/livos-io/livos/daemon/internal/settings"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "change daemon settings",
}

var setChannelCmd = &cobra.Command{
	Use:   "channel <stable|beta>",
	Short: "set the release channel the updater follows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := settings.NewStore(filepath.Join(dataDir, "settings.json"))
		if err := store.SetChannel(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println(fmt.Sprintf("release channel set to %s", args[0]))
		return nil
	},
}

var setPasswordCmd = &cobra.Command{
	Use:   "password <password>",
	Short: "set the appliance password that authorizes destructive operations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := settings.NewStore(filepath.Join(dataDir, "settings.json"))
		if err := store.SetPassword(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println("appliance password updated")
		return nil
	},
}

func init() {
	setCmd.AddCommand(setChannelCmd, setPasswordCmd)
	rootCmd.AddCommand(setCmd)
}
