package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// settingAliases maps the user-facing names to storage keys.
var settingAliases = map[string]string{
	"notifications":  model.SettingNotificationPrefs,
	"calendar-token": model.SettingCalendarToken,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write device settings",
	Long: `Read and write the small per-device settings stored next to the
task collections.

Known settings: notifications, calendar-token`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		key, ok := settingAliases[args[0]]
		if !ok {
			a.fail("unknown setting %q", args[0])
		}
		value, found, err := a.store.GetSetting(context.Background(), key)
		if err != nil {
			a.fail("%v", err)
		}
		if !found {
			fmt.Printf("%s is not set\n", args[0])
			return
		}
		fmt.Println(value)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Write a setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		key, ok := settingAliases[args[0]]
		if !ok {
			a.fail("unknown setting %q", args[0])
		}
		if err := a.store.SetSetting(context.Background(), key, args[1]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Set %s\n", args[0])
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <name>",
	Short: "Remove a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpen()
		defer a.close()

		key, ok := settingAliases[args[0]]
		if !ok {
			a.fail("unknown setting %q", args[0])
		}
		if err := a.store.DeleteSetting(context.Background(), key); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("Removed %s\n", args[0])
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
}
