package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
)

var globalConfigArgs struct {
	online       bool
	utility      bool
	accessKeys   bool
	buildVersion string
}

var globalConfigCmd = &cobra.Command{
	Use:   "globalconfig",
	Short: "Show or change the global configuration of the tier",
}

var globalConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the global configuration as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), func(env *game.Env) error {
			return printJSON(cmd, env.GlobalConfig.Current())
		})
	},
}

var globalConfigSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the flags given on the command line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		return withEnv(cmd.Context(), func(env *game.Env) error {
			err := env.GlobalConfig.Update(cmd.Context(), func(gc *models.GlobalConfiguration) {
				if flags.Changed("online") {
					gc.IsServiceOnline = globalConfigArgs.online
				}
				if flags.Changed("utility") {
					gc.IsUtilityOperationsAllowed = globalConfigArgs.utility
				}
				if flags.Changed("accesskeys") {
					gc.IsAccessKeysEnabled = globalConfigArgs.accessKeys
				}
				if flags.Changed("build-version") {
					gc.BuildVersion = globalConfigArgs.buildVersion
				}
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, env.GlobalConfig.Current())
		})
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	flags := globalConfigSetCmd.Flags()
	flags.BoolVar(&globalConfigArgs.online, "online", true, "whether the service is online")
	flags.BoolVar(&globalConfigArgs.utility, "utility", false, "whether utility operations are allowed")
	flags.BoolVar(&globalConfigArgs.accessKeys, "accesskeys", false, "whether registration requires an access key")
	flags.StringVar(&globalConfigArgs.buildVersion, "build-version", "", "current client build version")
	globalConfigCmd.AddCommand(globalConfigShowCmd, globalConfigSetCmd)
}
