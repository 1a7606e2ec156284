package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/controllers"
)

var accessKeyArgs struct {
	count int
	email string
}

var accessKeyCmd = &cobra.Command{
	Use:   "accesskey",
	Short: "Manage registration access keys",
}

var accessKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate unused access keys and print them, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if accessKeyArgs.count <= 0 {
			return errors.Errorf("invalid count: %d", accessKeyArgs.count)
		}
		return withEnv(cmd.Context(), func(env *game.Env) error {
			keys, err := controllers.GenerateAccessKeys(cmd.Context(), env, accessKeyArgs.count, accessKeyArgs.email)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		})
	},
}

var accessKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access keys and whether they were used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), func(env *game.Env) error {
			keys, err := env.AccessKeys.ScanAll(cmd.Context(), 0)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tactivated=%v\t%s\n", key.Id, key.IsActivated, key.AssociatedEmail)
			}
			return nil
		})
	},
}

func init() {
	accessKeyGenerateCmd.Flags().IntVar(&accessKeyArgs.count, "count", 1, "number of keys to generate")
	accessKeyGenerateCmd.Flags().StringVar(&accessKeyArgs.email, "email", "", "email associated with the keys")
	accessKeyCmd.AddCommand(accessKeyGenerateCmd, accessKeyListCmd)
}
