// Command saganet administers a SagaNet deployment: access keys, global configuration, json blobs and
// the apiserver processes running on this host.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/xiaonanln/saganet/engine/async"
	"github.com/xiaonanln/saganet/engine/binutil"
	"github.com/xiaonanln/saganet/engine/config"
	"github.com/xiaonanln/saganet/game"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "saganet",
	Short:         "Administer a SagaNet deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		binutil.SetupGWLog("saganet", logLevel, "", true)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "configfile", "", "set config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "set log level")
	rootCmd.AddCommand(accessKeyCmd, globalConfigCmd, jsonBlobCmd, statusCmd, stopCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		showMsg("%+v", err)
		os.Exit(2)
	}
}

// withEnv opens the backends of the configured tier for the duration of f
func withEnv(ctx context.Context, f func(env *game.Env) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	// administrative runs must not emit instance or build messages
	cfg.MsgBus.Type = "none"

	env, err := game.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		env.Close()
		async.Shutdown()
	}()
	if err := env.Start(ctx); err != nil {
		return err
	}
	showMsg("tier %s", env.Tier)
	return f(env)
}
