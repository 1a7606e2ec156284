package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/xiaonanln/saganet/game"
	"github.com/xiaonanln/saganet/game/models"
)

var jsonBlobCmd = &cobra.Command{
	Use:   "jsonblob",
	Short: "Publish json documents served by GetJsonText",
}

var jsonBlobUploadCmd = &cobra.Command{
	Use:   "upload <id> <file>",
	Short: "Upload a json file and register it under id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, file := args[0], args[1]
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if !gjson.ValidBytes(data) {
			return errors.Errorf("%s is not valid json", file)
		}

		return withEnv(cmd.Context(), func(env *game.Env) error {
			ctx := cmd.Context()
			if err := env.Blobs.Put(ctx, models.JsonBlobPath(id), data); err != nil {
				return err
			}
			blob := env.JsonBlobs.New()
			blob.Id = id
			if _, err := env.JsonBlobs.Insert(ctx, blob, false); err != nil {
				return err
			}
			showMsg("uploaded %s (%d bytes) as %s", file, len(data), blob.BlobPath())
			return nil
		})
	},
}

func init() {
	jsonBlobCmd.AddCommand(jsonBlobUploadCmd)
}
