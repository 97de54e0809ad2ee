package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/log"
)

// syncallCmd reconciles every configured cluster
var syncallCmd = &cobra.Command{
	Use:   "syncall",
	Short: "creates, renames and destroys servers until every cluster matches its config",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		results, err := AppConf.Reconciler.SyncAll(AppConf.Context, AppConf.Config.ClusterSpecs())
		FatalOnError(err)

		var failed []error
		for _, result := range results {
			printActions(result.Cluster, result.Actions)
			switch {
			case result.Err == nil:
			case clustermanager.IsBusy(result.Err):
				log.Logger.Warn().Str("cluster", result.Cluster).Msg(result.Err.Error())
			default:
				log.Logger.Error().Err(result.Err).Str("cluster", result.Cluster).Msg("sync failed")
				failed = append(failed, result.Err)
			}
		}

		if len(failed) > 0 {
			FatalOnError(fmt.Errorf("%d of %d clusters failed to sync: %w", len(failed), len(results), errors.Join(failed...)))
		}
	},
}

// syncCmd reconciles one cluster
var syncCmd = &cobra.Command{
	Use:     "sync <cluster>",
	Short:   "creates, renames and destroys servers until the cluster matches its config",
	Args:    cobra.ExactArgs(1),
	PreRunE: validateClusterInArgumentExists,
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])

		actions, err := AppConf.Reconciler.SyncCluster(AppConf.Context, spec)
		printActions(spec.Name, actions)
		warnOrFatal(spec.Name, err)
	},
}

func init() {
	rootCmd.AddCommand(syncallCmd)
	rootCmd.AddCommand(syncCmd)
}
