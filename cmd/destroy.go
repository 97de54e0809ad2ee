package cmd

import (
	"github.com/spf13/cobra"
)

// destroyCmd removes every server of a cluster
var destroyCmd = &cobra.Command{
	Use:     "destroy <cluster>",
	Short:   "deletes all servers of a cluster",
	Args:    cobra.ExactArgs(1),
	PreRunE: validateClusterInArgumentExists,
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])

		actions, err := AppConf.Reconciler.DestroyCluster(AppConf.Context, spec)
		printActions(spec.Name, actions)
		FatalOnError(err)
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}
