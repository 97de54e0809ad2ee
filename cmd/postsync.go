package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/phases"
	"github.com/xetys/herd/pkg/tasks"
)

// postsyncCmd brings the packages of fresh nodes up to date
var postsyncCmd = &cobra.Command{
	Use:     "postsync <cluster>",
	Short:   "updates the package index and upgrades all packages on every node",
	Args:    cobra.ExactArgs(1),
	PreRunE: validateClusterInArgumentExists,
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])

		runPhases(cmd, func(chain *phases.PhaseChain, executor *clustermanager.Executor) {
			chain.AddPhase(phases.NewCommandPhase("update", executor, spec, tasks.Update().WithSudo(true)))
			chain.AddPhase(phases.NewCommandPhase("upgrade", executor, spec, tasks.Upgrade().WithSudo(true)))
		})
	},
}

func init() {
	rootCmd.AddCommand(postsyncCmd)
	addExecutionFlags(postsyncCmd, false)
}
