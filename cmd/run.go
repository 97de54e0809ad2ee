package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/log"
	"github.com/xetys/herd/pkg/phases"
)

// runCmd resolves a configured task with its dependencies and runs it
var runCmd = &cobra.Command{
	Use:     "run <cluster> <task>",
	Short:   "runs a task from the config and all its dependencies on every node",
	Args:    cobra.ExactArgs(2),
	PreRunE: validateClusterInArgumentExists,
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])

		commands, err := AppConf.Resolver().Resolve(args[1], sudoFlag(cmd))
		FatalOnError(err)
		if len(commands) == 0 {
			log.Logger.Warn().Str("task", args[1]).Msg("task resolves to no commands")
			return
		}

		withSync, _ := cmd.Flags().GetBool("sync")
		runPhases(cmd, func(chain *phases.PhaseChain, executor *clustermanager.Executor) {
			if withSync {
				chain.AddPhase(phases.NewSyncPhase(AppConf.Reconciler, spec, log.WithCluster("sync", spec.Name)))
			}
			chain.AddPhase(phases.NewCommandPhase(args[1], executor, spec, commands...))
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addExecutionFlags(runCmd, true)

	runCmd.Flags().Bool("sync", false, "sync the cluster before running the task")
}
