package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/phases"
	"github.com/xetys/herd/pkg/tasks"
)

// declareNodeCommand creates a command running a fixed command list on every node
func declareNodeCommand(use string, short string, args cobra.PositionalArgs, build func(cmd *cobra.Command, args []string) []tasks.CommandSpec) *cobra.Command {
	declaredCommand := &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    args,
		PreRunE: validateClusterInArgumentExists,
		Run: func(cmd *cobra.Command, args []string) {
			spec := AppConf.ClusterSpec(args[0])
			commands := build(cmd, args)
			runPhases(cmd, func(chain *phases.PhaseChain, executor *clustermanager.Executor) {
				chain.AddPhase(phases.NewCommandPhase(cmd.Name(), executor, spec, commands...))
			})
		},
	}
	addExecutionFlags(declaredCommand, true)
	// herd flags go before the cluster, everything after it belongs to the node
	declaredCommand.Flags().SetInterspersed(false)
	rootCmd.AddCommand(declaredCommand)

	return declaredCommand
}

// runPhases runs a phase chain with an executor configured from the command's flags
func runPhases(cmd *cobra.Command, build func(chain *phases.PhaseChain, executor *clustermanager.Executor)) {
	executor, wait, err := AppConf.Executor(readExecutionFlags(cmd))
	FatalOnError(err)

	chain := phases.NewPhaseChain()
	build(chain, executor)
	err = chain.Run(AppConf.Context)
	wait()
	FatalOnError(err)
}

var (
	installCmd = declareNodeCommand(
		"install [flags] <cluster> <program...>",
		"installs packages on every node",
		cobra.MinimumNArgs(2),
		buildInstall,
	)
	uninstallCmd = declareNodeCommand(
		"uninstall [flags] <cluster> <program...>",
		"removes packages from every node",
		cobra.MinimumNArgs(2),
		buildUninstall,
	)
	startCmd = declareNodeCommand(
		"start [flags] <cluster> <program>",
		"starts a service on every node",
		cobra.ExactArgs(2),
		buildStart,
	)
	stopCmd = declareNodeCommand(
		"stop [flags] <cluster> <program>",
		"stops a service on every node",
		cobra.ExactArgs(2),
		buildStop,
	)
	execCmd = declareNodeCommand(
		"exec [flags] <cluster> <command...>",
		"runs a shell command on every node",
		cobra.MinimumNArgs(2),
		buildExec,
	)
)

func buildInstall(cmd *cobra.Command, args []string) []tasks.CommandSpec {
	return []tasks.CommandSpec{tasks.Install(args[1:]...).WithSudo(sudoFlag(cmd))}
}

func buildUninstall(cmd *cobra.Command, args []string) []tasks.CommandSpec {
	return []tasks.CommandSpec{tasks.Uninstall(args[1:]...).WithSudo(sudoFlag(cmd))}
}

func buildStart(cmd *cobra.Command, args []string) []tasks.CommandSpec {
	return []tasks.CommandSpec{tasks.Start(args[1]).WithSudo(sudoFlag(cmd))}
}

func buildStop(cmd *cobra.Command, args []string) []tasks.CommandSpec {
	return []tasks.CommandSpec{tasks.Stop(args[1]).WithSudo(sudoFlag(cmd))}
}

func buildExec(cmd *cobra.Command, args []string) []tasks.CommandSpec {
	return []tasks.CommandSpec{tasks.Raw(strings.Join(args[1:], " ")).WithSudo(sudoFlag(cmd))}
}
