package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/phases"
	"github.com/xetys/herd/pkg/tasks"
)

// copyCmd transfers a local file or directory to every node
var copyCmd = &cobra.Command{
	Use:   "copy <cluster> <src> <dest>",
	Short: "copies a local file, or a directory with -r, to every node",
	Args:  cobra.ExactArgs(3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateClusterInArgumentExists(cmd, args); err != nil {
			return err
		}

		recursive, _ := cmd.Flags().GetBool("recursive")
		info, err := os.Stat(args[1])
		if err != nil {
			return err
		}
		if info.IsDir() && !recursive {
			return fmt.Errorf("%s is a directory, use -r to copy it", args[1])
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		spec := AppConf.ClusterSpec(args[0])
		recursive, _ := cmd.Flags().GetBool("recursive")

		runPhases(cmd, func(chain *phases.PhaseChain, executor *clustermanager.Executor) {
			chain.AddPhase(phases.NewCommandPhase("copy", executor, spec, tasks.Copy(args[1], args[2], recursive)))
		})
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
	addExecutionFlags(copyCmd, false)

	copyCmd.Flags().BoolP("recursive", "r", false, "copy a directory recursively")
}
