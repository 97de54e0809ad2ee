package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/log"
	"github.com/xetys/herd/pkg/metrics"
)

// FatalOnError is an helper function to transform error to fatal
func FatalOnError(err error) {
	if err != nil {
		writeMetrics()
		log.Logger.Fatal().Err(err).Msg("herd failed")
	}
}

// warnOrFatal logs conditions that leave the cluster untouched and exits on everything else
func warnOrFatal(cluster string, err error) {
	if clustermanager.IsBusy(err) {
		log.Logger.Warn().Str("cluster", cluster).Msg(err.Error())
		return
	}
	FatalOnError(err)
}

func writeMetrics() {
	if metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		log.Logger.Error().Err(err).Str("path", metricsFile).Msg("writing metrics failed")
	}
}

// addExecutionFlags declares the flags shared by commands running on nodes
func addExecutionFlags(cmd *cobra.Command, withSudo bool) {
	cmd.Flags().IntP("parallel", "p", 0, "nodes served at once, defaults to parallel_connections")
	cmd.Flags().Duration("ready-timeout", 0, "how long to wait for provisioning nodes, defaults to readiness_timeout")
	if withSudo {
		cmd.Flags().Bool("sudo", false, "prefix commands with sudo")
	}
}

func sudoFlag(cmd *cobra.Command) bool {
	sudo, _ := cmd.Flags().GetBool("sudo")
	return sudo
}

type executionFlags struct {
	parallel     int
	readyTimeout time.Duration
}

func readExecutionFlags(cmd *cobra.Command) executionFlags {
	parallel, _ := cmd.Flags().GetInt("parallel")
	readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")
	return executionFlags{parallel: parallel, readyTimeout: readyTimeout}
}

func validateClusterInArgumentExists(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("cluster name is required")
	}
	if _, err := AppConf.Config.Cluster(args[0]); err != nil {
		return fmt.Errorf("%w, configured clusters: %v", err, AppConf.Config.ClusterNames())
	}
	return nil
}

func printResult(result clustermanager.NodeResult) {
	if result.Err != nil {
		fmt.Printf("%s: failed after %d command(s): %s\n", result.Node.Name, result.Completed, result.Err)
		return
	}
	fmt.Printf("%s: ok, %d command(s) in %s\n", result.Node.Name, result.Completed, result.Duration.Round(time.Millisecond))
}

func printActions(cluster string, actions []clustermanager.Action) {
	if len(actions) == 0 {
		fmt.Printf("%s: nothing to do\n", cluster)
		return
	}
	for _, action := range actions {
		fmt.Printf("%s: %s\n", cluster, action)
	}
}
