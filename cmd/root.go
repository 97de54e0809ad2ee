package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xetys/herd/pkg"
	"github.com/xetys/herd/pkg/log"
)

var (
	cfgFile     string
	DebugMode   bool
	logLevel    string
	logJSON     bool
	progress    bool
	metricsFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "herd",
	Short: "A CLI tool to keep server clusters on Hetzner Cloud in shape",
	Long: `herd keeps the servers of each configured cluster at the declared count and size,
and runs package, service and task commands on every node of a cluster in parallel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		pkg.RenderProgressBars = progress

		if !needsConfig(cmd) {
			return nil
		}
		cmd.SilenceUsage = true
		return AppConf.Load(cmd.Context(), cfgFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		writeMetrics()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	FatalOnError(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "config file to use")
	rootCmd.PersistentFlags().BoolVarP(&DebugMode, "debug", "d", false, "debug mode, same as --log-level debug")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of console lines")
	rootCmd.PersistentFlags().BoolVar(&progress, "progress", false, "render a progress bar per node when stdout is a terminal")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

func initLogging() {
	level := log.Level(logLevel)
	if DebugMode {
		level = log.DebugLevel
	}
	log.Init(log.Config{
		Level:      level,
		JSONOutput: logJSON,
		RunID:      uuid.NewString(),
	})
}

func needsConfig(cmd *cobra.Command) bool {
	if cmd == versionCmd || cmd.Name() == "help" {
		return false
	}
	if cmd.HasParent() && cmd.Parent().Name() == "completion" {
		return false
	}
	return true
}
