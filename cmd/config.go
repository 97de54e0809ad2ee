package cmd

import (
	"context"

	"github.com/xetys/herd/pkg"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/config"
	"github.com/xetys/herd/pkg/hetzner"
	"github.com/xetys/herd/pkg/log"
	"github.com/xetys/herd/pkg/tasks"
)

// AppConfig holds everything a command needs to talk to the provider and the nodes
type AppConfig struct {
	Context    context.Context
	Config     *config.Config
	Provider   clustermanager.ProviderGateway
	Reconciler *clustermanager.Reconciler
	SSHClient  clustermanager.NodeCommunicator
}

// AppConf is the application state of the running command
var AppConf = AppConfig{
	Context: context.Background(),
}

// Load reads the config file and connects the provider
func (app *AppConfig) Load(ctx context.Context, path string) error {
	if ctx != nil {
		app.Context = ctx
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	app.Config = cfg
	log.Logger.Debug().Str("path", path).Strs("clusters", cfg.ClusterNames()).Msg("config loaded")

	provider, err := hetzner.NewHetznerProvider(hetzner.Config{
		Token:              cfg.Providers.Hetzner.Token,
		DefaultRegion:      cfg.Providers.Hetzner.DefaultRegion,
		Network:            cfg.Providers.Hetzner.Network,
		MutationsPerSecond: cfg.Providers.Hetzner.MutationsPerSecond,
		Version:            version,
		Progress:           progress,
	}, log.WithComponent("hetzner"))
	if err != nil {
		return err
	}
	app.Provider = provider
	app.Reconciler = clustermanager.NewReconciler(provider, cfg.ClusterSpecs(), log.WithComponent("reconciler"))

	return nil
}

// ClusterSpec returns the spec of the cluster named by the first argument
func (app *AppConfig) ClusterSpec(name string) clustermanager.ClusterSpec {
	spec, err := app.Config.Cluster(name)
	FatalOnError(err)
	return spec
}

// Resolver returns a task resolver over the configured tasks
func (app *AppConfig) Resolver() *tasks.Resolver {
	return tasks.NewResolver(app.Config.Tasks, log.WithComponent("tasks"))
}

// Executor creates an executor honoring the execution flags. The returned
// wait function blocks until progress rendering finished.
func (app *AppConfig) Executor(flags executionFlags) (*clustermanager.Executor, func(), error) {
	if app.SSHClient == nil {
		communicator, err := clustermanager.NewSSHCommunicator(app.Config.SSHCommunicatorConfig(), log.WithComponent("ssh"))
		if err != nil {
			return nil, nil, err
		}
		app.SSHClient = communicator
	}

	events := clustermanager.NopEventService
	wait := func() {}
	if pkg.RenderProgressBars {
		coordinator := pkg.NewProgressCoordinator()
		events = coordinator
		wait = coordinator.Wait
	}

	executor := clustermanager.NewExecutor(app.Reconciler, app.SSHClient, events, log.WithComponent("executor"))
	executor.OnResult = printResult
	executor.Concurrency = app.Config.ParallelConnections
	if flags.parallel > 0 {
		executor.Concurrency = flags.parallel
	}
	if app.Config.ReadinessTimeout > 0 {
		executor.Readiness.Timeout = app.Config.ReadinessTimeout
	}
	if flags.readyTimeout > 0 {
		executor.Readiness.Timeout = flags.readyTimeout
	}
	return executor, wait, nil
}
