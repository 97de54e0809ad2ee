package clustermanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xetys/herd/pkg"
	"github.com/xetys/herd/pkg/metrics"
	"github.com/xetys/herd/pkg/tasks"
)

// DefaultConcurrency is the number of nodes served at once when none is configured
const DefaultConcurrency = 4

// NodeResult is the outcome of running a command list on one node
type NodeResult struct {
	Node Node
	// Completed counts the commands that finished successfully
	Completed int
	Duration  time.Duration
	Err       error
}

// Report collects the node results of one execution
type Report struct {
	Cluster string
	// Results are in completion order
	Results     []NodeResult
	Unreachable []Node
}

// Failed returns the results of nodes that did not complete
func (r *Report) Failed() []NodeResult {
	var failed []NodeResult
	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Err joins the errors of all failed nodes
func (r *Report) Err() error {
	var errs []error
	for _, result := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", result.Node.Name, result.Err))
	}
	return errors.Join(errs...)
}

// Executor runs command lists on every active node of a cluster
type Executor struct {
	reconciler   *Reconciler
	communicator NodeCommunicator
	events       EventService
	log          zerolog.Logger

	Concurrency int
	Readiness   ReadinessOptions
	// OnResult is called with every node result as it completes
	OnResult func(NodeResult)
}

// NewExecutor creates an executor with default concurrency and readiness options
func NewExecutor(reconciler *Reconciler, communicator NodeCommunicator, events EventService, logger zerolog.Logger) *Executor {
	if events == nil {
		events = NopEventService
	}
	return &Executor{
		reconciler:   reconciler,
		communicator: communicator,
		events:       events,
		log:          logger,
		Concurrency:  DefaultConcurrency,
		Readiness:    DefaultReadinessOptions(),
	}
}

// Run waits for the cluster to be ready and runs commands on all active
// nodes. A failing node never stops the others; the returned error is only
// set when the run could not start.
func (e *Executor) Run(ctx context.Context, commands []tasks.CommandSpec, spec ClusterSpec) (*Report, error) {
	logger := e.log.With().Str("cluster", spec.Name).Logger()
	report := &Report{Cluster: spec.Name}

	timer := metrics.NewTimer()
	status, err := WaitForReady(ctx, func(ctx context.Context) (ClusterStatus, error) {
		return e.reconciler.Status(ctx, spec)
	}, e.Readiness, logger)
	timer.ObserveDurationVec(metrics.ReadinessWait, spec.Name)
	if err != nil {
		return report, err
	}

	report.Unreachable = status.Unreachable()
	for _, node := range report.Unreachable {
		logger.Warn().Str("node", node.Name).Str("status", string(node.Status)).Msg("node unreachable, skipping")
	}

	targets := status.Active
	if len(targets) == 0 {
		logger.Info().Msg("no active nodes")
		return report, nil
	}

	for _, node := range targets {
		e.events.StartProgress(node.Name, len(commands)+1)
	}

	work := func(ctx context.Context, node Node) NodeResult {
		return e.runNode(ctx, logger, node, commands)
	}
	for result := range fanOut(ctx, e.Concurrency, targets, work) {
		outcome := "success"
		if result.Err != nil {
			outcome = "failure"
			logger.Error().Err(result.Err).Str("node", result.Node.Name).Msg("node failed")
			e.events.AddEvent(result.Node.Name, pkg.FailedEvent)
		} else {
			e.events.AddEvent(result.Node.Name, pkg.CompletedEvent)
		}
		metrics.NodeRuns.WithLabelValues(spec.Name, outcome).Inc()
		metrics.NodeRunDuration.WithLabelValues(spec.Name).Observe(result.Duration.Seconds())

		report.Results = append(report.Results, result)
		if e.OnResult != nil {
			e.OnResult(result)
		}
	}

	logger.Info().
		Int("nodes", len(report.Results)).
		Int("failed", len(report.Failed())).
		Int("unreachable", len(report.Unreachable)).
		Msg("execution finished")
	return report, nil
}

func (e *Executor) runNode(ctx context.Context, logger zerolog.Logger, node Node, commands []tasks.CommandSpec) NodeResult {
	start := time.Now()
	result := NodeResult{Node: node}
	logger = logger.With().Str("node", node.Name).Logger()

	fail := func(err error) NodeResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	e.events.AddEvent(node.Name, "connecting")
	session, err := e.communicator.Connect(ctx, node)
	if err != nil {
		return fail(fmt.Errorf("connecting: %w", err))
	}
	defer session.Close()

	for _, command := range commands {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		e.events.AddEvent(node.Name, command.String())
		if err := runCommand(ctx, logger, session, command); err != nil {
			return fail(fmt.Errorf("%s: %w", command, err))
		}
		result.Completed++
	}

	result.Duration = time.Since(start)
	return result
}

func runCommand(ctx context.Context, logger zerolog.Logger, session RemoteSession, command tasks.CommandSpec) error {
	if command.IsCopy() {
		return session.Copy(ctx, command.Src, command.Dest, command.Recursive)
	}

	for line, err := range session.Execute(ctx, command.Shell()) {
		if err != nil {
			return err
		}
		logger.Info().Msg(line)
	}
	return nil
}
