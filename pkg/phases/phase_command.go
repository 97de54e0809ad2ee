package phases

import (
	"context"
	"fmt"

	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/tasks"
)

// Runner runs a command list on a cluster
type Runner interface {
	Run(ctx context.Context, commands []tasks.CommandSpec, spec clustermanager.ClusterSpec) (*clustermanager.Report, error)
}

// CommandPhase runs a command list on every active node of a cluster
type CommandPhase struct {
	name     string
	runner   Runner
	spec     clustermanager.ClusterSpec
	commands []tasks.CommandSpec
	report   *clustermanager.Report
}

// NewCommandPhase returns an instance of *CommandPhase
func NewCommandPhase(name string, runner Runner, spec clustermanager.ClusterSpec, commands ...tasks.CommandSpec) *CommandPhase {
	return &CommandPhase{
		name:     name,
		runner:   runner,
		spec:     spec,
		commands: commands,
	}
}

// ShouldRun returns if this phase should run
func (phase *CommandPhase) ShouldRun() bool {
	return len(phase.commands) > 0
}

// Run runs the phase. It fails when any node failed, after all nodes finished.
func (phase *CommandPhase) Run(ctx context.Context) error {
	report, err := phase.runner.Run(ctx, phase.commands, phase.spec)
	phase.report = report
	if err != nil {
		return fmt.Errorf("%s: %w", phase.name, err)
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("%s failed on %d node(s): %w", phase.name, len(report.Failed()), err)
	}
	return nil
}

// Report returns the execution report of the last run
func (phase *CommandPhase) Report() *clustermanager.Report {
	return phase.report
}
