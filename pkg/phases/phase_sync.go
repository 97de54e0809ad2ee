package phases

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/xetys/herd/pkg/clustermanager"
)

// SyncPhase reconciles one cluster before its commands run
type SyncPhase struct {
	reconciler *clustermanager.Reconciler
	spec       clustermanager.ClusterSpec
	log        zerolog.Logger
	actions    []clustermanager.Action
}

// NewSyncPhase returns an instance of *SyncPhase
func NewSyncPhase(reconciler *clustermanager.Reconciler, spec clustermanager.ClusterSpec, logger zerolog.Logger) *SyncPhase {
	return &SyncPhase{
		reconciler: reconciler,
		spec:       spec,
		log:        logger,
	}
}

// ShouldRun returns if this phase should run
func (phase *SyncPhase) ShouldRun() bool {
	return true
}

// Run runs the phase. A busy cluster is not an error here, the following
// command phase waits for its nodes.
func (phase *SyncPhase) Run(ctx context.Context) error {
	actions, err := phase.reconciler.SyncCluster(ctx, phase.spec)
	phase.actions = actions
	if clustermanager.IsBusy(err) {
		phase.log.Warn().Str("cluster", phase.spec.Name).Msg(err.Error())
		return nil
	}
	return err
}

// Actions returns the mutations applied by the last run
func (phase *SyncPhase) Actions() []clustermanager.Action {
	return phase.actions
}
