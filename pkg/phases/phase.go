package phases

import "context"

// Phase defines an interface for a generic phase
type Phase interface {
	ShouldRun() bool
	Run(ctx context.Context) error
}

// PhaseChain is a holder of several phases and a after run step
type PhaseChain struct {
	phases   []Phase
	afterRun func()
}

// NewPhaseChain creates a new instance of *PhaseChain
func NewPhaseChain() *PhaseChain {
	return &PhaseChain{
		phases: []Phase{},
	}
}

// AddPhase adds a new phase to the chain
func (chain *PhaseChain) AddPhase(phase Phase) {
	chain.phases = append(chain.phases, phase)
}

// SetAfterRun configures the after run function
func (chain *PhaseChain) SetAfterRun(fun func()) {
	chain.afterRun = fun
}

// Run runs the phases in order and stops at the first error
func (chain *PhaseChain) Run(ctx context.Context) error {
	for _, phase := range chain.phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !phase.ShouldRun() {
			continue
		}

		if err := phase.Run(ctx); err != nil {
			return err
		}

		if chain.afterRun != nil {
			chain.afterRun()
		}
	}

	return nil
}
