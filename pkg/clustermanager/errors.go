package clustermanager

import (
	"errors"
	"fmt"
)

var (
	// ErrClusterBusy is returned when a cluster has nodes mid-provision. The
	// cluster is left untouched and can be synced on the next invocation.
	ErrClusterBusy = errors.New("cluster busy, nodes currently spawning")

	// ErrReadinessTimeout is returned when nodes did not leave provisioning in time
	ErrReadinessTimeout = errors.New("timed out waiting for cluster readiness")
)

// SizingError is returned when no catalog size satisfies a cluster's constraints
type SizingError struct {
	Cluster     string
	Constraints Constraints
}

func (e *SizingError) Error() string {
	return fmt.Sprintf(
		"cluster '%s': no valid node was found matching cores: %d, ram: %dmb, disk: %dgb, cost: $%.2f",
		e.Cluster,
		e.Constraints.MinCores,
		e.Constraints.MinRAM,
		e.Constraints.MinDisk,
		e.Constraints.MaxMonthlyCost,
	)
}

// ProviderOperationError wraps a failed create, destroy or rename call
type ProviderOperationError struct {
	Cluster string
	Action  Action
	Err     error
}

func (e *ProviderOperationError) Error() string {
	return fmt.Sprintf("cluster '%s': %s failed: %v", e.Cluster, e.Action, e.Err)
}

func (e *ProviderOperationError) Unwrap() error {
	return e.Err
}
