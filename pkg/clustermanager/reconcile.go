package clustermanager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xetys/herd/pkg/metrics"
)

// ClusterLabel is set on every server created for a cluster
const ClusterLabel = "herd-cluster"

// Reconciler converges the observed nodes of clusters to their specs
type Reconciler struct {
	provider ProviderGateway
	schemes  []NamingScheme
	log      zerolog.Logger

	mu    sync.Mutex
	sizes *SizeSelector
}

// SyncResult is the outcome of reconciling one cluster
type SyncResult struct {
	Cluster string
	Actions []Action
	Err     error
}

// NewReconciler creates a reconciler. The configured clusters are needed to
// settle which cluster owns a node when names overlap.
func NewReconciler(provider ProviderGateway, clusters []ClusterSpec, logger zerolog.Logger) *Reconciler {
	r := &Reconciler{
		provider: provider,
		log:      logger,
	}
	for _, spec := range clusters {
		r.schemes = append(r.schemes, SchemeFor(spec, provider.DefaultRegion()))
	}
	return r
}

// Scheme returns the naming scheme of a cluster
func (r *Reconciler) Scheme(spec ClusterSpec) NamingScheme {
	return SchemeFor(spec, r.provider.DefaultRegion())
}

// SizeSelector returns a selector over the provider catalog. The catalog is
// fetched once per reconciler.
func (r *Reconciler) SizeSelector(ctx context.Context) (*SizeSelector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sizes != nil {
		return r.sizes, nil
	}

	catalog, err := r.provider.ListSizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sizes: %w", err)
	}
	r.sizes = NewSizeSelector(catalog)
	return r.sizes, nil
}

// Nodes returns the cluster's nodes out of an observed node list, ordered by index
func (r *Reconciler) Nodes(spec ClusterSpec, observed []Node) []Node {
	scheme := r.Scheme(spec)
	nodes := scheme.Select(observed, r.schemes)
	scheme.SortByIndex(nodes)
	return nodes
}

// ClusterInfo lists the cluster's nodes as currently seen by the provider
func (r *Reconciler) ClusterInfo(ctx context.Context, spec ClusterSpec) ([]Node, error) {
	observed, err := r.provider.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return r.Nodes(spec, observed), nil
}

// Status fetches the cluster's nodes grouped by status
func (r *Reconciler) Status(ctx context.Context, spec ClusterSpec) (ClusterStatus, error) {
	nodes, err := r.ClusterInfo(ctx, spec)
	if err != nil {
		return ClusterStatus{}, err
	}

	status := NewClusterStatus(nodes)
	metrics.ClusterNodes.WithLabelValues(spec.Name, string(StatusActive)).Set(float64(len(status.Active)))
	metrics.ClusterNodes.WithLabelValues(spec.Name, string(StatusProvisioning)).Set(float64(len(status.Provisioning)))
	metrics.ClusterNodes.WithLabelValues(spec.Name, string(StatusStopped)).Set(float64(len(status.Stopped)))
	metrics.ClusterNodes.WithLabelValues(spec.Name, string(StatusArchived)).Set(float64(len(status.Archived)))
	return status, nil
}

// SyncCluster lists the provider's instances and reconciles one cluster
func (r *Reconciler) SyncCluster(ctx context.Context, spec ClusterSpec) ([]Action, error) {
	observed, err := r.provider.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return r.Sync(ctx, spec, observed)
}

// SyncAll reconciles every cluster against one listing of the provider. A
// failing cluster does not stop the others.
func (r *Reconciler) SyncAll(ctx context.Context, specs []ClusterSpec) ([]SyncResult, error) {
	observed, err := r.provider.ListInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}

	results := make([]SyncResult, 0, len(specs))
	for _, spec := range specs {
		if ctx.Err() != nil {
			results = append(results, SyncResult{Cluster: spec.Name, Err: ctx.Err()})
			continue
		}
		actions, err := r.Sync(ctx, spec, observed)
		results = append(results, SyncResult{Cluster: spec.Name, Actions: actions, Err: err})
	}
	return results, nil
}

// Sync converges one cluster to its spec. observed is the full provider
// listing; nodes of other clusters are ignored. The actions applied are
// returned even when a mutation fails.
func (r *Reconciler) Sync(ctx context.Context, spec ClusterSpec, observed []Node) ([]Action, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, spec.Name)

	logger := r.log.With().Str("cluster", spec.Name).Logger()

	if spec.DesiredCount < 0 {
		return nil, fmt.Errorf("cluster '%s': server count must not be negative, got %d", spec.Name, spec.DesiredCount)
	}

	scheme := r.Scheme(spec)
	nodes := scheme.Select(observed, r.schemes)

	for _, node := range nodes {
		if node.Status == StatusProvisioning {
			metrics.ReconcileFailures.WithLabelValues(spec.Name, "busy").Inc()
			return nil, fmt.Errorf("cluster '%s': %w", spec.Name, ErrClusterBusy)
		}
	}

	sizes, err := r.SizeSelector(ctx)
	if err != nil {
		return nil, err
	}

	target, ok := sizes.BestMatch(spec.Constraints)
	if !ok {
		metrics.ReconcileFailures.WithLabelValues(spec.Name, "sizing").Inc()
		return nil, &SizingError{Cluster: spec.Name, Constraints: spec.Constraints}
	}

	var keep, mismatched []Node
	for _, node := range nodes {
		size, known := sizes.BySlug(node.SizeSlug)
		switch {
		case !known:
			logger.Warn().Str("node", node.Name).Str("size", node.SizeSlug).Msg("size not in catalog, keeping node")
			keep = append(keep, node)
		case Satisfies(size, spec.Constraints):
			keep = append(keep, node)
		default:
			mismatched = append(mismatched, node)
		}
	}

	p := &plan{reconciler: r, spec: spec, log: logger}

	for _, node := range mismatched {
		if err := p.destroy(ctx, node, "size does not satisfy constraints"); err != nil {
			return p.applied, err
		}
	}

	scheme.SortByIndex(keep)
	if len(keep) > spec.DesiredCount {
		excess := keep[spec.DesiredCount:]
		for i := len(excess) - 1; i >= 0; i-- {
			if err := p.destroy(ctx, excess[i], "exceeds server count"); err != nil {
				return p.applied, err
			}
		}
		keep = keep[:spec.DesiredCount]
	}

	for i, node := range keep {
		want := scheme.NodeName(i + 1)
		if node.Name == want {
			continue
		}
		if err := p.rename(ctx, node, want); err != nil {
			return p.applied, err
		}
	}

	region := spec.Region
	if region == "" {
		region = r.provider.DefaultRegion()
	}
	for index := len(keep) + 1; index <= spec.DesiredCount; index++ {
		instance := InstanceSpec{
			Name:              scheme.NodeName(index),
			Region:            region,
			Size:              target.Slug,
			Image:             spec.Image,
			SSHKeys:           spec.SSHKeys,
			Backups:           spec.Backups,
			IPv6:              spec.IPv6,
			PrivateNetworking: spec.PrivateNetworking,
			Labels:            map[string]string{ClusterLabel: spec.Name},
		}
		if err := p.create(ctx, instance); err != nil {
			return p.applied, err
		}
	}

	if len(p.applied) == 0 {
		logger.Info().Int("nodes", len(keep)).Msg("cluster in sync")
	} else {
		logger.Info().Int("actions", len(p.applied)).Str("size", target.Slug).Msg("cluster synced")
	}
	return p.applied, nil
}

// DestroyCluster destroys every node of a cluster. Nodes still provisioning
// are skipped.
func (r *Reconciler) DestroyCluster(ctx context.Context, spec ClusterSpec) ([]Action, error) {
	logger := r.log.With().Str("cluster", spec.Name).Logger()

	nodes, err := r.ClusterInfo(ctx, spec)
	if err != nil {
		return nil, err
	}

	p := &plan{reconciler: r, spec: spec, log: logger}
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		if node.Status == StatusProvisioning {
			logger.Warn().Str("node", node.Name).Msg("node is provisioning, skipping")
			continue
		}
		if err := p.destroy(ctx, node, "cluster destroyed"); err != nil {
			return p.applied, err
		}
	}

	logger.Info().Int("destroyed", len(p.applied)).Msg("cluster destroyed")
	return p.applied, nil
}

// plan records the mutations applied during one reconciliation
type plan struct {
	reconciler *Reconciler
	spec       ClusterSpec
	log        zerolog.Logger
	applied    []Action
}

func (p *plan) destroy(ctx context.Context, node Node, reason string) error {
	action := Action{Type: ActionDestroy, Node: node, Reason: reason}
	return p.apply(action, func() error {
		return p.reconciler.provider.DestroyInstance(ctx, node)
	})
}

func (p *plan) rename(ctx context.Context, node Node, newName string) error {
	action := Action{Type: ActionRename, Node: node, NewName: newName, Reason: "renumbering"}
	return p.apply(action, func() error {
		_, err := p.reconciler.provider.RenameInstance(ctx, node, newName)
		return err
	})
}

func (p *plan) create(ctx context.Context, instance InstanceSpec) error {
	action := Action{
		Type:   ActionCreate,
		Node:   Node{Name: instance.Name, SizeSlug: instance.Size, Region: instance.Region},
		Reason: "below server count",
	}
	return p.apply(action, func() error {
		node, err := p.reconciler.provider.CreateInstance(ctx, instance)
		if err == nil {
			p.log.Debug().Str("node", node.Name).Int64("id", node.ID).Msg("server created")
		}
		return err
	})
}

func (p *plan) apply(action Action, mutate func() error) error {
	if err := mutate(); err != nil {
		metrics.ReconcileFailures.WithLabelValues(p.spec.Name, "provider").Inc()
		return &ProviderOperationError{Cluster: p.spec.Name, Action: action, Err: err}
	}

	p.log.Info().Str("action", string(action.Type)).Str("node", action.Node.Name).Str("reason", action.Reason).Msg(action.String())
	metrics.ReconcileActions.WithLabelValues(p.spec.Name, string(action.Type)).Inc()
	p.applied = append(p.applied, action)
	return nil
}

// IsBusy reports whether err means a cluster was skipped because nodes are
// still provisioning
func IsBusy(err error) bool {
	return errors.Is(err, ErrClusterBusy)
}
