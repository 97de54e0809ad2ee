package hetzner

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/rs/zerolog"
	"github.com/xetys/herd/pkg/clustermanager"
	"golang.org/x/time/rate"
)

// DefaultRegion is used when the provider config names none
const DefaultRegion = "fsn1"

// Config configures the Hetzner Cloud gateway
type Config struct {
	Token         string
	DefaultRegion string
	// Network is attached to servers created with private networking
	Network string
	// MutationsPerSecond paces create, delete and rename calls
	MutationsPerSecond float64
	Version            string
	// Progress renders a bar per awaited action
	Progress bool
}

// Provider implements clustermanager.ProviderGateway on Hetzner Cloud
type Provider struct {
	client        *hcloud.Client
	defaultRegion string
	network       string
	limiter       *rate.Limiter
	progress      bool
	log           zerolog.Logger
}

var _ clustermanager.ProviderGateway = &Provider{}

// NewHetznerProvider creates a gateway from a token
func NewHetznerProvider(cfg Config, logger zerolog.Logger) (*Provider, error) {
	if cfg.Token == "" {
		return nil, errors.New("hetzner token is not set, configure providers.hetzner.token")
	}

	client := hcloud.NewClient(
		hcloud.WithToken(cfg.Token),
		hcloud.WithApplication("herd", cfg.Version),
	)
	return newProvider(client, cfg, logger), nil
}

func newProvider(client *hcloud.Client, cfg Config, logger zerolog.Logger) *Provider {
	region := cfg.DefaultRegion
	if region == "" {
		region = DefaultRegion
	}
	perSecond := cfg.MutationsPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}

	return &Provider{
		client:        client,
		defaultRegion: region,
		network:       cfg.Network,
		limiter:       rate.NewLimiter(rate.Limit(perSecond), 1),
		progress:      cfg.Progress,
		log:           logger,
	}
}

// DefaultRegion returns the location used for clusters without a region
func (provider *Provider) DefaultRegion() string {
	return provider.defaultRegion
}

// ListInstances returns every server of the project
func (provider *Provider) ListInstances(ctx context.Context) ([]clustermanager.Node, error) {
	servers, err := provider.client.Server.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}

	nodes := make([]clustermanager.Node, 0, len(servers))
	for _, server := range servers {
		nodes = append(nodes, nodeFromServer(server))
	}
	return nodes, nil
}

// ListSizes returns the server types orderable in the default region
func (provider *Provider) ListSizes(ctx context.Context) ([]clustermanager.SizeOption, error) {
	serverTypes, err := provider.client.ServerType.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing server types: %w", err)
	}

	var sizes []clustermanager.SizeOption
	for _, serverType := range serverTypes {
		if serverType.IsDeprecated() {
			continue
		}
		size, ok := sizeFromServerType(serverType, provider.defaultRegion)
		if !ok {
			provider.log.Debug().Str("type", serverType.Name).Msg("no pricing for default region, skipping")
			continue
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// CreateInstance creates a server and waits until its create action finished
func (provider *Provider) CreateInstance(ctx context.Context, spec clustermanager.InstanceSpec) (clustermanager.Node, error) {
	if err := provider.limiter.Wait(ctx); err != nil {
		return clustermanager.Node{}, err
	}

	opts := hcloud.ServerCreateOpts{
		Name:       spec.Name,
		ServerType: &hcloud.ServerType{Name: spec.Size},
		Image:      &hcloud.Image{Name: spec.Image},
		Location:   &hcloud.Location{Name: spec.Region},
		Labels:     spec.Labels,
		PublicNet: &hcloud.ServerCreatePublicNet{
			EnableIPv4: true,
			EnableIPv6: spec.IPv6,
		},
	}

	for _, name := range spec.SSHKeys {
		sshKey, _, err := provider.client.SSHKey.Get(ctx, name)
		if err != nil {
			return clustermanager.Node{}, fmt.Errorf("getting SSH key %s: %w", name, err)
		}
		if sshKey == nil {
			return clustermanager.Node{}, fmt.Errorf("SSH key %s not found", name)
		}
		opts.SSHKeys = append(opts.SSHKeys, sshKey)
	}

	if spec.PrivateNetworking {
		if provider.network == "" {
			return clustermanager.Node{}, errors.New("private networking requested but providers.hetzner.network is not set")
		}
		network, _, err := provider.client.Network.Get(ctx, provider.network)
		if err != nil {
			return clustermanager.Node{}, fmt.Errorf("getting network %s: %w", provider.network, err)
		}
		if network == nil {
			return clustermanager.Node{}, fmt.Errorf("network %s not found", provider.network)
		}
		opts.Networks = append(opts.Networks, network)
	}

	provider.log.Info().Str("node", spec.Name).Str("type", spec.Size).Str("location", spec.Region).Msg("creating server")
	result, _, err := provider.client.Server.Create(ctx, opts)
	if err != nil {
		return clustermanager.Node{}, err
	}

	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := provider.actionProgress(ctx, spec.Name, actions...); err != nil {
		return clustermanager.Node{}, err
	}

	if spec.Backups {
		action, _, err := provider.client.Server.EnableBackup(ctx, result.Server, "")
		if err != nil {
			return clustermanager.Node{}, fmt.Errorf("enabling backups: %w", err)
		}
		if err := provider.actionProgress(ctx, spec.Name, action); err != nil {
			return clustermanager.Node{}, err
		}
	}

	return nodeFromServer(result.Server), nil
}

// DestroyInstance deletes a server
func (provider *Provider) DestroyInstance(ctx context.Context, node clustermanager.Node) error {
	if err := provider.limiter.Wait(ctx); err != nil {
		return err
	}

	provider.log.Info().Str("node", node.Name).Int64("id", node.ID).Msg("deleting server")
	result, _, err := provider.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: node.ID})
	if err != nil {
		return err
	}
	return provider.actionProgress(ctx, node.Name, result.Action)
}

// RenameInstance changes a server's name
func (provider *Provider) RenameInstance(ctx context.Context, node clustermanager.Node, newName string) (clustermanager.Node, error) {
	if err := provider.limiter.Wait(ctx); err != nil {
		return clustermanager.Node{}, err
	}

	server, _, err := provider.client.Server.Update(ctx, &hcloud.Server{ID: node.ID}, hcloud.ServerUpdateOpts{Name: newName})
	if err != nil {
		return clustermanager.Node{}, err
	}
	return nodeFromServer(server), nil
}

func nodeFromServer(server *hcloud.Server) clustermanager.Node {
	node := clustermanager.Node{
		ID:     server.ID,
		Name:   server.Name,
		Status: nodeStatus(server.Status),
	}
	if server.PublicNet.IPv4.IP != nil {
		node.PublicIP = server.PublicNet.IPv4.IP.String()
	}
	if len(server.PrivateNet) > 0 && server.PrivateNet[0].IP != nil {
		node.PrivateIP = server.PrivateNet[0].IP.String()
	}
	if server.ServerType != nil {
		node.SizeSlug = server.ServerType.Name
	}
	if server.Datacenter != nil && server.Datacenter.Location != nil {
		node.Region = server.Datacenter.Location.Name
	}
	return node
}

func nodeStatus(status hcloud.ServerStatus) clustermanager.NodeStatus {
	switch status {
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting, hcloud.ServerStatusRebuilding, hcloud.ServerStatusMigrating:
		return clustermanager.StatusProvisioning
	case hcloud.ServerStatusRunning:
		return clustermanager.StatusActive
	case hcloud.ServerStatusOff, hcloud.ServerStatusStopping:
		return clustermanager.StatusStopped
	default:
		return clustermanager.StatusArchived
	}
}

func sizeFromServerType(serverType *hcloud.ServerType, region string) (clustermanager.SizeOption, bool) {
	for _, pricing := range serverType.Pricings {
		if pricing.Location == nil || pricing.Location.Name != region {
			continue
		}
		cost, err := strconv.ParseFloat(pricing.Monthly.Gross, 64)
		if err != nil {
			return clustermanager.SizeOption{}, false
		}
		return clustermanager.SizeOption{
			Slug:        serverType.Name,
			VCPUs:       serverType.Cores,
			MemoryMB:    int(serverType.Memory * 1024),
			DiskGB:      serverType.Disk,
			MonthlyCost: cost,
		}, true
	}
	return clustermanager.SizeOption{}, false
}
