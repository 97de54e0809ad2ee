package clustermanager

// NodeStatus is the provider independent lifecycle state of a node
type NodeStatus string

const (
	// StatusProvisioning marks a node that is being created or rebuilt
	StatusProvisioning NodeStatus = "provisioning"
	// StatusActive marks a running node that accepts sessions
	StatusActive NodeStatus = "active"
	// StatusStopped marks a powered off node
	StatusStopped NodeStatus = "stopped"
	// StatusArchived marks a node that is being deleted or in an unknown state
	StatusArchived NodeStatus = "archived"
)

// Node is one provisioned instance as observed at the provider
type Node struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Status    NodeStatus `json:"status" yaml:"status"`
	PublicIP  string     `json:"public_ip" yaml:"public_ip"`
	PrivateIP string     `json:"private_ip" yaml:"private_ip"`
	SizeSlug  string     `json:"size" yaml:"size"`
	Region    string     `json:"region" yaml:"region"`
}

// SizeOption is a purchasable instance size from the provider catalog
type SizeOption struct {
	Slug        string
	VCPUs       int
	MemoryMB    int
	DiskGB      int
	MonthlyCost float64
}

// Constraints are the resource bounds a cluster's nodes must satisfy
type Constraints struct {
	MinCores       int
	MinRAM         int
	MinDisk        int
	MaxMonthlyCost float64
}

// ClusterSpec is the desired state of one cluster
type ClusterSpec struct {
	Name     string
	Provider string
	Region   string
	// RegionSuffix names nodes <name><index>-<region> instead of <name><index>
	RegionSuffix      bool
	DesiredCount      int
	Constraints       Constraints
	Image             string
	SSHKeys           []string
	Backups           bool
	IPv6              bool
	PrivateNetworking bool
}

// InstanceSpec describes a node the provider should create
type InstanceSpec struct {
	Name              string
	Region            string
	Size              string
	Image             string
	SSHKeys           []string
	Backups           bool
	IPv6              bool
	PrivateNetworking bool
	Labels            map[string]string
}

// ActionType is the kind of mutation a reconciliation issues
type ActionType string

const (
	ActionCreate  ActionType = "create"
	ActionDestroy ActionType = "destroy"
	ActionRename  ActionType = "rename"
)

// Action is one mutation issued against the provider
type Action struct {
	Type    ActionType
	Node    Node
	NewName string
	Reason  string
}

func (a Action) String() string {
	switch a.Type {
	case ActionRename:
		return string(a.Type) + " " + a.Node.Name + " -> " + a.NewName
	default:
		return string(a.Type) + " " + a.Node.Name
	}
}

// ClusterStatus groups a cluster's nodes by status
type ClusterStatus struct {
	Active       []Node
	Provisioning []Node
	Stopped      []Node
	Archived     []Node
}

// NewClusterStatus partitions nodes by status
func NewClusterStatus(nodes []Node) ClusterStatus {
	var status ClusterStatus
	for _, node := range nodes {
		switch node.Status {
		case StatusActive:
			status.Active = append(status.Active, node)
		case StatusProvisioning:
			status.Provisioning = append(status.Provisioning, node)
		case StatusStopped:
			status.Stopped = append(status.Stopped, node)
		default:
			status.Archived = append(status.Archived, node)
		}
	}
	return status
}

// Unreachable returns the nodes commands cannot be run on
func (s ClusterStatus) Unreachable() []Node {
	nodes := append([]Node{}, s.Stopped...)
	return append(nodes, s.Archived...)
}

func nodeNames(nodes []Node) []string {
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, node.Name)
	}
	return names
}
