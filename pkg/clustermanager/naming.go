package clustermanager

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// NamingScheme maps node indices of one cluster to node names
type NamingScheme struct {
	Cluster string
	Region  string
	pattern *regexp.Regexp
}

// NewNamingScheme returns the scheme for a cluster. A non-empty region makes
// names region qualified.
func NewNamingScheme(cluster, region string) NamingScheme {
	expr := "^" + regexp.QuoteMeta(cluster) + "([1-9][0-9]*)"
	if region != "" {
		expr += "-" + regexp.QuoteMeta(region)
	}

	return NamingScheme{
		Cluster: cluster,
		Region:  region,
		pattern: regexp.MustCompile(expr + "$"),
	}
}

// SchemeFor returns the naming scheme of a cluster spec
func SchemeFor(spec ClusterSpec, defaultRegion string) NamingScheme {
	if !spec.RegionSuffix {
		return NewNamingScheme(spec.Name, "")
	}

	region := spec.Region
	if region == "" {
		region = defaultRegion
	}
	return NewNamingScheme(spec.Name, region)
}

// NodeName renders the name of the node at index
func (s NamingScheme) NodeName(index int) string {
	if s.Region != "" {
		return fmt.Sprintf("%s%d-%s", s.Cluster, index, s.Region)
	}
	return fmt.Sprintf("%s%d", s.Cluster, index)
}

// Index parses the node index out of name
func (s NamingScheme) Index(name string) (int, bool) {
	if s.pattern == nil {
		return 0, false
	}

	match := s.pattern.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}

	index, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return index, true
}

// Owns reports whether a node belongs to this cluster. When the name also
// matches another cluster's scheme the cluster with the longer name owns it,
// so "web" never claims the nodes of "web2".
func (s NamingScheme) Owns(name string, others []NamingScheme) bool {
	if _, ok := s.Index(name); !ok {
		return false
	}

	for _, other := range others {
		if other.Cluster == s.Cluster || len(other.Cluster) <= len(s.Cluster) {
			continue
		}
		if _, ok := other.Index(name); ok {
			return false
		}
	}
	return true
}

// CheckNaming fails when a cluster would create a node that a cluster with a
// longer name claims, like web11 with both web and web1 configured
func CheckNaming(specs []ClusterSpec, defaultRegion string) error {
	schemes := make([]NamingScheme, len(specs))
	for i, spec := range specs {
		schemes[i] = SchemeFor(spec, defaultRegion)
	}

	var errs []error
	for i, spec := range specs {
		for index := 1; index <= spec.DesiredCount; index++ {
			name := schemes[i].NodeName(index)
			if !schemes[i].Owns(name, schemes) {
				errs = append(errs, fmt.Errorf("cluster '%s': node %s would be owned by another cluster", spec.Name, name))
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Select returns the nodes owned by the scheme
func (s NamingScheme) Select(nodes []Node, others []NamingScheme) []Node {
	var owned []Node
	for _, node := range nodes {
		if s.Owns(node.Name, others) {
			owned = append(owned, node)
		}
	}
	return owned
}

// SortByIndex orders nodes by their index, then by name
func (s NamingScheme) SortByIndex(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, _ := s.Index(nodes[i].Name)
		b, _ := s.Index(nodes[j].Name)
		if a != b {
			return a < b
		}
		return nodes[i].Name < nodes[j].Name
	})
}
