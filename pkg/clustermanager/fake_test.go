package clustermanager

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"
)

var testCatalog = []SizeOption{
	{Slug: "cx11", VCPUs: 1, MemoryMB: 2048, DiskGB: 20, MonthlyCost: 3.29},
	{Slug: "cpx11", VCPUs: 2, MemoryMB: 2048, DiskGB: 40, MonthlyCost: 4.35},
	{Slug: "cx21", VCPUs: 2, MemoryMB: 4096, DiskGB: 40, MonthlyCost: 5.83},
	{Slug: "cx31", VCPUs: 2, MemoryMB: 8192, DiskGB: 80, MonthlyCost: 10.59},
	{Slug: "cx51", VCPUs: 8, MemoryMB: 32768, DiskGB: 240, MonthlyCost: 38.56},
}

var defaultConstraints = Constraints{MinCores: 1, MinRAM: 256, MinDisk: 10, MaxMonthlyCost: 20}

type fakeGateway struct {
	mu     sync.Mutex
	nodes  []Node
	sizes  []SizeOption
	nextID int64
	calls  []string
	// fail makes the n-th call of an operation fail, counted from 1
	fail      map[string]int
	counts    map[string]int
	listCalls int
	onList    func(call int, nodes []Node)
}

func newFakeGateway(nodes ...Node) *fakeGateway {
	g := &fakeGateway{
		sizes:  testCatalog,
		nextID: 100,
		fail:   map[string]int{},
		counts: map[string]int{},
	}
	for i, node := range nodes {
		if node.ID == 0 {
			node.ID = int64(i + 1)
		}
		if node.Status == "" {
			node.Status = StatusActive
		}
		if node.SizeSlug == "" {
			node.SizeSlug = "cx11"
		}
		if node.PublicIP == "" {
			node.PublicIP = fmt.Sprintf("10.0.0.%d", i+1)
		}
		g.nodes = append(g.nodes, node)
	}
	return g
}

func (g *fakeGateway) record(op, detail string) error {
	g.counts[op]++
	g.calls = append(g.calls, op+" "+detail)
	if n, ok := g.fail[op]; ok && n == g.counts[op] {
		return errors.New("api unavailable")
	}
	return nil
}

func (g *fakeGateway) ListInstances(ctx context.Context) ([]Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.listCalls++
	if g.onList != nil {
		g.onList(g.listCalls, g.nodes)
	}
	return append([]Node{}, g.nodes...), nil
}

func (g *fakeGateway) ListSizes(ctx context.Context) ([]SizeOption, error) {
	return g.sizes, nil
}

func (g *fakeGateway) CreateInstance(ctx context.Context, spec InstanceSpec) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("create", spec.Name); err != nil {
		return Node{}, err
	}
	g.nextID++
	node := Node{
		ID:       g.nextID,
		Name:     spec.Name,
		Status:   StatusActive,
		SizeSlug: spec.Size,
		Region:   spec.Region,
		PublicIP: fmt.Sprintf("10.1.0.%d", g.nextID),
	}
	g.nodes = append(g.nodes, node)
	return node, nil
}

func (g *fakeGateway) DestroyInstance(ctx context.Context, node Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("destroy", node.Name); err != nil {
		return err
	}
	for i, n := range g.nodes {
		if n.ID == node.ID {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("server %d not found", node.ID)
}

func (g *fakeGateway) RenameInstance(ctx context.Context, node Node, newName string) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("rename", node.Name+" -> "+newName); err != nil {
		return Node{}, err
	}
	for _, n := range g.nodes {
		if n.Name == newName && n.ID != node.ID {
			return Node{}, fmt.Errorf("name %s already used", newName)
		}
	}
	for i := range g.nodes {
		if g.nodes[i].ID == node.ID {
			g.nodes[i].Name = newName
		}
	}
	node.Name = newName
	return node, nil
}

func (g *fakeGateway) DefaultRegion() string {
	return "fsn1"
}

func (g *fakeGateway) names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := nodeNames(g.nodes)
	sort.Strings(names)
	return names
}

type fakeCommunicator struct {
	mu       sync.Mutex
	ran      map[string][]string
	copied   map[string][]string
	failCmd  map[string]string
	failDial map[string]bool
	delay    time.Duration
	inFlight int
	maxSeen  int
}

func newFakeCommunicator() *fakeCommunicator {
	return &fakeCommunicator{
		ran:      map[string][]string{},
		copied:   map[string][]string{},
		failCmd:  map[string]string{},
		failDial: map[string]bool{},
	}
}

func (c *fakeCommunicator) Connect(ctx context.Context, node Node) (RemoteSession, error) {
	c.mu.Lock()
	if c.failDial[node.Name] {
		c.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	c.inFlight++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()

	return &fakeSession{node: node, comm: c}, nil
}

type fakeSession struct {
	node Node
	comm *fakeCommunicator
}

func (s *fakeSession) Execute(ctx context.Context, command string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.comm.delay > 0 {
			time.Sleep(s.comm.delay)
		}

		s.comm.mu.Lock()
		s.comm.ran[s.node.Name] = append(s.comm.ran[s.node.Name], command)
		failing := s.comm.failCmd[s.node.Name] == command
		s.comm.mu.Unlock()

		if !yield("running "+command, nil) {
			return
		}
		if failing {
			yield("", errors.New("exit status 100"))
		}
	}
}

func (s *fakeSession) Copy(ctx context.Context, src, dest string, recursive bool) error {
	s.comm.mu.Lock()
	defer s.comm.mu.Unlock()

	s.comm.copied[s.node.Name] = append(s.comm.copied[s.node.Name], src+" -> "+dest)
	return nil
}

func (s *fakeSession) Close() error {
	s.comm.mu.Lock()
	defer s.comm.mu.Unlock()

	s.comm.inFlight--
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	starts map[string]int
	events map[string][]string
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{starts: map[string]int{}, events: map[string][]string{}}
}

func (e *recordingEvents) StartProgress(name string, steps int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts[name] = steps
}

func (e *recordingEvents) AddEvent(name, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events[name] = append(e.events[name], message)
}
