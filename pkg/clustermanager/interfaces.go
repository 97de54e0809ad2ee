package clustermanager

import (
	"context"
	"iter"
)

// ProviderGateway is the interface used to declare a cloud provider
type ProviderGateway interface {
	ListInstances(ctx context.Context) ([]Node, error)
	ListSizes(ctx context.Context) ([]SizeOption, error)
	CreateInstance(ctx context.Context, spec InstanceSpec) (Node, error)
	DestroyInstance(ctx context.Context, node Node) error
	RenameInstance(ctx context.Context, node Node, newName string) (Node, error)
	DefaultRegion() string
}

// NodeCommunicator opens remote sessions to nodes
type NodeCommunicator interface {
	Connect(ctx context.Context, node Node) (RemoteSession, error)
}

// RemoteSession is an open connection to one node
type RemoteSession interface {
	// Execute runs command and yields its output line by line. The sequence
	// can be consumed once; a failing command yields a final error.
	Execute(ctx context.Context, command string) iter.Seq2[string, error]
	// Copy transfers a local file, or a directory when recursive, to dest
	Copy(ctx context.Context, src, dest string, recursive bool) error
	Close() error
}

// EventService is the interface used to manage events
type EventService interface {
	StartProgress(progressName string, steps int)
	AddEvent(eventName string, eventMessage string)
}

type nopEventService struct{}

func (nopEventService) StartProgress(string, int) {}
func (nopEventService) AddEvent(string, string)   {}

// NopEventService drops all events
var NopEventService EventService = nopEventService{}
