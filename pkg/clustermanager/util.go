package clustermanager

import (
	"context"
	"fmt"
	"sync"
)

// fanOut runs work once per node with at most limit calls in flight. Results
// are delivered on the returned channel in completion order; the channel is
// closed when every node is done.
func fanOut(ctx context.Context, limit int, nodes []Node, work func(context.Context, Node) NodeResult) <-chan NodeResult {
	if limit < 1 {
		limit = 1
	}

	results := make(chan NodeResult, len(nodes))
	slots := make(chan struct{}, limit)

	go func() {
		var wg sync.WaitGroup
		for _, node := range nodes {
			slots <- struct{}{}
			wg.Add(1)
			go func(node Node) {
				defer wg.Done()
				defer func() { <-slots }()
				results <- isolate(ctx, node, work)
			}(node)
		}
		wg.Wait()
		close(results)
	}()

	return results
}

// isolate turns a panicking worker into a failed result for its node
func isolate(ctx context.Context, node Node, work func(context.Context, Node) NodeResult) (result NodeResult) {
	defer func() {
		if r := recover(); r != nil {
			result = NodeResult{Node: node, Err: fmt.Errorf("worker panicked: %v", r)}
		}
	}()
	return work(ctx, node)
}
