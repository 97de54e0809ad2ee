package pkg

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-kit/kit/log/term"
	"github.com/gosuri/uiprogress"
	"github.com/gosuri/uiprogress/util/strutil"
)

const (
	// CompletedEvent ends a progress successfully
	CompletedEvent = "complete!"
	// FailedEvent ends a progress after an error
	FailedEvent = "failed!"
)

// ProgressCoordinator renders one progress bar per node, or plain lines
// when stdout is no terminal
type ProgressCoordinator struct {
	mu         sync.RWMutex
	group      sync.WaitGroup
	progresses map[string]*Progress
	out        io.Writer
}

// RenderProgressBars enables progress bars for terminals
var RenderProgressBars bool

// NewProgressCoordinator creates a coordinator writing to stdout
func NewProgressCoordinator() *ProgressCoordinator {
	if isUiEnabled() {
		uiprogress.Start()
	}
	return &ProgressCoordinator{
		progresses: make(map[string]*Progress),
		out:        os.Stdout,
	}
}

func isUiEnabled() bool {
	if RenderProgressBars {
		return term.IsTerminal(os.Stdout)
	}
	return false
}

func shortLeftPadRight(s string, padWidth int) string {
	if len(s) > padWidth {
		l := len(s)
		return "..." + s[(l-(padWidth-3)):]
	}
	return strutil.PadRight(s, padWidth, ' ')
}

// StartProgress adds a progress for name with the given number of steps
func (c *ProgressCoordinator) StartProgress(name string, steps int) {
	bar := uiprogress.NewBar(steps)
	if isUiEnabled() {
		bar = uiprogress.AddBar(steps)
	}
	progress := &Progress{
		Bar:     bar,
		State:   "starting",
		channel: make(chan string),
		done:    make(chan struct{}),
		Name:    name,
	}
	progress.Bar.Width = 16
	progress.Bar.PrependFunc(func(b *uiprogress.Bar) string {
		percent := strutil.PadLeft(fmt.Sprintf("%.01f%%", b.CompletedPercent()), 6, ' ')
		return fmt.Sprintf("%s : %s  %s",
			shortLeftPadRight(name, 20),
			shortLeftPadRight(progress.State, 32),
			percent,
		)
	})
	c.mu.Lock()
	c.progresses[name] = progress
	c.mu.Unlock()

	c.group.Add(1)
	go func(progress *Progress) {
		defer c.group.Done()
		defer close(progress.done)
		for event := range progress.channel {
			if !isUiEnabled() {
				fmt.Fprintf(c.out, "%s: %s (%d)\n", progress.Name, event, progress.Bar.Current()+1)
			}
			progress.SetText(event)
			if progress.finished(event) {
				if event == CompletedEvent {
					progress.Bar.Set(progress.Bar.Total)
				}
				return
			}
			progress.Bar.Incr()
		}
	}(progress)
}

// AddEvent advances the named progress. Events for unknown or finished
// progresses are dropped.
func (c *ProgressCoordinator) AddEvent(progressName string, eventName string) {
	c.mu.RLock()
	progress, isPresent := c.progresses[progressName]
	c.mu.RUnlock()
	if !isPresent {
		return
	}

	select {
	case progress.channel <- eventName:
	case <-progress.done:
	}
}

// Wait blocks until every progress finished
func (c *ProgressCoordinator) Wait() {
	c.group.Wait()
	if isUiEnabled() {
		uiprogress.Stop()
	}
}
