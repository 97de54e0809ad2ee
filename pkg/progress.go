package pkg

import "github.com/gosuri/uiprogress"

// Progress tracks the command execution on one node
type Progress struct {
	Name    string
	Bar     *uiprogress.Bar
	channel chan string
	done    chan struct{}
	State   string
}

// SetText define text to display during progress
func (progress *Progress) SetText(text string) {
	if text != "" {
		progress.State = text
	}
}

func (progress *Progress) finished(event string) bool {
	return event == CompletedEvent || event == FailedEvent
}
