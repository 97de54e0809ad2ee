package hetzner

import (
	"context"
	"os"

	"github.com/go-kit/kit/log/term"
	"github.com/gosuri/uiprogress"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// actionProgress waits for actions, rendering a progress bar on terminals
func (provider *Provider) actionProgress(ctx context.Context, name string, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, action := range actions {
		if action != nil {
			pending = append(pending, action)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if !provider.progress || !term.IsTerminal(os.Stdout) {
		return provider.client.Action.WaitFor(ctx, pending...)
	}

	progress := uiprogress.New()
	progress.Start()
	defer progress.Stop()

	bar := progress.AddBar(100).AppendCompleted().PrependElapsed()
	bar.Empty = ' '
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return name
	})

	err := provider.client.Action.WaitForFunc(ctx, func(update *hcloud.Action) error {
		bar.Set(update.Progress)
		if update.Status == hcloud.ActionStatusError {
			return update.Error()
		}
		return nil
	}, pending...)
	if err == nil {
		bar.Set(100)
	}
	return err
}
