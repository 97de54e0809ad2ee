package clustermanager

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ReadinessOptions bound the wait for provisioning nodes
type ReadinessOptions struct {
	PollInterval time.Duration
	// Cooldown is paused once after nodes came online, as freshly booted
	// servers tend to refuse connections for a while
	Cooldown time.Duration
	Timeout  time.Duration
}

// DefaultReadinessOptions returns the options used when none are configured
func DefaultReadinessOptions() ReadinessOptions {
	return ReadinessOptions{
		PollInterval: 10 * time.Second,
		Cooldown:     15 * time.Second,
		Timeout:      10 * time.Minute,
	}
}

// StatusFunc fetches a fresh status of one cluster
type StatusFunc func(ctx context.Context) (ClusterStatus, error)

// WaitForReady polls status until no node is provisioning. It returns
// ErrReadinessTimeout when opts.Timeout passes first, or the context error
// when ctx is cancelled.
func WaitForReady(ctx context.Context, status StatusFunc, opts ReadinessOptions, logger zerolog.Logger) (ClusterStatus, error) {
	waitCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	current, err := status(waitCtx)
	if err != nil {
		return current, readinessError(ctx, waitCtx, err)
	}

	waited := false
	for len(current.Provisioning) > 0 {
		waited = true
		logger.Info().Strs("nodes", nodeNames(current.Provisioning)).Msg("waiting for nodes to come online")

		if err := sleep(waitCtx, opts.PollInterval); err != nil {
			return current, readinessError(ctx, waitCtx, err)
		}

		current, err = status(waitCtx)
		if err != nil {
			return current, readinessError(ctx, waitCtx, err)
		}
	}

	if waited && opts.Cooldown > 0 {
		logger.Info().Dur("cooldown", opts.Cooldown).Msg("nodes online, giving them time to boot")
		if err := sleep(waitCtx, opts.Cooldown); err != nil {
			return current, readinessError(ctx, waitCtx, err)
		}
	}

	return current, nil
}

func readinessError(parent, waitCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if waitCtx.Err() != nil {
		return ErrReadinessTimeout
	}
	return fmt.Errorf("fetching cluster status: %w", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
