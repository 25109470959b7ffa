package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc"

	"github.com/NeseemGit/sb-squares/internal/domain/square"
)

const feedPageSize = 100

// SquareFeed turns the square table into a snapshot feed by polling it on
// an interval. Unchanged polls are suppressed; subscribers only see polls
// where something moved.
type SquareFeed struct {
	repo     *SquareRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewSquareFeed(repo *SquareRepository, interval time.Duration, logger *slog.Logger) *SquareFeed {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SquareFeed{
		repo:     repo,
		interval: interval,
		logger:   logger,
	}
}

func (f *SquareFeed) Subscribe(ctx context.Context, poolID string) (<-chan []square.Square, func(), error) {
	ch := make(chan []square.Square, 1)
	pollCtx, stop := context.WithCancel(ctx)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(ch)
		f.poll(pollCtx, poolID, ch)
	})

	cancel := func() {
		stop()
		wg.Wait()
	}

	return ch, cancel, nil
}

func (f *SquareFeed) poll(ctx context.Context, poolID string, ch chan<- []square.Square) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var lastFingerprint []byte
	deliver := func() {
		items, err := square.ListAll(ctx, f.repo, poolID, feedPageSize)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.WarnContext(ctx, "square feed poll failed",
					"pool_id", poolID,
					"error", err,
				)
			}
			return
		}

		fingerprint, err := sonic.Marshal(items)
		if err != nil {
			f.logger.WarnContext(ctx, "square feed fingerprint failed",
				"pool_id", poolID,
				"error", err,
			)
			return
		}
		if bytes.Equal(fingerprint, lastFingerprint) {
			return
		}
		lastFingerprint = fingerprint

		select {
		case ch <- items:
		case <-ctx.Done():
		}
	}

	deliver()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deliver()
		}
	}
}
