package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/promptmatch/internal/adapters/mq/queue"
	"github.com/okian/promptmatch/internal/adapters/mq/worker"
	"github.com/okian/promptmatch/internal/adapters/warmup"
	"github.com/okian/promptmatch/internal/domain/dedupe"
	"github.com/okian/promptmatch/internal/domain/orchestrator"
	"github.com/okian/promptmatch/pkg/logger"
)

// warmupSeenMax bounds how many image hashes the scanner remembers.
const warmupSeenMax = 10_000

// WarmupStatus reports warm-up progress.
type WarmupStatus struct {
	Dir      string `json:"dir"`
	Scanning bool   `json:"scanning"`
	Queued   int    `json:"queued"`
	Skipped  int    `json:"skipped"`
	Pending  int    `json:"pending"`
	Warmed   int64  `json:"warmed"`
	Cached   int64  `json:"cached"`
	Failed   int64  `json:"failed"`
	Error    string `json:"error,omitempty"`
}

// startWarmup is called with s.mu held.
func (s *Service) startWarmup(ctx context.Context) error {
	if !s.Capabilities().Image {
		return fmt.Errorf("image embedding not configured")
	}
	s.warmupQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.warmupQueueSize))
	s.warmupPool = worker.NewPool(s.warmupWorkers, s.warmupQueue, s.orchestrator,
		worker.WithLogger(s.logger.Named("warmup")),
		worker.WithJobTimeout(jobTimeout(s.policy)),
	)
	s.warmupPool.Start(ctx)

	scanner := warmup.NewScanner(s.warmupDir, s.warmupQueue,
		warmup.WithMaxBytes(s.maxImageBytes),
		warmup.WithDeduper(dedupe.New(dedupe.WithMaxSize(warmupSeenMax))),
		warmup.WithLogger(s.logger.Named("warmup")),
	)
	s.warmupScan = WarmupStatus{Dir: s.warmupDir, Scanning: true}

	go func() {
		res, err := scanner.Scan(ctx)
		s.warmupMu.Lock()
		s.warmupScan.Scanning = false
		s.warmupScan.Queued = res.Queued
		s.warmupScan.Skipped = res.Skipped
		if err != nil {
			s.warmupScan.Error = err.Error()
		}
		s.warmupMu.Unlock()
		if err != nil {
			s.logger.Warn(ctx, "warm-up scan failed", logger.Error(err))
			return
		}
		if s.warmupWatch {
			if err := scanner.Watch(ctx, warmupWatchDebounce); err != nil {
				s.logger.Warn(ctx, "warm-up watch stopped", logger.Error(err))
			}
		}
	}()
	return nil
}

// jobTimeout covers every attempt and backoff the policy allows.
func jobTimeout(p orchestrator.Policy) time.Duration {
	n := time.Duration(p.MaxRetries)
	return p.Timeout*(n+1) + (p.MaxDelay+p.Jitter)*n
}

func (s *Service) warmupStatus() WarmupStatus {
	s.warmupMu.Lock()
	st := s.warmupScan
	s.warmupMu.Unlock()

	ps := s.warmupPool.Stats()
	st.Warmed, st.Cached, st.Failed = ps.Warmed, ps.Cached, ps.Failed
	st.Pending = s.warmupQueue.Len(context.Background())
	return st
}
