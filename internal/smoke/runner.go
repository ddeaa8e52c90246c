// Package smoke drives a running scoring server with sample targets for
// every tier and checks the responses.
package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/promptmatch/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Report is written to Config.OutputFile.
type Report struct {
	Stats    *Stats    `json:"stats"`
	Outcomes []Outcome `json:"outcomes"`
}

// Run executes every case against cfg.BaseURL. It returns ErrFailed when any
// case failed its checks; the stats are filled in either way.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("smoke")
	stats := &Stats{
		RunID:      uuid.NewString(),
		StartTime:  time.Now(),
		ModeCounts: map[string]int{},
	}
	repeat := max(cfg.Repeat, 1)
	workers := max(cfg.Workers, 1)

	log.Info(ctx, "starting smoke run",
		logger.String("runId", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("repeat", repeat),
		logger.Int("workers", workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, stats.RunID, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	cases := Cases()
	tokens, err := sealTargets(ctx, c, cases)
	if err != nil {
		return stats, fmt.Errorf("seal targets: %w", err)
	}

	outcomes := make([]Outcome, len(cases))
	var requests int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cs := range cases {
		g.Go(func() error {
			req := scoreRequest{Prompt: cs.Prompt, Tier: cs.Tier}
			if cs.TargetToken {
				req.TargetToken = tokens[cs.Target]
			} else {
				req.TargetDescription = cs.Target
			}
			rs := make([]scoreResponse, 0, repeat)
			for range repeat {
				r, err := c.score(gctx, req)
				mu.Lock()
				requests++
				mu.Unlock()
				if err != nil {
					// Transport and status failures abort the run.
					return fmt.Errorf("case %d (%s %q): %w", i, cs.Tier, cs.Target, err)
				}
				rs = append(rs, r)
			}
			outcomes[i] = Outcome{
				Case:       cs,
				AIScore:    rs[0].AIScore,
				Similarity: rs[0].Similarity01,
				Mode:       rs[0].ScoringMode,
				Note:       rs[0].Feedback.Note,
				Tip:        rs[0].Feedback.Tip,
				Problems:   checkResponses(rs),
			}
			if cfg.Verbose {
				log.Info(gctx, "case scored",
					logger.String("tier", cs.Tier),
					logger.String("target", cs.Target),
					logger.String("prompt", cs.Prompt),
					logger.Int("aiScore", rs[0].AIScore),
					logger.String("mode", rs[0].ScoringMode))
			}
			return nil
		})
	}
	runErr := g.Wait()

	stats.Requests = requests
	if runErr != nil {
		finish(stats)
		return stats, runErr
	}

	checkOrdering(outcomes)
	for _, o := range outcomes {
		stats.Cases++
		stats.ModeCounts[o.Mode]++
		if len(o.Problems) > 0 {
			stats.Failed++
			log.Warn(ctx, "case failed",
				logger.String("tier", o.Case.Tier),
				logger.String("target", o.Case.Target),
				logger.String("prompt", o.Case.Prompt),
				logger.Any("problems", o.Problems))
			continue
		}
		stats.Passed++
	}
	finish(stats)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, Report{Stats: stats, Outcomes: outcomes}); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", cfg.OutputFile))
		}
	}

	displayFinalStats(ctx, log, stats)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d cases", ErrFailed, stats.Failed, stats.Cases)
	}
	return stats, nil
}

// sealTargets issues a gold token for every target used by a token case.
func sealTargets(ctx context.Context, c *client, cases []Case) (map[string]string, error) {
	tokens := map[string]string{}
	for _, cs := range cases {
		if !cs.TargetToken {
			continue
		}
		if _, ok := tokens[cs.Target]; ok {
			continue
		}
		tok, err := c.seal(ctx, cs.Target)
		if err != nil {
			return nil, err
		}
		tokens[cs.Target] = tok
	}
	return tokens, nil
}

func finish(stats *Stats) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
}

func saveReport(path string, r Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, reportPermission); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.String("runId", stats.RunID),
		logger.Int("cases", stats.Cases),
		logger.Int("requests", stats.Requests),
		logger.Int("passed", stats.Passed),
		logger.Int("failed", stats.Failed),
		logger.Any("modes", stats.ModeCounts),
		logger.Duration("duration", stats.Duration))
}
