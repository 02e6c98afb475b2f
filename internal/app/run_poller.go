package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mealtrack-bff/internal/ai"
)

// ToolDispatcher runs one tool call requested by an assistant run and returns
// the output to submit. It never fails: errors become the output text.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call ai.ToolCall) string
}

// RunPoller drives an assistant run from creation to a terminal status.
type RunPoller struct {
	api      RunAPI
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewRunPoller(api RunAPI, interval, timeout time.Duration, logger *zap.Logger) *RunPoller {
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunPoller{
		api:      api,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run starts a run on threadID and returns the newest assistant message once
// it completes.
func (p *RunPoller) Run(ctx context.Context, threadID string, tools ToolDispatcher) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	run, err := p.api.CreateRun(runCtx, threadID)
	if err != nil {
		if runCtx.Err() != nil {
			return "", p.abort(ctx, runCtx, threadID, "")
		}
		return "", err
	}

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		switch run.Status {
		case ai.RunCompleted:
			return p.api.LatestAssistantMessage(runCtx, threadID)

		case ai.RunFailed, ai.RunCancelled, ai.RunExpired, ai.RunIncomplete:
			if run.LastError != "" {
				return "", fmt.Errorf("%w: run %s %s: %s", ErrRunTerminal, run.ID, run.Status, run.LastError)
			}
			return "", fmt.Errorf("%w: run %s %s", ErrRunTerminal, run.ID, run.Status)

		case ai.RunRequiresAction:
			outputs := make([]ai.ToolOutput, 0, len(run.ToolCalls))
			for _, call := range run.ToolCalls {
				outputs = append(outputs, ai.ToolOutput{
					CallID: call.ID,
					Output: tools.Dispatch(runCtx, call),
				})
			}
			submitted, err := p.api.SubmitToolOutputs(runCtx, threadID, run.ID, outputs)
			if err != nil {
				if runCtx.Err() != nil {
					return "", p.abort(ctx, runCtx, threadID, run.ID)
				}
				return "", err
			}
			if submitted.ID != "" {
				run.ID = submitted.ID
			}
		}

		timer.Reset(p.interval)
		select {
		case <-runCtx.Done():
			return "", p.abort(ctx, runCtx, threadID, run.ID)
		case <-timer.C:
		}

		next, err := p.api.RetrieveRun(runCtx, threadID, run.ID)
		if err != nil {
			if runCtx.Err() != nil {
				return "", p.abort(ctx, runCtx, threadID, run.ID)
			}
			return "", err
		}
		run = next
	}
}

// abort cancels the remote run on a best-effort basis and reports why the
// loop stopped: the caller went away, or the run took longer than allowed.
func (p *RunPoller) abort(parent, runCtx context.Context, threadID, runID string) error {
	if runID != "" {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), 5*time.Second)
		defer cancel()
		if err := p.api.CancelRun(cancelCtx, threadID, runID); err != nil {
			p.logger.Warn("cancel assistant run failed",
				zap.String("thread_id", threadID),
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}
	}
	if parent.Err() != nil {
		return fmt.Errorf("assistant run aborted: %w", parent.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrRunTimeout, p.timeout)
	}
	return runCtx.Err()
}
