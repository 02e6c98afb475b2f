package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Run statuses reported by the assistant provider.
const (
	RunQueued         = "queued"
	RunInProgress     = "in_progress"
	RunRequiresAction = "requires_action"
	RunCancelling     = "cancelling"
	RunCompleted      = "completed"
	RunFailed         = "failed"
	RunCancelled      = "cancelled"
	RunExpired        = "expired"
	RunIncomplete     = "incomplete"
)

var ErrNoAssistantMessage = errors.New("thread has no assistant message")

// Run is the part of a remote assistant run the polling loop cares about.
type Run struct {
	ID        string
	Status    string
	ToolCalls []ToolCall
	LastError string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolOutput struct {
	CallID string
	Output string
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create assistant thread failed: %w", err)
	}
	return thread.ID, nil
}

func (c *Client) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("add thread message failed: %w", err)
	}
	return nil
}

func (c *Client) CreateRun(ctx context.Context, threadID string) (Run, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.cfg.AssistantID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("create assistant run failed: %w", err)
	}
	return toRun(run), nil
}

func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve assistant run failed: %w", err)
	}
	return toRun(run), nil
}

func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: o.CallID,
			Output:     o.Output,
		})
	}
	run, err := c.api.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return Run{}, fmt.Errorf("submit tool outputs failed: %w", err)
	}
	return toRun(run), nil
}

func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
		return fmt.Errorf("cancel assistant run failed: %w", err)
	}
	return nil
}

// LatestAssistantMessage returns the text of the newest assistant-authored
// message in the thread.
func (c *Client) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 20
	order := "desc"
	list, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list thread messages failed: %w", err)
	}
	for _, msg := range list.Messages {
		if msg.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		var text strings.Builder
		for _, part := range msg.Content {
			if part.Text != nil {
				text.WriteString(part.Text.Value)
			}
		}
		return text.String(), nil
	}
	return "", ErrNoAssistantMessage
}

func toRun(run openai.Run) Run {
	out := Run{
		ID:     run.ID,
		Status: string(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}
	return out
}
