package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"mealtrack-bff/internal/ai"
)

const (
	ToolRecentMeals    = "get_recent_meals"
	ToolRecentWorkouts = "get_recent_workouts"
)

type ToolFunc func(ctx context.Context, arguments string) (interface{}, error)

// ToolRegistry maps tool names the assistant knows about to local functions.
type ToolRegistry struct {
	tools map[string]ToolFunc
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolFunc)}
}

func (r *ToolRegistry) Register(name string, fn ToolFunc) {
	r.tools[name] = fn
}

func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch always produces an output, because the run cannot continue until
// every call has one.
func (r *ToolRegistry) Dispatch(ctx context.Context, call ai.ToolCall) string {
	fn, ok := r.tools[call.Name]
	if !ok {
		return errorOutput(fmt.Errorf("unknown tool %q", call.Name))
	}
	result, err := fn(ctx, call.Arguments)
	if err != nil {
		return errorOutput(err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return errorOutput(err)
	}
	return string(payload)
}

func errorOutput(err error) string {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(payload)
}
