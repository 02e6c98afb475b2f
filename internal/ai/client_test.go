package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:        srv.URL + "/v1",
		APIKey:         "sk-test",
		ChatModel:      "gpt-4",
		EmbeddingModel: "text-embedding-ada-002",
		AssistantID:    "asst_1",
	})
}

func TestEmbedReplacesNewlinesAndReturnsUsage(t *testing.T) {
	var got struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5]}],"usage":{"prompt_tokens":7,"total_tokens":7}}`))
	})

	emb, err := client.Embed(context.Background(), "Meal Type: lunch\nNotes: salad\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"Meal Type: lunch Notes: salad"}, got.Input)
	assert.Equal(t, "text-embedding-ada-002", got.Model)
	assert.Equal(t, []float32{0.25, -0.5}, emb.Vector)
	assert.Equal(t, 7, emb.TokenCount)
}

func TestEmbedRejectsBlankInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.Embed(context.Background(), " \n ")
	assert.Error(t, err)
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"You ate well."},"finish_reason":"stop"}]}`))
	})

	out, err := client.Complete(context.Background(), []ChatMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be brief"},
		{Role: openai.ChatMessageRoleUser, Content: "how did I eat?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You ate well.", out)
}

func TestCompleteWithoutChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	})

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLatestAssistantMessageSkipsUserMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/threads/thread_1/messages", r.URL.Path)
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"id":"m3","object":"thread.message","role":"user","content":[{"type":"text","text":{"value":"thanks","annotations":[]}}]},
			{"id":"m2","object":"thread.message","role":"assistant","content":[{"type":"text","text":{"value":"Eat more greens.","annotations":[]}}]},
			{"id":"m1","object":"thread.message","role":"assistant","content":[{"type":"text","text":{"value":"older","annotations":[]}}]}
		]}`))
	})

	text, err := client.LatestAssistantMessage(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Equal(t, "Eat more greens.", text)
}

func TestToRunCopiesToolCalls(t *testing.T) {
	run := toRun(openai.Run{
		ID:     "run_1",
		Status: openai.RunStatusRequiresAction,
		RequiredAction: &openai.RunRequiredAction{
			Type: openai.RequiredActionTypeSubmitToolOutputs,
			SubmitToolOutputs: &openai.SubmitToolOutputs{
				ToolCalls: []openai.ToolCall{{
					ID:   "call_1",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      "get_recent_meals",
						Arguments: `{"days":3}`,
					},
				}},
			},
		},
	})

	assert.Equal(t, RunRequiresAction, run.Status)
	require.Len(t, run.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "get_recent_meals", Arguments: `{"days":3}`}, run.ToolCalls[0])
}
