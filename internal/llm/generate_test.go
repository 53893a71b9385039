package llm

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-detail-cli/pkg/anthropic"
)

// fakeClient records the last request and returns a canned response.
type fakeClient struct {
	lastReq anthropic.MessageRequest
	resp    *anthropic.MessageResponse
	err     error
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func textResponse(texts ...string) *anthropic.MessageResponse {
	blocks := make([]anthropic.ContentBlock, len(texts))
	for i, txt := range texts {
		blocks[i] = anthropic.ContentBlock{Type: "text", Text: txt}
	}
	return &anthropic.MessageResponse{Content: blocks}
}

type selectionOut struct {
	SelectedIndices []int `json:"selected_indices"`
}

func TestGenerate_DecodesJSONOutput(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse(`{"selected_indices": [0, 2]}`)}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{
		Name:   "test_generation",
		Model:  ModelFast,
		System: "system prompt",
		Prompt: "user prompt",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, out.SelectedIndices)

	assert.Equal(t, "claude-haiku-4-5-20251001", client.lastReq.Model)
	assert.Equal(t, int64(defaultMaxTokens), client.lastReq.MaxTokens)
	require.Len(t, client.lastReq.System, 1)
	assert.Equal(t, "system prompt", client.lastReq.System[0].Text)
	assert.Nil(t, client.lastReq.System[0].CacheControl)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, "user", client.lastReq.Messages[0].Role)
	assert.Equal(t, "user prompt", client.lastReq.Messages[0].Content)
}

func TestGenerate_CachedSystemPrompt(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse(`{"selected_indices": []}`)}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{
		Name:        "cached",
		Model:       ModelFast,
		System:      "repeated system prompt",
		CacheSystem: true,
		Prompt:      "p",
	}, &out)
	require.NoError(t, err)

	require.Len(t, client.lastReq.System, 1)
	require.NotNil(t, client.lastReq.System[0].CacheControl)
	assert.Equal(t, "5m", client.lastReq.System[0].CacheControl.TTL)
}

func TestGenerate_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("```json\n{\"selected_indices\": [1]}\n```")}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "fenced", Model: ModelFast, Prompt: "p"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, out.SelectedIndices)
}

func TestGenerate_RepairsMalformedJSON(t *testing.T) {
	t.Parallel()

	// Trailing comma: invalid JSON that the repair pass fixes.
	client := &fakeClient{resp: textResponse(`{"selected_indices": [1, 2,]}`)}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "repair", Model: ModelFast, Prompt: "p"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out.SelectedIndices)
}

func TestGenerate_JoinsMultipleTextBlocks(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse(`{"selected_indices":`, `[3]}`)}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "blocks", Model: ModelFast, Prompt: "p"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, out.SelectedIndices)
}

func TestGenerate_EmptyContentFails(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("   ")}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "empty", Model: ModelFast, Prompt: "p"}, &out)
	assert.Error(t, err)
}

func TestGenerate_ClientErrorPropagates(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: eris.New("api unavailable")}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "failing", Model: ModelFast, Prompt: "p"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestGenerate_MaxTokensOverride(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse(`{}`)}
	gen := NewGenerator(client)

	var out selectionOut
	err := gen.Generate(context.Background(), GenerationSpec{Name: "tokens", Model: ModelBalanced, Prompt: "p", MaxTokens: 4096}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), client.lastReq.MaxTokens)
	assert.Equal(t, "claude-sonnet-4-5-20250929", client.lastReq.Model)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading prose", `Here is the result: {"a": 1}`, `{"a": 1}`},
		{"trailing prose", `{"a": 1} Hope this helps!`, `{"a": 1}`},
		{"whitespace", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
