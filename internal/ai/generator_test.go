package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient returns scripted responses and records each request.
type fakeClient struct {
	responses []*anthropic.Message
	err       error
	requests  []anthropic.MessageNewParams
}

func (f *fakeClient) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}

	i := len(f.requests) - 1
	if i >= len(f.responses) {
		return nil, errors.New("no scripted response left")
	}

	return f.responses[i], nil
}

func textMessage(t *testing.T, text string) *anthropic.Message {
	t.Helper()

	payload := fmt.Sprintf(`{
		"role": "assistant",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": %q}]
	}`, text)

	var m anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	return &m
}

func toolUseMessage(t *testing.T, id, name, input string) *anthropic.Message {
	t.Helper()

	payload := fmt.Sprintf(`{
		"role": "assistant",
		"stop_reason": "tool_use",
		"content": [{"type": "tool_use", "id": %q, "name": %q, "input": %s}]
	}`, id, name, input)

	var m anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	return &m
}

type fakeExecutor struct {
	result string
	err    error

	calls  []string
	inputs []string
}

func (f *fakeExecutor) Definitions() []anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}

	return []anthropic.ToolUnionParam{
		anthropic.ToolUnionParamOfTool(schema, "search_course_content"),
	}
}

func (f *fakeExecutor) Execute(_ context.Context, name string, input json.RawMessage) (string, error) {
	f.calls = append(f.calls, name)
	f.inputs = append(f.inputs, string(input))

	return f.result, f.err
}

func TestGenerator_DirectAnswer(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{
		textMessage(t, "Go is a programming language."),
	}}
	gen := NewGenerator(client, Config{Model: "claude-sonnet-4-20250514"}, nil)

	answer, err := gen.Generate(context.Background(), "What is Go?", "", &fakeExecutor{})
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", answer)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, anthropic.Model("claude-sonnet-4-20250514"), req.Model)
	assert.Equal(t, int64(defaultMaxTokens), req.MaxTokens)
	assert.Len(t, req.Tools, 1)
	assert.NotNil(t, req.ToolChoice.OfAuto)
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0].Text, "course materials")
	assert.NotContains(t, req.System[0].Text, "Previous conversation:")
}

func TestGenerator_HistoryInSystemPrompt(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{textMessage(t, "ok")}}
	gen := NewGenerator(client, Config{Model: "m"}, nil)

	_, err := gen.Generate(context.Background(), "follow-up",
		"User: hi\nAssistant: hello", &fakeExecutor{})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	system := client.requests[0].System[0].Text
	assert.True(t, strings.HasSuffix(system,
		"Previous conversation:\nUser: hi\nAssistant: hello"))
}

func TestGenerator_SingleToolRound(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{
		toolUseMessage(t, "tool_1", "search_course_content", `{"query":"lesson 2 topic"}`),
		textMessage(t, "Lesson 2 covers servers."),
	}}
	exec := &fakeExecutor{result: "[Course - Lesson 2]\nServers."}
	gen := NewGenerator(client, Config{Model: "m"}, nil)

	answer, err := gen.Generate(context.Background(), "What does lesson 2 cover?", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "Lesson 2 covers servers.", answer)

	require.Equal(t, []string{"search_course_content"}, exec.calls)
	assert.JSONEq(t, `{"query":"lesson 2 topic"}`, exec.inputs[0])

	require.Len(t, client.requests, 2)
	// Second request carries the original query, the assistant tool
	// call, and the tool result.
	assert.Len(t, client.requests[1].Messages, 3)
	assert.Len(t, client.requests[1].Tools, 1)
}

func TestGenerator_StopsAtMaxRounds(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{
		toolUseMessage(t, "tool_1", "search_course_content", `{"query":"a"}`),
		toolUseMessage(t, "tool_2", "search_course_content", `{"query":"b"}`),
		textMessage(t, "final answer"),
	}}
	exec := &fakeExecutor{result: "content"}
	gen := NewGenerator(client, Config{Model: "m", MaxToolRounds: 2}, nil)

	answer, err := gen.Generate(context.Background(), "q", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "final answer", answer)

	require.Len(t, client.requests, 3)
	assert.Len(t, exec.calls, 2)
	// The final round must not offer tools.
	assert.Empty(t, client.requests[2].Tools)
	assert.Nil(t, client.requests[2].ToolChoice.OfAuto)
}

func TestGenerator_ToolErrorEndsLoop(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{
		toolUseMessage(t, "tool_1", "search_course_content", `{"query":"a"}`),
		textMessage(t, "I could not search the course content."),
	}}
	exec := &fakeExecutor{err: errors.New("database unavailable")}
	gen := NewGenerator(client, Config{Model: "m"}, nil)

	answer, err := gen.Generate(context.Background(), "q", "", exec)
	require.NoError(t, err)
	assert.Equal(t, "I could not search the course content.", answer)

	require.Len(t, client.requests, 2)
	assert.Empty(t, client.requests[1].Tools)
}

func TestGenerator_NilExecutor(t *testing.T) {
	t.Parallel()

	client := &fakeClient{responses: []*anthropic.Message{textMessage(t, "answer")}}
	gen := NewGenerator(client, Config{Model: "m"}, nil)

	answer, err := gen.Generate(context.Background(), "q", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.Empty(t, client.requests[0].Tools)
}

func TestGenerator_APIError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("overloaded")}
	gen := NewGenerator(client, Config{Model: "m"}, nil)

	_, err := gen.Generate(context.Background(), "q", "", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "overloaded")
}
