// Package ai wraps the Anthropic API for answer generation.
//
// The generator drives a bounded tool-calling loop: Claude may request
// course searches for a limited number of rounds before it must answer
// from what it has gathered.
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lectern0/lectern/internal/log"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with tools for searching course content and retrieving course outlines.

Tool Usage:
- Use search_course_content for questions about specific course content or detailed educational materials
- Use get_course_outline for questions about a course's structure, lesson list, or links
- You may use tools across multiple rounds to gather what you need, but keep it minimal
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response Protocol:
- General knowledge questions: answer using existing knowledge without tools
- Course-specific questions: use the tools first, then answer
- No meta-commentary: provide direct answers only. Do not mention your search process, reasoning, or the tools themselves

All responses must be:
1. Brief, concise and focused - get to the point quickly
2. Educational - maintain instructional value
3. Clear - use accessible language
4. Example-supported - include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

const (
	defaultMaxTokens   = 800
	defaultTemperature = 0
	defaultMaxRounds   = 2
)

// MessageCreator is the slice of the Anthropic client the generator
// uses. anthropic.MessageService satisfies it.
type MessageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// ToolExecutor supplies tool schemas and runs tool calls on Claude's
// behalf. tools.Manager satisfies it.
type ToolExecutor interface {
	Definitions() []anthropic.ToolUnionParam
	Execute(ctx context.Context, name string, input json.RawMessage) (string, error)
}

// Config tunes the generator. Zero values fall back to defaults.
type Config struct {
	Model         string
	MaxTokens     int64
	Temperature   float64
	MaxToolRounds int
}

// Generator produces answers through the Anthropic messages API.
type Generator struct {
	client      MessageCreator
	model       string
	maxTokens   int64
	temperature float64
	maxRounds   int
	logger      log.Logger
}

// NewClient builds a MessageCreator backed by the Anthropic API.
func NewClient(apiKey string) MessageCreator {
	return &apiClient{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

type apiClient struct {
	client anthropic.Client
}

func (c *apiClient) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params, opts...)
}

// NewGenerator creates a generator on top of an Anthropic message
// creator.
func NewGenerator(client MessageCreator, cfg Config, logger log.Logger) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxRounds
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Generator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRounds:   cfg.MaxToolRounds,
		logger:      logger,
	}
}

// Generate answers a query, optionally letting Claude call tools.
//
// history is prior conversation text appended to the system prompt, or
// empty. exec may be nil to disable tools entirely. The loop ends when
// Claude stops requesting tools, the round limit is reached, or a tool
// call fails; a failed round still gets one final call so Claude can
// answer from the error.
func (g *Generator) Generate(ctx context.Context, query, history string, exec ToolExecutor) (string, error) {
	system := g.systemBlocks(history)
	messages := []anthropic.MessageParam{{
		Role:    anthropic.MessageParamRoleUser,
		Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(query)},
	}}

	var defs []anthropic.ToolUnionParam
	if exec != nil {
		defs = exec.Definitions()
	}

	for round := 0; ; round++ {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(g.model),
			MaxTokens:   g.maxTokens,
			Temperature: anthropic.Float(g.temperature),
			System:      system,
			Messages:    messages,
		}

		offerTools := len(defs) > 0 && round < g.maxRounds
		if offerTools {
			params.Tools = defs
			params.ToolChoice = anthropic.ToolChoiceUnionParam{
				OfAuto: &anthropic.ToolChoiceAutoParam{
					Type: constant.ValueOf[constant.Auto]().Default(),
				},
			}
		}

		message, err := g.client.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic request: %w", err)
		}

		if !offerTools || message.StopReason != anthropic.StopReasonToolUse {
			return firstText(message), nil
		}

		g.logger.Debug("tool round", "round", round+1)

		messages = append(messages, assistantParam(message))

		results, failed := g.runTools(ctx, exec, message)
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRoleUser,
			Content: results,
		})

		if failed {
			// Answer from the error on the next call.
			defs = nil
		}
	}
}

func (g *Generator) systemBlocks(history string) []anthropic.TextBlockParam {
	text := systemPrompt
	if history != "" {
		text += "\n\nPrevious conversation:\n" + history
	}

	return []anthropic.TextBlockParam{{
		Text: text,
		Type: constant.ValueOf[constant.Text]().Default(),
	}}
}

// runTools executes every tool call in the message and collects the
// result blocks. It reports whether any call failed.
func (g *Generator) runTools(ctx context.Context, exec ToolExecutor, message *anthropic.Message) ([]anthropic.ContentBlockParamUnion, bool) {
	var (
		results []anthropic.ContentBlockParamUnion
		failed  bool
	)

	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}

		content, err := exec.Execute(ctx, toolUse.Name, toolUse.Input)
		isError := false
		if err != nil {
			g.logger.Warn("tool execution failed", "tool", toolUse.Name, "error", err)
			content = fmt.Sprintf("Tool execution failed: %v", err)
			isError = true
			failed = true
		}

		results = append(results, anthropic.NewToolResultBlock(toolUse.ID, content, isError))
	}

	return results, failed
}

// assistantParam converts a response message back into a request
// parameter so the conversation can continue with the tool results.
func assistantParam(message *anthropic.Message) anthropic.MessageParam {
	content := make([]anthropic.ContentBlockParamUnion, 0, len(message.Content))
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content = append(content, anthropic.NewTextBlock(b.Text))
		case anthropic.ToolUseBlock:
			content = append(content,
				anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
		}
	}

	return anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleAssistant,
		Content: content,
	}
}

func firstText(message *anthropic.Message) string {
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return text.Text
		}
	}

	return ""
}
