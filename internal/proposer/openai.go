// Package proposer implements the mapping-time action proposer on top of an
// OpenAI-compatible chat completion API. Each call sees the objective and the
// current page snapshot and answers with exactly one proposal: the next
// browser action, a request for human input, or done.
package proposer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/seventech-gov/browser-use/internal/mapper"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/pkg/schema"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// maxDOMChars bounds how much page markup goes into the prompt.
	maxDOMChars = 12000
)

const systemPrompt = `You drive a web browser to map a task for later replay.
Given an objective and the current page, answer with ONE JSON object and nothing else:

{"kind": "step", "step": {"action": "<goto|click|input|select|scroll|wait|extract|screenshot|download|upload>", "params": {...}, "description": "..."}}
  - params keys by action: goto{url}, click{selector}, input{selector, text},
    select{selector, value}, scroll{direction, amount}, wait{duration_ms},
    extract{selector}, screenshot{}, download{selector}, upload{selector, file_path}

{"kind": "input", "input": {"field_name": "<snake_case>", "field_label": "...", "prompt": "..."}}
  - use when a value must come from the human (document numbers, plates, credentials)
  - never ask for a field that already appears under "Collected values"; when a
    step needs a collected value, put the value in the step params verbatim,
    character for character

{"kind": "done", "summary": "<what the recording achieved>"}
  - use when the objective is satisfied`

// OpenAIProposer implements mapper.ActionProposer.
type OpenAIProposer struct {
	client openai.Client
	model  string
}

// Option configures an OpenAIProposer.
type Option func(*OpenAIProposer, *[]option.RequestOption)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(p *OpenAIProposer, _ *[]option.RequestOption) {
		p.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(_ *OpenAIProposer, reqOpts *[]option.RequestOption) {
		*reqOpts = append(*reqOpts, option.WithBaseURL(baseURL))
	}
}

// New builds a proposer from an API key. The key may be empty when the
// endpoint does not require one (local OpenAI-compatible servers).
func New(apiKey string, opts ...Option) *OpenAIProposer {
	p := &OpenAIProposer{model: DefaultModel}
	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	for _, opt := range opts {
		opt(p, &reqOpts)
	}
	p.client = openai.NewClient(reqOpts...)
	return p
}

// ProposeNext asks the model for the next proposal given the page state and
// the values the human has supplied so far.
func (p *OpenAIProposer) ProposeNext(ctx context.Context, objective schema.Objective, state surface.PageState, collected []schema.CollectedParameter) (*mapper.Proposal, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(objective, state, collected)),
		},
	})
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeProposer, "chat completion failed").WithCause(err)
	}
	if len(completion.Choices) == 0 {
		return nil, schema.NewError(schema.ErrCodeProposer, "chat completion returned no choices")
	}

	return parseProposal(completion.Choices[0].Message.Content)
}

func buildUserPrompt(objective schema.Objective, state surface.PageState, collected []schema.CollectedParameter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", objective.Description)
	if objective.StartingURL != "" {
		fmt.Fprintf(&b, "Starting URL: %s\n", objective.StartingURL)
	}
	if len(collected) > 0 {
		b.WriteString("\nCollected values (use verbatim, never ask again):\n")
		for _, p := range collected {
			fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, p.Label, p.Value)
		}
	}
	fmt.Fprintf(&b, "\nCurrent page:\nURL: %s\nTitle: %s\n", state.URL, state.Title)
	if state.DOM != "" {
		dom := state.DOM
		if len(dom) > maxDOMChars {
			dom = dom[:maxDOMChars] + "\n<!-- truncated -->"
		}
		fmt.Fprintf(&b, "\nPage markup:\n%s\n", dom)
	}
	return b.String()
}

// wireProposal is the JSON shape the model answers with.
type wireProposal struct {
	Kind string `json:"kind"`
	Step *struct {
		Action      string         `json:"action"`
		Params      map[string]any `json:"params"`
		Description string         `json:"description"`
	} `json:"step,omitempty"`
	Input   *schema.InputRequest `json:"input,omitempty"`
	Summary string               `json:"summary,omitempty"`
}

func parseProposal(content string) (*mapper.Proposal, error) {
	raw := stripCodeFence(content)

	var wire wireProposal
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProposer,
			"model answer is not valid proposal JSON: %s", err.Error()).
			WithDetails(map[string]any{"content": content})
	}

	switch mapper.ProposalKind(wire.Kind) {
	case mapper.ProposalStep:
		if wire.Step == nil {
			return nil, schema.NewError(schema.ErrCodeProposer, "step proposal without a step")
		}
		action := schema.ActionType(wire.Step.Action)
		if !knownAction(action) {
			return nil, schema.NewErrorf(schema.ErrCodeProposer, "unknown action %q", wire.Step.Action)
		}
		return &mapper.Proposal{
			Kind: mapper.ProposalStep,
			Step: &schema.PlanStep{
				Action:      action,
				Params:      wire.Step.Params,
				Description: wire.Step.Description,
			},
		}, nil

	case mapper.ProposalInput:
		if wire.Input == nil || wire.Input.FieldName == "" {
			return nil, schema.NewError(schema.ErrCodeProposer, "input proposal without a field name")
		}
		return &mapper.Proposal{Kind: mapper.ProposalInput, Input: wire.Input}, nil

	case mapper.ProposalDone:
		return &mapper.Proposal{Kind: mapper.ProposalDone, Summary: wire.Summary}, nil

	default:
		return nil, schema.NewErrorf(schema.ErrCodeProposer, "unknown proposal kind %q", wire.Kind)
	}
}

// stripCodeFence unwraps ```json ... ``` fences models often add despite
// instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func knownAction(a schema.ActionType) bool {
	for _, k := range schema.KnownActionTypes {
		if a == k {
			return true
		}
	}
	return false
}
