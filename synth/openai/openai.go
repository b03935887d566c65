// Package openai implements synth.Synthesizer using the OpenAI Chat
// Completions API. It packages the capability descriptors and prompt into a
// system/user message pair and normalizes the completion into a policy
// artifact.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/policymesh/synth"
)

// Options configure the OpenAI synthesizer adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options
// without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Synthesizer wraps the OpenAI Chat Completions API behind the generic
// synth.Synthesizer interface.
type Synthesizer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI synthesizer using the official client (API key
// from the environment).
func New(optFns ...func(o *Options)) *Synthesizer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI synthesizer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Synthesizer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Synthesizer{client: client, opts: opts}
}

// Synthesize implements synth.Synthesizer. Transport and API failures are
// wrapped in *synth.Error; declines are reported via the artifact.
func (s *Synthesizer) Synthesize(ctx context.Context, req synth.Request) (*synth.Artifact, error) {
	system, err := synth.BuildSystemPrompt(req)
	if err != nil {
		return nil, &synth.Error{Provider: "openai", Err: fmt.Errorf("failed to build prompt: %w", err)}
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(synth.BuildUserPrompt(req)),
		},
		Model:               s.opts.Model,
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &synth.Error{Provider: "openai", Err: fmt.Errorf("openai api error: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &synth.Error{Provider: "openai", Err: fmt.Errorf("no choices returned")}
	}

	return synth.ParseArtifact(resp.Choices[0].Message.Content), nil
}

// Info returns metadata describing this OpenAI synthesizer implementation.
func (s *Synthesizer) Info() synth.Info {
	return synth.Info{Provider: "openai", Model: s.opts.Model}
}
