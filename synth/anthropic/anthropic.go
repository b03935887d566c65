// Package anthropic implements synth.Synthesizer using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/policymesh/synth"
)

// Options configure the Anthropic synthesizer adapter (model id, sampling
// temperature, max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Synthesizer wraps the Anthropic Messages API behind the generic
// synth.Synthesizer interface.
type Synthesizer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic synthesizer using the official client.
func New(optFns ...func(o *Options)) *Synthesizer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Synthesizer{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic synthesizer from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Synthesizer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0,
		MaxTokens:   4096,
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
		return nil, &synth.Error{Provider: "anthropic", Err: fmt.Errorf("failed to build prompt: %w", err)}
	}

	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(synth.BuildUserPrompt(req))),
		},
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &synth.Error{Provider: "anthropic", Err: fmt.Errorf("anthropic api error: %w", err)}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return synth.ParseArtifact(text.String()), nil
}

// Info returns metadata describing this Anthropic synthesizer implementation.
func (s *Synthesizer) Info() synth.Info {
	return synth.Info{Provider: "anthropic", Model: string(s.opts.Model)}
}
