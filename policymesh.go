// Package policymesh provides a high-level façade over the policy engine:
// prompt-driven synthesis of event-driven control policies invoking named
// capabilities. Most applications interact with this package by:
//  1. Creating a ControlScheme via New() with a Synthesizer (mock, OpenAI or
//     Anthropic backed)
//  2. Registering capabilities (the operations synthesized policies may call)
//  3. Attaching input adapters or calling Publish directly to feed events
//  4. Submitting natural-language prompts; accepted prompts become running
//     policies, declined ones change nothing
//
// The façade delegates execution to engine.Scheduler while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply durable stores and a
// structured logger.
package policymesh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/policymesh/adapter"
	"github.com/hupe1980/policymesh/artifact"
	"github.com/hupe1980/policymesh/bus"
	"github.com/hupe1980/policymesh/capability"
	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/engine"
	"github.com/hupe1980/policymesh/logging"
	"github.com/hupe1980/policymesh/policy"
	"github.com/hupe1980/policymesh/recall"
	"github.com/hupe1980/policymesh/synth"
	"github.com/hupe1980/policymesh/transcript"
)

// SubmissionStatus classifies the outcome of a prompt submission.
type SubmissionStatus string

const (
	// SubmissionAccepted means a policy was synthesized, validated and is now
	// running.
	SubmissionAccepted SubmissionStatus = "accepted"
	// SubmissionDeclined means the collaborator produced no confident policy.
	// No state changed; previously running policies are untouched.
	SubmissionDeclined SubmissionStatus = "declined"
	// SubmissionError means synthesis failed or the artifact was rejected by
	// validation. No state changed.
	SubmissionError SubmissionStatus = "error"
)

// SubmissionResult reports what happened to a submitted prompt.
type SubmissionResult struct {
	// Status classifies the outcome.
	Status SubmissionStatus

	// PolicyID identifies the new policy when Status is SubmissionAccepted.
	PolicyID string

	// PolicyName is the synthesized policy's self-reported name.
	PolicyName string

	// Err carries the cause when Status is SubmissionError.
	Err error
}

// Options configures the ControlScheme instance.
type Options struct {
	// EngineConfig tunes queue capacity, overflow behavior and the shutdown
	// grace period.
	EngineConfig engine.Config

	// Synthesizer is the external collaborator turning prompts into policy
	// programs. Defaults to an empty mock that declines every prompt.
	Synthesizer synth.Synthesizer

	// Stores (default to in-memory implementations if not provided)
	Artifacts   artifact.Store
	Transcripts transcript.Store
	Recall      recall.Store

	// RecallLimit caps the number of few-shot examples retrieved per prompt.
	// Zero disables recall.
	RecallLimit int

	// Hooks receives policy lifecycle notifications.
	Hooks *engine.HookManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ControlScheme is the high-level façade aggregating the bus, the capability
// registry, the synthesis pipeline and the scheduler.
type ControlScheme struct {
	opts      Options
	bus       *bus.Bus
	registry  *capability.Registry
	scheduler *engine.Scheduler
	adapters  *adapter.Manager
	logger    logging.Logger
}

// New creates a ControlScheme with optional overrides. Any unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *ControlScheme {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Synthesizer:  synth.NewMock(),
		Artifacts:    artifact.NewInMemoryStore(),
		Transcripts:  transcript.NewInMemoryStore(),
		Recall:       recall.NewInMemoryStore(),
		RecallLimit:  3,
		Hooks:        engine.NewHookManager(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eventBus := bus.New(func(o *bus.Options) {
		o.Logger = opts.Logger
	})
	registry := capability.NewRegistry()

	scheduler := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Bus = eventBus
		o.Registry = registry
		o.Recorder = opts.Transcripts
		o.Hooks = opts.Hooks
		o.Logger = opts.Logger
	})

	return &ControlScheme{
		opts:      opts,
		bus:       eventBus,
		registry:  registry,
		scheduler: scheduler,
		logger:    opts.Logger,
	}
}

// RegisterCapability adds a capability to the registry, making it available
// to every subsequently loaded policy. Registration should complete before
// the first prompt is submitted.
func (m *ControlScheme) RegisterCapability(c core.Capability) error {
	return m.registry.Register(c)
}

// Capabilities returns the registered capability descriptors.
func (m *ControlScheme) Capabilities() []core.Descriptor {
	return m.registry.Descriptors()
}

// Publish feeds a normalized event to every running policy, in total order.
func (m *ControlScheme) Publish(ev core.Event) core.Event {
	return m.bus.Publish(ev)
}

// Attach starts the given input adapters and binds them to the bus. The
// adapters are stopped again by Shutdown. Attach may be called once.
func (m *ControlScheme) Attach(ctx context.Context, adapters ...adapter.Adapter) error {
	if m.adapters != nil {
		return fmt.Errorf("adapters already attached")
	}
	mgr := adapter.NewManager(adapters, func(o *adapter.ManagerOptions) {
		o.Logger = m.logger
	})
	if err := mgr.StartAll(ctx, m.bus); err != nil {
		return err
	}
	m.adapters = mgr
	return nil
}

// SubmitPrompt runs the full prompt pipeline: recall lookup, synthesis,
// validation and (on acceptance) scheduling.
//
// replace controls preemption: when set, every running policy is interrupted
// and its queue flushed before the new policy starts; when clear, the new
// policy joins the running set.
//
// Declines and validation failures change no state: running policies keep
// running and nothing is stored. The error return is reserved for misuse
// (nil synthesizer); pipeline outcomes are reported in the result.
func (m *ControlScheme) SubmitPrompt(ctx context.Context, prompt string, replace bool) (*SubmissionResult, error) {
	if m.opts.Synthesizer == nil {
		return nil, fmt.Errorf("no synthesizer configured")
	}

	req := synth.Request{
		Prompt:       prompt,
		Capabilities: m.registry.Descriptors(),
		Examples:     m.recallExamples(prompt),
	}

	start := time.Now()
	art, err := m.opts.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		m.logger.Error("Policy synthesis failed", "provider", m.opts.Synthesizer.Info().Provider, "duration", time.Since(start), "error", err.Error())
		return &SubmissionResult{Status: SubmissionError, Err: err}, nil
	}

	p, err := policy.Load(art, m.registry.Names())
	if err != nil {
		if errors.Is(err, synth.ErrDeclined) {
			m.logger.Info("Policy synthesis declined", "provider", m.opts.Synthesizer.Info().Provider, "duration", time.Since(start))
			return &SubmissionResult{Status: SubmissionDeclined}, nil
		}
		m.logger.Warn("Synthesized artifact rejected", "error", err.Error())
		return &SubmissionResult{Status: SubmissionError, Err: err}, nil
	}

	id, err := m.scheduler.Add(ctx, p, replace)
	if err != nil {
		return &SubmissionResult{Status: SubmissionError, Err: err}, nil
	}

	m.persistAcceptance(id, prompt, art)

	m.logger.Info("Prompt accepted", "policy_id", id, "policy", p.Name(), "duration", time.Since(start), "replace", replace)

	return &SubmissionResult{Status: SubmissionAccepted, PolicyID: id, PolicyName: p.Name()}, nil
}

// AddPolicy schedules a hand-written policy, bypassing synthesis. The same
// replace semantics as SubmitPrompt apply.
func (m *ControlScheme) AddPolicy(ctx context.Context, p core.Policy, replace bool) (string, error) {
	return m.scheduler.Add(ctx, p, replace)
}

// recallExamples retrieves few-shot examples for the prompt. Recall failures
// degrade to no examples; they never block synthesis.
func (m *ControlScheme) recallExamples(prompt string) []synth.Example {
	if m.opts.Recall == nil || m.opts.RecallLimit <= 0 {
		return nil
	}
	entries, err := m.opts.Recall.Search(prompt, m.opts.RecallLimit)
	if err != nil {
		m.logger.Warn("Recall lookup failed", "error", err.Error())
		return nil
	}
	examples := make([]synth.Example, 0, len(entries))
	for _, e := range entries {
		examples = append(examples, synth.Example{Prompt: e.Prompt, Program: e.Program})
	}
	return examples
}

// persistAcceptance records an accepted synthesis in the artifact and recall
// stores. Store failures are logged, never fatal: the policy is already
// running and persistence is an audit concern.
func (m *ControlScheme) persistAcceptance(policyID, prompt string, art *synth.Artifact) {
	if m.opts.Artifacts != nil {
		if err := m.opts.Artifacts.Save(artifact.Record{PolicyID: policyID, Prompt: prompt, Program: art.Raw}); err != nil {
			m.logger.Warn("Artifact store save failed", "policy_id", policyID, "error", err.Error())
		}
	}
	if m.opts.Recall != nil {
		if err := m.opts.Recall.Remember(prompt, art.Raw); err != nil {
			m.logger.Warn("Recall store save failed", "policy_id", policyID, "error", err.Error())
		}
	}
}

// Interrupt raises the cooperative interrupt signal for one policy.
func (m *ControlScheme) Interrupt(policyID string) error {
	return m.scheduler.Interrupt(policyID)
}

// Terminate cancels a policy's context, forcing its control loop to return.
func (m *ControlScheme) Terminate(policyID string) error {
	return m.scheduler.Terminate(policyID)
}

// PolicyState returns the lifecycle state of one policy.
func (m *ControlScheme) PolicyState(policyID string) (core.PolicyState, error) {
	return m.scheduler.State(policyID)
}

// Policies returns a snapshot of all scheduled policies.
func (m *ControlScheme) Policies() []engine.PolicyInfo {
	return m.scheduler.Policies()
}

// Transcript returns the ordered transcript of one policy: the events it
// consumed and the capability invocations it performed.
func (m *ControlScheme) Transcript(policyID string) []transcript.Entry {
	if m.opts.Transcripts == nil {
		return nil
	}
	return m.opts.Transcripts.Entries(policyID)
}

// Invocations returns only the capability invocations of one policy, in
// order.
func (m *ControlScheme) Invocations(policyID string) []transcript.Invocation {
	if m.opts.Transcripts == nil {
		return nil
	}
	return m.opts.Transcripts.Invocations(policyID)
}

// Program returns the stored program artifact of an accepted policy.
func (m *ControlScheme) Program(policyID string) (artifact.Record, error) {
	if m.opts.Artifacts == nil {
		return artifact.Record{}, artifact.ErrNotFound
	}
	return m.opts.Artifacts.Get(policyID)
}

// Shutdown stops attached adapters, then stops all policies via the
// scheduler's graceful shutdown. It returns the scheduler's error; adapter
// stop failures are logged.
func (m *ControlScheme) Shutdown(ctx context.Context) error {
	if m.adapters != nil {
		if err := m.adapters.StopAll(); err != nil {
			m.logger.Warn("Adapter shutdown reported errors", "error", err.Error())
		}
		m.adapters = nil
	}
	return m.scheduler.Shutdown(ctx)
}
