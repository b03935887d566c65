package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/policymesh/bus"
	"github.com/hupe1980/policymesh/capability"
	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/internal/util"
	"github.com/hupe1980/policymesh/logging"
)

var (
	// ErrPolicyNotFound is returned when a policy id is unknown to the scheduler.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrShutdownTimeout is recorded as the failure of policies that did not
	// stop within the shutdown grace period.
	ErrShutdownTimeout = errors.New("policy exceeded shutdown grace period")
)

// Config defines tuning parameters for the scheduler's operational behavior.
type Config struct {
	// QueueCapacity bounds each policy's delivery queue. Set to 0 for
	// unbounded queues (not recommended with bursty input sources).
	QueueCapacity int

	// Overflow selects the backpressure behavior for bounded queues.
	Overflow bus.Overflow

	// ShutdownGrace is how long Shutdown waits for policies to observe their
	// interrupt before escalating to context cancellation.
	ShutdownGrace time.Duration
}

// DefaultConfig provides production-ready defaults: bounded queues that shed
// the oldest input under pressure and a shutdown grace generous enough for
// policies sitting in short sleeps.
var DefaultConfig = Config{
	QueueCapacity: 1024,
	Overflow:      bus.DropOldest,
	ShutdownGrace: 5 * time.Second,
}

// Options configures a Scheduler using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Bus is the event bus new policies are registered on. Defaults to a
	// fresh empty bus.
	Bus *bus.Bus

	// Registry supplies the capability sets handed to policies. Defaults to
	// an empty registry.
	Registry *capability.Registry

	// Recorder observes event deliveries and capability invocations.
	// Defaults to a recorder that discards everything.
	Recorder core.InvocationRecorder

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Hooks receives policy lifecycle notifications. Defaults to an empty
	// manager.
	Hooks *HookManager
}

// PolicyInfo is a point-in-time snapshot of a scheduled policy.
type PolicyInfo struct {
	ID       string
	Name     string
	State    core.PolicyState
	QueueLen int
}

// managedPolicy is the scheduler's bookkeeping for one policy goroutine.
type managedPolicy struct {
	id         string
	policy     core.Policy
	queue      *bus.Queue
	interrupts chan struct{}
	cancel     context.CancelFunc
	done       chan struct{}

	mu      sync.Mutex
	state   core.PolicyState
	failure error
}

// setState applies a transition, honoring the absorbing terminal states. It
// reports whether the state actually changed.
func (mp *managedPolicy) setState(next core.PolicyState) (core.PolicyState, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	prev := mp.state
	if prev.Terminal() || prev == next {
		return prev, false
	}
	mp.state = next
	return prev, true
}

func (mp *managedPolicy) currentState() core.PolicyState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

func (mp *managedPolicy) setFailure(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.failure == nil {
		mp.failure = err
	}
}

func (mp *managedPolicy) currentFailure() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.failure
}

// Scheduler owns policy execution: one goroutine, one queue, one interrupt
// signal and one cancellable context per policy. All public methods are safe
// for concurrent use.
type Scheduler struct {
	bus      *bus.Bus
	registry *capability.Registry
	recorder core.InvocationRecorder
	logger   logging.Logger
	hooks    *HookManager
	config   Config

	mu       sync.RWMutex
	policies map[string]*managedPolicy
}

// New creates a Scheduler with sensible defaults and optional configuration.
//
// All collaborators have in-process defaults, so a bare New() yields a fully
// working scheduler for development and tests. Production setups typically
// share a Bus and Registry with the surrounding ControlScheme.
func New(optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Config:   DefaultConfig,
		Bus:      bus.New(),
		Registry: capability.NewRegistry(),
		Recorder: core.NoOpRecorder(),
		Logger:   logging.NoOpLogger{},
		Hooks:    NewHookManager(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scheduler{
		bus:      opts.Bus,
		registry: opts.Registry,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		hooks:    opts.Hooks,
		config:   opts.Config,
		policies: make(map[string]*managedPolicy),
	}
}

// Bus returns the event bus new policies are registered on.
func (s *Scheduler) Bus() *bus.Bus { return s.bus }

// Registry returns the capability registry policies draw from.
func (s *Scheduler) Registry() *capability.Registry { return s.registry }

// Add schedules a policy and starts its goroutine.
//
// With replace set, every live policy is preempted first: its interrupt
// signal is raised and its queue flushed, so stale input never leaks into
// the regime the new policy defines. Without replace the policy joins the
// running set and shares subsequent events with everyone else.
//
// The returned id identifies the policy in all other scheduler methods. The
// caller's ctx bounds the policy's whole lifetime; Terminate and Shutdown
// cancel the derived per-policy context independently.
func (s *Scheduler) Add(ctx context.Context, p core.Policy, replace bool) (string, error) {
	if p == nil {
		return "", fmt.Errorf("policy must not be nil")
	}

	if replace {
		s.preemptAll()
	}

	id := util.NewID()

	policyCtx, cancel := context.WithCancel(ctx)

	mp := &managedPolicy{
		id:         id,
		policy:     p,
		queue:      bus.NewQueue(s.config.QueueCapacity, s.config.Overflow),
		interrupts: make(chan struct{}, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      core.StateLoaded,
	}

	hookCtx := &HookContext{PolicyID: id, PolicyName: p.Name(), State: core.StateLoaded}
	if err := s.hooks.Fire(ctx, HookPolicyStart, hookCtx); err != nil {
		cancel()
		return "", fmt.Errorf("policy start hook rejected %s: %w", p.Name(), err)
	}

	rc := core.NewRuntimeContext(
		policyCtx,
		id,
		mp.queue,
		mp.interrupts,
		s.registry.NewSet(id, s.recorder),
		s.logger,
		s.recorder,
		func(next core.PolicyState) { s.transition(mp, next) },
	)

	s.mu.Lock()
	s.policies[id] = mp
	s.mu.Unlock()

	// Register before the goroutine starts so no event published after Add
	// returns can miss the queue.
	s.bus.Register(mp.queue)

	s.logger.Info("Policy scheduled", "policy_id", id, "policy", p.Name(), "replace", replace)

	go s.run(mp, rc)

	return id, nil
}

// run hosts one policy's Process loop and handles its epilogue: panic
// capture, bus deregistration and the final state transition.
func (s *Scheduler) run(mp *managedPolicy, rc *core.RuntimeContext) {
	defer close(mp.done)
	defer s.bus.Unregister(mp.queue)
	defer mp.cancel()

	s.transition(mp, core.StateRunning)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("policy panic: %v", r)
			}
		}()
		err = mp.policy.Process(rc)
	}()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		// Cancellation is how Terminate and Shutdown stop a policy; it is a
		// normal ending, not a failure.
		s.transition(mp, core.StateTerminated)
		s.logger.Info("Policy terminated", "policy_id", mp.id, "policy", mp.policy.Name())
	default:
		mp.setFailure(err)
		s.transition(mp, core.StateFailed)
		s.logger.Error("Policy failed", "policy_id", mp.id, "policy", mp.policy.Name(), "error", err.Error())
		s.fireHook(HookError, &HookContext{PolicyID: mp.id, PolicyName: mp.policy.Name(), State: core.StateFailed, Err: err})
	}

	s.fireHook(HookPolicyStop, &HookContext{PolicyID: mp.id, PolicyName: mp.policy.Name(), State: mp.currentState(), Err: mp.currentFailure()})
}

// transition applies a state change and emits the observability side effects.
func (s *Scheduler) transition(mp *managedPolicy, next core.PolicyState) {
	prev, changed := mp.setState(next)
	if !changed {
		return
	}
	s.logger.Debug("Policy state transition", "policy_id", mp.id, "from", string(prev), "to", string(next))
	s.fireHook(HookStateChange, &HookContext{PolicyID: mp.id, PolicyName: mp.policy.Name(), State: next})
}

// fireHook runs notification hooks; their errors are logged, never fatal.
func (s *Scheduler) fireHook(t HookType, hc *HookContext) {
	if err := s.hooks.Fire(context.Background(), t, hc); err != nil {
		s.logger.Warn("Lifecycle hook failed", "hook", string(t), "policy_id", hc.PolicyID, "error", err.Error())
	}
}

// preemptAll raises the interrupt signal on every live policy, removes its
// queue from the bus delivery set and flushes whatever was already queued.
// Unregistering here, not in the policy epilogue, is what keeps events
// published after a replacing Add out of the replaced policies' queues even
// while their goroutines are still winding down. The epilogue's Unregister
// is then a no-op.
func (s *Scheduler) preemptAll() {
	s.mu.RLock()
	live := make([]*managedPolicy, 0, len(s.policies))
	for _, mp := range s.policies {
		if !mp.currentState().Terminal() {
			live = append(live, mp)
		}
	}
	s.mu.RUnlock()

	for _, mp := range live {
		raiseInterrupt(mp)
		s.bus.Unregister(mp.queue)
		if flushed := mp.queue.Clear(); flushed > 0 {
			s.logger.Debug("Flushed stale events on preemption", "policy_id", mp.id, "count", flushed)
		}
	}
}

// raiseInterrupt sets the policy's interrupt signal without blocking. The
// channel has capacity one, so an already pending signal absorbs the new one.
func raiseInterrupt(mp *managedPolicy) {
	select {
	case mp.interrupts <- struct{}{}:
	default:
	}
}

// Interrupt raises the cooperative interrupt signal for one policy. The
// policy observes it at its next wait point and decides whether to stop.
// Interrupting a terminal policy is a no-op.
func (s *Scheduler) Interrupt(id string) error {
	mp, err := s.lookup(id)
	if err != nil {
		return err
	}
	if mp.currentState().Terminal() {
		return nil
	}
	raiseInterrupt(mp)
	return nil
}

// Terminate cancels a policy's context, unblocking every wait primitive and
// forcing its Process loop to return. The policy ends Terminated unless it
// was already Failed. Terminate does not wait; use Done to observe the exit.
func (s *Scheduler) Terminate(id string) error {
	mp, err := s.lookup(id)
	if err != nil {
		return err
	}
	mp.cancel()
	return nil
}

// State returns the policy's current lifecycle state.
func (s *Scheduler) State(id string) (core.PolicyState, error) {
	mp, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return mp.currentState(), nil
}

// Failure returns the error a Failed policy ended with, or nil.
func (s *Scheduler) Failure(id string) (error, error) {
	mp, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return mp.currentFailure(), nil
}

// Done returns a channel closed when the policy's goroutine has fully
// exited. Useful for tests and for callers sequencing work after Terminate.
func (s *Scheduler) Done(id string) (<-chan struct{}, error) {
	mp, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return mp.done, nil
}

// QueueLen returns the number of undelivered events in the policy's queue.
func (s *Scheduler) QueueLen(id string) (int, error) {
	mp, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return mp.queue.Len(), nil
}

// Policies returns a snapshot of all scheduled policies, terminal ones
// included, ordered by id for deterministic iteration.
func (s *Scheduler) Policies() []PolicyInfo {
	s.mu.RLock()
	infos := make([]PolicyInfo, 0, len(s.policies))
	for _, mp := range s.policies {
		infos = append(infos, PolicyInfo{
			ID:       mp.id,
			Name:     mp.policy.Name(),
			State:    mp.currentState(),
			QueueLen: mp.queue.Len(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (s *Scheduler) lookup(id string) (*managedPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
	}
	return mp, nil
}

// Shutdown stops all policies: it raises every live policy's interrupt, waits
// up to the shutdown grace (bounded additionally by ctx) for them to exit,
// then escalates to context cancellation for stragglers. Escalated policies
// are marked Failed with ErrShutdownTimeout before their contexts are
// cancelled, and Shutdown still waits for their goroutines to exit so no
// policy goroutine outlives this call.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	live := make([]*managedPolicy, 0, len(s.policies))
	for _, mp := range s.policies {
		if !mp.currentState().Terminal() {
			live = append(live, mp)
		}
	}
	s.mu.RUnlock()

	for _, mp := range live {
		raiseInterrupt(mp)
	}

	grace, cancelGrace := context.WithTimeout(ctx, s.config.ShutdownGrace)
	defer cancelGrace()

	var stragglers []*managedPolicy
	for _, mp := range live {
		select {
		case <-mp.done:
		case <-grace.Done():
			stragglers = append(stragglers, mp)
		}
	}

	for _, mp := range stragglers {
		mp.setFailure(ErrShutdownTimeout)
		s.transition(mp, core.StateFailed)
		s.logger.Warn("Policy exceeded shutdown grace, cancelling", "policy_id", mp.id, "policy", mp.policy.Name())
		mp.cancel()
	}

	// Conforming policies block only on the wait primitives, all of which
	// honor cancellation, so this wait is bounded.
	for _, mp := range stragglers {
		<-mp.done
	}

	if len(stragglers) > 0 {
		return fmt.Errorf("%d policies stopped only after escalation: %w", len(stragglers), ErrShutdownTimeout)
	}
	return nil
}
