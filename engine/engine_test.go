package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/policymesh/bus"
	"github.com/hupe1980/policymesh/core"
	"github.com/hupe1980/policymesh/policy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitLoop is a conforming policy: it consumes events forever and stops on
// interrupt or cancellation.
func waitLoop(name string, onEvent func(ev core.Event)) core.Policy {
	return policy.NewFuncPolicy(name, func(rc *core.RuntimeContext) error {
		for {
			ev, err := rc.NextEvent(nil)
			if err != nil {
				if errors.Is(err, core.ErrInterrupted) {
					return nil
				}
				return err
			}
			if onEvent != nil {
				onEvent(ev)
			}
		}
	})
}

func waitDone(t *testing.T, s *Scheduler, id string) {
	t.Helper()
	done, err := s.Done(id)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("policy %s did not stop", id)
	}
}

func TestScheduler_PolicyRunsToCompletion(t *testing.T) {
	s := New()
	ran := make(chan struct{})

	id, err := s.Add(context.Background(), policy.NewFuncPolicy("oneshot", func(rc *core.RuntimeContext) error {
		close(ran)
		return nil
	}), false)
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("policy never ran")
	}
	waitDone(t, s, id)

	state, err := s.State(id)
	require.NoError(t, err)
	assert.Equal(t, core.StateTerminated, state)
}

func TestScheduler_EventsReachPolicy(t *testing.T) {
	s := New()
	got := make(chan core.Event, 8)

	id, err := s.Add(context.Background(), waitLoop("listener", func(ev core.Event) { got <- ev }), false)
	require.NoError(t, err)

	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "a"))

	select {
	case ev := <-got:
		assert.Equal(t, "a", ev.Key.Symbol)
	case <-time.After(time.Second):
		t.Fatal("event never reached the policy")
	}

	require.NoError(t, s.Terminate(id))
	waitDone(t, s, id)
}

func TestScheduler_ReplacePreemptsAndFlushes(t *testing.T) {
	s := New()
	firstGot := make(chan core.Event, 8)

	first, err := s.Add(context.Background(), waitLoop("first", func(ev core.Event) { firstGot <- ev }), false)
	require.NoError(t, err)

	second, err := s.Add(context.Background(), waitLoop("second", nil), true)
	require.NoError(t, err)

	// The first policy observes its interrupt and stops normally.
	waitDone(t, s, first)
	state, err := s.State(first)
	require.NoError(t, err)
	assert.Equal(t, core.StateTerminated, state)

	// Events published after replacement reach only the second policy.
	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "z"))
	select {
	case ev := <-firstGot:
		t.Fatalf("replaced policy received event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, s.Terminate(second))
	waitDone(t, s, second)
}

func TestScheduler_ReplaceStopsDeliveryToBusyPolicy(t *testing.T) {
	s := New()
	block := make(chan struct{})
	secondGot := make(chan core.Event, 8)

	// Busy outside any wait point: this policy cannot observe its interrupt,
	// so only bus deregistration keeps post-replace events out of its queue.
	first, err := s.Add(context.Background(), policy.NewFuncPolicy("busy", func(rc *core.RuntimeContext) error {
		<-block
		return nil
	}), false)
	require.NoError(t, err)

	second, err := s.Add(context.Background(), waitLoop("second", func(ev core.Event) { secondGot <- ev }), true)
	require.NoError(t, err)

	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "z"))
	select {
	case <-secondGot:
	case <-time.After(time.Second):
		t.Fatal("event never reached the replacement policy")
	}

	n, err := s.QueueLen(first)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "replaced policy must not receive events published after the replacing Add")

	close(block)
	waitDone(t, s, first)
	require.NoError(t, s.Terminate(second))
	waitDone(t, s, second)
}

func TestScheduler_AccumulateSharesEvents(t *testing.T) {
	s := New()
	got1 := make(chan core.Event, 8)
	got2 := make(chan core.Event, 8)

	id1, err := s.Add(context.Background(), waitLoop("one", func(ev core.Event) { got1 <- ev }), false)
	require.NoError(t, err)
	id2, err := s.Add(context.Background(), waitLoop("two", func(ev core.Event) { got2 <- ev }), false)
	require.NoError(t, err)

	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "a"))

	for _, ch := range []chan core.Event{got1, got2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "a", ev.Key.Symbol)
		case <-time.After(time.Second):
			t.Fatal("event not shared with all policies")
		}
	}

	require.NoError(t, s.Terminate(id1))
	require.NoError(t, s.Terminate(id2))
	waitDone(t, s, id1)
	waitDone(t, s, id2)
}

func TestScheduler_PanicIsolation(t *testing.T) {
	s := New()
	victimGot := make(chan core.Event, 8)

	victim, err := s.Add(context.Background(), waitLoop("victim", func(ev core.Event) { victimGot <- ev }), false)
	require.NoError(t, err)

	panicky, err := s.Add(context.Background(), policy.NewFuncPolicy("panicky", func(rc *core.RuntimeContext) error {
		panic("boom")
	}), false)
	require.NoError(t, err)

	waitDone(t, s, panicky)
	state, err := s.State(panicky)
	require.NoError(t, err)
	assert.Equal(t, core.StateFailed, state)

	failure, err := s.Failure(panicky)
	require.NoError(t, err)
	assert.Contains(t, failure.Error(), "boom")

	// The survivor still receives events.
	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "x"))
	select {
	case <-victimGot:
	case <-time.After(time.Second):
		t.Fatal("panic took down an unrelated policy")
	}

	require.NoError(t, s.Terminate(victim))
	waitDone(t, s, victim)
}

func TestScheduler_TerminateIsAbsorbing(t *testing.T) {
	s := New()
	id, err := s.Add(context.Background(), waitLoop("p", nil), false)
	require.NoError(t, err)

	require.NoError(t, s.Terminate(id))
	waitDone(t, s, id)

	state, _ := s.State(id)
	assert.Equal(t, core.StateTerminated, state)

	// Interrupt and Terminate on a terminal policy change nothing.
	assert.NoError(t, s.Interrupt(id))
	assert.NoError(t, s.Terminate(id))
	state, _ = s.State(id)
	assert.Equal(t, core.StateTerminated, state)
}

func TestScheduler_UnknownPolicy(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Interrupt("nope"), ErrPolicyNotFound)
	assert.ErrorIs(t, s.Terminate("nope"), ErrPolicyNotFound)
	_, err := s.State("nope")
	assert.ErrorIs(t, err, ErrPolicyNotFound)
	_, err = s.QueueLen("nope")
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestScheduler_Policies(t *testing.T) {
	s := New()
	id1, err := s.Add(context.Background(), waitLoop("alpha", nil), false)
	require.NoError(t, err)
	id2, err := s.Add(context.Background(), waitLoop("beta", nil), false)
	require.NoError(t, err)

	infos := s.Policies()
	assert.Len(t, infos, 2)
	names := map[string]bool{}
	for _, info := range infos {
		names[info.Name] = true
	}
	assert.True(t, names["alpha"])
	assert.True(t, names["beta"])

	require.NoError(t, s.Terminate(id1))
	require.NoError(t, s.Terminate(id2))
	waitDone(t, s, id1)
	waitDone(t, s, id2)
}

func TestScheduler_ShutdownGraceful(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		_, err := s.Add(context.Background(), waitLoop("p", nil), false)
		require.NoError(t, err)
	}

	assert.NoError(t, s.Shutdown(context.Background()))
	for _, info := range s.Policies() {
		assert.Equal(t, core.StateTerminated, info.State)
	}
}

func TestScheduler_ShutdownEscalatesStragglers(t *testing.T) {
	s := New(func(o *Options) {
		o.Config.ShutdownGrace = 50 * time.Millisecond
	})

	// Ignores interrupts; honors only context cancellation.
	id, err := s.Add(context.Background(), policy.NewFuncPolicy("stubborn", func(rc *core.RuntimeContext) error {
		<-rc.Context.Done()
		return rc.Context.Err()
	}), false)
	require.NoError(t, err)

	err = s.Shutdown(context.Background())
	assert.ErrorIs(t, err, ErrShutdownTimeout)

	state, _ := s.State(id)
	assert.Equal(t, core.StateFailed, state)
	failure, _ := s.Failure(id)
	assert.ErrorIs(t, failure, ErrShutdownTimeout)
}

func TestScheduler_StartHookRejectsPolicy(t *testing.T) {
	hooks := NewHookManager()
	hooks.Register(NewFunctionHook(HookPolicyStart, func(_ context.Context, hc *HookContext) error {
		if hc.PolicyName == "banned" {
			return errors.New("not allowed")
		}
		return nil
	}))

	s := New(func(o *Options) { o.Hooks = hooks })

	_, err := s.Add(context.Background(), policy.NewFuncPolicy("banned", func(rc *core.RuntimeContext) error { return nil }), false)
	assert.Error(t, err)
	assert.Empty(t, s.Policies())

	id, err := s.Add(context.Background(), policy.NewFuncPolicy("allowed", func(rc *core.RuntimeContext) error { return nil }), false)
	require.NoError(t, err)
	waitDone(t, s, id)
}

func TestScheduler_StopHookObservesTerminalState(t *testing.T) {
	stopped := make(chan *HookContext, 1)
	hooks := NewHookManager()
	hooks.Register(NewFunctionHook(HookPolicyStop, func(_ context.Context, hc *HookContext) error {
		stopped <- hc
		return nil
	}))

	s := New(func(o *Options) { o.Hooks = hooks })
	_, err := s.Add(context.Background(), policy.NewFuncPolicy("oneshot", func(rc *core.RuntimeContext) error { return nil }), false)
	require.NoError(t, err)

	select {
	case hc := <-stopped:
		assert.Equal(t, core.StateTerminated, hc.State)
		assert.NoError(t, hc.Err)
	case <-time.After(time.Second):
		t.Fatal("stop hook never fired")
	}
}

func TestScheduler_QueueLenCountsUndelivered(t *testing.T) {
	s := New(func(o *Options) {
		o.Config.QueueCapacity = 4
		o.Config.Overflow = bus.DropOldest
	})

	block := make(chan struct{})
	id, err := s.Add(context.Background(), policy.NewFuncPolicy("slow", func(rc *core.RuntimeContext) error {
		<-block
		return nil
	}), false)
	require.NoError(t, err)

	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "a"))
	s.Bus().Publish(core.NewKeyEvent(core.ActionPress, "b"))

	n, err := s.QueueLen(id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	close(block)
	waitDone(t, s, id)
}
