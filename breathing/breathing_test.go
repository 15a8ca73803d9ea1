package breathing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/wellness/core"
)

func ticks(m *Machine, n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

func TestMachineFirstRound(t *testing.T) {
	m := NewMachine()
	m.Start()

	ticks(m, 3)
	assert.Equal(t, State{Phase: Inhale, Remaining: 1, Round: 1, TotalRounds: 4, Active: true}, m.State())

	ticks(m, 1)
	assert.Equal(t, Hold, m.State().Phase)
	assert.Equal(t, 7, m.State().Remaining)

	ticks(m, 7)
	assert.Equal(t, Exhale, m.State().Phase)
	assert.Equal(t, 8, m.State().Remaining)

	ticks(m, 8)
	assert.Equal(t, State{Phase: Inhale, Remaining: 4, Round: 2, TotalRounds: 4, Active: true}, m.State())
}

func TestMachineCompletesAfterFourRounds(t *testing.T) {
	m := NewMachine()
	m.Start()

	ticks(m, 75)
	assert.Equal(t, Exhale, m.State().Phase)
	assert.Equal(t, 4, m.State().Round)
	assert.Equal(t, 1, m.State().Remaining)

	ticks(m, 1)
	state := m.State()
	assert.True(t, state.Completed)
	assert.False(t, state.Active)
	assert.Equal(t, Rest, state.Phase)
	assert.Equal(t, 4, state.Round)

	ticks(m, 10)
	assert.Equal(t, state, m.State(), "no ticks after completion")
}

func TestMachinePauseResumeReset(t *testing.T) {
	m := NewMachine()
	assert.False(t, m.Resume(), "nothing to resume before start")

	m.Start()
	ticks(m, 5)
	m.Pause()
	paused := m.State()
	ticks(m, 10)
	assert.Equal(t, paused, m.State(), "ticks while paused are ignored")

	require.True(t, m.Resume())
	assert.False(t, m.Resume(), "already running")
	ticks(m, 1)
	assert.Equal(t, Hold, m.State().Phase)
	assert.Equal(t, 5, m.State().Remaining)

	m.Reset()
	assert.Equal(t, State{Phase: Rest, Remaining: 0, Round: 1, TotalRounds: 4}, m.State())

	m.Start()
	ticks(m, 76)
	assert.False(t, m.Resume(), "completed exercise cannot resume")
}

func TestScale(t *testing.T) {
	tests := []struct {
		state State
		want  float64
	}{
		{State{Phase: Rest}, 1.0},
		{State{Phase: Inhale, Remaining: 4}, 1.0},
		{State{Phase: Inhale, Remaining: 2}, 1.25},
		{State{Phase: Hold, Remaining: 3}, 1.5},
		{State{Phase: Exhale, Remaining: 8}, 1.5},
		{State{Phase: Exhale, Remaining: 4}, 1.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.state.Scale(), 1e-9, "%+v", tt.state)
	}
}

// fakeScheduler fires ticks on demand. Cancelled tasks stay recorded so a
// test can deliver a tick that raced with the cancellation.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	fn        func()
	cancelled bool
}

func (s *fakeScheduler) Every(d time.Duration, fn func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &fakeTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		task.cancelled = true
	}
}

func (s *fakeScheduler) active() []*fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTask
	for _, task := range s.tasks {
		if !task.cancelled {
			out = append(out, task)
		}
	}
	return out
}

// tick fires the single active task n times.
func (s *fakeScheduler) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		active := s.active()
		require.Len(t, active, 1, "exactly one tick source while active")
		active[0].fn()
	}
}

// fireStale delivers a tick from the most recently cancelled task.
func (s *fakeScheduler) fireStale() {
	s.mu.Lock()
	var stale *fakeTask
	for _, task := range s.tasks {
		if task.cancelled {
			stale = task
		}
	}
	s.mu.Unlock()
	if stale != nil {
		stale.fn()
	}
}

func TestExercisePauseAtPhaseBoundary(t *testing.T) {
	sched := &fakeScheduler{}
	e := NewExercise(WithScheduler(sched))

	e.Start()
	sched.tick(t, 3)
	require.Equal(t, 1, e.State().Remaining)

	e.Pause()
	assert.Empty(t, sched.active())
	sched.fireStale()
	assert.Equal(t, Inhale, e.State().Phase, "a tick racing the pause must not transition")
	assert.Equal(t, 1, e.State().Remaining)

	e.Resume()
	assert.Equal(t, Inhale, e.State().Phase)
	assert.Equal(t, 1, e.State().Remaining)

	sched.tick(t, 1)
	assert.Equal(t, Hold, e.State().Phase)
	assert.Equal(t, 7, e.State().Remaining)
}

func TestExerciseResetReleasesTicks(t *testing.T) {
	sched := &fakeScheduler{}
	e := NewExercise(WithScheduler(sched))

	e.Start()
	sched.tick(t, 6)
	e.Reset()

	assert.Empty(t, sched.active())
	sched.fireStale()
	assert.Equal(t, State{Phase: Rest, Remaining: 0, Round: 1, TotalRounds: 4}, e.State())

	e.Resume()
	assert.Empty(t, sched.active(), "reset exercise cannot resume")
}

func TestExerciseRunCompletes(t *testing.T) {
	sched := &fakeScheduler{}
	var changes int
	var mu sync.Mutex
	e := NewExercise(WithScheduler(sched), WithOnChange(func(State) {
		mu.Lock()
		changes++
		mu.Unlock()
	}))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(sched.active()) == 1 }, time.Second, time.Millisecond)
	sched.tick(t, 76)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after completion")
	}
	assert.True(t, e.State().Completed)
	assert.Empty(t, sched.active())
	mu.Lock()
	assert.Equal(t, 77, changes, "start plus one change per tick")
	mu.Unlock()
}

func TestExerciseRunCancelled(t *testing.T) {
	sched := &fakeScheduler{}
	e := NewExercise(WithScheduler(sched))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sched.active()) == 1 }, time.Second, time.Millisecond)
	sched.tick(t, 2)
	cancel()

	assert.ErrorIs(t, <-done, core.ErrCancelled)
	assert.Empty(t, sched.active())
	before := e.State()
	sched.fireStale()
	assert.Equal(t, before, e.State())

	e.Start()
	assert.Empty(t, sched.active(), "closed exercise stays closed")
}

func TestExerciseResetEndsRun(t *testing.T) {
	sched := &fakeScheduler{}
	e := NewExercise(WithScheduler(sched))

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	require.Eventually(t, func() bool { return len(sched.active()) == 1 }, time.Second, time.Millisecond)

	e.Reset()
	assert.ErrorIs(t, <-done, core.ErrCancelled)
}

func TestExerciseWithTicker(t *testing.T) {
	e := NewExercise(WithInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, e.Run(ctx))
	assert.True(t, e.State().Completed)
	assert.Equal(t, Rest, e.State().Phase)
}
