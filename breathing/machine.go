// Package breathing implements the guided 4-7-8 breathing exercise: a
// per-second countdown through inhale, hold and exhale, repeated for a fixed
// number of rounds.
package breathing

type Phase string

const (
	Rest   Phase = "rest"
	Inhale Phase = "inhale"
	Hold   Phase = "hold"
	Exhale Phase = "exhale"
)

// Duration is the phase length in ticks.
func (p Phase) Duration() int {
	switch p {
	case Inhale:
		return 4
	case Hold:
		return 7
	case Exhale:
		return 8
	}
	return 0
}

// TotalRounds is the number of inhale-hold-exhale cycles in one exercise.
const TotalRounds = 4

// State is a snapshot of the exercise.
type State struct {
	Phase       Phase `json:"phase"`
	Remaining   int   `json:"remaining"`
	Round       int   `json:"round"`
	TotalRounds int   `json:"total_rounds"`
	Active      bool  `json:"active"`
	Completed   bool  `json:"completed"`
}

// Scale is the size of the breathing circle: it grows from 1.0 to 1.5 while
// inhaling, stays there while holding and shrinks back while exhaling.
func (s State) Scale() float64 {
	const small, large = 1.0, 1.5
	d := s.Phase.Duration()
	if d == 0 {
		return small
	}
	progress := float64(d-s.Remaining) / float64(d)
	switch s.Phase {
	case Inhale:
		return small + (large-small)*progress
	case Hold:
		return large
	case Exhale:
		return large - (large-small)*progress
	}
	return small
}

// Machine is the exercise state machine. It is not safe for concurrent use;
// Exercise adds locking and the tick source.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	m := &Machine{}
	m.Reset()
	return m
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Start() {
	m.state = State{
		Phase:       Inhale,
		Remaining:   Inhale.Duration(),
		Round:       1,
		TotalRounds: TotalRounds,
		Active:      true,
	}
}

// Pause keeps phase, round and remaining time.
func (m *Machine) Pause() {
	m.state.Active = false
}

// Resume continues a paused exercise. It reports false when there is
// nothing to resume: the exercise was never started, has completed, or is
// already running.
func (m *Machine) Resume() bool {
	if m.state.Active || m.state.Completed || m.state.Phase == Rest {
		return false
	}
	m.state.Active = true
	return true
}

func (m *Machine) Reset() {
	m.state = State{
		Phase:       Rest,
		Remaining:   0,
		Round:       1,
		TotalRounds: TotalRounds,
	}
}

// Tick advances one time unit. The tick that would take the countdown to
// zero moves to the next phase instead. Ticks while inactive are ignored.
func (m *Machine) Tick() {
	if !m.state.Active {
		return
	}
	if m.state.Remaining > 1 {
		m.state.Remaining--
		return
	}

	switch m.state.Phase {
	case Inhale:
		m.enter(Hold)
	case Hold:
		m.enter(Exhale)
	case Exhale:
		if m.state.Round < m.state.TotalRounds {
			m.state.Round++
			m.enter(Inhale)
			return
		}
		m.state.Phase = Rest
		m.state.Remaining = 0
		m.state.Active = false
		m.state.Completed = true
	}
}

func (m *Machine) enter(p Phase) {
	m.state.Phase = p
	m.state.Remaining = p.Duration()
}
