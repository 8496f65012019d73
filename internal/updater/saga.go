package updater

import "time"

// SagaState is a step of a coordinated webapp update
type SagaState string

const (
	SagaNotStarted     SagaState = "not_started"
	SagaSourceUpdating SagaState = "source_updating"
	SagaSourceDone     SagaState = "source_done"
	SagaDBUpdating     SagaState = "db_updating"
	SagaCommitted      SagaState = "committed"
	SagaRollingBack    SagaState = "rolling_back"
	SagaRolledBack     SagaState = "rolled_back"
	SagaFailed         SagaState = "failed"
)

// Terminal reports whether no further transition follows
func (s SagaState) Terminal() bool {
	return s == SagaCommitted || s == SagaRolledBack || s == SagaFailed
}

// Transition is one recorded state change
type Transition struct {
	State SagaState `json:"state"`
	At    time.Time `json:"at"`
}

// Saga records one coordinated update: the pre-update snapshots, what each
// stage did, and whether the compensating actions succeeded.
type Saga struct {
	State           SagaState     `json:"state"`
	SourceSnapshot  Value[string] `json:"source_snapshot"`
	DBSnapshot      Value[int64]  `json:"db_snapshot"`
	SourceSucceeded bool          `json:"source_succeeded"`
	DBAttempted     bool          `json:"db_attempted"`
	DBSucceeded     bool          `json:"db_succeeded"`
	CompensationErr string        `json:"compensation_error,omitempty"`
	Transitions     []Transition  `json:"transitions"`

	now func() time.Time
}

func newSaga(source Value[string], db Value[int64], now func() time.Time) *Saga {
	s := &Saga{SourceSnapshot: source, DBSnapshot: db, now: now}
	s.to(SagaNotStarted)
	return s
}

func (s *Saga) to(state SagaState) {
	s.State = state
	s.Transitions = append(s.Transitions, Transition{State: state, At: s.now()})
}

// States returns the visited states in order
func (s *Saga) States() []SagaState {
	out := make([]SagaState, len(s.Transitions))
	for i, t := range s.Transitions {
		out[i] = t.State
	}
	return out
}

// CompensationFailed reports whether a rollback step itself failed
func (s *Saga) CompensationFailed() bool {
	return s.CompensationErr != ""
}
