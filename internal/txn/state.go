package txn

import "time"

// State is the mutable per-transaction record owned by the state
// store. Exactly one State exists per transaction id at any time; the
// state store's create-if-absent primitive is what enforces that.
type State struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
	Error       string     `json:"error,omitempty"`
}

// NewPending builds the initial State for a transaction that has just
// been accepted, with SubmittedAt/UpdatedAt pinned to now.
func NewPending(id string, now time.Time) *State {
	return &State{
		ID:          id,
		Status:      Pending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// MarkProcessing transitions s into Processing for the given attempt,
// recording the last failure cause (if any) from the previous attempt.
func (s *State) MarkProcessing(now time.Time, retryCount int, cause string) {
	s.Status = Processing
	s.RetryCount = retryCount
	s.Error = cause
	s.UpdatedAt = now
}

// MarkCompleted transitions s into the terminal Completed state.
func (s *State) MarkCompleted(now time.Time) {
	s.Status = Completed
	s.Error = ""
	s.UpdatedAt = now
	s.CompletedAt = &now
}

// MarkFailed transitions s into the terminal Failed state with the
// given diagnostic.
func (s *State) MarkFailed(now time.Time, cause string) {
	s.Status = Failed
	s.Error = cause
	s.UpdatedAt = now
	s.CompletedAt = &now
}
