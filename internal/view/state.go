package view

// Status is the lifecycle stage of a render model
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// State is an immutable render model
type State struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Event drives Reduce
type Event interface {
	event()
}

// Started marks the beginning of a fetch cycle
type Started struct{}

// Completed carries the outcome of a fetch cycle
type Completed struct {
	Data any
	Err  error
}

func (Started) event()   {}
func (Completed) event() {}

// Initial is the state before any event.
func Initial() State {
	return State{Status: StatusLoading}
}

// Reduce returns the state that follows s after e. Data from a previous
// cycle is dropped when a new one starts.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case Started:
		return State{Status: StatusLoading}
	case Completed:
		if ev.Err != nil {
			return State{Status: StatusFailed, Error: ev.Err.Error()}
		}
		return State{Status: StatusReady, Data: ev.Data}
	default:
		return s
	}
}

// Done reports whether s is terminal for the current cycle.
func (s State) Done() bool {
	return s.Status == StatusReady || s.Status == StatusFailed
}
