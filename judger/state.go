package judger

// State is the phase a submission is in
type State int

// Submission phases. CompileFailed and Reported are terminal.
const (
	StateReceived State = iota
	StateCompiling
	StateCompileFailed
	StateCompiled
	StateExecutingCase
	StateReported
)

var stateToString = []string{
	"Received",
	"Compiling",
	"CompileFailed",
	"Compiled",
	"ExecutingCase",
	"Reported",
}

func (s State) String() string {
	i := int(s)
	if i < 0 || i >= len(stateToString) {
		return "Invalid"
	}
	return stateToString[i]
}
