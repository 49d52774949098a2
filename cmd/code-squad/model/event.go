package model

import "github.com/DuHerb/code-squad/types"

// Event types streamed while a submission runs
const (
	EventCompiled   = "compiled"
	EventProgressed = "progressed"
	EventFinished   = "finished"
)

// Compiled reports the outcome of the compilation check
type Compiled struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Progressed reports a finished test case
type Progressed struct {
	Index  int        `json:"index"`
	Count  int        `json:"count"`
	Result TestResult `json:"result"`
}

// Event defines a single progress message of a submission
type Event struct {
	Type       string      `json:"type"`
	RequestID  string      `json:"requestId,omitempty"`
	Compiled   *Compiled   `json:"compiled,omitempty"`
	Progressed *Progressed `json:"progressed,omitempty"`
	Finished   *Response   `json:"finished,omitempty"`
}

// ConvertCompiled converts compile progress into event
func ConvertCompiled(requestID string, p *types.ProgressCompiled) Event {
	return Event{
		Type:      EventCompiled,
		RequestID: requestID,
		Compiled: &Compiled{
			Success: p.Status == types.ProgressSucceeded,
			Message: p.Message,
		},
	}
}

// ConvertProgressed converts case progress into event
func ConvertProgressed(requestID string, p *types.ProgressProgressed) Event {
	return Event{
		Type:      EventProgressed,
		RequestID: requestID,
		Progressed: &Progressed{
			Index:  p.TestCaseIndex,
			Count:  p.TestCaseCount,
			Result: ConvertResult(p.TestResult),
		},
	}
}

// ConvertFinished wraps the final response into event
func ConvertFinished(r Response) Event {
	return Event{
		Type:      EventFinished,
		RequestID: r.RequestID,
		Finished:  &r,
	}
}
