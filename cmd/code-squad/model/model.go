package model

import (
	"errors"
	"fmt"

	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/types"
	"github.com/DuHerb/code-squad/worker"
	"github.com/goccy/go-json"
)

// Request defines a single submission
type Request struct {
	RequestID   string `json:"requestId,omitempty"`
	ChallengeID string `json:"challengeId"`
	UserCode    string `json:"userCode"`
	UserID      string `json:"userId,omitempty"`
}

// TestResult defines the result of single test case
type TestResult struct {
	Input     []json.RawMessage `json:"input"`
	Output    json.RawMessage   `json:"output,omitempty"`
	Expected  json.RawMessage   `json:"expected"`
	Passed    bool              `json:"passed"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	Time      uint64            `json:"time"`
	Memory    uint64            `json:"memory"`
}

// Completed holds the results of a submission that ran every test case
type Completed struct {
	AllPassed bool         `json:"allPassed"`
	Results   []TestResult `json:"results"`
}

// Response defines the result of a submission, discriminated by success
type Response struct {
	RequestID string `json:"requestId,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	*Completed
}

// Challenge defines a challenge as shown to users, without its test cases
type Challenge struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Difficulty    int    `json:"difficulty"`
	FunctionName  string `json:"functionName"`
	InitialCode   string `json:"initialCode"`
	TestCaseCount int    `json:"testCaseCount"`
}

// ConvertRequest converts json request into worker request. Completion is
// recorded for UserID in store when both are set.
func ConvertRequest(r *Request, store *progress.Store) *worker.Request {
	req := &worker.Request{
		RequestID:   r.RequestID,
		ChallengeID: r.ChallengeID,
		Source:      r.UserCode,
	}
	if r.UserID != "" && store != nil {
		req.Notifier = store.For(r.UserID)
	}
	return req
}

// ConvertResponse converts worker response into json response
func ConvertResponse(r worker.Response) Response {
	ret := Response{RequestID: r.RequestID}
	if r.Error != nil {
		ret.Error = errorMessage(r.ChallengeID, r.Error)
		return ret
	}
	if r.Report == nil {
		ret.Error = "no report"
		return ret
	}
	return ConvertReport(r.RequestID, r.Report)
}

// ConvertReport converts judger report into json response
func ConvertReport(requestID string, rt *types.Report) Response {
	ret := Response{RequestID: requestID}
	switch rt.Status {
	case types.ReportCompileFailed:
		ret.Error = "Compilation Error: " + rt.CompileError
	case types.ReportCompleted:
		ret.Success = true
		ret.Completed = &Completed{
			AllPassed: rt.AllPassed,
			Results:   ConvertResults(rt.Results),
		}
	default:
		ret.Error = fmt.Sprintf("invalid report status %v", rt.Status)
	}
	return ret
}

// ConvertResults converts case results, never returns nil
func ConvertResults(rs []types.TestResult) []TestResult {
	ret := make([]TestResult, 0, len(rs))
	for _, r := range rs {
		ret = append(ret, ConvertResult(r))
	}
	return ret
}

// ConvertResult converts a single case result
func ConvertResult(r types.TestResult) TestResult {
	input := r.Input
	if input == nil {
		input = []json.RawMessage{}
	}
	return TestResult{
		Input:     input,
		Output:    r.Output,
		Expected:  r.Expected,
		Passed:    r.Passed,
		Error:     r.Message,
		ErrorKind: r.ErrorKind.String(),
		Time:      uint64(r.Time),
		Memory:    uint64(r.Memory),
	}
}

// ConvertChallenge hides the test cases of the challenge
func ConvertChallenge(c *types.Challenge) Challenge {
	return Challenge{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Difficulty:    c.Difficulty,
		FunctionName:  c.FunctionName,
		InitialCode:   c.InitialCode,
		TestCaseCount: len(c.TestCases),
	}
}

// ConvertChallenges converts the challenge list, never returns nil
func ConvertChallenges(cs []*types.Challenge) []Challenge {
	ret := make([]Challenge, 0, len(cs))
	for _, c := range cs {
		ret = append(ret, ConvertChallenge(c))
	}
	return ret
}

func errorMessage(challengeID string, err error) string {
	switch {
	case errors.Is(err, judger.ErrChallengeNotFound):
		return fmt.Sprintf("Challenge with ID '%s' not found.", challengeID)
	default:
		return err.Error()
	}
}
