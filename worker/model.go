package worker

import (
	"fmt"
	"time"

	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/types"
)

// Request defines single worker request
type Request struct {
	RequestID   string
	ChallengeID string
	Source      string

	// optional collaborators
	Notifier judger.Notifier
	Task     judger.Task
}

// Response defines worker response for single request.
// Error is set for structural failures only, Report otherwise.
type Response struct {
	RequestID   string
	ChallengeID string
	Report      *types.Report
	Error       error
	Time        time.Duration
}

func (r Response) String() string {
	if r.Error != nil {
		return fmt.Sprintf("{RequestID:%s ChallengeID:%s Error:%v Time:%v}", r.RequestID, r.ChallengeID, r.Error, r.Time)
	}
	if r.Report == nil {
		return fmt.Sprintf("{RequestID:%s ChallengeID:%s Time:%v}", r.RequestID, r.ChallengeID, r.Time)
	}
	passed := 0
	for _, c := range r.Report.Results {
		if c.Passed {
			passed++
		}
	}
	return fmt.Sprintf("{RequestID:%s ChallengeID:%s Status:%v Passed:%d/%d Time:%v}",
		r.RequestID, r.ChallengeID, r.Report.Status, passed, len(r.Report.Results), r.Time)
}
