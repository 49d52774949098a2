package judger

import (
	"context"
	"fmt"
	"strings"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/DuHerb/code-squad/types"
	"go.uber.org/zap"
)

// Judge runs the submission through the compilation gate and then every test
// case of the challenge in catalog order, each in a fresh environment.
//
// Structural problems (empty or oversized source, unknown challenge) return an
// error wrapping ErrInvalidInput or ErrChallengeNotFound and nothing runs.
// Everything the submission does wrong afterwards is part of the report.
func (j *Judger) Judge(ctx context.Context, req Request, t Task) (*types.Report, error) {
	if t == nil {
		t = nopTask{}
	}
	logger := j.logger().With(zap.String("requestId", req.RequestID), zap.String("challengeId", req.ChallengeID))
	state := StateReceived
	transit := func(s State, fields ...zap.Field) {
		logger.Debug("state changed", append(fields, zap.Stringer("from", state), zap.Stringer("to", s))...)
		state = s
	}

	c, err := j.accept(req)
	if err != nil {
		logger.Debug("submission rejected", zap.Error(err))
		return nil, err
	}
	t.Parsed(c)

	// gate
	transit(StateCompiling)
	check := envexec.Check{
		Builder: j.Builder,
		Source:  req.Source,
		Limit:   j.GateLimit,
	}
	if err := check.Run(ctx); err != nil {
		if s := envexec.StatusOf(err); s != envexec.StatusCompileError {
			logger.Warn("compilation gate failed", zap.Stringer("status", s), zap.Error(err))
		}
		msg := envexec.MessageOf(err)
		transit(StateCompileFailed)
		t.Compiled(&types.ProgressCompiled{
			Status:  types.ProgressFailed,
			Message: msg,
		})
		rt := &types.Report{
			Status:       types.ReportCompileFailed,
			CompileError: msg,
		}
		t.Finished(rt)
		return rt, nil
	}
	transit(StateCompiled)
	t.Compiled(&types.ProgressCompiled{
		Status: types.ProgressSucceeded,
	})

	// cases run one after another and never stop early
	results := make([]types.TestResult, 0, len(c.TestCases))
	for i, tc := range c.TestCases {
		transit(StateExecutingCase, zap.Int("case", i))
		r := j.runCase(ctx, c, req.Source, tc)
		logger.Debug("case finished",
			zap.Int("case", i),
			zap.Bool("passed", r.Passed),
			zap.Stringer("errorKind", r.ErrorKind),
			zap.Duration("time", r.Time))
		results = append(results, r)
		t.Progressed(&types.ProgressProgressed{
			TestCaseIndex: i,
			TestCaseCount: len(c.TestCases),
			TestResult:    r,
		})
	}

	rt := Aggregate(results)
	if rt.AllPassed && req.Notifier != nil {
		req.Notifier.NotifyCompleted(c.ID)
	}
	transit(StateReported, zap.Bool("allPassed", rt.AllPassed))
	t.Finished(&rt)
	return &rt, nil
}

func (j *Judger) accept(req Request) (*types.Challenge, error) {
	if req.ChallengeID == "" {
		return nil, fmt.Errorf("%w: challengeId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Source) == "" {
		return nil, fmt.Errorf("%w: userCode is required", ErrInvalidInput)
	}
	maxSize := j.MaxSourceSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSourceSize
	}
	if len(req.Source) > maxSize {
		return nil, fmt.Errorf("%w: userCode exceeds %d bytes", ErrInvalidInput, maxSize)
	}
	c, ok := j.Catalog.Get(req.ChallengeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChallengeNotFound, req.ChallengeID)
	}
	return c, nil
}

func (j *Judger) runCase(ctx context.Context, c *types.Challenge, source string, tc types.TestCase) types.TestResult {
	s := envexec.Single{
		Builder: j.Builder,
		Cmd: &envexec.Cmd{
			Source:       source,
			FunctionName: c.FunctionName,
			Args:         tc.Input,
			Expected:     tc.ExpectedOutput,
			Limit:        j.CaseLimit,
		},
	}
	return caseResult(tc, s.Run(ctx))
}

func caseResult(tc types.TestCase, r envexec.Result) types.TestResult {
	rt := types.TestResult{
		Input:    tc.Input,
		Expected: tc.ExpectedOutput,
		Time:     r.Time,
		Memory:   r.Memory,
	}
	switch r.Status {
	case envexec.StatusAccepted:
		rt.Output = r.Output
		rt.Passed = true
	case envexec.StatusWrongAnswer:
		rt.Output = r.Output
	default:
		rt.ErrorKind = ErrorKindOf(r.Status)
		rt.Message = r.Error
	}
	return rt
}

// ErrorKindOf maps a failed run status to the error kind reported for the case
func ErrorKindOf(s envexec.Status) types.ErrorKind {
	switch s {
	case envexec.StatusAccepted, envexec.StatusWrongAnswer:
		return types.ErrorNone
	case envexec.StatusFunctionMissing:
		return types.ErrorFunctionMissing
	case envexec.StatusTimeLimitExceeded:
		return types.ErrorTimeout
	case envexec.StatusMemoryLimitExceeded:
		return types.ErrorMemoryLimit
	default:
		return types.ErrorRuntimeThrow
	}
}

func (j *Judger) logger() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}
