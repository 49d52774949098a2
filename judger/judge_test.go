package judger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"github.com/DuHerb/code-squad/types"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mapCatalog map[string]*types.Challenge

func (m mapCatalog) Get(id string) (*types.Challenge, bool) {
	c, ok := m[id]
	return c, ok
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

func testCase(out string, in ...string) types.TestCase {
	args := make([]json.RawMessage, 0, len(in))
	for _, a := range in {
		args = append(args, raw(a))
	}
	return types.TestCase{Input: args, ExpectedOutput: raw(out)}
}

var testCatalog = mapCatalog{
	"simple-add": {
		ID:           "simple-add",
		FunctionName: "add",
		TestCases: []types.TestCase{
			testCase("3", "1", "2"),
			testCase("5", "-5", "10"),
			testCase("0", "0", "0"),
		},
	},
	"sum-array": {
		ID:           "sum-array",
		FunctionName: "sumArray",
		TestCases: []types.TestCase{
			testCase("6", "[1,2,3]"),
			testCase("0", "[]"),
			testCase("5", "[5]"),
		},
	},
	"identity": {
		ID:           "identity",
		FunctionName: "f",
		TestCases: []types.TestCase{
			testCase("0", "0"),
			testCase("5", "5"),
		},
	},
	"empty": {
		ID:           "empty",
		FunctionName: "f",
	},
}

func newTestJudger(t *testing.T) *Judger {
	t.Helper()
	logger := zaptest.NewLogger(t)
	b, err := jsvm.NewBuilder(jsvm.Config{
		MaxStackDepth:       2000,
		MaxOutputDepth:      32,
		MaxOutputValues:     1000,
		MemoryCheckInterval: 5 * time.Millisecond,
		Logger:              logger,
	})
	require.NoError(t, err)
	return &Judger{
		Builder: b,
		Catalog: testCatalog,
		Logger:  logger,
		GateLimit: envexec.Limit{
			Memory:      8 << 20,
			LoadTimeout: time.Second,
			CallTimeout: time.Second,
		},
		CaseLimit: envexec.Limit{
			Memory:      128 << 20,
			LoadTimeout: time.Second,
			CallTimeout: 100 * time.Millisecond,
		},
	}
}

type recordTask struct {
	parsed     int
	compiled   []*types.ProgressCompiled
	progressed []int
	finished   []*types.Report
}

func (r *recordTask) Parsed(*types.Challenge)               { r.parsed++ }
func (r *recordTask) Compiled(p *types.ProgressCompiled)     { r.compiled = append(r.compiled, p) }
func (r *recordTask) Progressed(p *types.ProgressProgressed) { r.progressed = append(r.progressed, p.TestCaseIndex) }
func (r *recordTask) Finished(rt *types.Report)              { r.finished = append(r.finished, rt) }

type countNotifier struct {
	ids []string
}

func (c *countNotifier) NotifyCompleted(id string) {
	c.ids = append(c.ids, id)
}

func TestJudgeAllPassed(t *testing.T) {
	j := newTestJudger(t)
	n := &countNotifier{}
	task := &recordTask{}
	rt, err := j.Judge(context.Background(), Request{
		RequestID:   "r1",
		ChallengeID: "simple-add",
		Source:      "function add(a, b) { return a + b; }",
		Notifier:    n,
	}, task)
	require.NoError(t, err)
	require.Equal(t, types.ReportCompleted, rt.Status)
	require.True(t, rt.AllPassed)
	require.Len(t, rt.Results, 3)
	for i, r := range rt.Results {
		require.True(t, r.Passed, "case %d", i)
		require.Equal(t, types.ErrorNone, r.ErrorKind)
		require.Equal(t, testCatalog["simple-add"].TestCases[i].Input, r.Input)
	}
	require.Equal(t, []string{"simple-add"}, n.ids)

	require.Equal(t, 1, task.parsed)
	require.Len(t, task.compiled, 1)
	require.Equal(t, types.ProgressSucceeded, task.compiled[0].Status)
	require.Equal(t, []int{0, 1, 2}, task.progressed)
	require.Len(t, task.finished, 1)
	require.Same(t, rt, task.finished[0])
}

func TestJudgeMismatch(t *testing.T) {
	j := newTestJudger(t)
	n := &countNotifier{}
	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "simple-add",
		Source:      "function add(a,b){return a-b;}",
		Notifier:    n,
	}, nil)
	require.NoError(t, err)
	require.False(t, rt.AllPassed)

	first := rt.Results[0]
	require.False(t, first.Passed)
	require.Equal(t, types.ErrorNone, first.ErrorKind)
	require.Equal(t, "-1", string(first.Output))
	require.Equal(t, "3", string(first.Expected))

	// 0 - 0 is still 0
	require.True(t, rt.Results[2].Passed)
	require.Empty(t, n.ids)
}

func TestJudgeCompileFailed(t *testing.T) {
	j := newTestJudger(t)
	task := &recordTask{}
	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "simple-add",
		Source:      "function add(a,b){return a+",
	}, task)
	require.NoError(t, err)
	require.Equal(t, types.ReportCompileFailed, rt.Status)
	require.NotEmpty(t, rt.CompileError)
	require.Nil(t, rt.Results)
	require.False(t, rt.AllPassed)

	require.Len(t, task.compiled, 1)
	require.Equal(t, types.ProgressFailed, task.compiled[0].Status)
	require.Empty(t, task.progressed)
	require.Len(t, task.finished, 1)
}

func TestJudgeFunctionMissing(t *testing.T) {
	j := newTestJudger(t)
	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "simple-add",
		Source:      "function subtract(a, b) { return a - b; }",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, types.ReportCompleted, rt.Status)
	require.Len(t, rt.Results, 3)
	for _, r := range rt.Results {
		require.False(t, r.Passed)
		require.Equal(t, types.ErrorFunctionMissing, r.ErrorKind)
		require.Nil(t, r.Output)
		require.Equal(t, "Function 'add' not found or not a function.", r.Message)
	}
}

func TestJudgeEmptyArrayBoundary(t *testing.T) {
	j := newTestJudger(t)

	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "sum-array",
		Source:      "function sumArray(numbers) { return numbers.reduce((acc, cur) => acc + cur, 0); }",
	}, nil)
	require.NoError(t, err)
	require.True(t, rt.AllPassed)

	// no initial value throws on the empty array only
	rt, err = j.Judge(context.Background(), Request{
		ChallengeID: "sum-array",
		Source:      "function sumArray(numbers) { return numbers.reduce((acc, cur) => acc + cur); }",
	}, nil)
	require.NoError(t, err)
	require.False(t, rt.AllPassed)
	require.True(t, rt.Results[0].Passed)
	require.Equal(t, types.ErrorRuntimeThrow, rt.Results[1].ErrorKind)
	require.NotEmpty(t, rt.Results[1].Message)
	require.True(t, rt.Results[2].Passed)
}

func TestJudgeCrossCaseIsolation(t *testing.T) {
	j := newTestJudger(t)
	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "identity",
		Source: `
			let calls = 0;
			function f(n) {
				calls++;
				if (n === 0) { while (true) {} }
				return n * calls;
			}`,
	}, nil)
	require.NoError(t, err)
	require.Len(t, rt.Results, 2)
	require.Equal(t, types.ErrorTimeout, rt.Results[0].ErrorKind)
	require.False(t, rt.Results[0].Passed)
	// a fresh environment per case: calls starts from zero again
	require.True(t, rt.Results[1].Passed, "got %s", rt.Results[1].Output)
}

func TestJudgeIdempotent(t *testing.T) {
	j := newTestJudger(t)
	req := Request{
		ChallengeID: "simple-add",
		Source:      "var seen = (globalThis.seen || 0) + 1; function add(a, b) { return a + b + (seen - 1); }",
	}
	first, err := j.Judge(context.Background(), req, nil)
	require.NoError(t, err)
	second, err := j.Judge(context.Background(), req, nil)
	require.NoError(t, err)
	require.True(t, first.AllPassed)
	require.True(t, second.AllPassed)

	ignoreTiming := cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".Time" || name == ".Memory"
	}, cmp.Ignore())
	if diff := cmp.Diff(first, second, ignoreTiming); diff != "" {
		t.Fatalf("reports differ (-first +second):\n%s", diff)
	}
}

func TestJudgeEmptyCases(t *testing.T) {
	j := newTestJudger(t)
	n := &countNotifier{}
	rt, err := j.Judge(context.Background(), Request{
		ChallengeID: "empty",
		Source:      "function f() {}",
		Notifier:    n,
	}, nil)
	require.NoError(t, err)
	require.True(t, rt.AllPassed)
	require.NotNil(t, rt.Results)
	require.Empty(t, rt.Results)
	require.Equal(t, []string{"empty"}, n.ids)

	b, err := json.Marshal(rt.Results)
	require.NoError(t, err)
	require.Equal(t, "[]", string(b))
}

func TestJudgeStructuralErrors(t *testing.T) {
	j := newTestJudger(t)
	j.MaxSourceSize = 32
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty source", Request{ChallengeID: "simple-add", Source: "  \n\t"}, ErrInvalidInput},
		{"no challenge id", Request{Source: "function add() {}"}, ErrInvalidInput},
		{"too large", Request{ChallengeID: "simple-add", Source: "function add(a, b) { return a + b; } // padding"}, ErrInvalidInput},
		{"unknown challenge", Request{ChallengeID: "nope", Source: "function add() {}"}, ErrChallengeNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := &recordTask{}
			rt, err := j.Judge(context.Background(), tc.req, task)
			require.Nil(t, rt)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
			require.Zero(t, task.parsed)
			require.Empty(t, task.finished)
		})
	}
}

func TestAggregate(t *testing.T) {
	rt := Aggregate(nil)
	require.True(t, rt.AllPassed)
	require.NotNil(t, rt.Results)
	require.Equal(t, types.ReportCompleted, rt.Status)

	rt = Aggregate([]types.TestResult{{Passed: true}, {Passed: false}, {Passed: true}})
	require.False(t, rt.AllPassed)
	require.Len(t, rt.Results, 3)
}

func TestErrorKindOf(t *testing.T) {
	tests := map[envexec.Status]types.ErrorKind{
		envexec.StatusAccepted:            types.ErrorNone,
		envexec.StatusWrongAnswer:         types.ErrorNone,
		envexec.StatusFunctionMissing:     types.ErrorFunctionMissing,
		envexec.StatusTimeLimitExceeded:   types.ErrorTimeout,
		envexec.StatusMemoryLimitExceeded: types.ErrorMemoryLimit,
		envexec.StatusRuntimeError:        types.ErrorRuntimeThrow,
		envexec.StatusOutputLimitExceeded: types.ErrorRuntimeThrow,
		envexec.StatusCompileError:        types.ErrorRuntimeThrow,
		envexec.StatusInternalError:       types.ErrorRuntimeThrow,
	}
	for s, want := range tests {
		if got := ErrorKindOf(s); got != want {
			t.Errorf("%v: expected %v, got %v", s, want, got)
		}
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "ExecutingCase", StateExecutingCase.String())
	require.Equal(t, "Invalid", State(42).String())
}
