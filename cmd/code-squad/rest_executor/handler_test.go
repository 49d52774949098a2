package restexecutor

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DuHerb/code-squad/challenge"
	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/types"
	"github.com/DuHerb/code-squad/worker"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap/zaptest"
)

// mockWorker answers every submission with the same report
type mockWorker struct {
	Report *types.Report
	Err    error
	last   *worker.Request
	worker.Worker
}

func (m *mockWorker) Submit(_ context.Context, req *worker.Request) <-chan worker.Response {
	m.last = req
	ch := make(chan worker.Response, 1)
	ch <- worker.Response{
		RequestID:   req.RequestID,
		ChallengeID: req.ChallengeID,
		Report:      m.Report,
		Error:       m.Err,
	}
	return ch
}

func newRouter(rs ...Register) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	for _, r := range rs {
		r.Register(router)
	}
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleExecute(t *testing.T) {
	mw := &mockWorker{
		Report: &types.Report{
			Status:    types.ReportCompleted,
			AllPassed: true,
			Results: []types.TestResult{{
				Input:    []json.RawMessage{json.RawMessage("1"), json.RawMessage("2")},
				Output:   json.RawMessage("3"),
				Expected: json.RawMessage("3"),
				Passed:   true,
			}},
		},
	}
	store := progress.NewStore()
	router := newRouter(NewExecuteHandle(mw, store, zaptest.NewLogger(t)))

	body, _ := json.Marshal(model.Request{
		RequestID:   "qwq",
		ChallengeID: "simple-add",
		UserCode:    "function add(a, b) { return a + b; }",
		UserID:      "alice",
	})
	recorder := serve(router, http.MethodPost, "/execute", string(body))
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	t.Logf("Response body: %s", recorder.Body.String())

	var resp model.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !resp.Success || resp.Completed == nil || !resp.AllPassed || len(resp.Results) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.RequestID != "qwq" {
		t.Fatalf("expected request id qwq, got %q", resp.RequestID)
	}
	if mw.last.Source != "function add(a, b) { return a + b; }" || mw.last.Notifier == nil {
		t.Fatalf("unexpected worker request %+v", mw.last)
	}
}

func TestHandleExecuteCompileFailed(t *testing.T) {
	mw := &mockWorker{Report: &types.Report{Status: types.ReportCompileFailed, CompileError: "SyntaxError: Unexpected token"}}
	router := newRouter(NewExecuteHandle(mw, nil, zaptest.NewLogger(t)))

	recorder := serve(router, http.MethodPost, "/execute", `{"challengeId":"simple-add","userCode":"function ("}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	want := `{"success":false,"error":"Compilation Error: SyntaxError: Unexpected token"}`
	if got := recorder.Body.String(); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestHandleExecuteMalformed(t *testing.T) {
	router := newRouter(NewExecuteHandle(&mockWorker{}, nil, zaptest.NewLogger(t)))
	recorder := serve(router, http.MethodPost, "/execute", `{"challengeId":`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestHandleChallenges(t *testing.T) {
	router := newRouter(NewChallengeHandle(challenge.NewBuiltin()))

	recorder := serve(router, http.MethodGet, "/challenges", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var list []model.Challenge
	if err := json.Unmarshal(recorder.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(list) != 5 || list[0].ID != "hello-world-typo" {
		t.Fatalf("unexpected challenges %+v", list)
	}
	if bytes.Contains(recorder.Body.Bytes(), []byte("expectedOutput")) {
		t.Fatal("test cases must not be listed")
	}

	recorder = serve(router, http.MethodGet, "/challenges/simple-add", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var c model.Challenge
	if err := json.Unmarshal(recorder.Body.Bytes(), &c); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if c.FunctionName != "add" || c.TestCaseCount != 3 {
		t.Fatalf("unexpected challenge %+v", c)
	}

	recorder = serve(router, http.MethodGet, "/challenges/nope", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestHandleProgress(t *testing.T) {
	store := progress.NewStore()
	store.MarkCompleted("alice", "simple-add")
	store.MarkCompleted("alice", "is-even")
	store.MarkCompleted("bob", "sum-array")
	router := newRouter(NewProgressHandle(store, zaptest.NewLogger(t)))

	recorder := serve(router, http.MethodGet, "/progress/alice", "")
	if got, want := recorder.Body.String(), `{"completed":["is-even","simple-add"],"userId":"alice"}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	recorder = serve(router, http.MethodGet, "/progress/carol", "")
	if got, want := recorder.Body.String(), `{"completed":[],"userId":"carol"}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	recorder = serve(router, http.MethodDelete, "/progress/bob", "")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	recorder = serve(router, http.MethodDelete, "/progress/bob", "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}

	recorder = serve(router, http.MethodGet, "/progress", "")
	if got, want := recorder.Body.String(), `{"alice":["is-even","simple-add"]}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	recorder = serve(router, http.MethodDelete, "/progress", "")
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if len(store.All()) != 0 {
		t.Fatalf("expected store cleared, got %v", store.All())
	}
}

// silentWorker never answers, like a request dropped by a worker
type silentWorker struct {
	worker.Worker
}

func (silentWorker) Submit(context.Context, *worker.Request) <-chan worker.Response {
	return make(chan worker.Response)
}

func TestHandleExecuteAbandoned(t *testing.T) {
	router := newRouter(NewExecuteHandle(silentWorker{}, nil, zaptest.NewLogger(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/execute",
		strings.NewReader(`{"challengeId":"simple-add","userCode":"function add() {}"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(recorder, req)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler still waiting after the request was canceled")
	}
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
}
