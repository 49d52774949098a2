package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/types"
	"go.uber.org/zap/zaptest"
)

type fakeJudger struct {
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32

	mu   sync.Mutex
	reqs []judger.Request
}

func (f *fakeJudger) Judge(ctx context.Context, req judger.Request, t judger.Task) (*types.Report, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	time.Sleep(f.delay)
	if req.ChallengeID == "missing" {
		return nil, judger.ErrChallengeNotFound
	}
	if req.Notifier != nil {
		req.Notifier.NotifyCompleted(req.ChallengeID)
	}
	rt := judger.Aggregate(nil)
	return &rt, nil
}

type notifierFunc func(string)

func (f notifierFunc) NotifyCompleted(id string) { f(id) }

func TestWorkerSubmit(t *testing.T) {
	j := &fakeJudger{}
	var observed []Response
	w := New(Config{
		Judger:       j,
		Parallelism:  2,
		Logger:       zaptest.NewLogger(t),
		ExecObserver: func(r Response) { observed = append(observed, r) },
	})
	w.Start()
	defer w.Shutdown()

	var notified string
	rt := <-w.Submit(context.Background(), &Request{
		ChallengeID: "simple-add",
		Source:      "function add(a, b) { return a + b; }",
		Notifier:    notifierFunc(func(id string) { notified = id }),
	})
	if rt.Error != nil {
		t.Fatal(rt.Error)
	}
	if rt.RequestID == "" {
		t.Fatal("expected generated request id")
	}
	if rt.Report == nil || !rt.Report.AllPassed {
		t.Fatalf("unexpected report %v", rt)
	}
	if notified != "simple-add" {
		t.Fatalf("notifier not passed through, got %q", notified)
	}
	if len(observed) != 1 || observed[0].RequestID != rt.RequestID {
		t.Fatalf("observer not called with response: %v", observed)
	}
	if j.reqs[0].RequestID != rt.RequestID {
		t.Fatalf("judger saw request id %q, response has %q", j.reqs[0].RequestID, rt.RequestID)
	}
}

func TestWorkerKeepsRequestID(t *testing.T) {
	w := New(Config{Judger: &fakeJudger{}, Parallelism: 1})
	defer w.Shutdown()
	rt := <-w.Execute(context.Background(), &Request{RequestID: "given", ChallengeID: "x", Source: "x"})
	if rt.RequestID != "given" {
		t.Fatalf("expected given request id, got %q", rt.RequestID)
	}
}

func TestWorkerStructuralError(t *testing.T) {
	w := New(Config{Judger: &fakeJudger{}, Parallelism: 1})
	w.Start()
	defer w.Shutdown()
	rt := <-w.Submit(context.Background(), &Request{ChallengeID: "missing", Source: "x"})
	if !errors.Is(rt.Error, judger.ErrChallengeNotFound) {
		t.Fatalf("expected challenge not found, got %v", rt.Error)
	}
	if rt.Report != nil {
		t.Fatal("expected no report")
	}
}

func TestWorkerParallelism(t *testing.T) {
	j := &fakeJudger{delay: 20 * time.Millisecond}
	w := New(Config{Judger: j, Parallelism: 2})
	w.Start()
	defer w.Shutdown()

	chs := make([]<-chan Response, 0, 8)
	for range 8 {
		chs = append(chs, w.Submit(context.Background(), &Request{ChallengeID: "x", Source: "x"}))
	}
	for _, ch := range chs {
		if rt := <-ch; rt.Error != nil {
			t.Fatal(rt.Error)
		}
	}
	if p := j.peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent submissions, got %d", p)
	}
}

func TestWorkerShutdown(t *testing.T) {
	w := New(Config{Judger: &fakeJudger{}, Parallelism: 1})
	w.Start()
	w.Shutdown()
	w.Shutdown()

	rt := <-w.Submit(context.Background(), &Request{ChallengeID: "x", Source: "x"})
	if !errors.Is(rt.Error, ErrShutdown) {
		t.Fatalf("expected shutdown error, got %v", rt.Error)
	}
	rt = <-w.Execute(context.Background(), &Request{ChallengeID: "x", Source: "x"})
	if !errors.Is(rt.Error, ErrShutdown) {
		t.Fatalf("expected shutdown error, got %v", rt.Error)
	}
}

func TestWorkerShutdownAnswersQueued(t *testing.T) {
	j := &fakeJudger{delay: 100 * time.Millisecond}
	w := New(Config{Judger: j, Parallelism: 1, Logger: zaptest.NewLogger(t)})
	w.Start()

	chs := make([]<-chan Response, 0, 5)
	for range 5 {
		chs = append(chs, w.Submit(context.Background(), &Request{ChallengeID: "x", Source: "x"}))
	}
	// let the first request start
	time.Sleep(20 * time.Millisecond)
	w.Shutdown()

	var shutdown int
	for i, ch := range chs {
		select {
		case rt := <-ch:
			switch {
			case rt.Error == nil:
			case errors.Is(rt.Error, ErrShutdown):
				shutdown++
			default:
				t.Fatalf("request %d: unexpected error %v", i, rt.Error)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("request %d was never answered", i)
		}
	}
	if shutdown == 0 {
		t.Fatal("expected queued requests to be answered with ErrShutdown")
	}
}
