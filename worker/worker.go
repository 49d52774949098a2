package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxWaiting = 512

// ErrShutdown is returned for requests submitted after Shutdown
var ErrShutdown = errors.New("worker is shut down")

// Judger judges a single submission
type Judger interface {
	Judge(ctx context.Context, req judger.Request, t judger.Task) (*types.Report, error)
}

// Config defines worker configuration
type Config struct {
	Judger       Judger
	Parallelism  int
	Logger       *zap.Logger
	ExecObserver func(Response)
}

// Worker defines interface for executor
type Worker interface {
	Start()
	Submit(context.Context, *Request) <-chan Response
	Execute(context.Context, *Request) <-chan Response
	Shutdown()
}

// worker defines executor worker
type worker struct {
	judger      Judger
	parallelism int
	logger      *zap.Logger

	execObserver func(Response)

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	workCh    chan workRequest
	done      chan struct{}

	// held for reading while a request is handed over, so nothing is queued
	// or started once Shutdown closed done
	closing sync.RWMutex
}

type workRequest struct {
	*Request
	context.Context
	resultCh chan<- Response
}

// New creates new worker
func New(conf Config) Worker {
	parallelism := conf.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &worker{
		judger:       conf.Judger,
		parallelism:  parallelism,
		logger:       logger,
		execObserver: conf.ExecObserver,
		done:         make(chan struct{}),
	}
}

// Start starts worker loops with given parallelism
func (w *worker) Start() {
	w.startOnce.Do(func() {
		w.workCh = make(chan workRequest, maxWaiting)
		w.wg.Add(w.parallelism)
		for i := 0; i < w.parallelism; i++ {
			go w.loop()
		}
	})
}

// Submit queues a single request, it waits for a free slot in the queue
func (w *worker) Submit(ctx context.Context, req *Request) <-chan Response {
	w.Start()
	ch := make(chan Response, 1)
	w.closing.RLock()
	defer w.closing.RUnlock()
	select {
	case <-w.done:
		ch <- w.errResponse(req, ErrShutdown)
		return ch
	default:
	}
	wq := workRequest{
		Request:  req,
		Context:  ctx,
		resultCh: ch,
	}
	select {
	case w.workCh <- wq:
	case <-ctx.Done():
		ch <- w.errResponse(req, fmt.Errorf("submit: %w", ctx.Err()))
	}
	return ch
}

// Execute will execute the request in new goroutine (bypass the parallelism limit)
func (w *worker) Execute(ctx context.Context, req *Request) <-chan Response {
	ch := make(chan Response, 1)
	w.closing.RLock()
	defer w.closing.RUnlock()
	select {
	case <-w.done:
		ch <- w.errResponse(req, ErrShutdown)
		return ch
	default:
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.workDoJudge(workRequest{
			Request:  req,
			Context:  ctx,
			resultCh: ch,
		})
	}()
	return ch
}

// Shutdown waits for the running requests to finish. Requests still queued
// are answered with ErrShutdown.
func (w *worker) Shutdown() {
	w.stopOnce.Do(func() {
		w.closing.Lock()
		close(w.done)
		w.closing.Unlock()
		w.wg.Wait()

		var dropped int
		for {
			select {
			case req := <-w.workCh:
				req.resultCh <- w.errResponse(req.Request, ErrShutdown)
				dropped++
			default:
				if dropped > 0 {
					w.logger.Info("dropped queued requests on shutdown", zap.Int("count", dropped))
				}
				return
			}
		}
	})
}

func (w *worker) loop() {
	defer w.wg.Done()
	for {
		// queued requests are left to Shutdown once done is closed
		select {
		case <-w.done:
			return
		default:
		}
		select {
		case req, ok := <-w.workCh:
			if !ok {
				return
			}
			w.workDoJudge(req)
		case <-w.done:
			return
		}
	}
}

func (w *worker) workDoJudge(req workRequest) {
	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	start := time.Now()
	rt, err := w.judger.Judge(req.Context, judger.Request{
		RequestID:   id,
		ChallengeID: req.ChallengeID,
		Source:      req.Source,
		Notifier:    req.Notifier,
	}, req.Task)

	resp := Response{
		RequestID:   id,
		ChallengeID: req.ChallengeID,
		Report:      rt,
		Error:       err,
		Time:        time.Since(start),
	}
	w.logger.Debug("request finished", zap.Stringer("response", resp))
	if w.execObserver != nil {
		w.execObserver(resp)
	}
	req.resultCh <- resp
}

func (w *worker) errResponse(req *Request, err error) Response {
	return Response{
		RequestID:   req.RequestID,
		ChallengeID: req.ChallengeID,
		Error:       err,
	}
}
