package grpcexecutor

import (
	"context"
	"errors"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/judger"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/worker"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// New creates grpc executor server, store may be nil
func New(worker worker.Worker, store *progress.Store, logger *zap.Logger) ExecutorServer {
	return &execServer{
		worker: worker,
		store:  store,
		logger: logger,
	}
}

type execServer struct {
	UnimplementedExecutorServer
	worker worker.Worker
	store  *progress.Store
	logger *zap.Logger
}

func (e *execServer) Execute(ctx context.Context, req *model.Request) (*model.Response, error) {
	r := model.ConvertRequest(req, e.store)
	e.logger.Sugar().Debugf("request: %+v", r)
	var rt worker.Response
	select {
	case rt = <-e.worker.Submit(ctx, r):
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	e.logger.Sugar().Debugf("response: %+v", rt)
	if rt.Error != nil {
		switch {
		case errors.Is(rt.Error, judger.ErrInvalidInput), errors.Is(rt.Error, judger.ErrChallengeNotFound):
			// answered in the response body like the http endpoint
		case errors.Is(rt.Error, worker.ErrShutdown):
			return nil, status.Error(codes.Unavailable, rt.Error.Error())
		case errors.Is(rt.Error, context.Canceled), errors.Is(rt.Error, context.DeadlineExceeded):
			return nil, status.Error(codes.Canceled, rt.Error.Error())
		default:
			return nil, status.Error(codes.Internal, rt.Error.Error())
		}
	}
	ret := model.ConvertResponse(rt)
	return &ret, nil
}
