package restexecutor

import (
	"net/http"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type executeHandle struct {
	worker worker.Worker
	store  *progress.Store
	logger *zap.Logger
}

// NewExecuteHandle creates a new execute handle, store may be nil
func NewExecuteHandle(worker worker.Worker, store *progress.Store, logger *zap.Logger) Register {
	return &executeHandle{
		worker: worker,
		store:  store,
		logger: logger,
	}
}

func (h *executeHandle) Register(r *gin.Engine) {
	r.POST("/execute", h.handleExecute)
}

func (h *executeHandle) handleExecute(ctx *gin.Context) {
	var req model.Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(err)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return
	}

	r := model.ConvertRequest(&req, h.store)
	h.logger.Debug("execute request",
		zap.String("requestId", r.RequestID),
		zap.String("challengeId", r.ChallengeID),
		zap.Int("sourceSize", len(r.Source)))
	var rt worker.Response
	select {
	case rt = <-h.worker.Submit(ctx.Request.Context(), r):
	case <-ctx.Request.Context().Done():
		h.logger.Debug("execute request abandoned",
			zap.String("requestId", r.RequestID),
			zap.Error(ctx.Request.Context().Err()))
		ctx.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.logger.Debug("execute response", zap.Stringer("response", rt))

	// structural and compile failures are part of the response body
	ctx.JSON(http.StatusOK, model.ConvertResponse(rt))
}
