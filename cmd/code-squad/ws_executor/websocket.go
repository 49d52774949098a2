package wsexecutor

import (
	"context"
	"net/http"
	"time"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/DuHerb/code-squad/progress"
	"github.com/DuHerb/code-squad/types"
	"github.com/DuHerb/code-squad/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Register registers web socket handle /ws
type Register interface {
	Register(*gin.Engine)
}

// New creates new websocket handle, store may be nil
func New(worker worker.Worker, store *progress.Store, logger *zap.Logger) Register {
	return &wsHandle{
		worker: worker,
		store:  store,
		logger: logger,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

type wsHandle struct {
	worker worker.Worker
	store  *progress.Store
	logger *zap.Logger
}

func (h *wsHandle) Register(r *gin.Engine) {
	r.GET("/ws", h.handleWS)
}

func (h *wsHandle) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.Error(err)
		return
	}
	resultCh := make(chan model.Event, 128)
	ctx, cancel := context.WithCancel(context.Background())

	// read request
	go func() {
		defer cancel()
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		for {
			req := new(model.Request)
			if err := conn.ReadJSON(req); err != nil {
				h.logger.Sugar().Debug("ws read error: ", err)
				return
			}
			if req.RequestID == "" {
				req.RequestID = uuid.NewString()
			}
			r := model.ConvertRequest(req, h.store)
			r.Task = &eventTask{ctx: ctx, requestID: req.RequestID, ch: resultCh}
			go func() {
				select {
				case ret := <-h.worker.Submit(ctx, r):
					send(ctx, resultCh, model.ConvertFinished(model.ConvertResponse(ret)))
				case <-ctx.Done():
				}
			}()
		}
	}()

	// write result
	go func() {
		defer conn.Close()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-resultCh:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(e); err != nil {
					h.logger.Sugar().Warn("ws write error: ", err)
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
}

func send(ctx context.Context, ch chan<- model.Event, e model.Event) {
	select {
	case ch <- e:
	case <-ctx.Done():
	}
}

// eventTask streams judge progress to the connection
type eventTask struct {
	ctx       context.Context
	requestID string
	ch        chan<- model.Event
}

func (t *eventTask) Parsed(*types.Challenge) {}

func (t *eventTask) Compiled(p *types.ProgressCompiled) {
	send(t.ctx, t.ch, model.ConvertCompiled(t.requestID, p))
}

func (t *eventTask) Progressed(p *types.ProgressProgressed) {
	send(t.ctx, t.ch, model.ConvertProgressed(t.requestID, p))
}

// the final report is sent with the worker response
func (t *eventTask) Finished(*types.Report) {}
