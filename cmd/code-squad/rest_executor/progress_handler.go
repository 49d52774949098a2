package restexecutor

import (
	"net/http"

	"github.com/DuHerb/code-squad/progress"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type progressHandle struct {
	store  *progress.Store
	logger *zap.Logger
}

// NewProgressHandle creates a new progress handle
func NewProgressHandle(store *progress.Store, logger *zap.Logger) Register {
	return &progressHandle{
		store:  store,
		logger: logger,
	}
}

func (h *progressHandle) Register(r *gin.Engine) {
	r.GET("/progress", h.handleAll)
	r.DELETE("/progress", h.handleClearAll)
	r.GET("/progress/:user", h.handleUser)
	r.DELETE("/progress/:user", h.handleClearUser)
}

func (h *progressHandle) handleAll(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.All())
}

func (h *progressHandle) handleUser(c *gin.Context) {
	user := c.Param("user")
	c.JSON(http.StatusOK, gin.H{
		"userId":    user,
		"completed": h.store.Completed(user),
	})
}

func (h *progressHandle) handleClearAll(c *gin.Context) {
	h.store.ClearAll()
	h.logger.Info("all user progress cleared")
	c.Status(http.StatusNoContent)
}

func (h *progressHandle) handleClearUser(c *gin.Context) {
	user := c.Param("user")
	if !h.store.Clear(user) {
		c.AbortWithStatusJSON(http.StatusNotFound, "no progress found")
		return
	}
	h.logger.Info("user progress cleared", zap.String("userId", user))
	c.Status(http.StatusNoContent)
}
