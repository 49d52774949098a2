package restexecutor

import (
	"net/http"

	"github.com/DuHerb/code-squad/challenge"
	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"github.com/gin-gonic/gin"
)

type challengeHandle struct {
	catalog challenge.Catalog
}

// NewChallengeHandle creates a new challenge handle
func NewChallengeHandle(catalog challenge.Catalog) Register {
	return &challengeHandle{
		catalog: catalog,
	}
}

func (h *challengeHandle) Register(r *gin.Engine) {
	r.GET("/challenges", h.handleList)
	r.GET("/challenges/:id", h.handleGet)
}

func (h *challengeHandle) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, model.ConvertChallenges(h.catalog.List()))
}

func (h *challengeHandle) handleGet(c *gin.Context) {
	id := c.Param("id")
	ch, ok := h.catalog.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, "challenge not found")
		return
	}
	c.JSON(http.StatusOK, model.ConvertChallenge(ch))
}
