package leaderboard

import (
	"net/http"
	"strconv"

	"habitquest/pkg/errutil"
	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

const (
	defaultTop = 10
	maxTop     = 100
)

var HTTP = fx.Module("leaderboard.http",
	fx.Provide(NewHandler),
	fx.Invoke(func(r *gin.Engine, h *Handler) { h.Register(httpapi.V1(r)) }),
)

type Handler struct {
	board *Board
}

func NewHandler(b *Board) *Handler {
	return &Handler{board: b}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/campaigns/:campaign_id/leaderboard", h.Top)
}

func (h *Handler) Top(c *gin.Context) {
	n := int64(defaultTop)
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			_ = c.Error(errutil.BadRequest("limit must be a positive integer", err))
			return
		}
		n = min(v, maxTop)
	}

	standings, err := h.board.Top(c.Request.Context(), c.Param("campaign_id"), n)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": standings})
}
