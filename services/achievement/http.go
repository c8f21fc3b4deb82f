package achievement

import (
	"net/http"

	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var HTTP = fx.Module("achievement.http",
	fx.Provide(NewHandler),
	fx.Invoke(func(r *gin.Engine, h *Handler) { h.Register(httpapi.V1(r)) }),
)

type Handler struct {
	evaluator *Evaluator
}

func NewHandler(e *Evaluator) *Handler {
	return &Handler{evaluator: e}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/students/:student_id/achievements", h.List)
	r.GET("/students/:student_id/achievements/progress", h.Progress)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.evaluator.List(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": list})
}

func (h *Handler) Progress(c *gin.Context) {
	progress, err := h.evaluator.Progress(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
