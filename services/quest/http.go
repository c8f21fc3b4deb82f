package quest

import (
	"net/http"
	"time"

	"habitquest/pkg/httpapi"
	"habitquest/pkg/task"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var HTTP = fx.Module("quest.http",
	fx.Provide(NewHTTPHandler),
	fx.Invoke(func(r *gin.Engine, h *HTTPHandler) { h.Register(httpapi.V1(r)) }),
)

// HTTPHandler serves penalties and the manual sweep trigger.
type HTTPHandler struct {
	tracker  *Tracker
	enqueuer task.Enqueuer
	now      func() time.Time
}

type HTTPHandlerParams struct {
	fx.In

	Tracker  *Tracker
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewHTTPHandler(p HTTPHandlerParams) *HTTPHandler {
	return &HTTPHandler{tracker: p.Tracker, enqueuer: p.Enqueuer, now: time.Now}
}

func (h *HTTPHandler) Register(r *gin.RouterGroup) {
	r.GET("/students/:student_id/penalties", h.Penalties)
	r.POST("/penalties/:penalty_id/complete", h.CompletePenalty)
	r.POST("/quests/sweep", h.Sweep)
}

func (h *HTTPHandler) Penalties(c *gin.Context) {
	list, err := h.tracker.Penalties(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"penalties": list})
}

func (h *HTTPHandler) CompletePenalty(c *gin.Context) {
	p, err := h.tracker.CompletePenalty(c.Request.Context(), c.Param("penalty_id"), h.now())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Sweep hands the sweep to the worker queue. Without a queue it runs inline.
func (h *HTTPHandler) Sweep(c *gin.Context) {
	if h.enqueuer == nil {
		res, err := h.tracker.Sweep(c.Request.Context(), h.now())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	t, err := NewSweepTask()
	if err != nil {
		_ = c.Error(err)
		return
	}
	info, err := h.enqueuer.Enqueue(t)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
}
