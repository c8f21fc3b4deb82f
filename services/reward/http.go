package reward

import (
	"net/http"

	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var HTTP = fx.Module("reward.http",
	fx.Provide(NewHandler),
	fx.Invoke(func(r *gin.Engine, h *Handler) { h.Register(httpapi.V1(r)) }),
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/students/:student_id/rewards", h.List)
	r.GET("/rewards/odds", h.Odds)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": list})
}

// Odds publishes the default pool and the weight of each rarity band.
func (h *Handler) Odds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_weight": DefaultPool.TotalWeight(),
		"bands":        DefaultPool.BandWeights(),
		"pool":         DefaultPool,
	})
}
