package points

import (
	"net/http"

	"habitquest/pkg/db/pagination"
	"habitquest/pkg/errutil"
	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var HTTP = fx.Module("points.http",
	fx.Provide(NewHandler),
	fx.Invoke(func(r *gin.Engine, h *Handler) { h.Register(httpapi.V1(r)) }),
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/students/:student_id/campaigns/:campaign_id/points", h.History)
	r.GET("/students/:student_id/campaigns/:campaign_id/points/verify", h.Verify)
}

func (h *Handler) History(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		_ = c.Error(errutil.BadRequest("invalid pagination", err))
		return
	}

	page, err := h.ledger.History(c.Request.Context(), c.Param("student_id"), c.Param("campaign_id"), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) Verify(c *gin.Context) {
	ok, err := h.ledger.VerifyChain(c.Request.Context(), c.Param("student_id"), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}
