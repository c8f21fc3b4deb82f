package referral

import (
	"net/http"

	"habitquest/pkg/errutil"
	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(httpapi.V1(r))
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.POST("/students/:student_id/referrals", h.Generate)
	r.POST("/referrals/apply", h.Apply)
	r.GET("/referrals/stats", h.Stats)
}

type generateRequest struct {
	MaxUses int `json:"max_uses"`
}

func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(errutil.BadRequest("invalid request body", err))
			return
		}
	}

	code, err := h.svc.Generate(c.Request.Context(), c.Param("student_id"), req.MaxUses)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

type applyRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

func (h *Handler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.Apply(c.Request.Context(), req.StudentID, req.Code, h.svc.now())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
