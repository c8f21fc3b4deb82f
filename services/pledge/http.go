package pledge

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
	r.POST("/campaigns/:campaign_id/pledges", h.Create)
	r.GET("/campaigns/:campaign_id/pledges/summary", h.Summary)
	r.POST("/pledges/:pledge_id/cancel", h.Cancel)
	r.POST("/pledges/:pledge_id/fulfill", h.Fulfill)
}

type createRequest struct {
	SponsorID    string   `json:"sponsor_id" binding:"required"`
	RatePerPoint float64  `json:"rate_per_point" binding:"required"`
	CapAmount    *float64 `json:"cap_amount"`
	Message      string   `json:"message"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	pl, err := h.svc.Create(c.Request.Context(), CreateParams{
		SponsorID:    req.SponsorID,
		CampaignID:   c.Param("campaign_id"),
		RatePerPoint: req.RatePerPoint,
		CapAmount:    req.CapAmount,
		Message:      req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, pl)
}

func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) Cancel(c *gin.Context) {
	pl, err := h.svc.Cancel(c.Request.Context(), c.Param("pledge_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pl)
}

func (h *Handler) Fulfill(c *gin.Context) {
	pl, err := h.svc.Fulfill(c.Request.Context(), c.Param("pledge_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, pl)
}
