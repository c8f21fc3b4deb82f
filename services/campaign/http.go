package campaign

import (
	"net/http"
	"time"

	"habitquest/pkg/errutil"
	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var HTTP = fx.Module("campaign.http",
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
	r.POST("/campaigns", h.Create)
	r.GET("/campaigns/:campaign_id", h.Get)
}

type createRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Habits      []string   `json:"habits"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	Draft       bool       `json:"draft"`
}

type campaignResponse struct {
	*Campaign
	Habits []*Habit `json:"habits"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	camp, habits, err := h.svc.Create(c.Request.Context(), CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Habits:      req.Habits,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Draft:       req.Draft,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, campaignResponse{Campaign: camp, Habits: habits})
}

func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	camp, err := h.svc.Get(ctx, nil, c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	habits, err := h.svc.Habits(ctx, nil, camp.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, campaignResponse{Campaign: camp, Habits: habits})
}
