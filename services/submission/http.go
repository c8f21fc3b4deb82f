package submission

import (
	"net/http"
	"time"

	"habitquest/pkg/errutil"
	"habitquest/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

const dayLayout = "2006-01-02"

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
	r.POST("/campaigns/:campaign_id/enrollments", h.Enroll)
	r.DELETE("/campaigns/:campaign_id/enrollments/:student_id", h.Unenroll)
	r.POST("/campaigns/:campaign_id/submissions", h.Submit)
	r.GET("/students/:student_id/campaigns/:campaign_id/dashboard", h.Dashboard)
}

type enrollRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

func (h *Handler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.Enroll(c.Request.Context(), req.StudentID, c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyEnrolled {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *Handler) Unenroll(c *gin.Context) {
	e, err := h.svc.Unenroll(c.Request.Context(), c.Param("student_id"), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type submitRequest struct {
	StudentID string   `json:"student_id" binding:"required"`
	Day       string   `json:"day"`
	Rating    Rating   `json:"rating"`
	HabitIDs  []string `json:"habit_ids"`
}

func (h *Handler) Submit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	req := Request{
		StudentID:  body.StudentID,
		CampaignID: c.Param("campaign_id"),
		Rating:     body.Rating,
		HabitIDs:   body.HabitIDs,
	}
	if body.Day != "" {
		day, err := time.Parse(dayLayout, body.Day)
		if err != nil {
			_ = c.Error(errutil.BadRequest("day must be formatted as YYYY-MM-DD", err))
			return
		}
		req.Day = day
	}

	res, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), c.Param("student_id"), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}
