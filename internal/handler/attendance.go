package handler

import (
	"context"
	"net/http"

	"github.com/galvinchau/bac-hms-sub000/internal/middleware"
	"github.com/galvinchau/bac-hms-sub000/internal/model"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
}

func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// GET /api/attendance/status[?staff_id=]
func (h *AttendanceHandler) Status(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	st, err := h.svc.GetStatus(c.Request.Context(), actor, staffParam(c, actor))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// POST /api/attendance/check-in  body: {"location":{...},"client_time":"...","source":"mobile"}
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	h.punch(c, h.svc.CheckIn)
}

// POST /api/attendance/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	h.punch(c, h.svc.CheckOut)
}

type punchFunc func(ctx context.Context, actor model.Actor, staffID string, req model.PunchRequest) (*model.PunchResult, error)

func (h *AttendanceHandler) punch(c *gin.Context, fn punchFunc) {
	var req model.PunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	actor := middleware.ActorFrom(c)
	res, err := fn(c.Request.Context(), actor, actor.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/attendance?week_start&week_end[&staff_id]
func (h *AttendanceHandler) List(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	actor := middleware.ActorFrom(c)
	list, err := h.svc.ListAttendance(c.Request.Context(), actor, staffParam(c, actor), week)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func staffParam(c *gin.Context, actor model.Actor) string {
	if id := c.Query("staff_id"); id != "" {
		return id
	}
	return actor.ID
}

// bindWeek reads week_start/week_end from the query. Both empty means the
// current week.
func bindWeek(c *gin.Context, cfg service.Settings) (service.Week, bool) {
	var req struct {
		WeekStart string `form:"week_start"`
		WeekEnd   string `form:"week_end"`
	}
	_ = c.ShouldBindQuery(&req)
	if req.WeekStart == "" && req.WeekEnd == "" {
		return cfg.CurrentWeek(), true
	}
	week, err := cfg.ParseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		writeError(c, err)
		return service.Week{}, false
	}
	return week, true
}
