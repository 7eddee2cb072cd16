package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/galvinchau/bac-hms-sub000/internal/middleware"
	"github.com/galvinchau/bac-hms-sub000/internal/model"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type WeekHandler struct {
	svc *service.ApprovalService
}

func NewWeekHandler(svc *service.ApprovalService) *WeekHandler {
	return &WeekHandler{svc: svc}
}

// GET /api/weeks/:staffId?week_start&week_end
func (h *WeekHandler) Detail(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	d, err := h.svc.GetWeeklyDetail(c.Request.Context(), middleware.ActorFrom(c), c.Param("staffId"), week)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/weeks/:staffId/audit
func (h *WeekHandler) Audit(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	entries, err := h.svc.ListAudit(c.Request.Context(), middleware.ActorFrom(c), c.Param("staffId"), week)
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GET /api/weeks/:staffId/timecard.xlsx
func (h *WeekHandler) Timecard(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	data, name, err := h.svc.Timecard(c.Request.Context(), middleware.ActorFrom(c), c.Param("staffId"), week)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GET /api/review/weeks?week_start&week_end[&status&staff_id&flagged]
func (h *WeekHandler) List(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	var filter model.ApprovalFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidFilter, err))
		return
	}
	list, err := h.svc.ListWeeklyApprovals(c.Request.Context(), middleware.ActorFrom(c), week, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PUT /api/review/weeks/:staffId/adjustments
// body: {"week_start":"...","week_end":"...","days":[{"date":"...","minutes":"8:00"}],"reason":"..."}
func (h *WeekHandler) Adjust(c *gin.Context) {
	var req model.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	week, err := h.svc.Settings().ParseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		writeError(c, err)
		return
	}
	wa, err := h.svc.SaveAdjustment(c.Request.Context(), middleware.ActorFrom(c), c.Param("staffId"), week, req.Days, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wa)
}

// POST /api/review/weeks/:staffId/approve
func (h *WeekHandler) Approve(c *gin.Context) {
	h.review(c, h.svc.Approve)
}

// POST /api/review/weeks/:staffId/unlock  body: {..., "reason":"..."}
func (h *WeekHandler) Unlock(c *gin.Context) {
	h.review(c, h.svc.Unlock)
}

type reviewFunc func(ctx context.Context, actor model.Actor, staffID string, week service.Week, reason string) (*model.WeeklyApproval, error)

func (h *WeekHandler) review(c *gin.Context, fn reviewFunc) {
	var req model.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	week, err := h.svc.Settings().ParseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		writeError(c, err)
		return
	}
	wa, err := fn(c.Request.Context(), middleware.ActorFrom(c), c.Param("staffId"), week, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wa)
}

// GET /api/review/payroll?week_start&week_end
func (h *WeekHandler) Payroll(c *gin.Context) {
	week, ok := bindWeek(c, h.svc.Settings())
	if !ok {
		return
	}
	recs, err := h.svc.ListPayroll(c.Request.Context(), middleware.ActorFrom(c), week)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}
