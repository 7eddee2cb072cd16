package handler

import (
	"net/http"

	"github.com/galvinchau/bac-hms-sub000/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth       *AuthHandler
	Attendance *AttendanceHandler
	Weeks      *WeekHandler
}

func NewRouter(h Handlers, tokens *middleware.Tokens, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-New-Token", "X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/api/login", h.Auth.Login)

	api := r.Group("/api", middleware.JWTAuth(tokens))
	api.GET("/attendance/status", h.Attendance.Status)
	api.POST("/attendance/check-in", h.Attendance.CheckIn)
	api.POST("/attendance/check-out", h.Attendance.CheckOut)
	api.GET("/attendance", h.Attendance.List)

	api.GET("/weeks/:staffId", h.Weeks.Detail)
	api.GET("/weeks/:staffId/audit", h.Weeks.Audit)
	api.GET("/weeks/:staffId/timecard.xlsx", h.Weeks.Timecard)

	review := api.Group("/review", middleware.RequireReviewer())
	review.GET("/weeks", h.Weeks.List)
	review.PUT("/weeks/:staffId/adjustments", h.Weeks.Adjust)
	review.POST("/weeks/:staffId/approve", h.Weeks.Approve)
	review.POST("/weeks/:staffId/unlock", h.Weeks.Unlock)
	review.GET("/payroll", h.Weeks.Payroll)

	return r
}
