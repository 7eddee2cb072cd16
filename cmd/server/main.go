package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/galvinchau/bac-hms-sub000/internal/config"
	"github.com/galvinchau/bac-hms-sub000/internal/handler"
	"github.com/galvinchau/bac-hms-sub000/internal/logger"
	"github.com/galvinchau/bac-hms-sub000/internal/middleware"
	"github.com/galvinchau/bac-hms-sub000/internal/model"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		slog.Error("auth.jwt_secret (JWT_SECRET) is required")
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("agency timezone", "err", err)
		os.Exit(1)
	}

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(model.Tables()...); err != nil {
			slog.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
	}

	settings := service.Settings{
		Location: loc,
		Rules: service.FlagRules{
			MaxAccuracyMeters: cfg.Flags.MaxAccuracyMeters,
			MinSessionMinutes: cfg.Flags.MinSessionMinutes,
			MaxSessionMinutes: cfg.Flags.MaxSessionMinutes,
		},
		MinUnlockReason: cfg.Agency.MinUnlockReason,
	}

	var payroll service.PayrollPublisher
	if cfg.PayrollSyncEnabled() {
		raw, err := cfg.NewRawClient()
		if err != nil {
			slog.Warn("sdk client init failed, payroll sync disabled", "err", err)
		} else {
			payroll = service.NewPayrollSync(raw, cfg.MOI.DatabaseID, cfg.MOI.PayrollTableID)
			slog.Info("payroll sync enabled", "table", cfg.MOI.PayrollTableID)
		}
	}

	dir := service.NewStaffDirectory(db, cfg.Agency.EligibleCategories)
	tokens := middleware.NewTokens(cfg.Auth.JWTSecret, cfg.TokenTTL())

	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(handler.Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(db), tokens),
		Attendance: handler.NewAttendanceHandler(service.NewAttendanceService(db, dir, settings)),
		Weeks:      handler.NewWeekHandler(service.NewApprovalService(db, dir, settings, payroll)),
	}, tokens, cfg.Server.CORSOrigins)

	slog.Info("server starting", "addr", cfg.Addr(), "timezone", loc.String())
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
