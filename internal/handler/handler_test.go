package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/middleware"
	"github.com/galvinchau/bac-hms-sub000/internal/model"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

var est = time.FixedZone("EST", -5*3600)

type testServer struct {
	router *gin.Engine
	tokens *middleware.Tokens
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.Tables()...))

	hash, err := service.HashPassword("pw-123456")
	require.NoError(t, err)
	for _, st := range []model.Staff{
		{ID: "s-1", Username: "nina", Password: hash, Name: "Nina", Role: model.RoleStaff, Category: "DSP", Active: true},
		{ID: "u-1", Username: "hera", Password: hash, Name: "Hera", Role: model.RoleHR, Category: "OFFICE", Active: true},
	} {
		require.NoError(t, db.Create(&st).Error)
	}

	ts := &testServer{tokens: middleware.NewTokens("handler-secret", 24*time.Hour)}
	ts.now = time.Date(2026, 1, 5, 8, 0, 0, 0, est)
	cfg := service.Settings{
		Location:        est,
		Rules:           service.FlagRules{MaxAccuracyMeters: 100, MinSessionMinutes: 5, MaxSessionMinutes: 960},
		MinUnlockReason: 5,
		Now:             func() time.Time { return ts.now },
	}
	dir := service.NewStaffDirectory(db, []string{"DSP"})
	ts.router = NewRouter(Handlers{
		Auth:       NewAuthHandler(service.NewAuthService(db), ts.tokens),
		Attendance: NewAttendanceHandler(service.NewAttendanceService(db, dir, cfg)),
		Weeks:      NewWeekHandler(service.NewApprovalService(db, dir, cfg, nil)),
	}, ts.tokens, []string{"*"})
	return ts
}

func (ts *testServer) token(t *testing.T, id, name, role string) string {
	t.Helper()
	raw, err := ts.tokens.Issue(model.Actor{ID: id, Name: name, Role: role})
	require.NoError(t, err)
	return raw
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Code
}

var location = gin.H{"location": gin.H{"latitude": 40.44, "longitude": -79.99, "accuracy_meters": 8}}

const weekQuery = "week_start=2026-01-04&week_end=2026-01-10"

var weekBody = gin.H{"week_start": "2026-01-04", "week_end": "2026-01-10"}

func TestHealthAndLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/login", "", gin.H{"username": "nina", "password": "pw-123456"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.User.ID)
	assert.Equal(t, "DSP", resp.User.Category)

	w = ts.do(http.MethodGet, "/api/attendance/status", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/login", "", gin.H{"username": "nina", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "BAD_CREDENTIALS", errCode(t, w))

	w = ts.do(http.MethodPost, "/api/login", "", gin.H{"username": "nina"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceFlow(t *testing.T) {
	ts := newTestServer(t)
	nina := ts.token(t, "s-1", "Nina", model.RoleStaff)

	w := ts.do(http.MethodPost, "/api/attendance/check-in", "", location)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/attendance/check-in", nina, gin.H{"location": gin.H{"latitude": 95, "longitude": 0, "accuracy_meters": 1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LOCATION", errCode(t, w))

	w = ts.do(http.MethodPost, "/api/attendance/check-in", nina, gin.H{"location": location["location"], "client_time": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))

	w = ts.do(http.MethodPost, "/api/attendance/check-in", nina, location)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/api/attendance/check-in", nina, location)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errCode(t, w))

	ts.now = ts.now.Add(9 * time.Hour)
	w = ts.do(http.MethodPost, "/api/attendance/check-out", nina, location)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res model.PunchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 540, *res.Event.TotalMinutes)
	assert.False(t, res.Status.IsCheckedIn)

	w = ts.do(http.MethodPost, "/api/attendance/check-out", nina, location)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_OPEN_SESSION", errCode(t, w))

	w = ts.do(http.MethodGet, "/api/attendance?"+weekQuery, nina, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Attendance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// no query means the current week
	w = ts.do(http.MethodGet, "/api/attendance", nina, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/attendance?week_start=2026-01-05&week_end=2026-01-11", nina, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_WEEK", errCode(t, w))

	w = ts.do(http.MethodGet, "/api/attendance/status?staff_id=u-1", nina, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewFlow(t *testing.T) {
	ts := newTestServer(t)
	nina := ts.token(t, "s-1", "Nina", model.RoleStaff)
	hera := ts.token(t, "u-1", "Hera", model.RoleHR)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/attendance/check-in", nina, location).Code)
	ts.now = ts.now.Add(9 * time.Hour)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/attendance/check-out", nina, location).Code)

	w := ts.do(http.MethodGet, "/api/review/weeks?"+weekQuery, nina, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/api/review/weeks?"+weekQuery+"&status=bogus", hera, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILTER", errCode(t, w))

	w = ts.do(http.MethodPut, "/api/review/weeks/s-1/adjustments", hera, gin.H{"days": []gin.H{{"date": "2026-01-05", "minutes": "8:00"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/approve", hera, gin.H{"reason": "ok"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))

	adjust := gin.H{"week_start": "2026-01-04", "week_end": "2026-01-10", "days": []gin.H{{"date": "2026-01-05", "minutes": "abc"}}}
	w = ts.do(http.MethodPut, "/api/review/weeks/s-1/adjustments", hera, adjust)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DURATION", errCode(t, w))

	adjust["days"] = []gin.H{{"date": "2026-01-05", "minutes": "8:00"}}
	w = ts.do(http.MethodPut, "/api/review/weeks/s-1/adjustments", hera, adjust)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var wa model.WeeklyApproval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wa))
	assert.Equal(t, 540, wa.ComputedMinutes)
	assert.Equal(t, 480, wa.FinalMinutes)

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/approve", hera, weekBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/approve", hera, weekBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_APPROVED", errCode(t, w))

	w = ts.do(http.MethodPut, "/api/review/weeks/s-1/adjustments", hera, adjust)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "WEEK_LOCKED", errCode(t, w))

	w = ts.do(http.MethodGet, "/api/review/payroll?"+weekQuery, hera, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payroll []model.PayrollRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payroll))
	require.Len(t, payroll, 1)
	assert.Equal(t, 480, payroll[0].FinalMinutes)

	w = ts.do(http.MethodGet, "/api/weeks/s-1/timecard.xlsx?"+weekQuery, nina, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timecard_Nina_2026-01-04.xlsx")

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/unlock", hera, weekBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REASON_REQUIRED", errCode(t, w))

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/unlock", hera, gin.H{"week_start": "2026-01-04", "week_end": "2026-01-10", "reason": "missed visit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/api/review/weeks/s-1/unlock", hera, gin.H{"week_start": "2026-01-04", "week_end": "2026-01-10", "reason": "missed visit"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_APPROVED", errCode(t, w))

	w = ts.do(http.MethodGet, "/api/weeks/s-1?"+weekQuery, nina, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.WeeklyDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, model.WeekPending, detail.Approval.Status)
	assert.Len(t, detail.Audit, 3)

	w = ts.do(http.MethodGet, "/api/weeks/s-1/audit?"+weekQuery, hera, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/weeks/u-1?"+weekQuery, nina, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/api/weeks/s-404?"+weekQuery, hera, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "STAFF_NOT_FOUND", errCode(t, w))
}

func TestWriteErrorStoreFault(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, errors.New("dial tcp: connection refused"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "STORE_UNAVAILABLE", body["code"])
	assert.Equal(t, true, body["retry"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}
