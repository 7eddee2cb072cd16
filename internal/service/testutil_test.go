package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// eastern is a fixed UTC-5 zone so tests do not depend on tzdata.
var eastern = time.FixedZone("EST", -5*3600)

var (
	alice = model.Actor{ID: "s-alice", Name: "Alice Caregiver", Role: model.RoleStaff}
	bob   = model.Actor{ID: "s-bob", Name: "Bob Aide", Role: model.RoleStaff}
	hr    = model.Actor{ID: "u-hr", Name: "Helen HR", Role: model.RoleHR}
	admin = model.Actor{ID: "u-admin", Name: "Adam Admin", Role: model.RoleAdmin}
)

// fakeClock is a settable clock shared with the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// at builds an instant from an agency-local wall clock.
func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, eastern)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "timekeeping.db") + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
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
	return db
}

type harness struct {
	db         *gorm.DB
	clock      *fakeClock
	cfg        Settings
	dir        *StaffDirectory
	attendance *AttendanceService
	approval   *ApprovalService
	payroll    *recordingPayroll
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	seedStaff(t, db,
		model.Staff{ID: alice.ID, Username: "alice", Name: alice.Name, Role: model.RoleStaff, Category: "DSP", Active: true},
		model.Staff{ID: bob.ID, Username: "bob", Name: bob.Name, Role: model.RoleStaff, Category: "cna", Active: true},
		model.Staff{ID: "s-carl", Username: "carl", Name: "Carl Inactive", Role: model.RoleStaff, Category: "DSP", Active: false},
		model.Staff{ID: "s-dana", Username: "dana", Name: "Dana Office", Role: model.RoleStaff, Category: "OFFICE", Active: true},
		model.Staff{ID: hr.ID, Username: "helen", Name: hr.Name, Role: model.RoleHR, Category: "OFFICE", Active: true},
	)

	clock := &fakeClock{t: at("2026-01-05", "09:00")}
	cfg := Settings{
		Location:        eastern,
		Rules:           FlagRules{MaxAccuracyMeters: 100, MinSessionMinutes: 5, MaxSessionMinutes: 960},
		MinUnlockReason: 5,
		Now:             clock.Now,
	}
	dir := NewStaffDirectory(db, []string{"DSP", "CNA"})
	payroll := &recordingPayroll{}
	return &harness{
		db:         db,
		clock:      clock,
		cfg:        cfg,
		dir:        dir,
		attendance: NewAttendanceService(db, dir, cfg),
		approval:   NewApprovalService(db, dir, cfg, payroll),
		payroll:    payroll,
	}
}

func seedStaff(t *testing.T, db *gorm.DB, staff ...model.Staff) {
	t.Helper()
	for i := range staff {
		require.NoError(t, db.Create(&staff[i]).Error)
	}
}

// week0104 is Sunday 2026-01-04 .. Saturday 2026-01-10.
func week0104(t *testing.T) Week {
	t.Helper()
	w, err := ParseWeek("2026-01-04", "2026-01-10", eastern)
	require.NoError(t, err)
	return w
}

func gps(lat, lng, acc float64) *model.LocationInput {
	return &model.LocationInput{Latitude: &lat, Longitude: &lng, AccuracyMeters: &acc}
}

func punch(acc float64) model.PunchRequest {
	return model.PunchRequest{Location: gps(40.44, -79.99, acc), Source: "mobile"}
}

func strp(s string) *string { return &s }

// work records a closed session for actor between two local wall clocks.
func (h *harness) work(t *testing.T, actor model.Actor, date, from, to string) {
	t.Helper()
	h.clock.Set(at(date, from))
	_, err := h.attendance.CheckIn(t.Context(), actor, actor.ID, punch(10))
	require.NoError(t, err)
	end := at(date, to)
	if !end.After(at(date, from)) {
		end = end.AddDate(0, 0, 1)
	}
	h.clock.Set(end)
	_, err = h.attendance.CheckOut(t.Context(), actor, actor.ID, punch(10))
	require.NoError(t, err)
}

type recordingPayroll struct {
	mu      sync.Mutex
	records []model.PayrollRecord
	// onPublish, when set, sees the context each record is published with.
	onPublish func(ctx context.Context)
}

func (p *recordingPayroll) PublishWeek(ctx context.Context, rec model.PayrollRecord) {
	if p.onPublish != nil {
		p.onPublish(ctx)
	}
	p.mu.Lock()
	p.records = append(p.records, rec)
	p.mu.Unlock()
}

func (p *recordingPayroll) all() []model.PayrollRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.PayrollRecord(nil), p.records...)
}
