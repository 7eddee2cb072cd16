package service

import (
	"sync"
	"testing"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInCheckOut(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	h.clock.Set(at("2026-01-05", "08:00"))
	clientIn := at("2026-01-05", "07:58")
	req := punch(12)
	req.ClientTime = &clientIn
	in, err := h.attendance.CheckIn(ctx, alice, alice.ID, req)
	require.NoError(t, err)
	assert.True(t, in.Status.IsCheckedIn)
	require.NotNil(t, in.Status.OpenEventID)
	assert.Equal(t, in.Event.ID, *in.Status.OpenEventID)
	assert.Equal(t, "2026-01-05", in.Event.WorkDate)
	assert.Equal(t, model.SourceMobile, in.Event.Source)
	assert.True(t, in.Event.CheckInAt.Equal(at("2026-01-05", "08:00")), "server clock wins")
	require.NotNil(t, in.Event.ClientCheckInAt)
	assert.True(t, in.Event.ClientCheckInAt.Equal(clientIn))
	assert.Nil(t, in.Event.TotalMinutes)

	h.clock.Set(at("2026-01-05", "17:00"))
	out, err := h.attendance.CheckOut(ctx, alice, alice.ID, punch(15))
	require.NoError(t, err)
	require.NotNil(t, out.Event.TotalMinutes)
	assert.Equal(t, 540, *out.Event.TotalMinutes)
	assert.Equal(t, in.Event.ID, out.Event.ID)
	require.NotNil(t, out.Event.CheckOutLocation)
	assert.Equal(t, 15.0, out.Event.CheckOutLocation.AccuracyMeters)
	assert.False(t, out.Status.IsCheckedIn)
	assert.Nil(t, out.Status.OpenEventID)
	require.NotNil(t, out.Status.LastCheckOutAt)
	assert.True(t, out.Status.LastCheckOutAt.Equal(at("2026-01-05", "17:00")))

	d, err := h.approval.GetWeeklyDetail(ctx, alice, alice.ID, week0104(t))
	require.NoError(t, err)
	assert.Equal(t, 540, d.Approval.ComputedMinutes)
	assert.Equal(t, 540, d.Approval.FinalMinutes)
	assert.Equal(t, model.WeekPending, d.Approval.Status)
	assert.Equal(t, 540, d.Days[1].ComputedMinutes)
}

func TestCheckInConflict(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	_, err := h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	_, err = h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
	assert.ErrorIs(t, err, ErrConflict)

	var n int64
	require.NoError(t, h.db.Model(&model.AttendanceEvent{}).Where("staff_id = ?", alice.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// another staff member is unaffected
	_, err = h.attendance.CheckIn(ctx, bob, bob.ID, punch(10))
	assert.NoError(t, err)
}

func TestConcurrentCheckIn(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, ok)

	var open int64
	require.NoError(t, h.db.Model(&model.AttendanceEvent{}).Where("staff_id = ? AND check_out_at IS NULL", alice.ID).Count(&open).Error)
	assert.EqualValues(t, 1, open)
}

func TestCheckInInvalidLocation(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	lat, lng, acc := 40.0, -79.0, 10.0
	bad := map[string]*model.LocationInput{
		"missing":           nil,
		"latitude range":    gps(91, lng, acc),
		"longitude range":   gps(lat, -181, acc),
		"negative accuracy": gps(lat, lng, -1),
		"missing accuracy":  {Latitude: &lat, Longitude: &lng},
	}
	for name, loc := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := h.attendance.CheckIn(ctx, alice, alice.ID, model.PunchRequest{Location: loc})
			assert.ErrorIs(t, err, ErrInvalidLocation)
		})
	}

	var n int64
	require.NoError(t, h.db.Model(&model.AttendanceEvent{}).Count(&n).Error)
	assert.Zero(t, n)

	// (0, 0) with perfect accuracy is a legitimate fix
	_, err := h.attendance.CheckIn(ctx, alice, alice.ID, model.PunchRequest{Location: gps(0, 0, 0)})
	assert.NoError(t, err)
}

func TestCheckOutWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.attendance.CheckOut(t.Context(), alice, alice.ID, punch(10))
	assert.ErrorIs(t, err, ErrNoOpenSession)

	_, err = h.attendance.CheckOut(t.Context(), alice, alice.ID, model.PunchRequest{})
	assert.ErrorIs(t, err, ErrInvalidLocation, "location is validated first")
}

func TestCheckOutWeekLocked(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	week := week0104(t)

	h.work(t, alice, "2026-01-05", "08:00", "17:00")
	h.clock.Set(at("2026-01-09", "08:00"))
	_, err := h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
	require.NoError(t, err)

	h.clock.Set(at("2026-01-09", "10:00"))
	wa, err := h.approval.Approve(ctx, hr, alice.ID, week, "")
	require.NoError(t, err)
	assert.Equal(t, 540, wa.FinalMinutes)
	assert.Equal(t, 1, wa.OpenSessions)

	h.clock.Set(at("2026-01-09", "16:00"))
	_, err = h.attendance.CheckOut(ctx, alice, alice.ID, punch(10))
	assert.ErrorIs(t, err, ErrWeekLocked)

	st, err := h.attendance.GetStatus(ctx, alice, alice.ID)
	require.NoError(t, err)
	assert.True(t, st.IsCheckedIn, "session stays open")

	_, err = h.approval.Unlock(ctx, hr, alice.ID, week, "late checkout")
	require.NoError(t, err)
	out, err := h.attendance.CheckOut(ctx, alice, alice.ID, punch(10))
	require.NoError(t, err)
	assert.Equal(t, 480, *out.Event.TotalMinutes)
}

func TestCheckInIntoApprovedWeek(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	week := week0104(t)

	h.work(t, alice, "2026-01-05", "08:00", "17:00")
	_, err := h.approval.Approve(ctx, hr, alice.ID, week, "")
	require.NoError(t, err)

	h.clock.Set(at("2026-01-06", "08:00"))
	_, err = h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
	assert.NoError(t, err)

	// approved totals are unchanged until the week is reopened
	list, err := h.approval.ListPayroll(ctx, hr, week)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 540, list[0].FinalMinutes)
}

func TestCheckOutClockBehind(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	h.clock.Set(at("2026-01-05", "08:00"))
	in, err := h.attendance.CheckIn(ctx, alice, alice.ID, punch(10))
	require.NoError(t, err)

	h.clock.Set(at("2026-01-05", "07:55"))
	out, err := h.attendance.CheckOut(ctx, alice, alice.ID, punch(10))
	require.NoError(t, err)
	assert.Equal(t, 0, *out.Event.TotalMinutes)
	require.NotNil(t, out.Event.CheckOutAt)
	assert.True(t, out.Event.CheckOutAt.After(in.Event.CheckInAt))
}

func TestAttendanceAccess(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	_, err := h.attendance.CheckIn(ctx, alice, bob.ID, punch(10))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.attendance.CheckIn(ctx, model.Actor{}, alice.ID, punch(10))
	assert.ErrorIs(t, err, ErrActorRequired)

	_, err = h.attendance.CheckIn(ctx, hr, alice.ID, punch(10))
	assert.ErrorIs(t, err, ErrForbidden, "reviewers cannot punch for staff")

	carl := model.Actor{ID: "s-carl", Name: "Carl Inactive", Role: model.RoleStaff}
	_, err = h.attendance.CheckIn(ctx, carl, carl.ID, punch(10))
	assert.ErrorIs(t, err, ErrStaffIneligible)

	dana := model.Actor{ID: "s-dana", Name: "Dana Office", Role: model.RoleStaff}
	_, err = h.attendance.CheckIn(ctx, dana, dana.ID, punch(10))
	assert.ErrorIs(t, err, ErrStaffIneligible)

	ghost := model.Actor{ID: "s-ghost", Role: model.RoleStaff}
	_, err = h.attendance.CheckIn(ctx, ghost, ghost.ID, punch(10))
	assert.ErrorIs(t, err, ErrStaffNotFound)

	// bob's category is stored lower case
	_, err = h.attendance.CheckIn(ctx, bob, bob.ID, punch(10))
	assert.NoError(t, err)

	_, err = h.attendance.GetStatus(ctx, alice, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	st, err := h.attendance.GetStatus(ctx, hr, bob.ID)
	require.NoError(t, err)
	assert.True(t, st.IsCheckedIn)
}

func TestGetStatusFresh(t *testing.T) {
	h := newHarness(t)
	st, err := h.attendance.GetStatus(t.Context(), alice, alice.ID)
	require.NoError(t, err)
	assert.False(t, st.IsCheckedIn)
	assert.Nil(t, st.LastCheckInAt)
	assert.Nil(t, st.LastCheckOutAt)
	assert.Nil(t, st.LastLocation)
}

func TestListAttendance(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	week := week0104(t)

	h.work(t, alice, "2026-01-05", "08:00", "17:00")
	h.work(t, alice, "2026-01-07", "22:00", "02:00")
	h.work(t, alice, "2026-01-12", "08:00", "09:00") // next week

	list, err := h.attendance.ListAttendance(ctx, alice, alice.ID, week)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-01-05", list[0].WorkDate)
	assert.Empty(t, list[0].Flags)
	assert.Equal(t, "2026-01-07", list[1].WorkDate)
	assert.Equal(t, []string{FlagCrossesMidnight}, list[1].Flags)
	assert.Equal(t, 240, *list[1].TotalMinutes)

	_, err = h.attendance.ListAttendance(ctx, bob, alice.ID, week)
	assert.ErrorIs(t, err, ErrForbidden)
}
