package service

import "errors"

// Client-correctable errors. Callers match them with errors.Is; the wrapped
// message carries the detail to render.
var (
	ErrConflict        = errors.New("an open session already exists")
	ErrNoOpenSession   = errors.New("no open session")
	ErrInvalidLocation = errors.New("invalid location")
	ErrWeekLocked      = errors.New("week is approved and locked")
	ErrAlreadyApproved = errors.New("week is already approved")
	ErrNotApproved     = errors.New("week is not approved")
	ErrReasonRequired  = errors.New("reason required")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidWeek     = errors.New("invalid week")
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrActorRequired   = errors.New("actor identity required")
	ErrForbidden       = errors.New("forbidden")
	ErrStaffNotFound   = errors.New("staff not found")
	ErrStaffIneligible = errors.New("staff not eligible for time keeping")
	ErrBadCredentials  = errors.New("wrong username or password")
)

// IsClientError reports whether err is one of the errors above. Anything else
// is a store or infrastructure fault the caller may retry.
func IsClientError(err error) bool {
	for _, e := range []error{
		ErrConflict, ErrNoOpenSession, ErrInvalidLocation, ErrWeekLocked,
		ErrAlreadyApproved, ErrNotApproved, ErrReasonRequired, ErrInvalidDuration,
		ErrInvalidWeek, ErrInvalidFilter, ErrActorRequired, ErrForbidden, ErrStaffNotFound,
		ErrStaffIneligible, ErrBadCredentials,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
