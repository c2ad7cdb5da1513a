package schedule

import "errors"

// Client-input errors. They are returned to the caller unchanged and never retried.
var (
	ErrMissingParameter     = errors.New("missing required parameter")
	ErrContentNotFound      = errors.New("content not found")
	ErrInvalidWeekday       = errors.New("invalid weekday")
	ErrInvalidTimeSlot      = errors.New("invalid time slot")
	ErrNoSchedulesGenerated = errors.New("no schedules generated")
	ErrInvalidDateRange     = errors.New("end date before start date")
)

// IsClientError reports whether err was caused by the request rather than the system.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrMissingParameter,
		ErrContentNotFound,
		ErrInvalidWeekday,
		ErrInvalidTimeSlot,
		ErrNoSchedulesGenerated,
		ErrInvalidDateRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
