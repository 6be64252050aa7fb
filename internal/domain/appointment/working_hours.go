package appointment

import (
	"time"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

// atClock projects an "HH:mm" clock string onto the given day/location.
func atClock(day time.Time, hm string) time.Time {
	t, _ := time.Parse("15:04", hm)
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), 0, 0,
		day.Location(),
	)
}

// WithinWorkingHours checks a candidate window against one day's configured
// hours, including the lunch break. Pure function: the caller loads the row.
func WithinWorkingHours(wh *models.WorkingHours, start, end time.Time) bool {
	if wh == nil || !wh.Active || wh.StartTime == "" || wh.EndTime == "" {
		return false
	}

	workStart := atClock(start, wh.StartTime)
	workEnd := atClock(start, wh.EndTime)

	if start.Before(workStart) || end.After(workEnd) {
		return false
	}

	if wh.LunchStart != "" && wh.LunchEnd != "" {
		lunchStart := atClock(start, wh.LunchStart)
		lunchEnd := atClock(start, wh.LunchEnd)

		if start.Before(lunchEnd) && end.After(lunchStart) {
			return false
		}
	}

	return true
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
