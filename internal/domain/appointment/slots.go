package appointment

import (
	"time"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

type AvailabilityInput struct {
	BarbershopID uint
	BarberID     uint
	ServiceID    uint
	Date         time.Time
}

type Slot struct {
	Start     string `json:"start"`
	Available bool   `json:"available"`
}

// SlotGridInput is everything the grid computation needs, preloaded by the
// use case. Keeping it pure makes the booking rules testable without a DB.
type SlotGridInput struct {
	Day          time.Time // midnight in the shop timezone
	Hours        *models.WorkingHours
	Settings     *models.BookingSettings
	ServiceMin   int
	Appointments []models.Appointment // scheduled, sorted by start
	Blocks       []models.UnavailablePeriod
	Now          time.Time
}

// SlotGrid discretizes the barber's working window into fixed-size slots and
// marks each start as bookable or not for a service of the requested length.
// A slot is unavailable when the service starting there would cross the end
// of the working window, the lunch break, an unavailable period or an
// existing appointment, or when the start violates the lead-time / advance
// booking limits.
func SlotGrid(in SlotGridInput) []Slot {
	if in.Hours == nil || !in.Hours.Active ||
		in.Hours.StartTime == "" || in.Hours.EndTime == "" {
		return []Slot{}
	}

	slotMin := 30
	leadMin := 120
	advanceDays := 30
	if in.Settings != nil {
		if in.Settings.SlotDurationMin > 0 {
			slotMin = in.Settings.SlotDurationMin
		}
		if in.Settings.MinLeadMinutes > 0 {
			leadMin = in.Settings.MinLeadMinutes
		}
		if in.Settings.MaxAdvanceDays > 0 {
			advanceDays = in.Settings.MaxAdvanceDays
		}
	}

	serviceDur := time.Duration(in.ServiceMin) * time.Minute
	if serviceDur <= 0 {
		serviceDur = time.Duration(slotMin) * time.Minute
	}

	dayStart := atClock(in.Day, in.Hours.StartTime)
	dayEnd := atClock(in.Day, in.Hours.EndTime)

	earliest := in.Now.Add(time.Duration(leadMin) * time.Minute)
	horizon := in.Now.AddDate(0, 0, advanceDays)

	var slots []Slot

	apIdx := 0
	step := time.Duration(slotMin) * time.Minute

	for cur := dayStart; cur.Add(step).Before(dayEnd) || cur.Add(step).Equal(dayEnd); cur = cur.Add(step) {

		slotStart := cur
		serviceEnd := cur.Add(serviceDur)

		available := true

		if serviceEnd.After(dayEnd) {
			available = false
		}

		if slotStart.Before(earliest) || slotStart.After(horizon) {
			available = false
		}

		if available && in.Hours.LunchStart != "" && in.Hours.LunchEnd != "" {
			lunchStart := atClock(in.Day, in.Hours.LunchStart)
			lunchEnd := atClock(in.Day, in.Hours.LunchEnd)
			if overlaps(slotStart, serviceEnd, lunchStart, lunchEnd) {
				available = false
			}
		}

		if available {
			for _, b := range in.Blocks {
				if overlaps(slotStart, serviceEnd, b.StartTime, b.EndTime) {
					available = false
					break
				}
			}
		}

		// appointments are sorted: skip the ones already behind the cursor
		for apIdx < len(in.Appointments) &&
			!in.Appointments[apIdx].EndTime.After(slotStart) {
			apIdx++
		}
		if available {
			for i := apIdx; i < len(in.Appointments); i++ {
				ap := in.Appointments[i]
				if !ap.StartTime.Before(serviceEnd) {
					break
				}
				if overlaps(slotStart, serviceEnd, ap.StartTime, ap.EndTime) {
					available = false
					break
				}
			}
		}

		slots = append(slots, Slot{
			Start:     slotStart.Format("15:04"),
			Available: available,
		})
	}

	if slots == nil {
		return []Slot{}
	}
	return slots
}
