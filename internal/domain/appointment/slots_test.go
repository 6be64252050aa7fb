package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
)

func day(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2026-09-10")
	assert.NoError(t, err)
	return d
}

func fullDayHours() *models.WorkingHours {
	return &models.WorkingHours{
		Weekday:    4,
		Active:     true,
		StartTime:  "09:00",
		EndTime:    "17:00",
		LunchStart: "12:00",
		LunchEnd:   "13:00",
	}
}

func slotByStart(slots []Slot, start string) (Slot, bool) {
	for _, s := range slots {
		if s.Start == start {
			return s, true
		}
	}
	return Slot{}, false
}

func TestSlotGrid_BasicGrid(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30},
		ServiceMin: 30,
		Now:        d.Add(-24 * time.Hour),
	})

	assert.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0].Start)
	assert.Equal(t, "16:30", slots[len(slots)-1].Start)

	// everything outside lunch is free on an empty day
	free := 0
	for _, s := range slots {
		if s.Available {
			free++
		}
	}
	assert.Equal(t, 14, free)
}

func TestSlotGrid_LunchBlocksSlots(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30},
		ServiceMin: 30,
		Now:        d.Add(-24 * time.Hour),
	})

	for start, want := range map[string]bool{
		"11:30": true, // ends exactly at lunch start
		"12:00": false,
		"12:30": false,
		"13:00": true,
	} {
		s, ok := slotByStart(slots, start)
		assert.True(t, ok, start)
		assert.Equal(t, want, s.Available, start)
	}
}

func TestSlotGrid_LongServiceCrossesBoundaries(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30},
		ServiceMin: 60,
		Now:        d.Add(-24 * time.Hour),
	})

	for start, want := range map[string]bool{
		"11:00": true,
		"11:30": false, // would run into lunch
		"16:00": true,
		"16:30": false, // would run past closing
	} {
		s, ok := slotByStart(slots, start)
		assert.True(t, ok, start)
		assert.Equal(t, want, s.Available, start)
	}
}

func TestSlotGrid_ExistingAppointmentBlocks(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30},
		ServiceMin: 30,
		Appointments: []models.Appointment{
			{
				StartTime: d.Add(14 * time.Hour),
				EndTime:   d.Add(15 * time.Hour),
			},
		},
		Now: d.Add(-24 * time.Hour),
	})

	for start, want := range map[string]bool{
		"13:30": true,
		"14:00": false,
		"14:30": false,
		"15:00": true,
	} {
		s, ok := slotByStart(slots, start)
		assert.True(t, ok, start)
		assert.Equal(t, want, s.Available, start)
	}
}

func TestSlotGrid_UnavailablePeriodBlocks(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30},
		ServiceMin: 30,
		Blocks: []models.UnavailablePeriod{
			{
				StartTime: d.Add(9 * time.Hour),
				EndTime:   d.Add(10 * time.Hour),
			},
		},
		Now: d.Add(-24 * time.Hour),
	})

	for start, want := range map[string]bool{
		"09:00": false,
		"09:30": false,
		"10:00": true,
	} {
		s, ok := slotByStart(slots, start)
		assert.True(t, ok, start)
		assert.Equal(t, want, s.Available, start)
	}
}

func TestSlotGrid_LeadTimeHidesNearSlots(t *testing.T) {
	d := day(t)

	// 09:30 now + 120 min lead: nothing before 11:30 is bookable
	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30, MinLeadMinutes: 120},
		ServiceMin: 30,
		Now:        d.Add(9*time.Hour + 30*time.Minute),
	})

	for start, want := range map[string]bool{
		"09:00": false,
		"11:00": false,
		"11:30": true,
	} {
		s, ok := slotByStart(slots, start)
		assert.True(t, ok, start)
		assert.Equal(t, want, s.Available, start)
	}
}

func TestSlotGrid_AdvanceWindowHidesFarDays(t *testing.T) {
	d := day(t)

	// now is 40 days before the day: outside a 30-day window
	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      fullDayHours(),
		Settings:   &models.BookingSettings{SlotDurationMin: 30, MaxAdvanceDays: 30},
		ServiceMin: 30,
		Now:        d.AddDate(0, 0, -40),
	})

	for _, s := range slots {
		assert.False(t, s.Available, s.Start)
	}
}

func TestSlotGrid_InactiveDayIsEmpty(t *testing.T) {
	d := day(t)

	slots := SlotGrid(SlotGridInput{
		Day:        d,
		Hours:      &models.WorkingHours{Active: false},
		Settings:   &models.BookingSettings{},
		ServiceMin: 30,
		Now:        d,
	})

	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}
