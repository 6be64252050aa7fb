package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/notify"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJob(job notify.DeliveryJob) error {
	args := m.Called(job)
	return args.Error(0)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, dbpkg.Migrate(db))
	return db
}

func seedReminder(t *testing.T, db *gorm.DB, status string, sendAt time.Time) models.ReminderSchedule {
	t.Helper()

	ap := models.Appointment{
		StartTime: sendAt.Add(2 * time.Hour),
		EndTime:   sendAt.Add(2*time.Hour + 30*time.Minute),
		Status:    "scheduled",
	}
	assert.NoError(t, db.Create(&ap).Error)

	rem := models.ReminderSchedule{
		AppointmentID: ap.ID,
		Channel:       "email",
		SendAt:        sendAt,
		Status:        status,
	}
	assert.NoError(t, db.Create(&rem).Error)
	return rem
}

func TestSweep_PublishesDueReminders(t *testing.T) {
	db := testDB(t)
	rem := seedReminder(t, db, "pending", time.Now().Add(-time.Minute))

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.MatchedBy(func(job notify.DeliveryJob) bool {
		return job.Kind == "reminder" &&
			job.ReminderID == rem.ID &&
			job.AppointmentID == rem.AppointmentID &&
			job.Channel == "email"
	})).Return(nil)

	NewScheduler(db, pub, time.Minute).sweep(context.Background())

	var got models.ReminderSchedule
	assert.NoError(t, db.First(&got, rem.ID).Error)
	assert.Equal(t, "queued", got.Status)
	pub.AssertExpectations(t)
}

func TestSweep_SkipsFutureReminders(t *testing.T) {
	db := testDB(t)
	rem := seedReminder(t, db, "pending", time.Now().Add(time.Hour))

	pub := new(MockPublisher)

	NewScheduler(db, pub, time.Minute).sweep(context.Background())

	var got models.ReminderSchedule
	assert.NoError(t, db.First(&got, rem.ID).Error)
	assert.Equal(t, "pending", got.Status)
	pub.AssertNotCalled(t, "PublishJob", mock.Anything)
}

func TestSweep_RevertsOnPublishFailure(t *testing.T) {
	db := testDB(t)
	rem := seedReminder(t, db, "pending", time.Now().Add(-time.Minute))

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.Anything).Return(assert.AnError)

	NewScheduler(db, pub, time.Minute).sweep(context.Background())

	var got models.ReminderSchedule
	assert.NoError(t, db.First(&got, rem.ID).Error)
	assert.Equal(t, "pending", got.Status)
}

func TestSweep_ReoffersStaleQueued(t *testing.T) {
	db := testDB(t)
	rem := seedReminder(t, db, "queued", time.Now().Add(-time.Hour))

	// make the queued row look abandoned
	assert.NoError(t, db.Model(&models.ReminderSchedule{}).
		Where("id = ?", rem.ID).
		UpdateColumn("updated_at", time.Now().Add(-30*time.Minute)).Error)

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.Anything).Return(nil)

	NewScheduler(db, pub, time.Minute).sweep(context.Background())

	var got models.ReminderSchedule
	assert.NoError(t, db.First(&got, rem.ID).Error)
	assert.Equal(t, "queued", got.Status)
	pub.AssertNumberOfCalls(t, "PublishJob", 1)
}

func TestSweep_LeavesFreshQueuedAlone(t *testing.T) {
	db := testDB(t)
	seedReminder(t, db, "queued", time.Now().Add(-time.Minute))

	pub := new(MockPublisher)

	NewScheduler(db, pub, time.Minute).sweep(context.Background())

	pub.AssertNotCalled(t, "PublishJob", mock.Anything)
}
