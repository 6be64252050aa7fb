package marketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/bookedbarber/bookedbarber-api/internal/db"
	"github.com/bookedbarber/bookedbarber-api/internal/httperr"
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

func seedShop(t *testing.T, db *gorm.DB) models.Barbershop {
	t.Helper()
	shop := models.Barbershop{Name: "Fade Factory", Slug: "fade-factory"}
	assert.NoError(t, db.Create(&shop).Error)
	return shop
}

func TestCreateCampaign(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)
	svc := NewService(db, new(MockPublisher))

	t.Run("email defaults", func(t *testing.T) {
		c, err := svc.Create(context.Background(), shop.ID, CampaignInput{
			Name:    "Spring promo",
			Subject: "20% off",
			Body:    "Come on in",
		})

		assert.NoError(t, err)
		assert.Equal(t, "email", c.Channel)
		assert.Equal(t, "draft", c.Status)
	})

	t.Run("email requires subject", func(t *testing.T) {
		_, err := svc.Create(context.Background(), shop.ID, CampaignInput{
			Name: "Bad",
			Body: "no subject",
		})

		assert.True(t, httperr.IsBusiness(err, "subject_required"))
	})

	t.Run("unknown channel rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), shop.ID, CampaignInput{
			Name:    "Bad",
			Channel: "carrier-pigeon",
			Body:    "x",
		})

		assert.True(t, httperr.IsBusiness(err, "invalid_channel"))
	})
}

func TestUpdateCampaign_OnlyDrafts(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)
	svc := NewService(db, new(MockPublisher))

	campaign := models.MarketingCampaign{
		BarbershopID: shop.ID,
		Name:         "Done",
		Channel:      "sms",
		Body:         "x",
		Status:       "sent",
	}
	assert.NoError(t, db.Create(&campaign).Error)

	_, err := svc.Update(context.Background(), shop.ID, campaign.ID, CampaignInput{
		Name: "Edited",
		Body: "y",
	})

	assert.True(t, httperr.IsBusiness(err, "campaign_already_sent"))
}

func TestSendCampaign_FanOut(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)

	optedIn := models.Client{BarbershopID: shop.ID, Name: "A", Email: "a@test.test", MarketingOptIn: true}
	optedOut := models.Client{BarbershopID: shop.ID, Name: "B", Email: "b@test.test", MarketingOptIn: false}
	noEmail := models.Client{BarbershopID: shop.ID, Name: "C", Phone: "+15550001111", MarketingOptIn: true}
	assert.NoError(t, db.Create(&optedIn).Error)
	assert.NoError(t, db.Create(&optedOut).Error)
	assert.NoError(t, db.Create(&noEmail).Error)

	// an explicit opt-out must survive the insert
	var persisted models.Client
	assert.NoError(t, db.First(&persisted, optedOut.ID).Error)
	assert.False(t, persisted.MarketingOptIn)

	pub := new(MockPublisher)
	svc := NewService(db, pub)

	campaign, err := svc.Create(context.Background(), shop.ID, CampaignInput{
		Name:    "Promo",
		Subject: "Hi",
		Body:    "Deal",
	})
	assert.NoError(t, err)

	pub.On("PublishJob", mock.MatchedBy(func(job notify.DeliveryJob) bool {
		return job.Kind == "campaign" &&
			job.CampaignID == campaign.ID &&
			job.ClientID == optedIn.ID
	})).Return(nil).Once()

	got, err := svc.Send(context.Background(), shop.ID, campaign.ID)

	assert.NoError(t, err)
	assert.Equal(t, "sent", got.Status)
	pub.AssertExpectations(t)
	// only the opted-in client with an email address gets a job
	pub.AssertNumberOfCalls(t, "PublishJob", 1)
}

func TestSendCampaign_Twice(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.Anything).Return(nil)
	svc := NewService(db, pub)

	campaign, err := svc.Create(context.Background(), shop.ID, CampaignInput{
		Name:    "Promo",
		Subject: "Hi",
		Body:    "Deal",
	})
	assert.NoError(t, err)

	_, err = svc.Send(context.Background(), shop.ID, campaign.ID)
	assert.NoError(t, err)

	_, err = svc.Send(context.Background(), shop.ID, campaign.ID)
	assert.True(t, httperr.IsBusiness(err, "campaign_already_sent"))
}

func TestSendCampaign_BrokerDownRevertsToDraft(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)

	client := models.Client{BarbershopID: shop.ID, Name: "A", Email: "a@test.test", MarketingOptIn: true}
	assert.NoError(t, db.Create(&client).Error)

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.Anything).Return(assert.AnError)
	svc := NewService(db, pub)

	campaign, err := svc.Create(context.Background(), shop.ID, CampaignInput{
		Name:    "Promo",
		Subject: "Hi",
		Body:    "Deal",
	})
	assert.NoError(t, err)

	_, err = svc.Send(context.Background(), shop.ID, campaign.ID)
	assert.Error(t, err)

	var got models.MarketingCampaign
	assert.NoError(t, db.First(&got, campaign.ID).Error)
	assert.Equal(t, "draft", got.Status)

	// a later retry with the broker back succeeds
	healthy := new(MockPublisher)
	healthy.On("PublishJob", mock.Anything).Return(nil)

	sent, err := NewService(db, healthy).Send(context.Background(), shop.ID, campaign.ID)
	assert.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)
}

func TestDeleteCampaign_InFlight(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)
	svc := NewService(db, new(MockPublisher))

	campaign := models.MarketingCampaign{
		BarbershopID: shop.ID,
		Name:         "Busy",
		Channel:      "email",
		Subject:      "x",
		Body:         "x",
		Status:       "sending",
	}
	assert.NoError(t, db.Create(&campaign).Error)

	err := svc.Delete(context.Background(), shop.ID, campaign.ID)

	assert.True(t, httperr.IsBusiness(err, "campaign_in_flight"))
}

func TestSweepScheduled(t *testing.T) {
	db := testDB(t)
	shop := seedShop(t, db)

	client := models.Client{BarbershopID: shop.ID, Name: "A", Email: "a@test.test", MarketingOptIn: true}
	assert.NoError(t, db.Create(&client).Error)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := models.MarketingCampaign{
		BarbershopID: shop.ID,
		Name:         "Due",
		Channel:      "email",
		Subject:      "x",
		Body:         "x",
		Status:       "draft",
		ScheduledAt:  &past,
	}
	notYet := models.MarketingCampaign{
		BarbershopID: shop.ID,
		Name:         "Later",
		Channel:      "email",
		Subject:      "x",
		Body:         "x",
		Status:       "draft",
		ScheduledAt:  &future,
	}
	assert.NoError(t, db.Create(&due).Error)
	assert.NoError(t, db.Create(&notYet).Error)

	pub := new(MockPublisher)
	pub.On("PublishJob", mock.Anything).Return(nil)

	NewService(db, pub).SweepScheduled(context.Background())

	var gotDue, gotLater models.MarketingCampaign
	assert.NoError(t, db.First(&gotDue, due.ID).Error)
	assert.NoError(t, db.First(&gotLater, notYet.ID).Error)
	assert.Equal(t, "sent", gotDue.Status)
	assert.Equal(t, "draft", gotLater.Status)
	pub.AssertNumberOfCalls(t, "PublishJob", 1)
}
